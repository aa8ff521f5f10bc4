// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/configs"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/ledger/sqlbook"
	"github.com/zintix-labs/crashlab/metrics"
	"github.com/zintix-labs/crashlab/sdk/core"
	"github.com/zintix-labs/crashlab/server"
	"github.com/zintix-labs/crashlab/server/logger"
	"github.com/zintix-labs/crashlab/server/svrcfg"
	"github.com/zintix-labs/crashlab/spec"
)

// crash 遊戲的 lab server：內建示範玩家、/metrics 與管理端（需設定 admin token）。
// 旗標優先，其次為環境變數（CRASHLAB_*，可放在 .env），最後為預設值。
func main() {
	// .env 不存在時不視為錯誤
	_ = godotenv.Load()

	cfg := bindFlags()
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	addr       string
	logMode    string
	setting    string
	adminToken string
	fair       bool
	demo       bool
	liveBuf    int
	db         string
}

func bindFlags() *config {
	cfg := new(config)
	flag.StringVar(&cfg.addr, "addr", env("CRASHLAB_ADDR", ":5808"), "listen address")
	flag.StringVar(&cfg.logMode, "log-mode", env("CRASHLAB_LOG_MODE", "dev"), "log mode: dev|prod|silence")
	flag.StringVar(&cfg.setting, "config", env("CRASHLAB_CONFIG", ""), "engine setting file (.yaml/.json), empty = embedded default")
	flag.StringVar(&cfg.adminToken, "admin-token", env("CRASHLAB_ADMIN_TOKEN", ""), "X-Admin-Token for /v1/admin, empty = admin api disabled")
	flag.BoolVar(&cfg.fair, "fair", envBool("CRASHLAB_FAIR", false), "use HMAC provably-fair crash points")
	flag.BoolVar(&cfg.demo, "demo", envBool("CRASHLAB_DEMO", true), "open demo players alice, bob and carol")
	flag.IntVar(&cfg.liveBuf, "live-buf", envInt("CRASHLAB_LIVE_BUF", 256), "event buffer per live connection")
	flag.StringVar(&cfg.db, "db", env("CRASHLAB_DB", ""), "ledger dsn: postgres://... or a sqlite file, empty = in-memory")
	flag.Parse()
	return cfg
}

func run(cfg *config) error {
	mode, err := logger.ParseMode(cfg.logMode)
	if err != nil {
		return err
	}
	log, async := logger.NewAsync(4096, mode)

	setting, err := loadSetting(cfg.setting)
	if err != nil {
		return err
	}

	var led ledger.Book
	if cfg.db == "" {
		led = ledger.NewMemory(nil)
	} else {
		book, err := sqlbook.Dial(cfg.db, nil)
		if err != nil {
			return err
		}
		defer book.Close()
		led = book
	}
	if cfg.demo {
		for _, id := range []string{"alice", "bob", "carol"} {
			// 持久化帳本重啟時帳戶已存在
			if err := led.Open(id, "", 1000); err != nil && errs.KindOf(err) != errs.KindInvalidState {
				return err
			}
		}
	}

	col := metrics.New()
	opts := []crashlab.Option{crashlab.WithLogger(log), crashlab.WithObserver(col)}
	if cfg.fair {
		seed := make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return err
		}
		f := core.NewFair(seed, "crashlab", 0)
		// 只公開 commitment；server seed 輪替時再揭露
		log.Info("provably fair enabled", slog.String("commitment", f.Commitment()))
		opts = append(opts, crashlab.WithPRNG(f))
	}
	eng, err := crashlab.New(setting, led, opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	drv, err := crashlab.NewDriver(eng, log)
	if err != nil {
		return err
	}

	sCfg := &svrcfg.SvrCfg{
		Addr:       cfg.addr,
		Log:        log,
		Engine:     eng,
		Ledger:     led,
		Metrics:    col,
		AdminToken: cfg.adminToken,
		LiveBuffer: cfg.liveBuf,
	}
	if cfg.adminToken == "" {
		log.Warn("admin api disabled: no admin token")
	}
	// async logger 最先註冊、最後關閉，確保關機過程的 log 都寫出
	return server.Run(sCfg, async, drv)
}

func loadSetting(path string) (*spec.EngineSetting, error) {
	if path == "" {
		return spec.LoadFS(configs.FS, configs.DefaultEngine)
	}
	return spec.LoadFile(path)
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

