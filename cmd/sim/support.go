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
	"log"
	"math"
	"math/big"
	"os"
	"time"

	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/configs"
	"github.com/zintix-labs/crashlab/sdk/objstore"
	"github.com/zintix-labs/crashlab/sdk/perf"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg = new(config)

type config struct {
	config  string
	rtp     float64
	target  float64
	worker  int
	player  int
	bets    int
	rounds  int
	seed    int64
	output  string
	showpb  bool
	pprof   perf.Mode
	s3      string
	dest    objstore.Target
	setting *spec.EngineSetting
}

func bindVar() {
	var pmode string
	flag.StringVar(&cfg.config, "config", "", "engine setting file (.yaml/.json), empty = embedded default")
	flag.Float64Var(&cfg.rtp, "rtp", 0, "override rtp (0 < rtp <= 1)")
	flag.Float64Var(&cfg.target, "target", 2, "auto cash-out target (> 1)")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.player, "player", 1, "number of players, > 1 switches to session mode")
	flag.IntVar(&cfg.bets, "bets", 100, "initial balance per player, in stakes")
	flag.IntVar(&cfg.rounds, "rounds", 1000000, "rounds per worker (per player in session mode)")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed, < 1 = random")
	flag.StringVar(&cfg.output, "o", "text", "report format: text, json, yaml")
	flag.BoolVar(&cfg.showpb, "pb", true, "show progress bar")
	flag.StringVar(&pmode, "p", "", "pprof: '', cpu, heap, allocs")
	flag.StringVar(&cfg.s3, "s3", "", "upload the json report to s3://bucket/key (CRASHLAB_S3_* for endpoint and keys)")
	flag.Parse()

	m, err := perf.ParseMode(pmode)
	if err != nil {
		log.Fatal(err)
	}
	cfg.pprof = m

	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

func executeSimulator() {
	cfg.valid()

	s, err := crashlab.NewSimulatorWithSeed(cfg.setting, cfg.target, cfg.seed)
	if err != nil {
		log.Fatal(err)
	}
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	text := cfg.output == "text" || cfg.output == "txt" || cfg.output == ""

	if cfg.player == 1 {
		if text {
			p.Fprintf(os.Stderr, "%s[WORKERS:%d] [RTP:%.4f] [TARGET:%.2fx] [ROUNDS:%d] [SEED:%d]%s\n",
				green, cfg.worker, cfg.setting.RTP, cfg.target, cfg.worker*cfg.rounds, s.Seed(), reset)
		}
		st, used, err := s.SimMP(cfg.rounds, cfg.worker, cfg.showpb)
		if err != nil {
			log.Fatal(err)
		}
		report(st, nil, used, text)
		return
	}
	if text {
		p.Fprintf(os.Stderr, "%s[WORKERS:%d] [RTP:%.4f] [TARGET:%.2fx] [PLAYERS:%d BALANCE:%d ROUNDS:%d] [SEED:%d]%s\n",
			green, cfg.worker, cfg.setting.RTP, cfg.target, cfg.player, cfg.bets, cfg.rounds, s.Seed(), reset)
	}
	st, est, used, err := s.SimPlayers(cfg.worker, cfg.player, cfg.bets, cfg.rounds, cfg.showpb)
	if err != nil {
		log.Fatal(err)
	}
	report(st, est, used, text)
}

func report(st *stats.StatReport, est *stats.EstimatorPlayers, used time.Duration, text bool) {
	if cfg.s3 != "" {
		upload(st, est)
	}
	if text {
		st.StdOut(used)
		if est != nil {
			est.Out()
		}
		return
	}
	r, _ := stats.RenderByName(cfg.output)
	if err := st.WriteWith(os.Stdout, r); err != nil {
		log.Fatal(err)
	}
	if est == nil {
		return
	}
	var er stats.EstimatorRender = &stats.JsonEstimatorRender{}
	if cfg.output != "json" {
		er = &stats.YAMLEstimatorRender{}
	}
	if err := er.Write(os.Stdout, est); err != nil {
		log.Fatal(err)
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	setting, err := loadSetting(cfg.config)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.rtp != 0 {
		setting.RTP = cfg.rtp
	}
	if err := setting.Valid(); err != nil {
		log.Fatal(err)
	}
	cfg.setting = setting

	if _, ok := stats.RenderByName(cfg.output); !ok {
		log.Fatalf("value err : unknown output format %q", cfg.output)
	}
	if cfg.target <= 1 {
		log.Fatal("value err : target must > 1")
	}
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}
	if cfg.player < 1 {
		log.Fatal("value err : player must > 0")
	}
	if cfg.player > 100000 {
		p.Fprintf(os.Stderr, "too many players: %d resized to 100k players\n", cfg.player)
		cfg.player = 100000
	}
	if cfg.player > 1 && cfg.bets < 1 {
		log.Fatal("value err : bets must >= 1")
	}
	if cfg.rounds < 1 {
		log.Fatal("value err : rounds must > 0")
	}
	if cfg.s3 != "" {
		t, err := objstore.ParseURL(cfg.s3)
		if err != nil {
			log.Fatal(err)
		}
		cfg.dest = t
	}
	// 一局約 10 秒，20k 局已超過兩天的連續遊玩，再長就直接看機台長期模擬
	if cfg.player > 1 && cfg.rounds > 20000 {
		p.Fprintf(os.Stderr, "too many rounds for each player : %d resized to 20k rounds\n", cfg.rounds)
		cfg.rounds = 20000
	}
}

func loadSetting(path string) (*spec.EngineSetting, error) {
	if path == "" {
		return spec.LoadFS(configs.FS, configs.DefaultEngine)
	}
	return spec.LoadFile(path)
}
