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

package crashlab

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/zintix-labs/crashlab/errs"
)

// Driver 以固定節奏呼叫 Engine.Tick，讓倍率事件、crash、冷卻與自動開局在沒有玩家請求時也會發生。
//
// Driver 滿足 server/app.Component（Run / Shutdown），由 App 管理生命週期。
// 節奏取建立當下設定的 tick；之後修改 tick 只影響倍率計算（由經過時間決定），不影響 Driver 節奏。
type Driver struct {
	eng     *Engine
	sched   gocron.Scheduler
	cadence time.Duration
	log     *slog.Logger
	done    chan struct{}
	once    sync.Once
}

func NewDriver(eng *Engine, log *slog.Logger) (*Driver, error) {
	if eng == nil {
		return nil, errs.InvalidArgument("driver needs an engine")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cadence := eng.Setting().Tick.D()
	sched, err := gocron.NewScheduler(
		gocron.WithClock(eng.clock),
		gocron.WithLogger(log),
	)
	if err != nil {
		return nil, errs.Wrap(err, "create tick scheduler failed")
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cadence),
		gocron.NewTask(eng.Tick),
		gocron.WithName("round-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, errs.Wrap(err, "register tick job failed")
	}
	return &Driver{
		eng:     eng,
		sched:   sched,
		cadence: cadence,
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

// Cadence 回傳 Driver 呼叫 Tick 的間隔。
func (d *Driver) Cadence() time.Duration { return d.cadence }

// Run 啟動排程並阻塞到 Shutdown。
func (d *Driver) Run() error {
	d.sched.Start()
	d.log.Info("round driver started", slog.Duration("cadence", d.cadence))
	<-d.done
	return nil
}

// Shutdown 停止排程；ctx 逾時則回傳 ctx.Err()。
func (d *Driver) Shutdown(ctx context.Context) error {
	d.once.Do(func() { close(d.done) })
	errCh := make(chan error, 1)
	go func() { errCh <- d.sched.Shutdown() }()
	select {
	case err := <-errCh:
		if err != nil {
			return errs.Wrap(err, "tick scheduler shutdown failed")
		}
		d.log.Info("round driver stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
