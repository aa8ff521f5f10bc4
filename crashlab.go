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

// Package crashlab 實作 crash 遊戲的 Round Engine：
// 抽 crash point、依經過時間推進倍率、受理押注 / 兌現並在 crash 時結算。
//
// 餘額不屬於引擎，透過注入的 Ledger 扣款 / 派彩。
package crashlab

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/sdk/core"
)

// Ledger 是引擎唯一的餘額介面。
//
// Debit 餘額不足時必須回傳 errs.KindInsufficientFunds 的錯誤，且不得有任何副作用。
// 兩個方法都會在引擎的臨界區內被呼叫，實作不得回呼引擎。
type Ledger interface {
	Debit(playerID string, amount float64) error
	Credit(playerID string, amount float64) error
}

// Observer 接收同步的統計回呼（例如 prometheus），在臨界區內呼叫，必須很快返回。
type Observer interface {
	RoundStarted()
	RoundCrashed(crashPoint float64, ticks int)
	WagerPlaced(stake float64)
	WagerSettled(status WagerStatus, payout float64)
	LedgerRefused(kind errs.Kind)
}

type nopObserver struct{}

func (nopObserver) RoundStarted() {}
func (nopObserver) RoundCrashed(float64, int) {}
func (nopObserver) WagerPlaced(float64) {}
func (nopObserver) WagerSettled(WagerStatus, float64) {}
func (nopObserver) LedgerRefused(errs.Kind) {}

// Option 調整 Engine 的可選依賴。
type Option func(*Engine)

// WithClock 注入時鐘（測試與模擬器使用 clockwork.FakeClock）。
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithPRNG 注入亂數來源；預設為 core.Default() 以 crypto seed 建立的 PCG64。
func WithPRNG(rng core.PRNG) Option {
	return func(e *Engine) {
		if rng != nil {
			e.core = core.New(rng)
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

// WithIDGenerator 替換 round / wager id 產生器（預設 uuid v4）。
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}
