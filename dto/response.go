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


package dto

import (
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
)

type WagerPlaced struct {
	WagerID     string  `json:"wager_id"`
	RoundID     string  `json:"round_id"`
	Stake       float64 `json:"stake"`
	AutoCashOut float64 `json:"auto_cash_out,omitempty"`
	Balance     float64 `json:"balance"`
}

type CashOutResult struct {
	WagerID    string  `json:"wager_id"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
	Balance    float64 `json:"balance"`
}

// RoundView 目前局狀態加上最近的 crash point（新到舊）
type RoundView struct {
	crashlab.RoundSnapshot
	History []float64 `json:"history"`
}

// PlayerView 帳戶與最近的帳本流水
type PlayerView struct {
	ledger.Account
	Journal []ledger.Entry `json:"journal"`
}

// WalletView 申請列表；Totals 只在管理端回傳。
type WalletView struct {
	Requests []ledger.Request     `json:"requests"`
	Totals   *ledger.RequestTotals `json:"totals,omitempty"`
}

// SettingView 目前生效於下一局的設定
type SettingView struct {
	Setting *spec.EngineSetting `json:"setting"`
}

type SimResult struct {
	Seed      int64                   `json:"seed"`
	Stats     *stats.StatReport       `json:"stats"`
	Estimator *stats.EstimatorPlayers `json:"estimator,omitempty"`
	UsedMs    int64                   `json:"used_ms"`
}

// LiveMessage 為 websocket 推播的訊息；連線時先送一則 snapshot，之後每個局事件一則 event。
type LiveMessage struct {
	Type    string                  `json:"type"`
	Round   *crashlab.RoundSnapshot `json:"round,omitempty"`
	History []float64               `json:"history,omitempty"`
	Event   *crashlab.Event         `json:"event,omitempty"`
}

const (
	LiveSnapshot = "snapshot"
	LiveEvent    = "event"
)

func NewLiveSnapshot(r crashlab.RoundSnapshot, history []float64) LiveMessage {
	return LiveMessage{Type: LiveSnapshot, Round: &r, History: history}
}

func NewLiveEvent(ev crashlab.Event) LiveMessage {
	return LiveMessage{Type: LiveEvent, Event: &ev}
}
