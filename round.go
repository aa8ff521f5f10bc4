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
	"encoding/json"
	"time"

	"github.com/zintix-labs/crashlab/sdk/crash"
	"github.com/zintix-labs/crashlab/spec"
)

// State 為局的狀態：Idle -> Running -> Crashed -> (冷卻) -> 新的 Idle 局
type State uint8

const (
	Idle State = iota
	Running
	Crashed
)

var stateNames = [...]string{Idle: "idle", Running: "running", Crashed: "crashed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// WagerStatus 為押注狀態：Active 只會前進到 CashedOut 或 Lost，且不可逆。
type WagerStatus uint8

const (
	Active WagerStatus = iota
	CashedOut
	Lost
)

var wagerStatusNames = [...]string{Active: "active", CashedOut: "cashed_out", Lost: "lost"}

func (s WagerStatus) String() string {
	if int(s) < len(wagerStatusNames) {
		return wagerStatusNames[s]
	}
	return "unknown"
}

func (s WagerStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// round 是引擎內部的局狀態，只在 Engine.mu 保護下讀寫。
type round struct {
	id         string
	state      State
	crashPoint float64 // 只在 Idle -> Running 時抽一次
	crashTick  int     // 第一個倍率 >= crashPoint 的 tick
	multiplier float64
	ticks      int

	openedAt  time.Time
	startedAt time.Time
	crashedAt time.Time

	// 開局當下的設定快照，本局內不會再變
	rtp    float64
	tick   time.Duration
	law    crash.Law
	policy spec.StartPolicy
	window time.Duration
	cool   time.Duration
	stake  float64 // max stake，0 = 不限

	wagers   []*wager          // 到達順序
	byID     map[string]*wager // wagerID -> wager
	byPlayer map[string]*wager // 本局 Active 押注（一人最多一筆）
}

func newRound(id string, s *spec.EngineSetting, now time.Time) *round {
	return &round{
		id:         id,
		state:      Idle,
		multiplier: 1,
		openedAt:   now,
		rtp:        s.RTP,
		tick:       s.Tick.D(),
		law:        s.Law(),
		policy:     s.StartPolicy,
		window:     s.BettingWindow.D(),
		cool:       s.Cooldown.D(),
		stake:      s.MaxStake,
		byID:       make(map[string]*wager),
		byPlayer:   make(map[string]*wager),
	}
}

// acceptsWagers：Idle，或 Running 的開局瞬間（第 0 個 tick 內）。
func (r *round) acceptsWagers(now time.Time) bool {
	switch r.state {
	case Idle:
		return true
	case Running:
		return r.ticks == 0 && now.Sub(r.startedAt) < r.tick
	default:
		return false
	}
}

// tickAt 回傳 now 對應的離散 tick 序號。
func (r *round) tickAt(now time.Time) int {
	elapsed := now.Sub(r.startedAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / r.tick)
}

type wager struct {
	id          string
	roundID     string
	playerID    string
	stake       float64
	autoCashOut float64 // 0 = 未設定
	status      WagerStatus
	cashOutAt   float64
	payout      float64
	placedAt    time.Time
	settledAt   time.Time
}

// RoundSnapshot 是對外的唯讀局狀態；CrashPoint 只在 Crashed 後揭露。
type RoundSnapshot struct {
	RoundID    string     `json:"round_id"`
	State      State      `json:"state"`
	Multiplier float64    `json:"multiplier"`
	Ticks      int        `json:"ticks"`
	CrashPoint *float64   `json:"crash_point,omitempty"`
	Wagers     int        `json:"wagers"`
	OpenedAt   time.Time  `json:"opened_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	CrashedAt  *time.Time `json:"crashed_at,omitempty"`
}

func (r *round) snapshot() RoundSnapshot {
	s := RoundSnapshot{
		RoundID:    r.id,
		State:      r.state,
		Multiplier: r.multiplier,
		Ticks:      r.ticks,
		Wagers:     len(r.wagers),
		OpenedAt:   r.openedAt,
	}
	if r.state != Idle {
		t := r.startedAt
		s.StartedAt = &t
	}
	if r.state == Crashed {
		cp := r.crashPoint
		t := r.crashedAt
		s.CrashPoint = &cp
		s.CrashedAt = &t
	}
	return s
}

// WagerSnapshot 是對外的唯讀押注資訊。
type WagerSnapshot struct {
	WagerID           string      `json:"wager_id"`
	RoundID           string      `json:"round_id"`
	PlayerID          string      `json:"player_id"`
	Stake             float64     `json:"stake"`
	AutoCashOut       float64     `json:"auto_cash_out,omitempty"`
	Status            WagerStatus `json:"status"`
	CashOutMultiplier float64     `json:"cash_out_multiplier,omitempty"`
	Payout            float64     `json:"payout"`
	PlacedAt          time.Time   `json:"placed_at"`
	SettledAt         *time.Time  `json:"settled_at,omitempty"`
}

func (w *wager) snapshot() WagerSnapshot {
	s := WagerSnapshot{
		WagerID:           w.id,
		RoundID:           w.roundID,
		PlayerID:          w.playerID,
		Stake:             w.stake,
		AutoCashOut:       w.autoCashOut,
		Status:            w.status,
		CashOutMultiplier: w.cashOutAt,
		Payout:            w.payout,
		PlacedAt:          w.placedAt,
	}
	if w.status != Active {
		t := w.settledAt
		s.SettledAt = &t
	}
	return s
}
