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

package spec

import (
	"math"
	"time"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/sdk/crash"
)

// StartPolicy 決定 Idle 局何時開始飛行。
type StartPolicy string

const (
	// PolicyFirstWager : 本輪第一筆押注觸發 Idle -> Running。
	PolicyFirstWager StartPolicy = "first_wager"
	// PolicyContinuous : 不論有無押注，下注窗口（betting_window）結束即自動開始。
	PolicyContinuous StartPolicy = "continuous"
)

const maxHistorySize = 1000

// EngineSetting 為 Round Engine 的所有可調參數。
//
// 任何修改只在「下一局建立時」生效，已建立（Idle/Running）的局保有自己的快照。
type EngineSetting struct {
	RTP           float64     `yaml:"rtp"            json:"rtp"`
	Tick          Duration    `yaml:"tick"           json:"tick"`
	Cooldown      Duration    `yaml:"cooldown"       json:"cooldown"`
	GrowthRate    float64     `yaml:"growth_rate"    json:"growth_rate"`
	BaseIncrement float64     `yaml:"base_increment" json:"base_increment"`
	HistorySize   int         `yaml:"history_size"   json:"history_size"`
	StartPolicy   StartPolicy `yaml:"start_policy"   json:"start_policy"`
	BettingWindow Duration    `yaml:"betting_window" json:"betting_window"`
	MaxStake      float64     `yaml:"max_stake"      json:"max_stake"`
}

// Default 回傳預設設定（rtp 0.95、50ms tick、4s 冷卻、0.5% 成長 + 0.005 增量、保留 10 筆歷史）。
func Default() *EngineSetting {
	return &EngineSetting{
		RTP:           0.95,
		Tick:          Duration(50 * time.Millisecond),
		Cooldown:      Duration(4 * time.Second),
		GrowthRate:    crash.DefaultGrowth,
		BaseIncrement: crash.DefaultIncrement,
		HistorySize:   10,
		StartPolicy:   PolicyFirstWager,
		BettingWindow: Duration(5 * time.Second),
		MaxStake:      0,
	}
}

// Law 回傳此設定對應的倍率成長律。
func (s *EngineSetting) Law() crash.Law {
	return crash.Law{Growth: s.GrowthRate, Increment: s.BaseIncrement}
}

// Clone 回傳值拷貝。
func (s *EngineSetting) Clone() *EngineSetting {
	c := *s
	return &c
}

// Valid 檢查設定；任何不合法皆回傳 Configuration 類錯誤，且在設定時即拒絕（不會拖到開局才失敗）。
func (s *EngineSetting) Valid() error {
	if s == nil {
		return errs.Configuration("nil engine setting")
	}
	if math.IsNaN(s.RTP) || s.RTP <= 0 || s.RTP > 1 {
		return errs.Configuration("rtp must be in (0, 1], got %v", s.RTP)
	}
	if s.Tick <= 0 {
		return errs.Configuration("tick must be positive, got %s", s.Tick)
	}
	if s.Cooldown < 0 {
		return errs.Configuration("cooldown must not be negative, got %s", s.Cooldown)
	}
	if !finiteNonNeg(s.GrowthRate) {
		return errs.Configuration("growth_rate must be a finite non-negative number, got %v", s.GrowthRate)
	}
	if !finiteNonNeg(s.BaseIncrement) {
		return errs.Configuration("base_increment must be a finite non-negative number, got %v", s.BaseIncrement)
	}
	if s.GrowthRate+s.BaseIncrement <= 0 {
		return errs.Configuration("growth_rate and base_increment cannot both be zero")
	}
	if s.HistorySize < 1 || s.HistorySize > maxHistorySize {
		return errs.Configuration("history_size must be in [1, %d], got %d", maxHistorySize, s.HistorySize)
	}
	switch s.StartPolicy {
	case PolicyFirstWager, PolicyContinuous:
	default:
		return errs.Configuration("unknown start_policy %q", s.StartPolicy)
	}
	if s.BettingWindow < 0 {
		return errs.Configuration("betting_window must not be negative, got %s", s.BettingWindow)
	}
	if !finiteNonNeg(s.MaxStake) {
		return errs.Configuration("max_stake must be a finite non-negative number, got %v", s.MaxStake)
	}
	return nil
}

func finiteNonNeg(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
