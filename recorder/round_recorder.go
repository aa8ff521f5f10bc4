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


package recorder

import (
	"math"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/sdk/crash"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
)

// sampleCap 單一 recorder 保留的 crash point 樣本上限，超過後以 reservoir sampling 取樣。
const sampleCap = 1 << 16

// RoundRecorder 模擬紀錄員
//
// 每局記錄一筆 (crash point, payout)，透過 Done 輸出統計報表。
// 單一 RoundRecorder 不是執行緒安全的；平行模擬時每個 worker 各持一個，最後 Merge。
type RoundRecorder struct {
	Target   float64
	Stake    float64
	RTP      float64
	Law      crash.Law
	InitBets int
	Basic    *BasicRecord
	Crash    *CrashRecord
	Dist     *DistRecord
	Player   *PlayerRecord
}

// BasicRecord 基本押注資料紀錄
type BasicRecord struct {
	TotalBet     float64
	TotalWin     float64
	WinMult      float64
	WinMultSqSum float64 // 平方和
	Wins         int
	Rounds       int
}

// CrashRecord crash point 紀錄
type CrashRecord struct {
	Sum    float64
	Max    float64
	Sample []float64
	seen   int
	state  uint64 // reservoir sampling 用的 xorshift 狀態
}

// DistRecord crash point 區間落點統計
type DistRecord struct {
	Collect []int
}

// PlayerRecord 玩家統計
type PlayerRecord struct {
	leaveLine   float64
	InitBalance float64
	Balance     float64
	MaxBalance  float64
	MinBalance  float64
	Bust        bool
	Cashout     bool
}

// NewRoundRecorder 建立紀錄員；initBets > 0 時同時追蹤一位帶 initBets 注籌碼的玩家。
func NewRoundRecorder(setting *spec.EngineSetting, target, stake float64, initBets int) (*RoundRecorder, error) {
	if setting == nil {
		return nil, errs.NewFatal("recorder needs an engine setting")
	}
	if math.IsNaN(target) || target <= 1 {
		return nil, errs.Fatalf("target must > 1, got: %v", target)
	}
	if math.IsNaN(stake) || stake <= 0 {
		return nil, errs.Fatalf("stake must > 0, got: %v", stake)
	}
	if initBets < 0 {
		return nil, errs.Fatalf("init bets must not negative integer, got: %d", initBets)
	}
	s := &RoundRecorder{
		Target:   target,
		Stake:    stake,
		RTP:      setting.RTP,
		Law:      setting.Law(),
		InitBets: initBets,
		Basic:    new(BasicRecord),
		Crash:    &CrashRecord{Sample: make([]float64, 0, 1024), state: 0x9E3779B97F4A7C15},
		Dist:     &DistRecord{Collect: make([]int, stats.CrashBuckets.Len())},
	}
	if initBets > 0 {
		s.Player = newPlayerRecord(stake, initBets)
	}
	return s, nil
}

// MergeRoundRecorder 合併多個 worker 的紀錄；目標、押注、RTP 與成長律必須一致。
func MergeRoundRecorder(r []*RoundRecorder) (*RoundRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewFatal("merge round record err : nothing to merge")
	}
	r0 := r[0]
	s := &RoundRecorder{
		Target:   r0.Target,
		Stake:    r0.Stake,
		RTP:      r0.RTP,
		Law:      r0.Law,
		InitBets: r0.InitBets,
		Basic:    new(BasicRecord),
		Crash:    &CrashRecord{},
		Dist:     &DistRecord{Collect: make([]int, stats.CrashBuckets.Len())},
	}
	for _, v := range r {
		if v.Target != r0.Target || v.Stake != r0.Stake {
			return nil, errs.NewFatal("merge round record err : different target or stake")
		}
		if v.RTP != r0.RTP || v.Law != r0.Law {
			return nil, errs.NewFatal("merge round record err : different engine setting")
		}
		s.Basic.TotalBet += v.Basic.TotalBet
		s.Basic.TotalWin += v.Basic.TotalWin
		s.Basic.WinMult += v.Basic.WinMult
		s.Basic.WinMultSqSum += v.Basic.WinMultSqSum
		s.Basic.Wins += v.Basic.Wins
		s.Basic.Rounds += v.Basic.Rounds

		s.Crash.Sum += v.Crash.Sum
		s.Crash.Max = max(s.Crash.Max, v.Crash.Max)
		s.Crash.Sample = append(s.Crash.Sample, v.Crash.Sample...)
		s.Crash.seen += v.Crash.seen

		for i := range v.Dist.Collect {
			s.Dist.Collect[i] += v.Dist.Collect[i]
		}
	}
	return s, nil
}

// Record 以單局結果更新統計；payout 為 0 代表該局輸掉。
func (s *RoundRecorder) Record(crashPoint, payout float64) {
	s.recordBasic(payout)
	s.recordCrash(crashPoint)
}

// CanBet 回傳玩家餘額是否足夠再押一注；沒有追蹤玩家時永遠為 true。
func (s *RoundRecorder) CanBet() bool {
	return s.Player == nil || s.Player.Balance >= s.Stake
}

// RecordWithPlayer 在 Record 的基礎上更新玩家餘額／離場狀態，並回傳玩家是否停止遊戲。
func (s *RoundRecorder) RecordWithPlayer(crashPoint, payout float64) bool {
	if !s.CanBet() {
		return true
	}
	s.Record(crashPoint, payout)
	return s.recordPlayer(payout)
}

func (s *RoundRecorder) Done() *stats.StatReport {
	report := &stats.StatReport{
		Summary: &stats.SummaryReport{
			Rounds:        s.Basic.Rounds,
			Target:        s.Target,
			Stake:         s.Stake,
			SettingRTP:    s.RTP,
			TotalBet:      s.Basic.TotalBet,
			TotalWin:      s.Basic.TotalWin,
			TheoryRTP:     s.Law.ExpectedReturn(s.Target, s.RTP),
			Wins:          s.Basic.Wins,
			TheoryHitRate: s.Law.WinProb(s.Target, s.RTP),
		},
		Mult: &stats.MultReport{
			WinMult:      s.Basic.WinMult,
			WinMultSqSum: s.Basic.WinMultSqSum,
		},
		Crash: &stats.CrashReport{
			Sum:    s.Crash.Sum,
			Max:    s.Crash.Max,
			Sample: s.Crash.Sample,
		},
		Dist: &stats.DistReport{
			Bucket:  stats.CrashBuckets.Labels(),
			Collect: s.Dist.Collect,
			Theory:  stats.CrashBuckets.Theory(s.RTP),
		},
	}
	if p := s.Player; p != nil {
		report.Player = &stats.PlayerReport{
			InitBalance: p.InitBalance,
			Balance:     p.Balance,
			MaxBalance:  p.MaxBalance,
			MinBalance:  p.MinBalance,
			Bust:        p.Bust,
			Cashout:     p.Cashout,
		}
	}
	return report
}

func (s *RoundRecorder) recordBasic(payout float64) {
	m := payout / s.Stake
	s.Basic.TotalBet += s.Stake
	s.Basic.TotalWin += payout
	s.Basic.WinMult += m
	s.Basic.WinMultSqSum += m * m
	if payout > 0 {
		s.Basic.Wins++
	}
	s.Basic.Rounds++
}

func (s *RoundRecorder) recordCrash(cp float64) {
	c := s.Crash
	c.Sum += cp
	c.Max = max(c.Max, cp)
	c.seen++
	s.Dist.Collect[stats.CrashBuckets.Index(cp)]++

	if len(c.Sample) < sampleCap {
		c.Sample = append(c.Sample, cp)
		return
	}
	// reservoir sampling：第 seen 筆以 sampleCap/seen 的機率取代既有樣本
	c.state ^= c.state << 13
	c.state ^= c.state >> 7
	c.state ^= c.state << 17
	if j := int(c.state % uint64(c.seen)); j < sampleCap {
		c.Sample[j] = cp
	}
}

func (s *RoundRecorder) recordPlayer(payout float64) bool {
	p := s.Player
	p.Balance += payout - s.Stake
	p.MaxBalance = max(p.MaxBalance, p.Balance)
	p.MinBalance = min(p.MinBalance, p.Balance)

	leave := false
	if p.Balance < s.Stake {
		p.Bust = true
		leave = true
	}
	if p.Balance >= p.leaveLine {
		p.Cashout = true
		leave = true
	}
	return leave
}

func newPlayerRecord(stake float64, initBets int) *PlayerRecord {
	b := stake * float64(initBets) // 初始帶入總金額
	return &PlayerRecord{
		leaveLine:   3 * b, // 離場條件(3倍本金)
		InitBalance: b,
		Balance:     b,
		MaxBalance:  b,
		MinBalance:  b,
	}
}
