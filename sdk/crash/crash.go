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

// Package crash 提供 crash 遊戲的純數學：crash point 生成、倍率成長律與理論機率。
//
// 本包沒有狀態、不碰時間，所有函式都是 pure function，Engine 與模擬器共用。
package crash

import (
	"math"

	"github.com/zintix-labs/crashlab/sdk/core"
)

const (
	DefaultGrowth    = 0.005
	DefaultIncrement = 0.005

	// edge 是 crash point 公式中的尺度常數：crash = 1 + (edge/(1-u))*rtp
	edge = 0.01
)

// Point 由均勻亂數 u ∈ [0,1) 與 rtp ∈ (0,1] 計算 crash point。
//
//	crash = 1 + (0.01 / (1-u)) * rtp
//
// 呼叫端負責保證 u < 1（見 core.Core.Unit）。
func Point(u, rtp float64) float64 {
	return 1 + (edge/(1-u))*rtp
}

// Verify 以公開的 serverSeed / clientSeed / nonce 重算該局 crash point。
func Verify(serverSeed []byte, clientSeed string, nonce uint64, rtp float64) float64 {
	return Point(core.FairUnit(serverSeed, clientSeed, nonce), rtp)
}

// SurvivalProb 回傳 P(crash > x)。
//
//	P(crash > x) = min(1, 0.01*rtp/(x-1))，x <= 1 時為 1
func SurvivalProb(x, rtp float64) float64 {
	if x <= 1 {
		return 1
	}
	return math.Min(1, edge*rtp/(x-1))
}

// Law 描述每個 tick 的倍率成長律：next = prev + prev*Growth + Increment，起點為 1。
type Law struct {
	Growth    float64
	Increment float64
}

func DefaultLaw() Law {
	return Law{Growth: DefaultGrowth, Increment: DefaultIncrement}
}

// Next 套用一次離散成長律。
func (l Law) Next(prev float64) float64 {
	return prev + prev*l.Growth + l.Increment
}

// At 回傳第 k 個 tick 的倍率（closed form），k <= 0 時為 1。
//
//	Growth > 0 : m(k) = (1 + b/g)(1+g)^k - b/g
//	Growth = 0 : m(k) = 1 + k*b
//
// 與迭代 Next 的結果在相對誤差 1e-9 內一致，但不會隨 tick 數累積漂移。
func (l Law) At(k int) float64 {
	if k <= 0 {
		return 1
	}
	if l.Growth == 0 {
		return 1 + float64(k)*l.Increment
	}
	c := l.Increment / l.Growth
	return (1+c)*math.Pow(1+l.Growth, float64(k)) - c
}

// TicksToReach 回傳最小的 k >= 0 使 At(k) >= target；成長律不會成長時回 -1。
func (l Law) TicksToReach(target float64) int {
	if target <= 1 {
		return 0
	}
	if math.IsInf(target, 1) || math.IsNaN(target) {
		return -1
	}
	var k float64
	switch {
	case l.Growth > 0:
		c := l.Increment / l.Growth
		k = math.Ceil(math.Log((target+c)/(1+c)) / math.Log1p(l.Growth))
	case l.Increment > 0:
		k = math.Ceil((target - 1) / l.Increment)
	default:
		return -1
	}
	if k > math.MaxInt32 {
		return -1
	}
	n := int(k)
	// 浮點修正：log/ceil 可能差一格
	for n > 0 && l.At(n-1) >= target {
		n--
	}
	for l.At(n) < target {
		n++
	}
	return n
}

// WinProb 回傳「在 target 自動兌現」能成功的機率。
//
// 倍率是離散 tick，第一個 >= target 的 tick 之倍率為 At(K)；
// 只有 crash > At(K)（該 tick 尚未 crash）時才能兌現。
func (l Law) WinProb(target, rtp float64) float64 {
	k := l.TicksToReach(target)
	if k < 0 {
		return 0
	}
	return SurvivalProb(l.At(k), rtp)
}

// ExpectedReturn 回傳單位押注在 target 自動兌現的理論回報（即該策略的理論 RTP）。
func (l Law) ExpectedReturn(target, rtp float64) float64 {
	return target * l.WinProb(target, rtp)
}
