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


package stats

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// StatReport 模擬統計報告
type StatReport struct {
	Summary *SummaryReport `json:"Summary"`
	Mult    *MultReport    `json:"Mult"`
	Crash   *CrashReport   `json:"Crash"`
	Dist    *DistReport    `json:"Dist"`
	Player  *PlayerReport  `json:"Player,omitzero"`
	isDone  bool
}

type SummaryReport struct {
	Rounds        int     `json:"Rounds"`
	Target        float64 `json:"Target"`
	Stake         float64 `json:"Stake"`
	SettingRTP    float64 `json:"SettingRTP"`
	TotalBet      float64 `json:"TotalBet"`
	TotalWin      float64 `json:"TotalWin"`
	RTP           float64 `json:"RTP"`
	RtpCI         CI      `json:"RtpCI"`
	TheoryRTP     float64 `json:"TheoryRTP"`
	Std           float64 `json:"Std"`
	Cv            float64 `json:"Cv"`
	Wins          int     `json:"Wins"`
	HitRate       float64 `json:"HitRate"`
	HitCI         CI      `json:"HitCI"`
	TheoryHitRate float64 `json:"TheoryHitRate"`
}

// MultReport 單局回報倍數（payout / stake）的累積量
type MultReport struct {
	WinMult      float64 `json:"WinMult"`
	WinMultSqSum float64 `json:"WinMultSqSum"` // 平方和
}

// CrashReport crash point 統計
//
// Sample 為記錄期間保留的樣本（可能被截斷），只供 Done 計算分位數。
type CrashReport struct {
	Sum      float64   `json:"Sum"`
	Max      float64   `json:"Max"`
	Mean     float64   `json:"Mean"`
	Median   float64   `json:"Median"`
	MedianCI CI        `json:"MedianCI"`
	P90      float64   `json:"P90"`
	P99      float64   `json:"P99"`
	Samples  int       `json:"Samples"`
	Sample   []float64 `json:"-" yaml:"-"`
}

// DistReport crash point 區間落點統計，Theory 為同區間的理論機率
type DistReport struct {
	Bucket  []string  `json:"Bucket"`
	Collect []int     `json:"Collect"`
	Dist    []float64 `json:"Dist"`
	Theory  []float64 `json:"Theory"`
}

// PlayerReport 玩家統計
//
// 只有帶初始籌碼的模擬才會統計
type PlayerReport struct {
	InitBalance float64 `json:"InitBalance"`
	Balance     float64 `json:"Balance"`
	MaxBalance  float64 `json:"MaxBalance"`
	MinBalance  float64 `json:"MinBalance"`
	Bust        bool    `json:"Bust"`
	Cashout     bool    `json:"Cashout"`
	Alive       bool    `json:"Alive"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積量轉換為最終統計結果並鎖定 isDone 標記，重複呼叫無作用。
func (s *StatReport) Done() {
	if s.isDone {
		return
	}
	// Summary
	s.Summary.RTP = s.Rtp()
	s.Summary.RtpCI = s.Ci()
	s.Summary.Std = s.Std()
	s.Summary.Cv = s.Cv()
	s.Summary.HitRate, s.Summary.HitCI = proportionCICP(s.Summary.Wins, s.Summary.Rounds, 0.95)

	// Crash
	if c := s.Crash; c != nil {
		if s.Summary.Rounds > 0 {
			c.Mean = c.Sum / float64(s.Summary.Rounds)
		}
		c.Samples = len(c.Sample)
		if c.Samples > 0 {
			sorted := slices.Clone(c.Sample)
			slices.Sort(sorted)
			c.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
			c.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
			c.P99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)
			lo, hi := quantileCI(sorted, 0.5, 0.95)
			c.MedianCI = CI{Lo: lo, Hi: hi}
		}
	}

	// Dist
	if d := s.Dist; d != nil && s.Summary.Rounds > 0 {
		rf := float64(s.Summary.Rounds)
		d.Dist = make([]float64, len(d.Collect))
		for i, c := range d.Collect {
			d.Dist[i] = float64(c) / rf
		}
	}

	// Player
	if s.Player != nil {
		s.Player.Alive = !(s.Player.Bust || s.Player.Cashout)
	}

	s.isDone = true
}

// Rtp 回傳整體 RTP（總派彩 / 總押注）
func (s *StatReport) Rtp() float64 {
	if s.Summary.Rounds == 0 || s.Summary.TotalBet == 0 {
		return 0
	}
	return s.Summary.TotalWin / s.Summary.TotalBet
}

// Std 回傳單局回報倍數的樣本標準差
func (s *StatReport) Std() float64 {
	if s.Summary.Rounds < 2 || s.Mult == nil {
		return 0
	}
	rounds := float64(s.Summary.Rounds)
	variance := (s.Mult.WinMultSqSum - s.Mult.WinMult*s.Mult.WinMult/rounds) / (rounds - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Cv 回傳單局回報倍數的變異係數
func (s *StatReport) Cv() float64 {
	rtp := s.Rtp()
	if rtp <= 0 {
		return 0
	}
	return s.Std() / rtp
}

// Ci 回傳(95% Rtp)信賴區間
func (s *StatReport) Ci() CI {
	rtp := s.Rtp()
	rtpSe := float64(0)
	if s.Summary.Rounds > 1 {
		rtpSe = s.Std() / math.Sqrt(float64(s.Summary.Rounds))
	}
	return CI{
		Lo: max(rtp-1.96*rtpSe, 0.0),
		Hi: rtp + 1.96*rtpSe,
	}
}

func (s *StatReport) WriteWith(w io.Writer, rep StatReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 以表格輸出摘要到 stdout
func (s *StatReport) StdOut(ut time.Duration) {
	s.Done()
	fmt.Print(formatDuration(ut, s.Summary.Rounds))
	sk, sm := s.fmtBasic()
	fmt.Println(fmtTable(fmt.Sprintf("Auto Cash-Out @ %.2fx", s.Summary.Target), sk, sm))
	if s.Dist != nil {
		dk, dm := s.fmtDist()
		fmt.Println(fmtTable("Crash Point Distribution", dk, dm))
	}
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, rounds int) string {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	rps := int(float64(rounds) / sec)
	if sec < 60.0 {
		return p.Sprintf("used: %.2f seconds\nrps : %d rounds/sec\n", sec, rps)
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		return p.Sprintf("used: %dm %ds\nrps : %d rounds/sec\n", m, s, rps)
	}
	return p.Sprintf("used: %dh:%dm:%ds\nrps : %d rounds/sec\n", h, m, s, rps)
}

func (s *StatReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	sm := s.Summary
	basic := map[string]string{
		"Total Rounds":  p.Sprintf("%d", sm.Rounds),
		"Setting RTP":   p.Sprintf("%.2f %%", 100.0*sm.SettingRTP),
		"Total Bet":     p.Sprintf("%.2f", sm.TotalBet),
		"Total Win":     p.Sprintf("%.2f", sm.TotalWin),
		"Total RTP":     p.Sprintf("%.2f %%", 100.0*sm.RTP),
		"RTP 95% CI":    p.Sprintf("[%.2f%%,%.2f%%]", 100.0*sm.RtpCI.Lo, 100.0*sm.RtpCI.Hi),
		"Theory RTP":    p.Sprintf("%.2f %%", 100.0*sm.TheoryRTP),
		"Hit Rate":      p.Sprintf("%.3f %%", 100.0*sm.HitRate),
		"Hit 95% CI":    p.Sprintf("[%.3f%%,%.3f%%]", 100.0*sm.HitCI.Lo, 100.0*sm.HitCI.Hi),
		"Theory Hit":    p.Sprintf("%.3f %%", 100.0*sm.TheoryHitRate),
		"STD":           p.Sprintf("%.3f", sm.Std),
		"CV":            p.Sprintf("%.3f", sm.Cv),
		"Crash Mean":    "-",
		"Crash Median":  "-",
		"Crash P90/P99": "-",
	}
	if c := s.Crash; c != nil {
		basic["Crash Mean"] = p.Sprintf("%.3fx", c.Mean)
		basic["Crash Median"] = p.Sprintf("%.3fx [%.3f,%.3f]", c.Median, c.MedianCI.Lo, c.MedianCI.Hi)
		basic["Crash P90/P99"] = p.Sprintf("%.2fx / %.2fx", c.P90, c.P99)
	}
	keys := []string{"Total Rounds", "Setting RTP", "Total Bet", "Total Win", "Total RTP", "RTP 95% CI", "Theory RTP", "Hit Rate", "Hit 95% CI", "Theory Hit", "STD", "CV", "Crash Mean", "Crash Median", "Crash P90/P99"}
	return keys, basic
}

func (s *StatReport) fmtDist() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	d := s.Dist
	msg := make(map[string]string, len(d.Bucket))
	for i, b := range d.Bucket {
		var got, want float64
		if i < len(d.Dist) {
			got = d.Dist[i]
		}
		if i < len(d.Theory) {
			want = d.Theory[i]
		}
		msg[b] = p.Sprintf("%7.3f %% (theory %7.3f %%)", 100*got, 100*want)
	}
	return d.Bucket, msg
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		maxValLen += titleW - totalInner
		totalInner = titleW
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", totalInner) + "+\n"

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
