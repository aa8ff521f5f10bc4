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


package stats_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/crashlab/stats"
)

// buildStatReport constructs a StatReport from per-round (crash point, payout) pairs with stake 1.
func buildStatReport(crashes, payouts []float64) *stats.StatReport {
	collect := make([]int, stats.CrashBuckets.Len())
	var totalWin, sq, sum, mx float64
	wins := 0
	for i, p := range payouts {
		totalWin += p
		sq += p * p
		if p > 0 {
			wins++
		}
		cp := crashes[i]
		sum += cp
		mx = max(mx, cp)
		collect[stats.CrashBuckets.Index(cp)]++
	}
	report := &stats.StatReport{
		Summary: &stats.SummaryReport{
			Rounds:     len(payouts),
			Target:     2,
			Stake:      1,
			SettingRTP: 0.95,
			TotalBet:   float64(len(payouts)),
			TotalWin:   totalWin,
			Wins:       wins,
		},
		Mult:  &stats.MultReport{WinMult: totalWin, WinMultSqSum: sq},
		Crash: &stats.CrashReport{Sum: sum, Max: mx, Sample: append([]float64(nil), crashes...)},
		Dist: &stats.DistReport{
			Bucket:  stats.CrashBuckets.Labels(),
			Collect: collect,
			Theory:  stats.CrashBuckets.Theory(0.95),
		},
	}
	report.Done()
	return report
}

func TestStatReportCoreMetrics(t *testing.T) {
	rep := buildStatReport([]float64{1.5, 1.2, 3, 1.1}, []float64{0, 0, 2, 0})

	if got := rep.Rtp(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("RTP got %.12f want 0.5", got)
	}
	// returns {0,0,2,0}: mean 0.5, sample variance (4 - 4/4)/3 = 1
	if got := rep.Std(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("Std got %.12f want 1", got)
	}
	if got := rep.Cv(); math.Abs(got-2) > 1e-12 {
		t.Fatalf("CV got %.12f want 2", got)
	}
	if rep.Summary.HitRate != 0.25 || rep.Summary.HitCI.Lo > 0.25 || rep.Summary.HitCI.Hi < 0.25 {
		t.Fatalf("unexpected hit rate %v %+v", rep.Summary.HitRate, rep.Summary.HitCI)
	}
	if math.Abs(rep.Crash.Mean-1.7) > 1e-12 || rep.Crash.Max != 3 {
		t.Fatalf("unexpected crash mean/max %v %v", rep.Crash.Mean, rep.Crash.Max)
	}
	if rep.Crash.Median != 1.2 || rep.Crash.P90 != 3 || rep.Crash.Samples != 4 {
		t.Fatalf("unexpected crash quantiles %+v", rep.Crash)
	}

	total := 0
	for _, c := range rep.Dist.Collect {
		total += c
	}
	if total != rep.Summary.Rounds || len(rep.Dist.Dist) != len(rep.Dist.Bucket) {
		t.Fatalf("distribution total %d != rounds %d", total, rep.Summary.Rounds)
	}

	rep.Done() // idempotent
	if rep.Rtp() != 0.5 {
		t.Fatalf("RTP changed after second Done")
	}
}

func TestCrashBuckets(t *testing.T) {
	b := stats.CrashBuckets
	cases := []struct {
		x    float64
		want int
	}{
		{0.5, 0}, {1, 0}, {1.004, 0}, {1.005, 1}, {1.019, 2}, {2, 7}, {99.99, 9}, {100, 10}, {1e9, 10},
	}
	for _, c := range cases {
		if got := b.Index(c.x); got != c.want {
			t.Fatalf("Index(%v) = %d, want %d", c.x, got, c.want)
		}
	}
	labels := b.Labels()
	if labels[0] != "[1,1.005)" || labels[len(labels)-1] != "[100,+inf)" {
		t.Fatalf("unexpected labels %v", labels)
	}
	sum := 0.0
	for _, p := range b.Theory(0.95) {
		if p < 0 {
			t.Fatalf("negative theoretical probability")
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("theoretical distribution should sum to 1, got %v", sum)
	}
}

func TestEstimatorRtpAndSession(t *testing.T) {
	// 100 players with RTP from 0.00 to 0.99
	reports := make([]*stats.StatReport, 0, 100)
	for i := 0; i < 100; i++ {
		reports = append(reports, buildStatReport([]float64{1.5}, []float64{float64(i) / 100}))
	}
	est := stats.EstimatorPlayerExp(reports)
	if math.Abs(est.RtpStat.ExpMedian.Hat-0.5) > 0.05 {
		t.Fatalf("median RTP expected ~0.5, got %.3f", est.RtpStat.ExpMedian.Hat)
	}
	if math.Abs(est.RtpStat.ExpPerc.ExpP90.Hat-0.9) > 0.05 {
		t.Fatalf("P90 RTP expected ~0.9, got %.3f", est.RtpStat.ExpPerc.ExpP90.Hat)
	}
	if est.LifeStat.Median.Hat != 1 {
		t.Fatalf("every player played one round, got %v", est.LifeStat.Median.Hat)
	}

	// 3 bust, 2 cashout, 5 alive
	sessions := make([]*stats.StatReport, 10)
	for i := range sessions {
		r := buildStatReport([]float64{1.5}, []float64{0})
		r.Player = &stats.PlayerReport{}
		switch {
		case i < 3:
			r.Player.Bust = true
		case i < 5:
			r.Player.Cashout = true
		default:
			r.Player.Alive = true
		}
		sessions[i] = r
	}
	est2 := stats.EstimatorPlayerExp(sessions)
	if est2.SessionStat.Bust.Hat != 0.3 || est2.SessionStat.Cashout.Hat != 0.2 || est2.SessionStat.Alive.Hat != 0.5 {
		t.Fatalf("unexpected session stat %+v", est2.SessionStat)
	}
}

func TestRenders(t *testing.T) {
	rep := buildStatReport([]float64{1.5, 2.5}, []float64{0, 2})

	var js bytes.Buffer
	if err := rep.WriteWith(&js, &stats.JsonStatReportRender{}); err != nil {
		t.Fatalf("json: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(js.Bytes(), &back); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if _, ok := back["Crash"].(map[string]any)["Sample"]; ok {
		t.Fatalf("raw sample should not be rendered")
	}

	var ym bytes.Buffer
	if err := rep.WriteWith(&ym, &stats.YAMLStatReportRender{}); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(ym.String(), "collect: [") {
		t.Fatalf("one-dimensional lists should use flow style:\n%s", ym.String())
	}

	r, ok := stats.RenderByName("text")
	if !ok {
		t.Fatalf("text render missing")
	}
	var txt bytes.Buffer
	if err := rep.WriteWith(&txt, r); err != nil {
		t.Fatalf("text: %v", err)
	}
	if !strings.Contains(txt.String(), "Auto Cash-Out @ 2.00x") || !strings.Contains(txt.String(), "[100,+inf)") {
		t.Fatalf("unexpected table:\n%s", txt.String())
	}
	if _, ok := stats.RenderByName("xml"); ok {
		t.Fatalf("unknown render should be rejected")
	}
}
