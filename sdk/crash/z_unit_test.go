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

package crash

import (
	"math"
	"testing"

	"github.com/zintix-labs/crashlab/sdk/core"
)

func TestPointMonotonic(t *testing.T) {
	us := []float64{0, 0.1, 0.5, 0.9, 0.999, 1 - 1.0/(1<<53)}
	rtps := []float64{0.01, 0.5, 0.95, 1}
	for _, rtp := range rtps {
		prev := 0.0
		for _, u := range us {
			p := Point(u, rtp)
			if p < 1 {
				t.Fatalf("crash point below 1: u=%v rtp=%v p=%v", u, rtp, p)
			}
			if p <= prev {
				t.Fatalf("not strictly increasing in u: u=%v rtp=%v p=%v prev=%v", u, rtp, p, prev)
			}
			prev = p
		}
	}
	for _, u := range us {
		prev := 0.0
		for _, rtp := range rtps {
			p := Point(u, rtp)
			if p <= prev {
				t.Fatalf("not strictly increasing in rtp: u=%v rtp=%v", u, rtp)
			}
			prev = p
		}
	}
}

func TestPointScenario(t *testing.T) {
	if got := Point(0.5, 0.95); math.Abs(got-1.019) > 1e-12 {
		t.Fatalf("expected 1.019, got %v", got)
	}
	if got := Point(0, 1); math.Abs(got-1.01) > 1e-12 {
		t.Fatalf("expected 1.01, got %v", got)
	}
}

func TestClosedFormMatchesIteration(t *testing.T) {
	laws := []Law{DefaultLaw(), {Growth: 0.01, Increment: 0}, {Growth: 0, Increment: 0.02}, {Growth: 0.003, Increment: 0.007}}
	for _, l := range laws {
		m := 1.0
		for k := 0; k <= 2000; k++ {
			got := l.At(k)
			if math.Abs(got-m) > 1e-9*math.Max(1, m) {
				t.Fatalf("law %+v tick %d: closed=%v iter=%v", l, k, got, m)
			}
			m = l.Next(m)
		}
	}
}

func TestDefaultLawFirstTicks(t *testing.T) {
	l := DefaultLaw()
	if math.Abs(l.At(1)-1.01) > 1e-12 {
		t.Fatalf("tick 1 should be 1.01, got %v", l.At(1))
	}
	if math.Abs(l.At(2)-1.02005) > 1e-12 {
		t.Fatalf("tick 2 should be 1.02005, got %v", l.At(2))
	}
}

func TestTicksToReach(t *testing.T) {
	l := DefaultLaw()
	cases := []struct {
		target float64
		want   int
	}{
		{0.5, 0},
		{1, 0},
		{1.005, 1},
		{1.0099, 1},
		{1.019, 2},
		{1.0201, 3},
	}
	for _, c := range cases {
		if got := l.TicksToReach(c.target); got != c.want {
			t.Fatalf("TicksToReach(%v) = %d, want %d", c.target, got, c.want)
		}
	}
	for _, target := range []float64{1.5, 2, 10, 1000, 1e9} {
		k := l.TicksToReach(target)
		if l.At(k) < target || (k > 0 && l.At(k-1) >= target) {
			t.Fatalf("TicksToReach(%v)=%d not minimal", target, k)
		}
	}
	if (Law{}).TicksToReach(2) != -1 {
		t.Fatalf("flat law should never reach")
	}
	if (Law{Increment: 0.1}).TicksToReach(2) != 10 {
		t.Fatalf("linear law should reach 2 in 10 ticks, got %d", (Law{Increment: 0.1}).TicksToReach(2))
	}
}

func TestSurvivalAndWinProb(t *testing.T) {
	if SurvivalProb(1, 0.95) != 1 || SurvivalProb(1.005, 0.95) != 1 {
		t.Fatalf("survival below the minimum crash point must be 1")
	}
	if got := SurvivalProb(2, 0.95); math.Abs(got-0.0095) > 1e-15 {
		t.Fatalf("survival(2) = %v", got)
	}
	l := DefaultLaw()
	// target 1.005 先到 tick 1 (1.01)，需要 crash > 1.01
	if got := l.WinProb(1.005, 0.95); math.Abs(got-0.95) > 1e-9 {
		t.Fatalf("winprob(1.005) = %v", got)
	}
	if got := l.ExpectedReturn(1.005, 0.95); math.Abs(got-1.005*0.95) > 1e-9 {
		t.Fatalf("expected return = %v", got)
	}
}

func TestVerifyMatchesFairStream(t *testing.T) {
	seed := []byte("s3cr3t")
	c := core.New(core.NewFair(seed, "player", 0))
	for nonce := uint64(0); nonce < 5; nonce++ {
		want := Point(c.Unit(), 0.95)
		if got := Verify(seed, "player", nonce, 0.95); got != want {
			t.Fatalf("nonce %d: verify=%v stream=%v", nonce, got, want)
		}
	}
}
