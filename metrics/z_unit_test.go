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


package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/spec"
)

type fixedPRNG struct{ u float64 }

func (f fixedPRNG) Float64() float64 { return f.u }
func (fixedPRNG) Uint64() uint64 { return 0 }
func (fixedPRNG) UintN(uint) uint { return 0 }
func (fixedPRNG) IntN(int) int { return 0 }
func (fixedPRNG) Snapshot() ([]byte, error) { return nil, nil }
func (fixedPRNG) Restore([]byte) error { return nil }

func TestCollectorObservesEngine(t *testing.T) {
	c := New()
	clock := clockwork.NewFakeClock()
	led := ledger.NewMemory(clock)
	_ = led.Open("alice", "", 1000)
	_ = led.Open("bob", "", 1000)

	eng, err := crashlab.New(spec.Default(), led,
		crashlab.WithClock(clock),
		crashlab.WithPRNG(fixedPRNG{u: 0.5}), // crash 1.019
		crashlab.WithObserver(c),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	a, _ := eng.PlaceWager("alice", 100)
	if _, err := eng.PlaceWager("bob", 100); err != nil {
		t.Fatalf("bob wager: %v", err)
	}
	if _, err := eng.PlaceWager("ghost", 1); !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("ghost wager should be refused, got %v", err)
	}
	clock.Advance(50 * time.Millisecond)
	if _, err := eng.CashOut(a); err != nil {
		t.Fatalf("cash out: %v", err)
	}
	clock.Advance(time.Second)
	eng.Tick()

	if got := testutil.ToFloat64(c.RoundsStarted); got != 1 {
		t.Fatalf("rounds started = %v", got)
	}
	if got := testutil.ToFloat64(c.RoundsCrashed); got != 1 {
		t.Fatalf("rounds crashed = %v", got)
	}
	if got := testutil.ToFloat64(c.Wagers); got != 2 {
		t.Fatalf("wagers = %v", got)
	}
	if got := testutil.ToFloat64(c.Staked); got != 200 {
		t.Fatalf("staked = %v", got)
	}
	if got := testutil.ToFloat64(c.Settled.WithLabelValues("cashed_out")); got != 1 {
		t.Fatalf("cashed out = %v", got)
	}
	if got := testutil.ToFloat64(c.Settled.WithLabelValues("lost")); got != 1 {
		t.Fatalf("lost = %v", got)
	}
	if got := testutil.ToFloat64(c.LedgerFailure.WithLabelValues("insufficient_funds")); got != 1 {
		t.Fatalf("ledger refusals = %v", got)
	}
	if got := testutil.ToFloat64(c.PaidOut); got < 100.99 || got > 101.01 {
		t.Fatalf("paid out = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.ObserveRequest("GET", "/v1/round", 200)
	c.LedgerRefused(errs.KindUnknown)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	for _, want := range []string{
		`crashlab_http_requests_total{code="200",method="GET",route="/v1/round"} 1`,
		`crashlab_ledger_refused_total{kind="unknown"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
