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

package core

import (
	"errors"
	"testing"

	"github.com/zintix-labs/crashlab/errs"
)

func TestCoreDeterminism(t *testing.T) {
	c1 := New(Default().New(7))
	c2 := New(Default().New(7))
	for i := 0; i < 5; i++ {
		if c1.Uint64() != c2.Uint64() {
			t.Fatalf("Uint64 mismatch at %d", i)
		}
	}
	if c1.IntN(10) != c2.IntN(10) {
		t.Fatalf("IntN mismatch")
	}
	if c1.UintN(10) != c2.UintN(10) {
		t.Fatalf("UintN mismatch")
	}
	if c1.Unit() != c2.Unit() {
		t.Fatalf("Unit mismatch")
	}
}

func TestPCG64SnapshotRestore(t *testing.T) {
	r := NewPCG64(42)
	r.Uint64()
	snap, err := r.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := []uint64{r.Uint64(), r.Uint64(), r.Uint64()}
	if err := r.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for i, w := range want {
		if got := r.Uint64(); got != w {
			t.Fatalf("after restore step %d: got %d want %d", i, got, w)
		}
	}
}

func TestBoundedSampling(t *testing.T) {
	c := New(Default().New(3))
	if c.IntN(0) != -1 || c.IntN(-5) != -1 {
		t.Fatalf("IntN(<=0) should be -1")
	}
	if c.UintN(0) != 0 {
		t.Fatalf("UintN(0) should be 0")
	}
	for i := 0; i < 10000; i++ {
		if v := c.IntN(7); v < 0 || v >= 7 {
			t.Fatalf("IntN out of range: %d", v)
		}
		if v := c.IntRange(2, 4); v < 2 || v > 4 {
			t.Fatalf("IntRange out of range: %d", v)
		}
		if u := c.Float64(); u < 0 || u >= 1 {
			t.Fatalf("Float64 out of range: %v", u)
		}
	}
	if c.IntRange(5, 5) != 5 || c.IntRange(5, 1) != 5 {
		t.Fatalf("degenerate IntRange should return lo")
	}
}

// stubPRNG 依序回放固定的 Float64 值。
type stubPRNG struct {
	vals []float64
	i    int
}

func (s *stubPRNG) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}
func (s *stubPRNG) Uint64() uint64 { return 0 }
func (s *stubPRNG) UintN(uint) uint { return 0 }
func (s *stubPRNG) IntN(int) int { return 0 }
func (s *stubPRNG) Snapshot() ([]byte, error) { return nil, nil }
func (s *stubPRNG) Restore(data []byte) error { return nil }

func TestUnitResamplesOutOfRange(t *testing.T) {
	c := New(&stubPRNG{vals: []float64{1, -0.5, 0.25}})
	if u := c.Unit(); u != 0.25 {
		t.Fatalf("expected resample to 0.25, got %v", u)
	}

	always1 := New(&stubPRNG{vals: []float64{1}})
	if u := always1.Unit(); u != 0 {
		t.Fatalf("expected fallback 0, got %v", u)
	}
}

func TestFairReproducible(t *testing.T) {
	seed := []byte("server-seed")
	f := NewFair(seed, "client", 0)
	if len(f.Commitment()) != 64 {
		t.Fatalf("commitment should be 64 hex chars, got %q", f.Commitment())
	}

	u0 := f.Float64()
	u1 := f.Float64()
	if f.Nonce() != 2 {
		t.Fatalf("nonce should advance per draw, got %d", f.Nonce())
	}
	if u0 != FairUnit(seed, "client", 0) || u1 != FairUnit(seed, "client", 1) {
		t.Fatalf("stateless derivation mismatch")
	}
	if u0 < 0 || u0 >= 1 || u1 < 0 || u1 >= 1 {
		t.Fatalf("fair unit out of range: %v %v", u0, u1)
	}

	other := NewFair(seed, "another-client", 0)
	if other.Float64() == u0 {
		t.Fatalf("client seed should change the stream")
	}
}

func TestFairSnapshotRestore(t *testing.T) {
	f := NewFair([]byte("k"), "c", 10)
	snap, _ := f.Snapshot()
	want := f.Uint64()
	if err := f.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := f.Uint64(); got != want {
		t.Fatalf("restore mismatch: got %d want %d", got, want)
	}
	if err := f.Restore([]byte{1, 2}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
