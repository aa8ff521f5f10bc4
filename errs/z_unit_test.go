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

package errs

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindUnknown:           "",
		KindInsufficientFunds: "insufficient_funds",
		KindInvalidState:      "invalid_state",
		KindConfiguration:     "configuration",
		KindInvalidArgument:   "invalid_argument",
		KindNotFound:          "not_found",
		Kind(99):              "",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestSentinelMatchesByKind(t *testing.T) {
	err := InsufficientFunds("player %s short by %d", "alice", 3)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected sentinel match")
	}
	if errors.Is(err, ErrInvalidState) {
		t.Fatalf("kinds must not cross-match")
	}
	// 帶訊息的錯誤不當作 sentinel
	if errors.Is(InvalidState("a"), InvalidState("a")) {
		t.Fatalf("two distinct messages should not match")
	}
	if err.ErrLv != Warn {
		t.Fatalf("business errors are warn level, got %s", ErrLv(err.ErrLv))
	}
}

func TestWrapKeepsKindAndLevel(t *testing.T) {
	base := NotFound("wager %s", "w1")
	w := Wrap(base, "cash out")
	if w.Kind != KindNotFound || w.ErrLv != Warn {
		t.Fatalf("wrap lost kind or level: %+v", w)
	}
	if !errors.Is(w, ErrNotFound) {
		t.Fatalf("wrapped error should still match sentinel")
	}

	fe := Wrap(io.ErrUnexpectedEOF, "read body")
	if fe.ErrLv != Fatal || fe.Kind != KindUnknown {
		t.Fatalf("foreign cause should be fatal and unknown: %+v", fe)
	}
}

func TestKindOfWalksChain(t *testing.T) {
	inner := Configuration("rtp out of range")
	outer := fmt.Errorf("load: %w", Wrap(inner, "engine"))
	if got := KindOf(outer); got != KindConfiguration {
		t.Fatalf("KindOf = %v, want configuration", got)
	}
	if KindOf(errors.New("plain")) != KindUnknown || KindOf(nil) != KindUnknown {
		t.Fatalf("plain or nil errors have no kind")
	}
	if e, ok := AsErr(outer); !ok || e.Message != "engine" {
		t.Fatalf("AsErr should find the outermost *E, got %+v %v", e, ok)
	}
}

func TestErrorFormat(t *testing.T) {
	e := WrapWithExtra(InvalidArgument("stake %v", -1), "place", "player=alice")
	s := e.Error()
	for _, part := range []string{"errlv=warn", "kind=invalid_argument", "place", "extra: player=alice", "cause: errlv=warn"} {
		if !strings.Contains(s, part) {
			t.Fatalf("%q missing %q", s, part)
		}
	}
	if got := Fatalf("boom %d", 1).Error(); got != "errlv=fatal boom 1" {
		t.Fatalf("fatal format = %q", got)
	}
	if got := NewWithExtra(Log, "note", "x").Error(); got != "errlv=log note | extra: x" {
		t.Fatalf("extra format = %q", got)
	}
}
