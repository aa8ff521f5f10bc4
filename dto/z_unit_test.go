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


package dto

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
)

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/v1/wagers", bytes.NewReader([]byte(body)))
}

func TestDecodeWagerRequest(t *testing.T) {
	var req WagerRequest
	if err := DecodeJSON(post(`{"player_id":"alice","stake":100,"auto_cash_out":2.5}`), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.PlayerID != "alice" || req.Stake != 100 || req.AutoCashOut != 2.5 {
		t.Fatalf("unexpected request: %+v", req)
	}

	var manual WagerRequest
	if err := DecodeJSON(post(`{"player_id":"bob","stake":1}`), &manual); err != nil || manual.AutoCashOut != 0 {
		t.Fatalf("manual wager should decode without target: %+v %v", manual, err)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":  `{"player_id":"alice","stake":1,"unknown":true}`,
		"missing player": `{"stake":1}`,
		"zero stake":     `{"player_id":"alice","stake":0}`,
		"target <= 1":    `{"player_id":"alice","stake":1,"auto_cash_out":1}`,
		"not json":       `stake=1`,
		"empty":          ``,
	}
	for name, body := range cases {
		var req WagerRequest
		err := DecodeJSON(post(body), &req)
		if !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("%s: expected invalid argument, got %v", name, err)
		}
	}
}

func TestValidationMessageUsesJSONNames(t *testing.T) {
	var req WagerRequest
	err := DecodeJSON(post(`{"stake":-1}`), &req)
	if err == nil || !strings.Contains(err.Error(), "player_id") || !strings.Contains(err.Error(), "stake") {
		t.Fatalf("error should name json fields, got %v", err)
	}
}

func TestDecodeBodyLimit(t *testing.T) {
	big := `{"player_id":"` + strings.Repeat("a", maxBody) + `","stake":1}`
	var req WagerRequest
	if err := DecodeJSON(post(big), &req); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("oversized body should be rejected, got %v", err)
	}
}

func TestSettingPatchApply(t *testing.T) {
	var p SettingPatch
	body := `{"rtp":0.9,"tick":"100ms","start_policy":"continuous","history_size":20}`
	if err := DecodeJSON(post(body), &p); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	base := spec.Default()
	next := p.Apply(base)
	if next.RTP != 0.9 || next.Tick.D() != 100*time.Millisecond || next.StartPolicy != spec.PolicyContinuous || next.HistorySize != 20 {
		t.Fatalf("patch not applied: %+v", next)
	}
	if next.Cooldown != base.Cooldown || base.RTP != 0.95 {
		t.Fatalf("patch should keep untouched fields and not modify base")
	}
	if err := next.Valid(); err != nil {
		t.Fatalf("patched setting should be valid: %v", err)
	}

	var bad SettingPatch
	if err := DecodeJSON(post(`{"start_policy":"sometimes"}`), &bad); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("unknown policy should be rejected, got %v", err)
	}
	if err := DecodeJSON(post(`{"tick":"soon"}`), &bad); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("bad duration should be rejected, got %v", err)
	}
}
