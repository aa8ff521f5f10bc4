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

package server_test

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/ledger/sqlbook"
	"github.com/zintix-labs/crashlab/metrics"
	"github.com/zintix-labs/crashlab/server"
	"github.com/zintix-labs/crashlab/server/netsvr"
	"github.com/zintix-labs/crashlab/server/svrcfg"
	"github.com/zintix-labs/crashlab/spec"
)

const adminToken = "s3cret"

// halfPRNG 讓每局 crash point 固定為 1 + 0.02*0.95 = 1.019
type halfPRNG struct{}

func (halfPRNG) Float64() float64 { return 0.5 }
func (halfPRNG) Uint64() uint64 { return 1 << 63 }
func (halfPRNG) UintN(n uint) uint { return n / 2 }
func (halfPRNG) IntN(n int) int { return n / 2 }
func (halfPRNG) Snapshot() ([]byte, error) { return nil, nil }
func (halfPRNG) Restore([]byte) error { return nil }

type env struct {
	ts    *httptest.Server
	clock *clockwork.FakeClock
	eng   *crashlab.Engine
	led   ledger.Book
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return newEnvWith(t, clock, ledger.NewMemory(clock))
}

func newEnvWith(t *testing.T, clock *clockwork.FakeClock, led ledger.Book) *env {
	t.Helper()
	_ = led.Open("alice", "Alice", 1000)
	_ = led.Open("bob", "Bob", 1000)
	col := metrics.New()
	eng, err := crashlab.New(spec.Default(), led,
		crashlab.WithClock(clock),
		crashlab.WithPRNG(halfPRNG{}),
		crashlab.WithObserver(col),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	cfg := &svrcfg.SvrCfg{Engine: eng, Ledger: led, Metrics: col, AdminToken: adminToken, LivePing: time.Second}
	if err := cfg.Vaild(); err != nil {
		t.Fatalf("config: %v", err)
	}
	svr := netsvr.NewChiServer("")
	server.Mount(svr, cfg)
	ts := httptest.NewServer(svr)
	t.Cleanup(func() {
		eng.Close()
		ts.Close()
	})
	return &env{ts: ts, clock: clock, eng: eng, led: led}
}

func (e *env) do(t *testing.T, method, path, body string, admin bool) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, e.ts.URL+path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Token", adminToken)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestWagerLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)

	code, round := e.do(t, "GET", "/v1/round", "", false)
	if code != 200 || round["state"] != "idle" {
		t.Fatalf("round = %d %v", code, round)
	}

	code, placed := e.do(t, "POST", "/v1/wagers", `{"player_id":"alice","stake":100}`, false)
	if code != http.StatusCreated {
		t.Fatalf("place = %d %v", code, placed)
	}
	if placed["balance"].(float64) != 900 || placed["round_id"] == "" {
		t.Fatalf("unexpected placed body: %v", placed)
	}
	id := placed["wager_id"].(string)

	code, body := e.do(t, "POST", "/v1/wagers", `{"player_id":"alice","stake":1}`, false)
	if code != http.StatusConflict || body["kind"] != "invalid_state" {
		t.Fatalf("duplicate wager = %d %v", code, body)
	}

	e.clock.Advance(50 * time.Millisecond)
	code, body = e.do(t, "POST", "/v1/wagers/"+id+"/cashout", "", false)
	if code != 200 {
		t.Fatalf("cash out = %d %v", code, body)
	}
	if p := body["payout"].(float64); math.Abs(p-101) > 1e-9 {
		t.Fatalf("payout = %v", p)
	}
	if b := body["balance"].(float64); math.Abs(b-1001) > 1e-9 {
		t.Fatalf("balance = %v", b)
	}

	code, body = e.do(t, "GET", "/v1/wagers/"+id, "", false)
	if code != 200 || body["status"] != "cashed_out" {
		t.Fatalf("wager = %d %v", code, body)
	}
	code, body = e.do(t, "POST", "/v1/wagers/"+id+"/cashout", "", false)
	if code != http.StatusConflict {
		t.Fatalf("second cash out = %d %v", code, body)
	}
	if code, _ = e.do(t, "GET", "/v1/wagers/nope", "", false); code != http.StatusNotFound {
		t.Fatalf("unknown wager = %d", code)
	}

	e.clock.Advance(time.Second)
	code, body = e.do(t, "GET", "/v1/history", "", false)
	h, _ := body["history"].([]any)
	if code != 200 || len(h) != 1 || math.Abs(h[0].(float64)-1.019) > 1e-9 {
		t.Fatalf("history = %d %v", code, body)
	}
	code, round = e.do(t, "GET", "/v1/round", "", false)
	if round["state"] != "crashed" || round["crash_point"] == nil {
		t.Fatalf("round after crash = %d %v", code, round)
	}
}

func TestWagerOverSQLLedger(t *testing.T) {
	clock := clockwork.NewFakeClock()
	book, err := sqlbook.Dial(filepath.Join(t.TempDir(), "ledger.db"), clock)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = book.Close() })
	e := newEnvWith(t, clock, book)

	code, placed := e.do(t, "POST", "/v1/wagers", `{"player_id":"alice","stake":100}`, false)
	if code != http.StatusCreated || placed["balance"].(float64) != 900 {
		t.Fatalf("place = %d %v", code, placed)
	}
	e.clock.Advance(50 * time.Millisecond)
	code, body := e.do(t, "POST", "/v1/wagers/"+placed["wager_id"].(string)+"/cashout", "", false)
	if code != 200 || math.Abs(body["balance"].(float64)-1001) > 1e-6 {
		t.Fatalf("cash out = %d %v", code, body)
	}
	code, body = e.do(t, "GET", "/v1/players/alice", "", false)
	if code != 200 || len(body["journal"].([]any)) != 3 || body["wagers"].(float64) != 1 {
		t.Fatalf("player view = %d %v", code, body)
	}
}

func TestWalletRequestFlow(t *testing.T) {
	cases := map[string]func(t *testing.T) *env{
		"memory": newEnv,
		"sql": func(t *testing.T) *env {
			clock := clockwork.NewFakeClock()
			book, err := sqlbook.Dial(filepath.Join(t.TempDir(), "ledger.db"), clock)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			t.Cleanup(func() { _ = book.Close() })
			return newEnvWith(t, clock, book)
		},
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			e := mk(t)
			balance := func() float64 {
				t.Helper()
				code, body := e.do(t, "GET", "/v1/players/alice", "", false)
				if code != 200 {
					t.Fatalf("player view = %d %v", code, body)
				}
				return body["balance"].(float64)
			}

			if code, _ := e.do(t, "POST", "/v1/wallet/deposits", `{"player_id":"alice","amount":50,"method":"bkash"}`, false); code != http.StatusBadRequest {
				t.Fatalf("deposit without tx_id = %d", code)
			}
			if code, _ := e.do(t, "POST", "/v1/wallet/deposits", `{"player_id":"alice","amount":50,"method":"paypal","tx_id":"T"}`, false); code != http.StatusBadRequest {
				t.Fatalf("unknown method = %d", code)
			}
			if code, _ := e.do(t, "POST", "/v1/wallet/deposits", `{"player_id":"nobody","amount":50,"method":"bkash","tx_id":"T"}`, false); code != http.StatusNotFound {
				t.Fatalf("unknown player = %d", code)
			}
			code, dep := e.do(t, "POST", "/v1/wallet/deposits", `{"player_id":"alice","amount":50,"method":"bkash","tx_id":"8N7A6D"}`, false)
			if code != http.StatusCreated || dep["status"] != "pending" || dep["tx_id"] != "8N7A6D" {
				t.Fatalf("deposit claim = %d %v", code, dep)
			}
			code, wd := e.do(t, "POST", "/v1/wallet/withdrawals", `{"player_id":"alice","amount":5000,"method":"nagad"}`, false)
			if code != http.StatusCreated || wd["kind"] != "withdrawal" {
				t.Fatalf("withdrawal claim = %d %v", code, wd)
			}
			if got := balance(); got != 1000 {
				t.Fatalf("claims must not move balance, got %v", got)
			}

			code, mine := e.do(t, "GET", "/v1/wallet/alice/requests", "", false)
			if code != 200 || len(mine["requests"].([]any)) != 2 || mine["totals"] != nil {
				t.Fatalf("player requests = %d %v", code, mine)
			}
			if code, _ := e.do(t, "GET", "/v1/admin/wallet/requests", "", false); code != http.StatusUnauthorized {
				t.Fatalf("admin list without token = %d", code)
			}
			code, pend := e.do(t, "GET", "/v1/admin/wallet/requests?status=pending", "", true)
			if code != 200 || len(pend["requests"].([]any)) != 2 {
				t.Fatalf("pending = %d %v", code, pend)
			}
			if code, _ := e.do(t, "GET", "/v1/admin/wallet/requests?status=lost", "", true); code != http.StatusBadRequest {
				t.Fatalf("bad status filter = %d", code)
			}

			code, body := e.do(t, "POST", "/v1/admin/wallet/requests/"+wd["id"].(string)+"/approve", "", true)
			if code != http.StatusPaymentRequired {
				t.Fatalf("short withdrawal approve = %d %v", code, body)
			}
			code, body = e.do(t, "POST", "/v1/admin/wallet/requests/"+dep["id"].(string)+"/approve", "", true)
			if code != 200 || body["status"] != "approved" {
				t.Fatalf("approve deposit = %d %v", code, body)
			}
			if got := balance(); got != 1050 {
				t.Fatalf("balance after approval = %v", got)
			}
			if code, _ := e.do(t, "POST", "/v1/admin/wallet/requests/"+dep["id"].(string)+"/reject", "", true); code != http.StatusConflict {
				t.Fatalf("reject decided request = %d", code)
			}
			code, body = e.do(t, "POST", "/v1/admin/wallet/requests/"+wd["id"].(string)+"/reject", "", true)
			if code != 200 || body["status"] != "rejected" {
				t.Fatalf("reject withdrawal = %d %v", code, body)
			}
			if code, _ := e.do(t, "POST", "/v1/admin/wallet/requests/missing/approve", "", true); code != http.StatusNotFound {
				t.Fatalf("unknown request = %d", code)
			}

			code, all := e.do(t, "GET", "/v1/admin/wallet/requests", "", true)
			if code != 200 || len(all["requests"].([]any)) != 2 {
				t.Fatalf("all requests = %d %v", code, all)
			}
			tot := all["totals"].(map[string]any)
			if tot["approved_deposits"] != "50" || tot["approved_withdrawals"] != "0" {
				t.Fatalf("totals = %v", tot)
			}
		})
	}
}

func TestWagerErrorsMapToStatus(t *testing.T) {
	e := newEnv(t)
	cases := []struct {
		body string
		code int
		kind string
	}{
		{`{"player_id":"bob","stake":5000}`, http.StatusPaymentRequired, "insufficient_funds"},
		{`{"player_id":"ghost","stake":1}`, http.StatusPaymentRequired, "insufficient_funds"},
		{`{"player_id":"bob","stake":-1}`, http.StatusBadRequest, "invalid_argument"},
		{`{"player_id":"bob","stake":1,"auto_cash_out":1}`, http.StatusBadRequest, "invalid_argument"},
		{`{"player_id":"bob","stake":1,"extra":true}`, http.StatusBadRequest, "invalid_argument"},
		{``, http.StatusBadRequest, "invalid_argument"},
	}
	for _, c := range cases {
		code, body := e.do(t, "POST", "/v1/wagers", c.body, false)
		if code != c.code || body["kind"] != c.kind {
			t.Fatalf("%s => %d %v, want %d %s", c.body, code, body, c.code, c.kind)
		}
	}
	if bal, _ := e.led.Balance("bob"); bal != 1000 {
		t.Fatalf("refused wagers must not touch balance, got %v", bal)
	}
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(t)

	if code, _ := e.do(t, "GET", "/v1/admin/setting", "", false); code != http.StatusUnauthorized {
		t.Fatalf("missing token = %d", code)
	}
	code, body := e.do(t, "GET", "/v1/admin/setting", "", true)
	if code != 200 || body["setting"].(map[string]any)["rtp"].(float64) != 0.95 {
		t.Fatalf("setting = %d %v", code, body)
	}
	code, body = e.do(t, "PUT", "/v1/admin/setting", `{"rtp":0.9,"cooldown":"2s"}`, true)
	if code != 200 || body["setting"].(map[string]any)["rtp"].(float64) != 0.9 {
		t.Fatalf("patch = %d %v", code, body)
	}
	if e.eng.Setting().Cooldown.D() != 2*time.Second {
		t.Fatalf("cooldown not applied: %v", e.eng.Setting().Cooldown)
	}
	if code, _ = e.do(t, "PUT", "/v1/admin/setting", `{"rtp":2}`, true); code != http.StatusBadRequest {
		t.Fatalf("bad rtp = %d", code)
	}

	code, body = e.do(t, "POST", "/v1/admin/players", `{"player_id":"carol","balance":50}`, true)
	if code != http.StatusCreated || body["balance"].(float64) != 50 {
		t.Fatalf("open = %d %v", code, body)
	}
	if code, _ = e.do(t, "POST", "/v1/admin/players", `{"player_id":"carol"}`, true); code != http.StatusConflict {
		t.Fatalf("duplicate open = %d", code)
	}
	code, body = e.do(t, "POST", "/v1/admin/players", `{"name":"Dave Grohl","balance":10}`, true)
	if code != http.StatusCreated || body["player_id"] != "dave-grohl" || body["name"] != "Dave Grohl" {
		t.Fatalf("open by name = %d %v", code, body)
	}
	if code, _ = e.do(t, "POST", "/v1/admin/players", `{"balance":1}`, true); code != http.StatusBadRequest {
		t.Fatalf("open without id or name = %d", code)
	}
	code, body = e.do(t, "POST", "/v1/admin/players/carol/deposit", `{"amount":25}`, true)
	if code != 200 || body["balance"].(float64) != 75 {
		t.Fatalf("deposit = %d %v", code, body)
	}
	code, body = e.do(t, "POST", "/v1/admin/players/carol/ban", `{"banned":true}`, true)
	if code != 200 || body["banned"] != true {
		t.Fatalf("ban = %d %v", code, body)
	}
	code, body = e.do(t, "POST", "/v1/wagers", `{"player_id":"carol","stake":1}`, false)
	if code != http.StatusConflict {
		t.Fatalf("banned wager = %d %v", code, body)
	}
	code, body = e.do(t, "GET", "/v1/players/carol", "", false)
	if code != 200 || len(body["journal"].([]any)) != 2 {
		t.Fatalf("player view = %d %v", code, body)
	}
	if code, _ = e.do(t, "GET", "/v1/players/nobody", "", false); code != http.StatusNotFound {
		t.Fatalf("unknown player = %d", code)
	}
}

func TestSimEndpoint(t *testing.T) {
	e := newEnv(t)
	code, body := e.do(t, "POST", "/v1/admin/sim", `{"rounds":2000,"target":2,"seed":7,"workers":2}`, true)
	if code != 200 {
		t.Fatalf("sim = %d %v", code, body)
	}
	if body["seed"].(float64) != 7 {
		t.Fatalf("seed = %v", body["seed"])
	}
	sum := body["stats"].(map[string]any)["Summary"].(map[string]any)
	if sum["Rounds"].(float64) != 4000 {
		t.Fatalf("rounds = %v", sum["Rounds"])
	}
	if code, _ = e.do(t, "POST", "/v1/admin/sim", `{"rounds":10,"target":1}`, true); code != http.StatusBadRequest {
		t.Fatalf("bad target = %d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.do(t, "GET", "/v1/round", "", false)
	resp, err := e.ts.Client().Get(e.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	want := `crashlab_http_requests_total{code="200",method="GET",route="/v1/round"} 1`
	if !strings.Contains(string(raw), want) {
		t.Fatalf("metrics missing %q", want)
	}
}

func TestLiveStreamsEvents(t *testing.T) {
	e := newEnv(t)
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/v1/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var snap struct {
		Type  string `json:"type"`
		Round struct {
			State string `json:"state"`
		} `json:"round"`
	}
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Type != "snapshot" || snap.Round.State != "idle" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if code, _ := e.do(t, "POST", "/v1/wagers", `{"player_id":"alice","stake":10}`, false); code != http.StatusCreated {
		t.Fatalf("place = %d", code)
	}
	var kinds []string
	for len(kinds) < 2 {
		var msg struct {
			Type  string `json:"type"`
			Event struct {
				Kind     string `json:"kind"`
				PlayerID string `json:"player_id"`
			} `json:"event"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if msg.Type != "event" {
			t.Fatalf("unexpected message type %q", msg.Type)
		}
		kinds = append(kinds, msg.Event.Kind)
	}
	if kinds[0] != "wager_placed" || kinds[1] != "started" {
		t.Fatalf("events = %v", kinds)
	}

	e.eng.Close()
	var tail map[string]any
	if err := conn.ReadJSON(&tail); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}
