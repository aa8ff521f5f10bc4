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

package crashlab

import (
	"crypto/rand"
	"log/slog"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/sdk/core"
	"github.com/zintix-labs/crashlab/sdk/crash"
	"github.com/zintix-labs/crashlab/spec"
)

// Engine 是單一 live round 的狀態機。
//
// 所有狀態變更（Tick、押注、兌現、查詢）都在同一把 mutex 下依到達順序執行；
// 倍率由注入時鐘的經過時間算出，因此被接受的兌現倍率在同一局內必然非遞減。
type Engine struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	core   *core.Core
	ledger Ledger
	log    *slog.Logger
	obs    Observer
	newID  func() string
	bus    *bus

	setting *spec.EngineSetting // 下一局使用的設定
	cur     *round
	prev    *round // 上一局，供查詢與「押注屬於舊局」的判斷
	hist    *history
	closed  bool
}

// New 建立引擎並開出第一個 Idle 局。setting 為 nil 時使用 spec.Default()。
func New(setting *spec.EngineSetting, ledger Ledger, opts ...Option) (*Engine, error) {
	if ledger == nil {
		return nil, errs.InvalidArgument("ledger is required")
	}
	if setting == nil {
		setting = spec.Default()
	}
	if err := setting.Valid(); err != nil {
		return nil, err
	}
	e := &Engine{
		clock:   clockwork.NewRealClock(),
		ledger:  ledger,
		log:     slog.New(slog.DiscardHandler),
		obs:     nopObserver{},
		newID:   uuid.NewString,
		bus:     newBus(),
		setting: setting.Clone(),
		hist:    newHistory(setting.HistorySize),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.core == nil {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			return nil, errs.Wrap(err, "generate engine seed failed")
		}
		e.core = core.New(core.Default().New(seed.Int64()))
	}
	e.mu.Lock()
	e.open(e.clock.Now())
	e.mu.Unlock()
	return e, nil
}

// PlaceWager 押注於目前的局。
//
// 失敗時不會有任何副作用：
//   - InvalidArgument : playerID 為空、stake 非正數或超過 max_stake
//   - InvalidState    : 局已過開局瞬間，或該玩家本局已有 Active 押注
//   - InsufficientFunds（或 Ledger 回傳的其他分類）: Ledger 拒絕扣款
func (e *Engine) PlaceWager(playerID string, stake float64) (string, error) {
	return e.place(playerID, stake, 0)
}

// PlaceAutoWager 同 PlaceWager，並設定自動兌現倍率 target（> 1）。
//
// 倍率第一次 >= target 且該 tick 尚未 crash 時，以 target 本身結算。
func (e *Engine) PlaceAutoWager(playerID string, stake, target float64) (string, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 1 {
		return "", errs.InvalidArgument("auto cash-out target must be > 1, got %v", target)
	}
	return e.place(playerID, stake, target)
}

func (e *Engine) place(playerID string, stake, target float64) (string, error) {
	if playerID == "" {
		return "", errs.InvalidArgument("player id is required")
	}
	if math.IsNaN(stake) || math.IsInf(stake, 0) || stake <= 0 {
		return "", errs.InvalidArgument("stake must be a positive number, got %v", stake)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", errs.InvalidState("engine is closed")
	}
	now := e.clock.Now()
	e.sync(now)

	r := e.cur
	if r.stake > 0 && stake > r.stake {
		return "", errs.InvalidArgument("stake %v exceeds max stake %v", stake, r.stake)
	}
	if !r.acceptsWagers(now) {
		return "", errs.InvalidState("round %s is %s, wagers are closed", r.id, r.state)
	}
	if w, dup := r.byPlayer[playerID]; dup {
		return "", errs.InvalidState("player %s already holds active wager %s in round %s", playerID, w.id, r.id)
	}
	if err := e.ledger.Debit(playerID, stake); err != nil {
		// 未分類的拒絕一律視為餘額不足
		if errs.KindOf(err) == errs.KindUnknown {
			refused := errs.InsufficientFunds("ledger refused debit of %v", stake)
			refused.Cause = err
			err = refused
		}
		e.obs.LedgerRefused(errs.KindOf(err))
		e.log.Warn("ledger debit refused", slog.String("player", playerID), slog.String("kind", errs.KindOf(err).String()))
		return "", errs.WrapWithExtra(err, "ledger debit refused", "player="+playerID)
	}

	w := &wager{
		id:          e.newID(),
		roundID:     r.id,
		playerID:    playerID,
		stake:       stake,
		autoCashOut: target,
		status:      Active,
		placedAt:    now,
	}
	r.wagers = append(r.wagers, w)
	r.byID[w.id] = w
	r.byPlayer[playerID] = w
	e.obs.WagerPlaced(stake)
	e.bus.publish(Event{Kind: EventWagerPlaced, RoundID: r.id, WagerID: w.id, PlayerID: playerID, Stake: stake, At: now})
	e.log.Debug("wager placed", slog.String("round", r.id), slog.String("wager", w.id), slog.String("player", playerID), slog.Float64("stake", stake))

	if r.state == Idle && r.policy == spec.PolicyFirstWager {
		e.start(r, now)
	}
	return w.id, nil
}

// CashOut 以「受理當下」的倍率兌現押注，回傳派彩金額 stake * multiplier。
//
// 局不在 Running、押注不是 Active、押注不屬於目前這一局（或不存在）皆為 InvalidState。
// Ledger 派彩失敗時押注維持 Active，錯誤原樣回傳。
func (e *Engine) CashOut(wagerID string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	e.sync(now)

	r := e.cur
	w, ok := r.byID[wagerID]
	if !ok {
		if e.prev != nil {
			if old, stale := e.prev.byID[wagerID]; stale {
				return 0, errs.InvalidState("wager %s belongs to round %s, not the current round %s", wagerID, old.roundID, r.id)
			}
		}
		return 0, errs.InvalidState("wager %s is not part of the current round", wagerID)
	}
	if r.state != Running {
		return 0, errs.InvalidState("round %s is %s, cash out needs a running round", r.id, r.state)
	}
	if w.status != Active {
		return 0, errs.InvalidState("wager %s is %s", wagerID, w.status)
	}

	m := r.multiplier
	payout := w.stake * m
	if err := e.ledger.Credit(w.playerID, payout); err != nil {
		e.obs.LedgerRefused(errs.KindOf(err))
		e.log.Warn("ledger credit failed", slog.String("wager", wagerID), slog.Any("err", err))
		return 0, errs.WrapWithExtra(err, "ledger credit failed", "wager="+wagerID)
	}
	e.settleCashOut(r, w, m, payout, now)
	return payout, nil
}

// Tick 把引擎同步到現在：推進倍率、發送事件、處理 crash / 冷卻 / 自動開局。
// 由 Driver 週期呼叫；呼叫頻率不影響結果，只影響事件的細緻度。
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.sync(e.clock.Now())
}

// RoundState 回傳目前的局狀態；crash point 只在 Crashed 時揭露。
func (e *Engine) RoundState() RoundSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync(e.clock.Now())
	return e.cur.snapshot()
}

// History 回傳最近的 crash point，新到舊。
func (e *Engine) History() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync(e.clock.Now())
	return e.hist.values()
}

// Wager 查詢目前或上一局的押注。
func (e *Engine) Wager(wagerID string) (WagerSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sync(e.clock.Now())
	for _, r := range []*round{e.cur, e.prev} {
		if r == nil {
			continue
		}
		if w, ok := r.byID[wagerID]; ok {
			return w.snapshot(), true
		}
	}
	return WagerSnapshot{}, false
}

// Setting 回傳下一局將使用的設定（拷貝）。
func (e *Engine) Setting() *spec.EngineSetting {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setting.Clone()
}

// UpdateSetting 驗證並替換設定；只影響之後建立的局，進行中的局不受影響。
func (e *Engine) UpdateSetting(s *spec.EngineSetting) error {
	if err := s.Valid(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setting = s.Clone()
	e.log.Info("engine setting updated",
		slog.Float64("rtp", s.RTP),
		slog.Duration("tick", s.Tick.D()),
		slog.Duration("cooldown", s.Cooldown.D()),
		slog.String("policy", string(s.StartPolicy)),
	)
	return nil
}

// Subscribe 訂閱局事件；buf 滿時事件會被丟棄。呼叫 cancel 取消訂閱並關閉 channel。
func (e *Engine) Subscribe(buf int) (<-chan Event, func()) {
	return e.bus.subscribe(buf)
}

// DroppedEvents 回傳因訂閱者緩衝已滿而丟棄的事件數。
func (e *Engine) DroppedEvents() uint64 {
	return e.bus.dropped.Load()
}

// Close 停止受理押注與推進，並關閉所有事件訂閱。兌現與查詢仍可使用。
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.bus.closeAll()
}

// ---------------------------------------------------------------
// 以下皆須持有 e.mu
// ---------------------------------------------------------------

// sync 連續執行狀態轉換直到追上 now。
//
// 每次轉換至少前進一個 tick，且沒人押注的過期 Idle 局會直接跳到 now，
// 所以長時間停擺（程序暫停、Driver 延遲）後也只需要少數幾步。
func (e *Engine) sync(now time.Time) {
	for e.step(now) {
	}
}

// step 執行至多一個狀態轉換，回傳是否有變化。
func (e *Engine) step(now time.Time) bool {
	r := e.cur
	switch r.state {
	case Idle:
		if r.policy != spec.PolicyContinuous {
			return false
		}
		at := r.openedAt.Add(r.window)
		if now.Before(at) {
			return false
		}
		// 連下一局的押注窗都已經過去：沒有人能押的局不抽 crash point
		if len(r.wagers) == 0 && !now.Before(at.Add(r.tick+r.cool+r.window)) {
			e.log.Warn("round schedule fell behind, skipping ahead",
				slog.String("round", r.id),
				slog.Duration("behind", now.Sub(at)),
			)
			e.open(now)
			return true
		}
		e.start(r, at)
		return true
	case Running:
		return e.advance(r, now)
	case Crashed:
		at := r.crashedAt.Add(r.cool)
		if now.Before(at) {
			return false
		}
		e.hist.resize(e.setting.HistorySize)
		e.prev = r
		e.open(at)
		return true
	}
	return false
}

func (e *Engine) open(at time.Time) {
	r := newRound(e.newID(), e.setting, at)
	e.cur = r
	e.bus.publish(Event{Kind: EventOpened, RoundID: r.id, At: at})
	e.log.Debug("round opened", slog.String("round", r.id), slog.String("policy", string(r.policy)))
}

// start：Idle -> Running，crash point 在此且只在此抽一次。
func (e *Engine) start(r *round, at time.Time) {
	r.crashPoint = crash.Point(e.core.Unit(), r.rtp)
	r.crashTick = r.law.TicksToReach(r.crashPoint)
	if r.crashTick < 0 {
		r.crashTick = math.MaxInt
	}
	r.state = Running
	r.startedAt = at
	r.multiplier = 1
	r.ticks = 0
	e.obs.RoundStarted()
	e.bus.publish(Event{Kind: EventStarted, RoundID: r.id, Multiplier: 1, At: at})
	e.log.Debug("round started", slog.String("round", r.id), slog.Int("wagers", len(r.wagers)))
}

// advance 推進 Running 局到 now 對應的 tick。
//
// crashTick 是第一個 At(k) >= crashPoint 的 tick；在它之前的最後一個 tick 先結算自動兌現，
// 抵達 crashTick 時執行 crash，倍率夾在 crashPoint。
func (e *Engine) advance(r *round, now time.Time) bool {
	k := r.tickAt(now)
	if k <= r.ticks {
		return false
	}
	last := min(k, r.crashTick-1)
	if last > r.ticks {
		r.ticks = last
		r.multiplier = r.law.At(last)
		at := r.startedAt.Add(time.Duration(last) * r.tick)
		e.settleAuto(r, at)
		e.bus.publish(Event{Kind: EventTick, RoundID: r.id, Multiplier: r.multiplier, Ticks: r.ticks, At: at})
	}
	if k >= r.crashTick {
		e.crash(r)
	}
	return true
}

// settleAuto 以 target 結算所有已達標的自動兌現押注（依到達順序）。
func (e *Engine) settleAuto(r *round, at time.Time) {
	for _, w := range r.wagers {
		if w.status != Active || w.autoCashOut == 0 || w.autoCashOut > r.multiplier {
			continue
		}
		payout := w.stake * w.autoCashOut
		if err := e.ledger.Credit(w.playerID, payout); err != nil {
			e.obs.LedgerRefused(errs.KindOf(err))
			e.log.Error("auto cash-out credit failed", slog.String("wager", w.id), slog.Any("err", err))
			continue
		}
		e.settleCashOut(r, w, w.autoCashOut, payout, at)
	}
}

func (e *Engine) settleCashOut(r *round, w *wager, m, payout float64, at time.Time) {
	w.status = CashedOut
	w.cashOutAt = m
	w.payout = payout
	w.settledAt = at
	delete(r.byPlayer, w.playerID)
	e.obs.WagerSettled(CashedOut, payout)
	e.bus.publish(Event{Kind: EventCashedOut, RoundID: r.id, WagerID: w.id, PlayerID: w.playerID, Stake: w.stake, Multiplier: m, Payout: payout, At: at})
}

// crash：Running -> Crashed，剩下的 Active 押注全數判 Lost（扣款即為損失，不派彩）。
func (e *Engine) crash(r *round) {
	r.state = Crashed
	r.ticks = r.crashTick
	r.multiplier = r.crashPoint
	r.crashedAt = r.startedAt.Add(time.Duration(r.crashTick) * r.tick)
	lost := 0
	for _, w := range r.wagers {
		if w.status != Active {
			continue
		}
		w.status = Lost
		w.settledAt = r.crashedAt
		delete(r.byPlayer, w.playerID)
		e.obs.WagerSettled(Lost, 0)
		lost++
	}
	e.hist.push(r.crashPoint)
	e.obs.RoundCrashed(r.crashPoint, r.crashTick)
	e.bus.publish(Event{Kind: EventCrashed, RoundID: r.id, Multiplier: r.crashPoint, CrashPoint: r.crashPoint, Ticks: r.crashTick, At: r.crashedAt})
	e.log.Info("round crashed",
		slog.String("round", r.id),
		slog.Float64("crash", r.crashPoint),
		slog.Int("ticks", r.crashTick),
		slog.Int("wagers", len(r.wagers)),
		slog.Int("lost", lost),
	)
}
