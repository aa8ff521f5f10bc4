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
	"errors"
	"io"
	"math"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/jonboulle/clockwork"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/recorder"
	"github.com/zintix-labs/crashlab/sdk/core"
	"github.com/zintix-labs/crashlab/spec"
	"github.com/zintix-labs/crashlab/stats"
)

const (
	simPlayer = "sim"
	simRefill = 1e6 // 模擬帳戶每次補充的押注數
)

// Simulator 以真實 Engine 搭配 fake clock 連續跑局，統計固定自動兌現策略的結果。
//
// 每個 worker 各自持有一張 simTable（Engine + FakeClock + ledger.Memory），不共享狀態。
type Simulator struct {
	setting   *spec.EngineSetting
	factory   core.PRNGFactory
	target    float64
	stake     float64
	initSeed  int64
	seedmaker *seedMaker
}

// NewSimulator 以 crypto seed 建立模擬器。target 為自動兌現倍率（> 1）。
func NewSimulator(setting *spec.EngineSetting, target float64) (*Simulator, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "generate simulator seed failed")
	}
	return NewSimulatorWithSeed(setting, target, seed.Int64())
}

// NewSimulatorWithSeed 以固定 seed 建立模擬器；相同 seed、相同參數的單線模擬結果可重現。
func NewSimulatorWithSeed(setting *spec.EngineSetting, target float64, seed int64) (*Simulator, error) {
	if setting == nil {
		setting = spec.Default()
	}
	if err := setting.Valid(); err != nil {
		return nil, err
	}
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 1 {
		return nil, errs.InvalidArgument("auto cash-out target must be > 1, got %v", target)
	}
	return &Simulator{
		setting:   setting.Clone(),
		factory:   core.Default(),
		target:    target,
		stake:     1,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
	}, nil
}

// WithFactory 替換 worker 使用的亂數工廠，回傳 s 本身。
func (s *Simulator) WithFactory(f core.PRNGFactory) *Simulator {
	if f != nil {
		s.factory = f
	}
	return s
}

func (s *Simulator) Seed() int64 { return s.initSeed }

// Sim 單線模擬：以初始 seed 連續跑 rounds 局並回傳統計結果與用時
func (s *Simulator) Sim(rounds int, showpb bool) (*stats.StatReport, time.Duration, error) {
	if rounds < 1 {
		return nil, 0, errs.InvalidArgument("rounds must > 0")
	}
	t, err := newSimTable(s.setting, s.factory.New(s.initSeed), s.target, s.stake)
	if err != nil {
		return nil, 0, err
	}
	r, err := recorder.NewRoundRecorder(s.setting, s.target, s.stake, 0)
	if err != nil {
		return nil, 0, err
	}

	bar := pb.StartNew(rounds)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for range rounds {
		cp, payout, err := t.play()
		if err != nil {
			bar.Finish()
			return nil, 0, err
		}
		r.Record(cp, payout)
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()

	result := r.Done()
	result.Done()
	return result, used, nil
}

// SimMP 平行執行 mp 張桌，總計 rounds*mp 局，合併統計結果後回傳統計結果與用時
func (s *Simulator) SimMP(rounds int, mp int, showpb bool) (*stats.StatReport, time.Duration, error) {
	if mp <= 0 {
		return nil, 0, errs.InvalidArgument("workers must > 0")
	}
	if rounds < 1 {
		return nil, 0, errs.InvalidArgument("rounds must > 0")
	}
	tables, recs, err := s.prepare(mp, mp, 0)
	if err != nil {
		return nil, 0, err
	}

	bar := pb.StartNew(rounds * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	wg.Add(mp)
	for i := 0; i < mp; i++ {
		go func(t *simTable, r *recorder.RoundRecorder) {
			defer wg.Done()
			for range rounds {
				cp, payout, err := t.play()
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
				r.Record(cp, payout)
				bar.Increment()
			}
		}(tables[i], recs[i])
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if firstErr != nil {
		return nil, 0, firstErr
	}

	merged, err := recorder.MergeRoundRecorder(recs)
	if err != nil {
		return nil, 0, err
	}
	result := merged.Done()
	result.Done()
	return result, used, nil
}

// SimPlayers 模擬多個玩家各自帶入 initBets 注籌碼、最多玩 rounds 局的歷程，並產出整體報表與玩家體驗報表。
func (s *Simulator) SimPlayers(mp int, players int, initBets int, rounds int, showpb bool) (*stats.StatReport, *stats.EstimatorPlayers, time.Duration, error) {
	if players < 1 || initBets < 1 || rounds < 1 || mp < 1 {
		return nil, nil, 0, errs.InvalidArgument("invalid param")
	}
	tables, recs, err := s.prepare(mp, players, initBets)
	if err != nil {
		return nil, nil, 0, err
	}
	// 2048 大小的緩衝 channel 讓玩家依序被桌消化
	jobs := make(chan *recorder.RoundRecorder, 2048)

	bar := pb.StartNew(players)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	wg.Add(mp)
	for w := 0; w < mp; w++ {
		go func(t *simTable) {
			defer wg.Done()
			for j := range jobs {
				if err := t.session(j, rounds); err != nil {
					errOnce.Do(func() { firstErr = err })
				}
				bar.Increment()
			}
		}(tables[w])
	}
	for _, j := range recs {
		jobs <- j
	}
	close(jobs)
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()
	if firstErr != nil {
		return nil, nil, 0, firstErr
	}

	merged, err := recorder.MergeRoundRecorder(recs)
	if err != nil {
		return nil, nil, 0, err
	}
	st := merged.Done()
	st.Done()

	reports := make([]*stats.StatReport, len(recs))
	for i, r := range recs {
		reports[i] = r.Done()
		reports[i].Done()
	}
	return st, stats.EstimatorPlayerExp(reports), used, nil
}

// prepare 建立 tables 張桌（seed 由 seedmaker 產生）與 recs 個紀錄員。
func (s *Simulator) prepare(tables, recs, initBets int) ([]*simTable, []*recorder.RoundRecorder, error) {
	ts := make([]*simTable, tables)
	for i := range ts {
		t, err := newSimTable(s.setting, s.factory.New(s.seedmaker.next()), s.target, s.stake)
		if err != nil {
			return nil, nil, err
		}
		ts[i] = t
	}
	rs := make([]*recorder.RoundRecorder, recs)
	for i := range rs {
		r, err := recorder.NewRoundRecorder(s.setting, s.target, s.stake, initBets)
		if err != nil {
			return nil, nil, err
		}
		rs[i] = r
	}
	return ts, rs, nil
}

// simTable 是一張只有一位自動兌現玩家的桌。
//
// 設定固定為 first_wager、冷卻 0：押注即開局，crash 後立即開下一局。
type simTable struct {
	eng    *Engine
	clock  *clockwork.FakeClock
	led    *ledger.Memory
	step   time.Duration
	target float64
	stake  float64

	crashed   bool
	lastCrash float64
}

func newSimTable(setting *spec.EngineSetting, rng core.PRNG, target, stake float64) (*simTable, error) {
	st := setting.Clone()
	st.StartPolicy = spec.PolicyFirstWager
	st.Cooldown = 0
	st.MaxStake = 0

	t := &simTable{
		clock:  clockwork.NewFakeClock(),
		step:   st.Tick.D() * 4096,
		target: target,
		stake:  stake,
	}
	t.led = ledger.NewMemory(t.clock)
	if err := t.led.Open(simPlayer, "simulator", stake*simRefill); err != nil {
		return nil, err
	}
	var seq uint64
	eng, err := New(st, t.led,
		WithClock(t.clock),
		WithPRNG(rng),
		WithObserver(t),
		WithIDGenerator(func() string {
			seq++
			return strconv.FormatUint(seq, 36)
		}),
	)
	if err != nil {
		return nil, err
	}
	t.eng = eng
	return t, nil
}

// play 跑完整一局，回傳 crash point 與派彩（輸掉為 0）。
func (t *simTable) play() (float64, float64, error) {
	id, err := t.eng.PlaceAutoWager(simPlayer, t.stake, t.target)
	if errors.Is(err, errs.ErrInsufficientFunds) {
		if err = t.led.Deposit(simPlayer, t.stake*simRefill); err == nil {
			id, err = t.eng.PlaceAutoWager(simPlayer, t.stake, t.target)
		}
	}
	if err != nil {
		return 0, 0, err
	}
	t.crashed = false
	for step := t.step; !t.crashed; step *= 2 {
		t.clock.Advance(step)
		t.eng.Tick()
	}
	w, ok := t.eng.Wager(id)
	if !ok {
		return 0, 0, errs.Fatalf("simulated wager %s vanished", id)
	}
	return t.lastCrash, w.Payout, nil
}

// session 讓一位玩家在這張桌上玩到離場或滿 rounds 局。
func (t *simTable) session(r *recorder.RoundRecorder, rounds int) error {
	for range rounds {
		if !r.CanBet() {
			return nil
		}
		cp, payout, err := t.play()
		if err != nil {
			return err
		}
		if r.RecordWithPlayer(cp, payout) {
			return nil
		}
	}
	return nil
}

// simTable 以 Observer 取得 crash 結果。

func (t *simTable) RoundStarted() {}

func (t *simTable) RoundCrashed(crashPoint float64, _ int) {
	t.crashed = true
	t.lastCrash = crashPoint
}

func (t *simTable) WagerPlaced(float64) {}

func (t *simTable) WagerSettled(WagerStatus, float64) {}

func (t *simTable) LedgerRefused(errs.Kind) {}

const mask63 = uint64(1<<63) - 1

// seedMaker 產生各 worker 的 seed，可被多個 goroutine 同時呼叫。
type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 以 CAS 推進 mod 2^63 的全週期 LCG，再經可逆的 mix63 打散；回傳值一定非負。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next))
		}
	}
}

// mix63 只用可逆的 xor-shift 與乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
