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

// Package ledger 提供 Round Engine 使用的記憶體帳本。
//
// 金額內部以 shopspring/decimal 保存，避免反覆加減造成浮點誤差累積；
// 對外（Ledger 介面、API）仍以 float64 交換。
package ledger

import (
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/crashlab/errs"
)

// journalCap 為帳本流水保留的筆數上限，超過後丟棄最舊的。
const journalCap = 4096

type EntryKind string

const (
	EntryDeposit EntryKind = "deposit"
	EntryDebit   EntryKind = "debit"
	EntryCredit  EntryKind = "credit"
	// 提領申請核准後的出金
	EntryWithdrawal EntryKind = "withdrawal"
)

// Entry 是一筆帳本流水；Balance 為異動後餘額。
type Entry struct {
	Ref      string          `json:"ref"`
	PlayerID string          `json:"player_id"`
	Kind     EntryKind       `json:"kind"`
	Amount   decimal.Decimal `json:"amount"`
	Balance  decimal.Decimal `json:"balance"`
	At       time.Time       `json:"at"`
}

// Account 是玩家帳戶的唯讀檢視。
type Account struct {
	PlayerID     string    `json:"player_id"`
	Name         string    `json:"name"`
	Balance      float64   `json:"balance"`
	TotalWagered float64   `json:"total_wagered"`
	TotalWon     float64   `json:"total_won"`
	Wagers       int       `json:"wagers"`
	Banned       bool      `json:"banned"`
	OpenedAt     time.Time `json:"opened_at"`
}

type account struct {
	id       string
	name     string
	balance  decimal.Decimal
	wagered  decimal.Decimal
	won      decimal.Decimal
	wagers   int
	banned   bool
	openedAt time.Time
}

func (a *account) view() Account {
	return Account{
		PlayerID:     a.id,
		Name:         a.name,
		Balance:      a.balance.InexactFloat64(),
		TotalWagered: a.wagered.InexactFloat64(),
		TotalWon:     a.won.InexactFloat64(),
		Wagers:       a.wagers,
		Banned:       a.banned,
		OpenedAt:     a.openedAt,
	}
}

// Memory 是執行緒安全的記憶體帳本，滿足 crashlab.Ledger。
type Memory struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	accounts map[string]*account
	journal  []Entry
	requests map[string]*Request
	reqOrder []*Request // 建立順序
}

// NewMemory 建立空帳本；clock 為 nil 時使用系統時鐘。
func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:    clock,
		accounts: make(map[string]*account),
		journal:  make([]Entry, 0, 64),
		requests: make(map[string]*Request),
	}
}

// Open 開立帳戶並存入初始餘額。
func (m *Memory) Open(playerID, name string, initial float64) error {
	if strings.TrimSpace(playerID) == "" {
		return errs.InvalidArgument("player id is required")
	}
	amt, err := ParseAmount(initial, true)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[playerID]; ok {
		return errs.InvalidState("player %s already exists", playerID)
	}
	if name == "" {
		name = playerID
	}
	a := &account{id: playerID, name: name, balance: decimal.Zero, openedAt: m.clock.Now()}
	m.accounts[playerID] = a
	if amt.IsPositive() {
		a.balance = amt
		m.record(a, EntryDeposit, amt)
	}
	return nil
}

// Deposit 入金（管理端使用）。
func (m *Memory) Deposit(playerID string, value float64) error {
	amt, err := ParseAmount(value, false)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[playerID]
	if !ok {
		return errs.NotFound("player %s not found", playerID)
	}
	a.balance = a.balance.Add(amt)
	m.record(a, EntryDeposit, amt)
	return nil
}

// Debit 扣款；餘額不足或玩家不存在皆為 InsufficientFunds（優先於封鎖判斷），
// 餘額足夠但被封鎖的玩家為 InvalidState。失敗時餘額不變。
func (m *Memory) Debit(playerID string, value float64) error {
	amt, err := ParseAmount(value, false)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[playerID]
	if !ok {
		return errs.InsufficientFunds("player %s has no account", playerID)
	}
	if a.balance.LessThan(amt) {
		return errs.InsufficientFunds("player %s balance %s < %s", playerID, a.balance.String(), amt.String())
	}
	if a.banned {
		return errs.InvalidState("player %s is banned", playerID)
	}
	a.balance = a.balance.Sub(amt)
	a.wagered = a.wagered.Add(amt)
	a.wagers++
	m.record(a, EntryDebit, amt)
	return nil
}

// Credit 派彩。amount 為 0 時視為成功但不記帳。
func (m *Memory) Credit(playerID string, value float64) error {
	if value == 0 {
		m.mu.Lock()
		_, ok := m.accounts[playerID]
		m.mu.Unlock()
		if !ok {
			return errs.NotFound("player %s not found", playerID)
		}
		return nil
	}
	amt, err := ParseAmount(value, false)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[playerID]
	if !ok {
		return errs.NotFound("player %s not found", playerID)
	}
	a.balance = a.balance.Add(amt)
	a.won = a.won.Add(amt)
	m.record(a, EntryCredit, amt)
	return nil
}

func (m *Memory) Balance(playerID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[playerID]
	if !ok {
		return 0, errs.NotFound("player %s not found", playerID)
	}
	return a.balance.InexactFloat64(), nil
}

func (m *Memory) Account(playerID string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[playerID]
	if !ok {
		return Account{}, errs.NotFound("player %s not found", playerID)
	}
	return a.view(), nil
}

// Accounts 回傳所有帳戶，依 PlayerID 排序。
func (m *Memory) Accounts() []Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a.view())
	}
	slices.SortFunc(out, func(x, y Account) int { return strings.Compare(x.PlayerID, y.PlayerID) })
	return out
}

// SetBanned 封鎖 / 解封玩家；封鎖只影響之後的扣款，已押的注照常結算。
func (m *Memory) SetBanned(playerID string, banned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[playerID]
	if !ok {
		return errs.NotFound("player %s not found", playerID)
	}
	a.banned = banned
	return nil
}

// Journal 回傳最新的 limit 筆流水（新到舊）；playerID 為空時不過濾，limit <= 0 時不限筆數。
func (m *Memory) Journal(playerID string, limit int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, 16)
	for i := len(m.journal) - 1; i >= 0; i-- {
		e := m.journal[i]
		if playerID != "" && e.PlayerID != playerID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// record 須持有 m.mu。
func (m *Memory) record(a *account, kind EntryKind, amt decimal.Decimal) {
	m.recordRef(a, kind, amt, uuid.NewString())
}

func (m *Memory) recordRef(a *account, kind EntryKind, amt decimal.Decimal, ref string) {
	if len(m.journal) >= 2*journalCap {
		m.journal = append(m.journal[:0], m.journal[len(m.journal)-journalCap:]...)
	}
	m.journal = append(m.journal, Entry{
		Ref:      ref,
		PlayerID: a.id,
		Kind:     kind,
		Amount:   amt,
		Balance:  a.balance,
		At:       m.clock.Now(),
	})
}

// ParseAmount 檢查金額並轉成 decimal；allowZero 只用在開戶。
func ParseAmount(v float64, allowZero bool) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || (v == 0 && !allowZero) {
		return decimal.Zero, errs.InvalidArgument("amount must be a positive finite number, got %v", v)
	}
	return decimal.NewFromFloat(v), nil
}
