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

package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/crashlab/errs"
)

type RequestKind string

const (
	RequestDeposit    RequestKind = "deposit"
	RequestWithdrawal RequestKind = "withdrawal"
)

// RequestStatus：pending 只會前進到 approved 或 rejected，且不可逆。
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Request 是玩家提出、待管理端審核的入金 / 提領申請。
// 只有核准會動到餘額；核准產生的流水 Ref 即為申請 ID。
type Request struct {
	ID        string          `json:"id"`
	PlayerID  string          `json:"player_id"`
	Kind      RequestKind     `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	TxID      string          `json:"tx_id,omitempty"`
	Status    RequestStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	DecidedAt *time.Time      `json:"decided_at,omitempty"`
}

// RequestTotals 為已核准申請的合計。
type RequestTotals struct {
	Deposits    decimal.Decimal `json:"approved_deposits"`
	Withdrawals decimal.Decimal `json:"approved_withdrawals"`
}

// Totals 加總 reqs 中已核准的申請。
func Totals(reqs []Request) RequestTotals {
	t := RequestTotals{Deposits: decimal.Zero, Withdrawals: decimal.Zero}
	for _, r := range reqs {
		if r.Status != RequestApproved {
			continue
		}
		switch r.Kind {
		case RequestDeposit:
			t.Deposits = t.Deposits.Add(r.Amount)
		case RequestWithdrawal:
			t.Withdrawals = t.Withdrawals.Add(r.Amount)
		}
	}
	return t
}

// NewRequest 檢查欄位並建立 pending 申請；入金必須附上 txID。
// 帳戶是否存在由呼叫端確認。
func NewRequest(kind RequestKind, playerID string, value float64, method, txID string, now time.Time) (Request, error) {
	amt, err := ParseAmount(value, false)
	if err != nil {
		return Request{}, err
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return Request{}, errs.InvalidArgument("payment method is required")
	}
	txID = strings.TrimSpace(txID)
	switch kind {
	case RequestDeposit:
		if txID == "" {
			return Request{}, errs.InvalidArgument("deposit request needs a transaction id")
		}
	case RequestWithdrawal:
		txID = ""
	default:
		return Request{}, errs.InvalidArgument("unknown request kind %q", kind)
	}
	return Request{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Kind:      kind,
		Amount:    amt,
		Method:    method,
		TxID:      txID,
		Status:    RequestPending,
		CreatedAt: now,
	}, nil
}

// RequestDeposit 提出入金申請（pending，不影響餘額）。
func (m *Memory) RequestDeposit(playerID string, amount float64, method, txID string) (Request, error) {
	return m.submit(RequestDeposit, playerID, amount, method, txID)
}

// RequestWithdrawal 提出提領申請；餘額在核准時才檢查。
func (m *Memory) RequestWithdrawal(playerID string, amount float64, method string) (Request, error) {
	return m.submit(RequestWithdrawal, playerID, amount, method, "")
}

func (m *Memory) submit(kind RequestKind, playerID string, amount float64, method, txID string) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[playerID]; !ok {
		return Request{}, errs.NotFound("player %s not found", playerID)
	}
	req, err := NewRequest(kind, playerID, amount, method, txID, m.clock.Now())
	if err != nil {
		return Request{}, err
	}
	p := &req
	m.requests[req.ID] = p
	m.reqOrder = append(m.reqOrder, p)
	return req, nil
}

// Approve 核准申請並異動餘額。
//
// 提領金額超過餘額時為 InsufficientFunds，申請維持 pending；
// 已審核過的申請為 InvalidState。
func (m *Memory) Approve(requestID string) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, err := m.pending(requestID)
	if err != nil {
		return Request{}, err
	}
	a, ok := m.accounts[req.PlayerID]
	if !ok {
		return Request{}, errs.NotFound("player %s not found", req.PlayerID)
	}
	switch req.Kind {
	case RequestDeposit:
		a.balance = a.balance.Add(req.Amount)
		m.recordRef(a, EntryDeposit, req.Amount, req.ID)
	case RequestWithdrawal:
		if a.balance.LessThan(req.Amount) {
			return Request{}, errs.InsufficientFunds("player %s balance %s < withdrawal %s", a.id, a.balance.String(), req.Amount.String())
		}
		a.balance = a.balance.Sub(req.Amount)
		m.recordRef(a, EntryWithdrawal, req.Amount, req.ID)
	}
	m.decide(req, RequestApproved)
	return *req, nil
}

// Reject 駁回申請，餘額不變。
func (m *Memory) Reject(requestID string) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, err := m.pending(requestID)
	if err != nil {
		return Request{}, err
	}
	m.decide(req, RequestRejected)
	return *req, nil
}

// Requests 回傳申請（新到舊）；playerID / status 為空時不過濾。
func (m *Memory) Requests(playerID string, status RequestStatus) []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, 0, 8)
	for i := len(m.reqOrder) - 1; i >= 0; i-- {
		r := m.reqOrder[i]
		if playerID != "" && r.PlayerID != playerID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, *r)
	}
	return out
}

// pending 須持有 m.mu。
func (m *Memory) pending(requestID string) (*Request, error) {
	req, ok := m.requests[requestID]
	if !ok {
		return nil, errs.NotFound("request %s not found", requestID)
	}
	if req.Status != RequestPending {
		return nil, errs.InvalidState("request %s is already %s", requestID, req.Status)
	}
	return req, nil
}

func (m *Memory) decide(req *Request, status RequestStatus) {
	t := m.clock.Now()
	req.Status = status
	req.DecidedAt = &t
}
