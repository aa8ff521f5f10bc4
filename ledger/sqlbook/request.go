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

package sqlbook

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type requestRow struct {
	Seq       uint64          `gorm:"primaryKey;autoIncrement"` // 建立順序
	ID        string          `gorm:"size:36;uniqueIndex;not null"`
	PlayerID  string          `gorm:"size:64;index;not null"`
	Kind      string          `gorm:"size:16;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Method    string          `gorm:"size:32;not null"`
	TxID      string          `gorm:"size:128"`
	Status    string          `gorm:"size:16;index;not null"`
	CreatedAt time.Time       `gorm:"not null"`
	DecidedAt *time.Time
}

func (requestRow) TableName() string { return "wallet_requests" }

func (r *requestRow) view() ledger.Request {
	return ledger.Request{
		ID:        r.ID,
		PlayerID:  r.PlayerID,
		Kind:      ledger.RequestKind(r.Kind),
		Amount:    r.Amount,
		Method:    r.Method,
		TxID:      r.TxID,
		Status:    ledger.RequestStatus(r.Status),
		CreatedAt: r.CreatedAt,
		DecidedAt: r.DecidedAt,
	}
}

func (s *SQL) RequestDeposit(playerID string, amount float64, method, txID string) (ledger.Request, error) {
	return s.submit(ledger.RequestDeposit, playerID, amount, method, txID)
}

func (s *SQL) RequestWithdrawal(playerID string, amount float64, method string) (ledger.Request, error) {
	return s.submit(ledger.RequestWithdrawal, playerID, amount, method, "")
}

func (s *SQL) submit(kind ledger.RequestKind, playerID string, amount float64, method, txID string) (ledger.Request, error) {
	req, err := ledger.NewRequest(kind, playerID, amount, method, txID, s.clock.Now())
	if err != nil {
		return ledger.Request{}, err
	}
	if _, err := s.load(playerID); err != nil {
		return ledger.Request{}, err
	}
	row := &requestRow{
		ID:        req.ID,
		PlayerID:  req.PlayerID,
		Kind:      string(req.Kind),
		Amount:    req.Amount,
		Method:    req.Method,
		TxID:      req.TxID,
		Status:    string(req.Status),
		CreatedAt: req.CreatedAt,
	}
	if err := s.db.Create(row).Error; err != nil {
		return ledger.Request{}, errs.Wrap(err, "create wallet request")
	}
	return req, nil
}

// Approve 在同一個 transaction 內鎖住申請與帳戶，異動餘額並寫入以申請 ID 為 ref 的流水。
func (s *SQL) Approve(requestID string) (ledger.Request, error) {
	var out ledger.Request
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := lockPending(tx, requestID)
		if err != nil {
			return err
		}
		a, err := lockAccount(tx, r.PlayerID)
		if err != nil {
			return err
		}
		kind := ledger.EntryDeposit
		switch ledger.RequestKind(r.Kind) {
		case ledger.RequestDeposit:
			a.Balance = a.Balance.Add(r.Amount)
		case ledger.RequestWithdrawal:
			if a.Balance.LessThan(r.Amount) {
				return errs.InsufficientFunds("player %s balance %s < withdrawal %s", a.PlayerID, a.Balance.String(), r.Amount.String())
			}
			a.Balance = a.Balance.Sub(r.Amount)
			kind = ledger.EntryWithdrawal
		}
		if err := tx.Save(a).Error; err != nil {
			return errs.Wrap(err, "save account")
		}
		if err := s.recordRef(tx, a, kind, r.Amount, r.ID); err != nil {
			return err
		}
		if err := s.decide(tx, r, ledger.RequestApproved); err != nil {
			return err
		}
		out = r.view()
		return nil
	})
	return out, err
}

func (s *SQL) Reject(requestID string) (ledger.Request, error) {
	var out ledger.Request
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := lockPending(tx, requestID)
		if err != nil {
			return err
		}
		if err := s.decide(tx, r, ledger.RequestRejected); err != nil {
			return err
		}
		out = r.view()
		return nil
	})
	return out, err
}

// Requests 新到舊；讀取失敗時回傳空切片。
func (s *SQL) Requests(playerID string, status ledger.RequestStatus) []ledger.Request {
	q := s.db.Model(&requestRow{}).Order("seq desc")
	if playerID != "" {
		q = q.Where("player_id = ?", playerID)
	}
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	var rows []requestRow
	if err := q.Find(&rows).Error; err != nil {
		return []ledger.Request{}
	}
	out := make([]ledger.Request, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].view())
	}
	return out
}

func (s *SQL) decide(tx *gorm.DB, r *requestRow, status ledger.RequestStatus) error {
	t := s.clock.Now()
	r.Status = string(status)
	r.DecidedAt = &t
	if err := tx.Save(r).Error; err != nil {
		return errs.Wrap(err, "save wallet request")
	}
	return nil
}

func lockPending(tx *gorm.DB, requestID string) (*requestRow, error) {
	var r requestRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", requestID).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("request %s not found", requestID)
	}
	if err != nil {
		return nil, errs.Wrap(err, "lock wallet request")
	}
	if r.Status != string(ledger.RequestPending) {
		return nil, errs.InvalidState("request %s is already %s", requestID, r.Status)
	}
	return &r, nil
}
