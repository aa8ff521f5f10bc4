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

// Package sqlbook 以 gorm 實作 ledger.Book，帳戶與流水落地到 postgres 或 sqlite。
//
// 每筆異動都在一個 transaction 內完成：鎖住帳戶列（postgres 為 SELECT ... FOR UPDATE，
// sqlite 以單一連線序列化），更新餘額並寫入一筆 entries。
package sqlbook

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type accountRow struct {
	PlayerID string          `gorm:"primaryKey;size:64"`
	Name     string          `gorm:"size:128;not null"`
	Balance  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Wagered  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Won      decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Wagers   int             `gorm:"not null"`
	Banned   bool            `gorm:"not null"`
	OpenedAt time.Time       `gorm:"not null"`
}

func (accountRow) TableName() string { return "accounts" }

func (a *accountRow) view() ledger.Account {
	return ledger.Account{
		PlayerID:     a.PlayerID,
		Name:         a.Name,
		Balance:      a.Balance.InexactFloat64(),
		TotalWagered: a.Wagered.InexactFloat64(),
		TotalWon:     a.Won.InexactFloat64(),
		Wagers:       a.Wagers,
		Banned:       a.Banned,
		OpenedAt:     a.OpenedAt,
	}
}

type entryRow struct {
	ID       uint64          `gorm:"primaryKey;autoIncrement"`
	Ref      string          `gorm:"size:36;uniqueIndex;not null"`
	PlayerID string          `gorm:"size:64;index;not null"`
	Kind     string          `gorm:"size:16;not null"`
	Amount   decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Balance  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	At       time.Time       `gorm:"not null"`
}

func (entryRow) TableName() string { return "entries" }

// SQL 是以資料庫為後端的帳本。
type SQL struct {
	db    *gorm.DB
	clock clockwork.Clock
}

var _ ledger.Book = (*SQL)(nil)

// Dial 依 dsn 選擇 driver：postgres:// / postgresql:// 或 "host=" 開頭走 postgres，其餘視為 sqlite 檔案路徑。
func Dial(dsn string, clock clockwork.Clock) (*SQL, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errs.Configuration("ledger dsn is empty")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgres(dsn) {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, errs.Wrap(err, "open ledger database")
	}
	if !isPostgres(dsn) {
		// sqlite 同時只允許一個寫入者
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errs.Wrap(err, "ledger database handle")
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db, clock)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.HasPrefix(dsn, "host=")
}

// New 在既有的 gorm 連線上建表（AutoMigrate）並回傳帳本。
func New(db *gorm.DB, clock clockwork.Clock) (*SQL, error) {
	if db == nil {
		return nil, errs.Configuration("ledger database is nil")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := db.AutoMigrate(&accountRow{}, &entryRow{}, &requestRow{}); err != nil {
		return nil, errs.Wrap(err, "migrate ledger tables")
	}
	return &SQL{db: db, clock: clock}, nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQL) Open(playerID, name string, initial float64) error {
	if strings.TrimSpace(playerID) == "" {
		return errs.InvalidArgument("player id is required")
	}
	amt, err := ledger.ParseAmount(initial, true)
	if err != nil {
		return err
	}
	if name == "" {
		name = playerID
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&accountRow{}).Where("player_id = ?", playerID).Count(&n).Error; err != nil {
			return errs.Wrap(err, "lookup account")
		}
		if n > 0 {
			return errs.InvalidState("player %s already exists", playerID)
		}
		a := &accountRow{
			PlayerID: playerID,
			Name:     name,
			Balance:  amt,
			Wagered:  decimal.Zero,
			Won:      decimal.Zero,
			OpenedAt: s.clock.Now(),
		}
		if err := tx.Create(a).Error; err != nil {
			return errs.Wrap(err, "create account")
		}
		if amt.IsPositive() {
			return s.record(tx, a, ledger.EntryDeposit, amt)
		}
		return nil
	})
}

func (s *SQL) Deposit(playerID string, value float64) error {
	amt, err := ledger.ParseAmount(value, false)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		a, err := lockAccount(tx, playerID)
		if err != nil {
			return err
		}
		a.Balance = a.Balance.Add(amt)
		if err := tx.Save(a).Error; err != nil {
			return errs.Wrap(err, "save account")
		}
		return s.record(tx, a, ledger.EntryDeposit, amt)
	})
}

func (s *SQL) Debit(playerID string, value float64) error {
	amt, err := ledger.ParseAmount(value, false)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		a, err := lockAccount(tx, playerID)
		if errs.KindOf(err) == errs.KindNotFound {
			return errs.InsufficientFunds("player %s has no account", playerID)
		}
		if err != nil {
			return err
		}
		if a.Balance.LessThan(amt) {
			return errs.InsufficientFunds("player %s balance %s < %s", playerID, a.Balance.String(), amt.String())
		}
		if a.Banned {
			return errs.InvalidState("player %s is banned", playerID)
		}
		a.Balance = a.Balance.Sub(amt)
		a.Wagered = a.Wagered.Add(amt)
		a.Wagers++
		if err := tx.Save(a).Error; err != nil {
			return errs.Wrap(err, "save account")
		}
		return s.record(tx, a, ledger.EntryDebit, amt)
	})
}

func (s *SQL) Credit(playerID string, value float64) error {
	if value == 0 {
		_, err := s.load(playerID)
		return err
	}
	amt, err := ledger.ParseAmount(value, false)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		a, err := lockAccount(tx, playerID)
		if err != nil {
			return err
		}
		a.Balance = a.Balance.Add(amt)
		a.Won = a.Won.Add(amt)
		if err := tx.Save(a).Error; err != nil {
			return errs.Wrap(err, "save account")
		}
		return s.record(tx, a, ledger.EntryCredit, amt)
	})
}

func (s *SQL) Balance(playerID string) (float64, error) {
	a, err := s.load(playerID)
	if err != nil {
		return 0, err
	}
	return a.Balance.InexactFloat64(), nil
}

func (s *SQL) Account(playerID string) (ledger.Account, error) {
	a, err := s.load(playerID)
	if err != nil {
		return ledger.Account{}, err
	}
	return a.view(), nil
}

// Accounts 讀取失敗時回傳空切片。
func (s *SQL) Accounts() []ledger.Account {
	var rows []accountRow
	if err := s.db.Order("player_id").Find(&rows).Error; err != nil {
		return []ledger.Account{}
	}
	out := make([]ledger.Account, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].view())
	}
	return out
}

func (s *SQL) SetBanned(playerID string, banned bool) error {
	res := s.db.Model(&accountRow{}).Where("player_id = ?", playerID).Update("banned", banned)
	if res.Error != nil {
		return errs.Wrap(res.Error, "update account")
	}
	if res.RowsAffected == 0 {
		// 值未改變時部分 driver 也回 0，需再確認帳戶是否存在
		if _, err := s.load(playerID); err != nil {
			return err
		}
	}
	return nil
}

// Journal 新到舊；playerID 為空時不過濾，limit <= 0 時不限筆數。
func (s *SQL) Journal(playerID string, limit int) []ledger.Entry {
	q := s.db.Model(&entryRow{}).Order("id desc")
	if playerID != "" {
		q = q.Where("player_id = ?", playerID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []entryRow
	if err := q.Find(&rows).Error; err != nil {
		return []ledger.Entry{}
	}
	out := make([]ledger.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.Entry{
			Ref:      r.Ref,
			PlayerID: r.PlayerID,
			Kind:     ledger.EntryKind(r.Kind),
			Amount:   r.Amount,
			Balance:  r.Balance,
			At:       r.At,
		})
	}
	return out
}

func (s *SQL) load(playerID string) (*accountRow, error) {
	var a accountRow
	err := s.db.Where("player_id = ?", playerID).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("player %s not found", playerID)
	}
	if err != nil {
		return nil, errs.Wrap(err, "load account")
	}
	return &a, nil
}

func lockAccount(tx *gorm.DB, playerID string) (*accountRow, error) {
	var a accountRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("player_id = ?", playerID).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("player %s not found", playerID)
	}
	if err != nil {
		return nil, errs.Wrap(err, "lock account")
	}
	return &a, nil
}

func (s *SQL) record(tx *gorm.DB, a *accountRow, kind ledger.EntryKind, amt decimal.Decimal) error {
	return s.recordRef(tx, a, kind, amt, uuid.NewString())
}

func (s *SQL) recordRef(tx *gorm.DB, a *accountRow, kind ledger.EntryKind, amt decimal.Decimal, ref string) error {
	e := &entryRow{
		Ref:      ref,
		PlayerID: a.PlayerID,
		Kind:     string(kind),
		Amount:   amt,
		Balance:  a.Balance,
		At:       s.clock.Now(),
	}
	if err := tx.Create(e).Error; err != nil {
		return errs.Wrap(err, "append journal")
	}
	return nil
}
