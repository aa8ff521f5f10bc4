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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/spec"
)

// maxBody 為 JSON body 上限（1MiB）
const maxBody = 1 << 20

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// 錯誤訊息使用 json 欄位名
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// WagerRequest 押注請求；auto_cash_out 省略或為 0 代表手動兌現。
type WagerRequest struct {
	PlayerID    string  `json:"player_id"               validate:"required,max=64"`
	Stake       float64 `json:"stake"                   validate:"gt=0"`
	AutoCashOut float64 `json:"auto_cash_out,omitempty" validate:"omitempty,gt=1"`
}

// OpenPlayerRequest 開戶請求（管理端）；未給 player_id 時由 name 產生 slug。
type OpenPlayerRequest struct {
	PlayerID string  `json:"player_id" validate:"required_without=Name,max=64"`
	Name     string  `json:"name"      validate:"required_without=PlayerID,max=128"`
	Balance  float64 `json:"balance"   validate:"gte=0"`
}

// DepositRequest 入金請求（管理端）
type DepositRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// DepositClaim 玩家入金申請；tx_id 為付款通道的交易編號，審核時比對。
type DepositClaim struct {
	PlayerID string  `json:"player_id" validate:"required,max=64"`
	Amount   float64 `json:"amount"    validate:"gt=0"`
	Method   string  `json:"method"    validate:"required,oneof=bkash nagad"`
	TxID     string  `json:"tx_id"     validate:"required,max=128"`
}

// WithdrawalClaim 玩家提領申請
type WithdrawalClaim struct {
	PlayerID string  `json:"player_id" validate:"required,max=64"`
	Amount   float64 `json:"amount"    validate:"gt=0"`
	Method   string  `json:"method"    validate:"required,oneof=bkash nagad"`
}

// BanRequest 封鎖 / 解封請求（管理端）
type BanRequest struct {
	Banned bool `json:"banned"`
}

// SimRequest 以目前設定跑離線模擬；players > 0 時改為玩家 session 模式。
type SimRequest struct {
	Rounds   int     `json:"rounds"              validate:"gte=1,lte=1000000"`
	Target   float64 `json:"target"              validate:"gt=1"`
	Seed     *int64  `json:"seed,omitempty"`
	Workers  int     `json:"workers,omitempty"   validate:"omitempty,gte=1,lte=64"`
	Players  int     `json:"players,omitempty"   validate:"omitempty,gte=1,lte=10000"`
	InitBets int     `json:"init_bets,omitempty" validate:"omitempty,gte=1"`
}

// SettingPatch 為部分更新；nil 欄位保留原值，合併後仍須通過 EngineSetting.Valid。
type SettingPatch struct {
	RTP           *float64          `json:"rtp,omitempty"            validate:"omitempty,gt=0,lte=1"`
	Tick          *spec.Duration    `json:"tick,omitempty"`
	Cooldown      *spec.Duration    `json:"cooldown,omitempty"`
	GrowthRate    *float64          `json:"growth_rate,omitempty"    validate:"omitempty,gte=0"`
	BaseIncrement *float64          `json:"base_increment,omitempty" validate:"omitempty,gte=0"`
	HistorySize   *int              `json:"history_size,omitempty"   validate:"omitempty,gte=1"`
	StartPolicy   *spec.StartPolicy `json:"start_policy,omitempty"   validate:"omitempty,oneof=first_wager continuous"`
	BettingWindow *spec.Duration    `json:"betting_window,omitempty"`
	MaxStake      *float64          `json:"max_stake,omitempty"      validate:"omitempty,gte=0"`
}

// Apply 回傳套用 patch 後的新設定，不修改 base。
func (p *SettingPatch) Apply(base *spec.EngineSetting) *spec.EngineSetting {
	s := base.Clone()
	if p.RTP != nil {
		s.RTP = *p.RTP
	}
	if p.Tick != nil {
		s.Tick = *p.Tick
	}
	if p.Cooldown != nil {
		s.Cooldown = *p.Cooldown
	}
	if p.GrowthRate != nil {
		s.GrowthRate = *p.GrowthRate
	}
	if p.BaseIncrement != nil {
		s.BaseIncrement = *p.BaseIncrement
	}
	if p.HistorySize != nil {
		s.HistorySize = *p.HistorySize
	}
	if p.StartPolicy != nil {
		s.StartPolicy = *p.StartPolicy
	}
	if p.BettingWindow != nil {
		s.BettingWindow = *p.BettingWindow
	}
	if p.MaxStake != nil {
		s.MaxStake = *p.MaxStake
	}
	return s
}

// DecodeJSON 把 HTTP JSON body 解碼進 out 並做欄位驗證。
//
//   - body 上限 1MiB，超過視為格式錯誤。
//   - 開啟 DisallowUnknownFields()，對未知欄位採嚴格拒絕，以避免靜默丟資料。
//   - 所有失敗皆為 InvalidArgument。
func DecodeJSON[T any](r *http.Request, out *T) error {
	if r == nil || r.Body == nil {
		return errs.InvalidArgument("empty request body")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.InvalidArgument("empty request body")
		}
		return errs.InvalidArgument("invalid json: %v", err)
	}
	return Validate(out)
}

// Validate 以 struct tag 驗證請求。
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return errs.InvalidArgument("invalid request: %v", err)
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		if fe.Param() != "" {
			parts = append(parts, fe.Field()+" must satisfy "+fe.Tag()+"="+fe.Param())
			continue
		}
		parts = append(parts, fe.Field()+" is "+fe.Tag())
	}
	return errs.InvalidArgument("invalid request: %s", strings.Join(parts, "; "))
}
