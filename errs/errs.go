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
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Kind : 錯誤的業務分類，供呼叫端（API 層、模擬器）決定如何回應。
//
// Kind 與 ErrLevel 是兩條獨立的軸：
//   - ErrLevel 描述「嚴重度」（要不要中止）。
//   - Kind 描述「發生了什麼」（餘額不足、狀態不合法、設定錯誤...）。
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInsufficientFunds
	KindInvalidState
	KindConfiguration
	KindInvalidArgument
	KindNotFound
)

var kindMap = map[Kind]string{
	KindUnknown:           "",
	KindInsufficientFunds: "insufficient_funds",
	KindInvalidState:      "invalid_state",
	KindConfiguration:     "configuration",
	KindInvalidArgument:   "invalid_argument",
	KindNotFound:          "not_found",
}

func (k Kind) String() string {
	if str, ok := kindMap[k]; ok {
		return str
	}
	return ""
}

// Sentinel：只帶 Kind 不帶 Message，用於 errors.Is 比對。
//
//	if errors.Is(err, errs.ErrInsufficientFunds) { ... }
var (
	ErrInsufficientFunds = &E{Kind: KindInsufficientFunds, ErrLv: Warn}
	ErrInvalidState      = &E{Kind: KindInvalidState, ErrLv: Warn}
	ErrConfiguration     = &E{Kind: KindConfiguration, ErrLv: Warn}
	ErrInvalidArgument   = &E{Kind: KindInvalidArgument, ErrLv: Warn}
	ErrNotFound          = &E{Kind: KindNotFound, ErrLv: Warn}
)

// E 是統一的錯誤型別。
// Message 為經過樣板格式化後的主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 為嚴重度；Kind 為業務分類。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Kind    Kind
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s", ErrLv(e.ErrLv))
	if e.Kind != KindUnknown {
		base += " kind=" + e.Kind.String()
	}
	if e.Message != "" {
		base += " " + e.Message
	}
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 讓 sentinel（Message 為空且 Kind 非 Unknown）以 Kind 比對。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Message == "" && t.Kind != KindUnknown && t.Kind == e.Kind
}

// New 依錯誤碼與參數建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

func Logf(format string, a ...any) *E {
	return NewLog(fmt.Sprintf(format, a...))
}

// Of 建立帶 Kind 的 Warn 級錯誤（業務錯誤皆可恢復，不會是 Fatal）。
func Of(kind Kind, format string, a ...any) *E {
	return &E{Message: fmt.Sprintf(format, a...), ErrLv: Warn, Kind: kind}
}

func InsufficientFunds(format string, a ...any) *E {
	return Of(KindInsufficientFunds, format, a...)
}

func InvalidState(format string, a ...any) *E {
	return Of(KindInvalidState, format, a...)
}

func Configuration(format string, a ...any) *E {
	return Of(KindConfiguration, format, a...)
}

func InvalidArgument(format string, a ...any) *E {
	return Of(KindInvalidArgument, format, a...)
}

func NotFound(format string, a ...any) *E {
	return Of(KindNotFound, format, a...)
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 使用給定的訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Kind 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Kind（保持原本嚴重度與分類）。
//   - 若 cause 不是本包定義的 *E（多半是標準庫或三方依賴錯誤），則 ErrLv 一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	var e *E
	errLv := Fatal
	kind := KindUnknown
	if errors.As(cause, &e) {
		errLv = e.ErrLv
		kind = e.Kind
	}
	r := New(errLv, msg)
	r.Kind = kind
	r.Cause = cause
	return r
}

// WrapWithExtra 同 Wrap，並附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// KindOf 回傳錯誤鏈中第一個帶 Kind 的 *E 之分類；找不到時回 KindUnknown。
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*E); ok && e.Kind != KindUnknown {
			return e.Kind
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}
