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

// Book 是服務端需要的完整帳本：引擎的扣款 / 派彩（即 crashlab.Ledger）之外，
// 加上開戶、直接入金、封鎖、申請審核與查詢。Memory 與 sqlbook.SQL 皆實作此介面。
type Book interface {
	Debit(playerID string, amount float64) error
	Credit(playerID string, amount float64) error

	Open(playerID, name string, initial float64) error
	Deposit(playerID string, amount float64) error
	Balance(playerID string) (float64, error)
	Account(playerID string) (Account, error)
	Accounts() []Account
	SetBanned(playerID string, banned bool) error
	Journal(playerID string, limit int) []Entry

	// 玩家入金 / 提領申請與管理端審核
	RequestDeposit(playerID string, amount float64, method, txID string) (Request, error)
	RequestWithdrawal(playerID string, amount float64, method string) (Request, error)
	Approve(requestID string) (Request, error)
	Reject(requestID string) (Request, error)
	Requests(playerID string, status RequestStatus) []Request
}

var _ Book = (*Memory)(nil)
