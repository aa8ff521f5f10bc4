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

package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/crashlab/dto"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/server/httperr"
)

// WalletHandler 玩家入金 / 提領申請與管理端審核。只有核准會異動餘額。
type WalletHandler struct {
	led ledger.Book
	log *slog.Logger
}

func NewWalletHandler(led ledger.Book, log *slog.Logger) *WalletHandler {
	return &WalletHandler{led: led, log: log}
}

// Deposit POST /v1/wallet/deposits
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositClaim
	if err := dto.DecodeJSON(r, &req); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	out, err := h.led.RequestDeposit(req.PlayerID, req.Amount, req.Method, req.TxID)
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// Withdraw POST /v1/wallet/withdrawals
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawalClaim
	if err := dto.DecodeJSON(r, &req); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	out, err := h.led.RequestWithdrawal(req.PlayerID, req.Amount, req.Method)
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// Mine GET /v1/wallet/{player}/requests
func (h *WalletHandler) Mine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "player")
	if _, err := h.led.Account(id); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletView{Requests: h.led.Requests(id, "")})
}

// List GET /v1/admin/wallet/requests?status=pending&player=alice
func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := ledger.RequestStatus(q.Get("status"))
	switch status {
	case "", ledger.RequestPending, ledger.RequestApproved, ledger.RequestRejected:
	default:
		httperr.Errs(w, r, errs.InvalidArgument("unknown request status %q", status))
		return
	}
	player := q.Get("player")
	reqs := h.led.Requests(player, status)
	// 合計一律以該玩家（或全部）的已核准申請計算，不受 status 過濾影響
	tot := ledger.Totals(h.led.Requests(player, ledger.RequestApproved))
	writeJSON(w, http.StatusOK, dto.WalletView{Requests: reqs, Totals: &tot})
}

// Approve POST /v1/admin/wallet/requests/{id}/approve
func (h *WalletHandler) Approve(w http.ResponseWriter, r *http.Request) {
	out, err := h.led.Approve(chi.URLParam(r, "id"))
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	h.log.Info("wallet request approved",
		slog.String("request", out.ID),
		slog.String("player", out.PlayerID),
		slog.String("kind", string(out.Kind)),
		slog.String("amount", out.Amount.String()),
	)
	writeJSON(w, http.StatusOK, out)
}

// Reject POST /v1/admin/wallet/requests/{id}/reject
func (h *WalletHandler) Reject(w http.ResponseWriter, r *http.Request) {
	out, err := h.led.Reject(chi.URLParam(r, "id"))
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	h.log.Info("wallet request rejected", slog.String("request", out.ID), slog.String("player", out.PlayerID))
	writeJSON(w, http.StatusOK, out)
}
