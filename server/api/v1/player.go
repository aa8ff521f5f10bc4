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
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"
	"github.com/zintix-labs/crashlab/dto"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/server/httperr"
)

const journalLimit = 50

// PlayerHandler 玩家帳戶查詢與管理端帳戶操作。
type PlayerHandler struct {
	led ledger.Book
}

func NewPlayerHandler(led ledger.Book) *PlayerHandler {
	return &PlayerHandler{led: led}
}

// Get GET /v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeView(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

// Open POST /v1/admin/players
func (h *PlayerHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenPlayerRequest
	if err := dto.DecodeJSON(r, &req); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	if req.PlayerID == "" {
		req.PlayerID = slug.Make(req.Name)
		if req.PlayerID == "" {
			httperr.Errs(w, r, errs.InvalidArgument("cannot derive player id from name %q", req.Name))
			return
		}
	}
	if err := h.led.Open(req.PlayerID, req.Name, req.Balance); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusCreated, req.PlayerID)
}

// List GET /v1/admin/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]ledger.Account{"players": h.led.Accounts()})
}

// Deposit POST /v1/admin/players/{id}/deposit
func (h *PlayerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.DepositRequest
	if err := dto.DecodeJSON(r, &req); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	if err := h.led.Deposit(id, req.Amount); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusOK, id)
}

// Ban POST /v1/admin/players/{id}/ban
func (h *PlayerHandler) Ban(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.BanRequest
	if err := dto.DecodeJSON(r, &req); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	if err := h.led.SetBanned(id, req.Banned); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusOK, id)
}

func (h *PlayerHandler) writeView(w http.ResponseWriter, r *http.Request, status int, id string) {
	acc, err := h.led.Account(id)
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	writeJSON(w, status, dto.PlayerView{Account: acc, Journal: h.led.Journal(id, journalLimit)})
}
