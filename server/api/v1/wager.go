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
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/dto"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/server/httperr"
)

// WagerHandler 押注、查詢與兌現。
type WagerHandler struct {
	eng *crashlab.Engine
	led ledger.Book
	log *slog.Logger
}

func NewWagerHandler(eng *crashlab.Engine, led ledger.Book, log *slog.Logger) *WagerHandler {
	return &WagerHandler{eng: eng, led: led, log: log}
}

// Place POST /v1/wagers
func (h *WagerHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req dto.WagerRequest
	if err := dto.DecodeJSON(r, &req); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	var (
		id  string
		err error
	)
	if req.AutoCashOut > 0 {
		id, err = h.eng.PlaceAutoWager(req.PlayerID, req.Stake, req.AutoCashOut)
	} else {
		id, err = h.eng.PlaceWager(req.PlayerID, req.Stake)
	}
	if err != nil {
		httperr.Log(h.log, "place wager failed", err)
		httperr.Errs(w, r, err)
		return
	}
	res := dto.WagerPlaced{WagerID: id, Stake: req.Stake, AutoCashOut: req.AutoCashOut}
	if ws, ok := h.eng.Wager(id); ok {
		res.RoundID = ws.RoundID
	}
	res.Balance, _ = h.led.Balance(req.PlayerID)
	writeJSON(w, http.StatusCreated, res)
}

// Get GET /v1/wagers/{id}，只查得到目前與上一局的押注。
func (h *WagerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ws, ok := h.eng.Wager(id)
	if !ok {
		httperr.Errs(w, r, errs.NotFound("wager %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// CashOut POST /v1/wagers/{id}/cashout
func (h *WagerHandler) CashOut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payout, err := h.eng.CashOut(id)
	if err != nil {
		httperr.Log(h.log, "cash out failed", err)
		httperr.Errs(w, r, err)
		return
	}
	res := dto.CashOutResult{WagerID: id, Payout: payout}
	if ws, ok := h.eng.Wager(id); ok {
		res.Multiplier = ws.CashOutMultiplier
		res.Balance, _ = h.led.Balance(ws.PlayerID)
	}
	writeJSON(w, http.StatusOK, res)
}
