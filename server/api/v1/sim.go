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
	"crypto/rand"
	"math"
	"math/big"
	"net/http"

	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/dto"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/server/httperr"
)

// SimHandler 以引擎目前的設定跑離線模擬，不影響線上的局。
type SimHandler struct {
	eng *crashlab.Engine
}

func NewSimHandler(eng *crashlab.Engine) *SimHandler {
	return &SimHandler{eng: eng}
}

// Sim POST /v1/sim
func (h *SimHandler) Sim(w http.ResponseWriter, r *http.Request) {
	var req dto.SimRequest
	if err := dto.DecodeJSON(r, &req); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	if req.Seed == nil {
		n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			httperr.Errs(w, r, errs.Wrap(err, "seed generate failed"))
			return
		}
		v := n.Int64()
		req.Seed = &v
	}
	sim, err := crashlab.NewSimulatorWithSeed(h.eng.Setting(), req.Target, *req.Seed)
	if err != nil {
		httperr.Errs(w, r, err)
		return
	}
	workers := max(1, req.Workers)
	res := dto.SimResult{Seed: sim.Seed()}
	if req.Players > 0 {
		bets := req.InitBets
		if bets == 0 {
			bets = 100
		}
		st, est, used, err := sim.SimPlayers(workers, req.Players, bets, req.Rounds, false)
		if err != nil {
			httperr.Errs(w, r, errs.Wrap(err, "simulate players failed"))
			return
		}
		res.Stats, res.Estimator, res.UsedMs = st, est, used.Milliseconds()
	} else {
		st, used, err := sim.SimMP(req.Rounds, workers, false)
		if err != nil {
			httperr.Errs(w, r, errs.Wrap(err, "simulate failed"))
			return
		}
		res.Stats, res.UsedMs = st, used.Milliseconds()
	}
	writeJSON(w, http.StatusOK, res)
}
