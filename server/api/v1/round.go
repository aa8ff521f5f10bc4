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

	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/dto"
)

// RoundHandler 唯讀的局狀態查詢。
type RoundHandler struct {
	eng *crashlab.Engine
}

func NewRoundHandler(eng *crashlab.Engine) *RoundHandler {
	return &RoundHandler{eng: eng}
}

// Round GET /v1/round
func (h *RoundHandler) Round(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.RoundView{
		RoundSnapshot: h.eng.RoundState(),
		History:       h.eng.History(),
	})
}

// History GET /v1/history
func (h *RoundHandler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]float64{"history": h.eng.History()})
}
