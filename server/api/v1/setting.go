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
	"github.com/zintix-labs/crashlab/server/httperr"
)

// SettingHandler 管理端的引擎設定查詢與修改；修改只影響下一局。
type SettingHandler struct {
	eng *crashlab.Engine
}

func NewSettingHandler(eng *crashlab.Engine) *SettingHandler {
	return &SettingHandler{eng: eng}
}

// Get GET /v1/admin/setting
func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.SettingView{Setting: h.eng.Setting()})
}

// Patch PUT /v1/admin/setting，body 為部分欄位。
func (h *SettingHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch dto.SettingPatch
	if err := dto.DecodeJSON(r, &patch); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	next := patch.Apply(h.eng.Setting())
	if err := h.eng.UpdateSetting(next); err != nil {
		httperr.Errs(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SettingView{Setting: h.eng.Setting()})
}
