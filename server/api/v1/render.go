package v1

import (
	"encoding/json"
	"net/http"
)

// writeJSON 寫出 JSON；編碼失敗時 header 已送出，只能放棄。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
