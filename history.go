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

package crashlab

// history 是固定容量的 crash point 環形緩衝，輸出順序為新到舊。
//
// 只供顯示，不回饋到抽獎（每局都是獨立抽樣）。
type history struct {
	buf  []float64
	head int // 下一個寫入位置
	n    int
}

func newHistory(size int) *history {
	return &history{buf: make([]float64, size)}
}

func (h *history) push(cp float64) {
	h.buf[h.head] = cp
	h.head = (h.head + 1) % len(h.buf)
	if h.n < len(h.buf) {
		h.n++
	}
}

// values 回傳新到舊的拷貝。
func (h *history) values() []float64 {
	out := make([]float64, h.n)
	idx := h.head
	for i := range h.n {
		idx = (idx - 1 + len(h.buf)) % len(h.buf)
		out[i] = h.buf[idx]
	}
	return out
}

// resize 保留最新的 min(n, size) 筆。
func (h *history) resize(size int) {
	if size == len(h.buf) {
		return
	}
	vals := h.values()
	if len(vals) > size {
		vals = vals[:size]
	}
	h.buf = make([]float64, size)
	h.head, h.n = 0, 0
	for i := len(vals) - 1; i >= 0; i-- {
		h.push(vals[i])
	}
}
