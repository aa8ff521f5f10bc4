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


package stats

import (
	"sort"
	"strconv"

	"github.com/zintix-labs/crashlab/sdk/crash"
)

// CrashBuckets crash point 區間：[1,1.005), [1.005,1.01), ..., [100,+inf)
//
// 請勿修改預設值；報表與合併都依賴固定的區間數量。
var CrashBuckets = newBuckets([]float64{1, 1.005, 1.01, 1.02, 1.05, 1.1, 1.5, 2, 5, 10, 100})

// Buckets 以遞增邊界切分 [edges[0], +inf)。
type Buckets struct {
	edges  []float64
	labels []string
}

func newBuckets(edges []float64) *Buckets {
	labels := make([]string, len(edges))
	for i, e := range edges {
		hi := "+inf"
		if i+1 < len(edges) {
			hi = strconv.FormatFloat(edges[i+1], 'f', -1, 64)
		}
		labels[i] = "[" + strconv.FormatFloat(e, 'f', -1, 64) + "," + hi + ")"
	}
	return &Buckets{edges: edges, labels: labels}
}

func (b *Buckets) Labels() []string { return b.labels }

func (b *Buckets) Len() int { return len(b.edges) }

// Index 回傳 x 所在區間；小於第一個邊界時歸入第 0 區。
func (b *Buckets) Index(x float64) int {
	i := sort.Search(len(b.edges), func(i int) bool { return b.edges[i] > x }) - 1
	if i < 0 {
		return 0
	}
	return i
}

// Theory 回傳在 rtp 下 crash point 落在各區間的理論機率。
func (b *Buckets) Theory(rtp float64) []float64 {
	out := make([]float64, len(b.edges))
	for i, lo := range b.edges {
		p := crash.SurvivalProb(lo, rtp)
		if i+1 < len(b.edges) {
			p -= crash.SurvivalProb(b.edges[i+1], rtp)
		}
		out[i] = p
	}
	return out
}
