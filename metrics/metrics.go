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


// Package metrics 以 prometheus 匯出 Round Engine 的統計。
//
// Collector 實作 crashlab.Observer，引擎在臨界區內同步呼叫；所有方法只更新 counter / histogram。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/errs"
)

const namespace = "crashlab"

type Collector struct {
	reg *prometheus.Registry

	RoundsStarted prometheus.Counter
	RoundsCrashed prometheus.Counter
	CrashPoint    prometheus.Histogram
	CrashTicks    prometheus.Histogram
	Wagers        prometheus.Counter
	Staked        prometheus.Counter
	Settled       *prometheus.CounterVec
	PaidOut       prometheus.Counter
	LedgerFailure *prometheus.CounterVec
	HttpRequests  *prometheus.CounterVec
}

// New 建立 Collector 並註冊到獨立的 registry（含 go / process collector）。
func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rounds_started_total",
			Help: "Total rounds that left Idle",
		}),
		RoundsCrashed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rounds_crashed_total",
			Help: "Total rounds that crashed",
		}),
		CrashPoint: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "crash_point",
			Help:    "Distribution of revealed crash points",
			Buckets: []float64{1.01, 1.02, 1.05, 1.1, 1.5, 2, 5, 10, 100},
		}),
		CrashTicks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "crash_ticks",
			Help:    "Ticks flown before crash",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		Wagers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "wagers_total",
			Help: "Total accepted wagers",
		}),
		Staked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "staked_total",
			Help: "Sum of accepted stakes",
		}),
		Settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "wagers_settled_total",
			Help: "Settled wagers by final status",
		}, []string{"status"}),
		PaidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "paid_out_total",
			Help: "Sum of cash-out payouts",
		}),
		LedgerFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ledger_refused_total",
			Help: "Ledger debit / credit failures by error kind",
		}, []string{"kind"}),
		HttpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "code"}),
	}
	c.reg.MustRegister(
		c.RoundsStarted, c.RoundsCrashed, c.CrashPoint, c.CrashTicks,
		c.Wagers, c.Staked, c.Settled, c.PaidOut, c.LedgerFailure, c.HttpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry 回傳內部 registry（測試用 Gather）。
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler 回傳 /metrics 的 http.Handler。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// ObserveRequest 記錄一次 HTTP 請求；route 為路由樣板（避免 id 造成高基數）。
func (c *Collector) ObserveRequest(method, route string, code int) {
	c.HttpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// ---- crashlab.Observer ----

func (c *Collector) RoundStarted() { c.RoundsStarted.Inc() }

func (c *Collector) RoundCrashed(crashPoint float64, ticks int) {
	c.RoundsCrashed.Inc()
	c.CrashPoint.Observe(crashPoint)
	c.CrashTicks.Observe(float64(ticks))
}

func (c *Collector) WagerPlaced(stake float64) {
	c.Wagers.Inc()
	c.Staked.Add(stake)
}

func (c *Collector) WagerSettled(status crashlab.WagerStatus, payout float64) {
	c.Settled.WithLabelValues(status.String()).Inc()
	if payout > 0 {
		c.PaidOut.Add(payout)
	}
}

func (c *Collector) LedgerRefused(kind errs.Kind) {
	label := kind.String()
	if label == "" {
		label = "unknown"
	}
	c.LedgerFailure.WithLabelValues(label).Inc()
}

var _ crashlab.Observer = (*Collector)(nil)
