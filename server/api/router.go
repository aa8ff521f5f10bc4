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

package api

import (
	v1 "github.com/zintix-labs/crashlab/server/api/v1"
	"github.com/zintix-labs/crashlab/server/netsvr"
	"github.com/zintix-labs/crashlab/server/netsvr/middleware"
	"github.com/zintix-labs/crashlab/server/svrcfg"
)

// RegisterRoutes 註冊 middleware、/metrics 與 v1 API。
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	registerMiddleware(svr, sCfg)
	registerMetrics(svr, sCfg)
	registerV1API(svr, sCfg)
}

func registerMiddleware(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	if sCfg.Metrics != nil {
		svr.Use(middleware.Observe(sCfg.Metrics))
	}
	svr.Use(middleware.Recover)
	svr.Use(middleware.Compression("/metrics"))
}

func registerMetrics(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	if sCfg.Metrics == nil {
		return
	}
	svr.Handle("/metrics", sCfg.Metrics.Handler())
}

func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	rh := v1.NewRoundHandler(sCfg.Engine)
	wh := v1.NewWagerHandler(sCfg.Engine, sCfg.Ledger, sCfg.Log)
	ph := v1.NewPlayerHandler(sCfg.Ledger)
	wal := v1.NewWalletHandler(sCfg.Ledger, sCfg.Log)
	sh := v1.NewSettingHandler(sCfg.Engine)
	lh := v1.NewLiveHandler(sCfg.Engine, sCfg.Log, sCfg.LiveBuffer, sCfg.LivePing)
	sim := v1.NewSimHandler(sCfg.Engine)

	svr.Group("/v1", func(r netsvr.NetRouter) {
		r.Get("/round", rh.Round)
		r.Get("/history", rh.History)
		r.Get("/live", lh.Live)

		r.Post("/wagers", wh.Place)
		r.Get("/wagers/{id}", wh.Get)
		r.Post("/wagers/{id}/cashout", wh.CashOut)

		r.Get("/players/{id}", ph.Get)

		r.Post("/wallet/deposits", wal.Deposit)
		r.Post("/wallet/withdrawals", wal.Withdraw)
		r.Get("/wallet/{player}/requests", wal.Mine)

		r.Group("/admin", func(a netsvr.NetRouter) {
			a.Use(middleware.AdminToken(sCfg.AdminToken))
			a.Get("/setting", sh.Get)
			a.Put("/setting", sh.Patch)
			a.Get("/players", ph.List)
			a.Post("/players", ph.Open)
			a.Post("/players/{id}/deposit", ph.Deposit)
			a.Post("/players/{id}/ban", ph.Ban)
			a.Get("/wallet/requests", wal.List)
			a.Post("/wallet/requests/{id}/approve", wal.Approve)
			a.Post("/wallet/requests/{id}/reject", wal.Reject)
			a.Post("/sim", sim.Sim)
		})
	})
}
