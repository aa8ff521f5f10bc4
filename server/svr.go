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

package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/server/api"
	"github.com/zintix-labs/crashlab/server/app"
	"github.com/zintix-labs/crashlab/server/netsvr"
	"github.com/zintix-labs/crashlab/server/svrcfg"
)

// Run 組裝預設的 chi server 並與 extra（例如 round driver、async logger）一起交給 app.App 執行，
// 阻塞到收到終止信號或任一元件失敗。
//
// extra 依序先註冊、最後關閉；HTTP server 最後註冊、最先關閉。
func Run(sCfg *svrcfg.SvrCfg, extra ...app.Component) error {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return RunWithSvr(sCfg, netsvr.NewChiServer(sCfg.Addr), extra...)
}

// RunWithSvr 與 Run 相同，但由呼叫端注入 NetSvr。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr, extra ...app.Component) error {
	if err := sCfg.Vaild(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		return errs.Configuration("nil server")
	}
	if ca, ok := svr.(*netsvr.ChiAdapter); ok && !ca.Ready() {
		return errs.Configuration("chi server is not ready")
	}
	Mount(svr, sCfg)

	a := app.NewWith(extra...)
	a.Register(svr)
	if ca, ok := svr.(*netsvr.ChiAdapter); ok {
		sCfg.Log.Info("[crashlab] listening", slog.String("addr", ca.Address()))
	}
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	return nil
}

// Mount 只註冊路由，不啟動；sCfg 需已通過 Vaild。供測試或嵌入既有 router 使用。
func Mount(r netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	api.RegisterRoutes(r, sCfg)
}
