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

package svrcfg

import (
	"log/slog"
	"time"

	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/errs"
	"github.com/zintix-labs/crashlab/ledger"
	"github.com/zintix-labs/crashlab/metrics"
	"github.com/zintix-labs/crashlab/server/logger"
)

// SvrCfg 是 HTTP 服務需要的所有依賴；由 cmd/svr 組裝後交給 server.Run。
type SvrCfg struct {
	Addr       string
	Log        *slog.Logger
	Engine     *crashlab.Engine
	Ledger     ledger.Book        // ledger.Memory 或 sqlbook.SQL
	Metrics    *metrics.Collector // nil = 不掛 /metrics
	AdminToken string             // 空字串 = 管理端關閉
	LiveBuffer int                // 每條 websocket 連線的事件緩衝
	LivePing   time.Duration
}

// Vaild 檢查必要依賴並補上預設值。
func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log = logger.NewDefaultLogger(logger.ModeSilence)
	}
	if sc.Engine == nil {
		return errs.Configuration("engine is required")
	}
	if sc.Ledger == nil {
		return errs.Configuration("ledger is required")
	}
	if sc.LiveBuffer <= 0 {
		sc.LiveBuffer = 256
	}
	sc.LiveBuffer = min(sc.LiveBuffer, 8192)
	if sc.LivePing <= 0 {
		sc.LivePing = 20 * time.Second
	}
	return nil
}
