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
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zintix-labs/crashlab"
	"github.com/zintix-labs/crashlab/dto"
)

const (
	writeWait    = 5 * time.Second
	maxClientMsg = 512
)

// LiveHandler 以 websocket 推播局事件：連線後先送一則 snapshot，之後逐筆轉送事件。
//
// 每條連線一個 engine 訂閱；緩衝滿時由 engine 端丟棄事件，不會拖慢局的推進。
// engine 關閉時訂閱 channel 被關閉，連線以 1001 (going away) 結束。
type LiveHandler struct {
	eng  *crashlab.Engine
	log  *slog.Logger
	buf  int
	ping time.Duration
	up   websocket.Upgrader
}

func NewLiveHandler(eng *crashlab.Engine, log *slog.Logger, buf int, ping time.Duration) *LiveHandler {
	return &LiveHandler{
		eng:  eng,
		log:  log,
		buf:  buf,
		ping: ping,
		up: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Live GET /v1/live
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已回寫錯誤
		h.log.Debug("live upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	events, cancel := h.eng.Subscribe(h.buf)
	defer cancel()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(dto.NewLiveSnapshot(h.eng.RoundState(), h.eng.History())); err != nil {
		return
	}

	closed := make(chan struct{})
	go h.drain(conn, closed)

	ping := time.NewTicker(h.ping)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(dto.NewLiveEvent(ev)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// drain 讀掉 client 訊息以處理 pong / close；沒有 pong 超過兩個 ping 週期即斷線。
func (h *LiveHandler) drain(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	wait := 2 * h.ping
	conn.SetReadLimit(maxClientMsg)
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
