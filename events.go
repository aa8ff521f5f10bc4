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

import (
	"sync"
	"sync/atomic"
	"time"
)

type EventKind string

const (
	EventOpened      EventKind = "opened"
	EventStarted     EventKind = "started"
	EventTick        EventKind = "tick"
	EventCrashed     EventKind = "crashed"
	EventWagerPlaced EventKind = "wager_placed"
	EventCashedOut   EventKind = "cashed_out"
)

// Event 是推播給展示層的局事件；依 Kind 只有部分欄位有值。
type Event struct {
	Kind       EventKind `json:"kind"`
	RoundID    string    `json:"round_id"`
	Multiplier float64   `json:"multiplier,omitempty"`
	Ticks      int       `json:"ticks,omitempty"`
	CrashPoint float64   `json:"crash_point,omitempty"`
	WagerID    string    `json:"wager_id,omitempty"`
	PlayerID   string    `json:"player_id,omitempty"`
	Stake      float64   `json:"stake,omitempty"`
	Payout     float64   `json:"payout,omitempty"`
	At         time.Time `json:"at"`
}

// bus 是非阻塞的多訂閱者廣播。
//
// 每個訂閱者有自己的 buffered channel；滿了就丟棄該事件並計數，
// 引擎永遠不會因為慢速訂閱者（例如卡住的 websocket）而被阻塞。
type bus struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]chan Event
	closed  bool
	dropped atomic.Uint64
}

func newBus() *bus {
	return &bus{subs: make(map[uint64]chan Event)}
}

func (b *bus) subscribe(buf int) (<-chan Event, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Event, buf)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (b *bus) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// closeAll 關閉所有訂閱（引擎關閉時使用）；之後的 subscribe 拿到已關閉的 channel。
func (b *bus) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
