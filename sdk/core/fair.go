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

package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/zintix-labs/crashlab/errs"
)

// Fair 是可公開驗證（provably fair）的亂數來源。
//
// 每次取樣：
//
//	digest = HMAC-SHA256(key = serverSeed, msg = clientSeed + ":" + nonce)
//	Uint64 = digest[0:8] (big-endian)
//	nonce++
//
// 開局前公佈 Commitment()（serverSeed 的 sha256），事後公佈 serverSeed，
// 玩家即可用相同的 clientSeed 與 nonce 重算每一局的 u 與 crash point。
type Fair struct {
	serverSeed []byte
	clientSeed string
	nonce      uint64
}

func NewFair(serverSeed []byte, clientSeed string, nonce uint64) *Fair {
	key := make([]byte, len(serverSeed))
	copy(key, serverSeed)
	return &Fair{serverSeed: key, clientSeed: clientSeed, nonce: nonce}
}

// Commitment 回傳 hex(sha256(serverSeed))。
func (f *Fair) Commitment() string {
	sum := sha256.Sum256(f.serverSeed)
	return hex.EncodeToString(sum[:])
}

// Nonce 回傳下一次取樣要使用的 nonce。
func (f *Fair) Nonce() uint64 { return f.nonce }

// FairUint64 是 Fair 的無狀態版本，用於驗證。
func FairUint64(serverSeed []byte, clientSeed string, nonce uint64) uint64 {
	mac := hmac.New(sha256.New, serverSeed)
	mac.Write([]byte(clientSeed))
	mac.Write([]byte{':'})
	mac.Write(strconv.AppendUint(nil, nonce, 10))
	return binary.BigEndian.Uint64(mac.Sum(nil)[:8])
}

// FairUnit 取 FairUint64 的高 52 bits 換成 [0,1)。
func FairUnit(serverSeed []byte, clientSeed string, nonce uint64) float64 {
	return float64(FairUint64(serverSeed, clientSeed, nonce)>>12) / (1 << 52)
}

func (f *Fair) Uint64() uint64 {
	v := FairUint64(f.serverSeed, f.clientSeed, f.nonce)
	f.nonce++
	return v
}

func (f *Fair) Float64() float64 {
	return float64(f.Uint64()>>12) / (1 << 52)
}

func (f *Fair) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	return uint(boundedN(f.Uint64, uint64(max)))
}

func (f *Fair) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	return int(boundedN(f.Uint64, uint64(max)))
}

// Snapshot 只保存 nonce；seed 本身不進快照。
func (f *Fair) Snapshot() ([]byte, error) {
	return binary.BigEndian.AppendUint64(nil, f.nonce), nil
}

func (f *Fair) Restore(data []byte) error {
	if len(data) != 8 {
		return errs.InvalidArgument("fair snapshot must be 8 bytes, got %d", len(data))
	}
	f.nonce = binary.BigEndian.Uint64(data)
	return nil
}
