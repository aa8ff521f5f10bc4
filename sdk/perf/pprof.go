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

// Package perf 包裝 runtime/pprof，讓 cmd/sim 可以在模擬前後寫出 profile（亦可作為 PGO 的 default.pgo 來源）。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/crashlab/errs"
)

// DefaultDir pprof 檔案輸出目錄
const DefaultDir = "build/profiling"

// Mode 為 profile 種類："" 代表不 profile。
type Mode string

const (
	ModeNone   Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"
	ModeAllocs Mode = "allocs"
)

// ParseMode 驗證 -p 參數。
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNone, ModeCPU, ModeHeap, ModeAllocs:
		return m, nil
	}
	return ModeNone, errs.InvalidArgument("unknown pprof mode %q (want cpu, heap or allocs)", s)
}

// Run 執行 exe，並依 mode 在 dir 下寫出 <mode>.pprof，回傳檔案路徑（ModeNone 時為空字串）。
//
// cpu 涵蓋 exe 整段；heap 在 exe 後先 GC 再拍 in-use 快照；allocs 為 exe 後的累積配置。
func Run(exe func(), mode Mode, dir string) (string, error) {
	if mode == ModeNone {
		exe()
		return "", nil
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(err, "create pprof dir failed")
	}
	path := filepath.Join(dir, string(mode)+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(err, "create "+path+" failed")
	}
	defer f.Close()

	switch mode {
	case ModeCPU:
		if err := pprof.StartCPUProfile(f); err != nil {
			return "", errs.Wrap(err, "start cpu profile failed")
		}
		exe()
		pprof.StopCPUProfile()
	case ModeHeap:
		exe()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return "", errs.Wrap(err, "write heap profile failed")
		}
	case ModeAllocs:
		exe()
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			return "", errs.Wrap(err, "write allocs profile failed")
		}
	default:
		return "", errs.InvalidArgument("unknown pprof mode %q", mode)
	}
	return path, nil
}
