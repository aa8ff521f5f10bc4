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

package perf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunWritesProfile(t *testing.T) {
	dir := t.TempDir()
	ran := false
	path, err := Run(func() { ran = true }, ModeHeap, dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ran {
		t.Fatalf("exe not called")
	}
	if path != filepath.Join(dir, "heap.pprof") {
		t.Fatalf("path = %s", path)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Fatalf("profile not written: %v", err)
	}
}

func TestRunWithoutProfile(t *testing.T) {
	ran := false
	path, err := Run(func() { ran = true }, ModeNone, t.TempDir())
	if err != nil || path != "" || !ran {
		t.Fatalf("path=%q err=%v ran=%v", path, err, ran)
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "cpu", "heap", "allocs"} {
		if _, err := ParseMode(s); err != nil {
			t.Fatalf("%q: %v", s, err)
		}
	}
	if _, err := ParseMode("block"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
