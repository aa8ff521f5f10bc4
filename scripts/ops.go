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

// ops 是開發用的任務執行器：go run ./scripts <task>
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
)

type task struct {
	desc string
	run  func() error
}

var tasks = map[string]task{
	"test":        {"go test ./... -cover -count=1, only ok/FAIL lines", func() error { return goTest(false, "-cover", "-count=1") }},
	"test-detail": {"go test ./... -v -count=1, without [no test files]", func() error { return goTest(true, "-v", "-count=1") }},
	"sim":         {"quick 1M-round simulation at 2x with the embedded setting", func() error { return goRun("./cmd/sim", "-rounds", "250000", "-worker", "4", "-target", "2") }},
	"sim-players": {"1000 player sessions of 2000 rounds at 1.5x", func() error { return goRun("./cmd/sim", "-player", "1000", "-rounds", "2000", "-worker", "4", "-target", "1.5") }},
	"svr":         {"run the lab server with admin token 'dev'", func() error { return goRun("./cmd/svr", "-admin-token", "dev") }},
}

var (
	ok   = color.New(color.FgGreen)
	fail = color.New(color.FgRed)
	warn = color.New(color.FgYellow)
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	t, found := tasks[os.Args[1]]
	if !found {
		warn.Printf("unknown task: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err := t.run(); err != nil {
		fail.Printf("\n%s failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: go run ./scripts <task>")
	for name, t := range tasks {
		fmt.Printf("  %-12s %s\n", name, t.desc)
	}
}

// goTest 先清 test cache，再逐行過濾 go test 的輸出；verbose 時保留一般 log。
func goTest(verbose bool, args ...string) error {
	ok.Println("running tests")
	if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
		fail.Println(err)
	}
	cmd := exec.Command("go", append([]string{"test", "./..."}, args...)...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return err
	}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, "[no test files]"):
		case strings.HasPrefix(line, "ok"):
			ok.Println(line)
		case strings.HasPrefix(line, "FAIL"), strings.Contains(line, "build failed"), strings.Contains(line, "setup failed"):
			fail.Println(line)
		case verbose:
			fmt.Println(line)
		}
	}
	return cmd.Wait()
}

func goRun(pkg string, args ...string) error {
	cmd := exec.Command("go", append([]string{"run", pkg}, args...)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}
