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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zintix-labs/crashlab/sdk/objstore"
	"github.com/zintix-labs/crashlab/stats"
)

// uploadDoc 為上傳到物件儲存的報表；與 -o 無關，一律 json。
type uploadDoc struct {
	Seed      int64                   `json:"seed"`
	Target    float64                 `json:"target"`
	RTP       float64                 `json:"rtp"`
	Stats     *stats.StatReport       `json:"stats"`
	Estimator *stats.EstimatorPlayers `json:"estimator,omitempty"`
}

func upload(st *stats.StatReport, est *stats.EstimatorPlayers) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	up, err := objstore.NewUploader(ctx, objstore.Options{
		Endpoint:  os.Getenv("CRASHLAB_S3_ENDPOINT"),
		Region:    os.Getenv("CRASHLAB_S3_REGION"),
		AccessKey: os.Getenv("CRASHLAB_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("CRASHLAB_S3_SECRET_KEY"),
	})
	if err != nil {
		log.Fatal(err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	doc := uploadDoc{Seed: cfg.seed, Target: cfg.target, RTP: cfg.setting.RTP, Stats: st, Estimator: est}
	if err := enc.Encode(doc); err != nil {
		log.Fatal(err)
	}
	if err := up.Put(ctx, cfg.dest, buf.Bytes(), "application/json"); err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(os.Stderr, "report uploaded to %s\n", cfg.dest)
}
