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

// Package objstore 把模擬報表上傳到 S3 相容的物件儲存（AWS S3、R2、MinIO）。
package objstore

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zintix-labs/crashlab/errs"
)

// Target 為 s3://bucket/key 解析後的位置。
type Target struct {
	Bucket string
	Key    string
}

func (t Target) String() string { return "s3://" + t.Bucket + "/" + t.Key }

// ParseURL 解析 s3://bucket/path/to/key。
func ParseURL(raw string) (Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Target{}, errs.InvalidArgument("bad object url %q: %v", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return Target{}, errs.InvalidArgument("object url must look like s3://bucket/key, got %q", raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return Target{}, errs.InvalidArgument("object url %q has no key", raw)
	}
	return Target{Bucket: u.Host, Key: key}, nil
}

// Options 皆可留空：Region 預設 us-east-1；AccessKey 為空時走 aws 預設憑證鏈；
// Endpoint 非空時改連 S3 相容服務並使用 path-style。
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

type Uploader struct {
	client *s3.Client
}

func NewUploader(ctx context.Context, opt Options) (*Uploader, error) {
	region := opt.Region
	if region == "" {
		region = "us-east-1"
	}
	loaders := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opt.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, errs.Wrap(err, "load s3 config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Uploader{client: client}, nil
}

// Put 以單次 PutObject 上傳；報表體積小，不走 multipart。
func (u *Uploader) Put(ctx context.Context, t Target, body []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.Bucket),
		Key:         aws.String(t.Key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errs.Wrap(err, "put "+t.String())
	}
	return nil
}
