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

package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/crashlab/errs"
	"gopkg.in/yaml.v3"
)

// ParseYAML 以預設值為底，嚴格解碼 YAML（未知欄位直接報錯），再執行 Valid。
//
// 沒寫到的欄位沿用 Default()；空文件等同全預設。
func ParseYAML(data []byte) (*EngineSetting, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 嚴格檢查：多寫/拼錯欄位就報錯
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, configErr(err, "decode yaml engine setting failed")
	}
	if err := s.Valid(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseJSON 同 ParseYAML，但輸入為 JSON。
func ParseJSON(data []byte) (*EngineSetting, error) {
	s := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, configErr(err, "decode json engine setting failed")
	}
	if err := s.Valid(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile 依副檔名（.json 以外皆視為 YAML）讀取設定檔。
func LoadFile(path string) (*EngineSetting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "read engine setting file failed")
	}
	return parseByExt(path, data)
}

// LoadFS 從 fs.FS（例如 configs.FS 內嵌檔）讀取設定檔。
func LoadFS(fsys fs.FS, name string) (*EngineSetting, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errs.Wrap(err, "read engine setting from fs failed")
	}
	return parseByExt(name, data)
}

func parseByExt(name string, data []byte) (*EngineSetting, error) {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// configErr 讓解碼錯誤一律帶 Configuration 分類（第三方錯誤預設是 Fatal）。
func configErr(cause error, msg string) error {
	if errs.KindOf(cause) == errs.KindConfiguration {
		return errs.Wrap(cause, msg)
	}
	e := errs.Configuration("%s", msg)
	e.Cause = cause
	return e
}
