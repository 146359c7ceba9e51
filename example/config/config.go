// Copyright © 2022 ADWISE Lab, Florida International University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"errors"
	"io/ioutil"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/adwise-fiu/ciphercraft/crypto/compare"
)

var (
	// ErrUnknownMode is returned for a mode outside DGK/PAILLIER
	ErrUnknownMode = errors.New("unknown mode")
	// ErrUnknownVariant is returned for a variant outside ORIGINAL/VEUGEN/JOYE
	ErrUnknownVariant = errors.New("unknown variant")
)

type DGKParams struct {
	L int `yaml:"l"`
	T int `yaml:"t"`
	K int `yaml:"k"`
}

type PaillierParams struct {
	KeySize     int  `yaml:"key_size"`
	FastVariant bool `yaml:"fast_variant"`
}

type Config struct {
	Port     int64          `yaml:"port"`
	Mode     string         `yaml:"mode"`
	Variant  string         `yaml:"variant"`
	DGK      DGKParams      `yaml:"dgk"`
	Paillier PaillierParams `yaml:"paillier"`
}

func ReadConfigFile(filePath string) (*Config, error) {
	c := &Config{
		Mode:     "PAILLIER",
		Variant:  "VEUGEN",
		DGK:      DGKParams{L: 16, T: 160, K: 1024},
		Paillier: PaillierParams{KeySize: 1024},
	}
	yamlFile, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func WriteYamlFile(yamlData interface{}, filePath string) error {
	data, err := yaml.Marshal(yamlData)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(filePath, data, 0644)
}

// SessionConfig maps the file values onto the engine configuration.
func (c *Config) SessionConfig() (*compare.Config, error) {
	cfg := &compare.Config{}
	switch strings.ToUpper(c.Mode) {
	case "PAILLIER":
		cfg.Mode = compare.ModePaillier
	case "DGK":
		cfg.Mode = compare.ModeDGK
	default:
		return nil, ErrUnknownMode
	}
	switch strings.ToUpper(c.Variant) {
	case "ORIGINAL":
		cfg.Variant = compare.VariantOriginal
	case "VEUGEN":
		cfg.Variant = compare.VariantVeugen
	case "JOYE":
		cfg.Variant = compare.VariantJoye
	default:
		return nil, ErrUnknownVariant
	}
	return cfg, nil
}
