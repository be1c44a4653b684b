// Copyright 2025 AK Software GmbH
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

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TransportSimple     = "simple"
	TransportChunked    = "chunked"
	TransportDirectBlob = "directblob"
)

const DefaultScanInterval = 10 * time.Second

type API struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type SMTP struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	User              string `yaml:"user"`
	Password          string `yaml:"password"`
	SenderAddr        string `yaml:"sender_addr"`
	SenderName        string `yaml:"sender_name"`
	FallbackRecipient string `yaml:"fallback_recipient"`
}

type SMS struct {
	APIKey  string `yaml:"api_key"`
	Sender  string `yaml:"sender"`
	Sandbox bool   `yaml:"sandbox"`
}

type Shortener struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

type Config struct {
	WatchPath           string    `yaml:"watch_path"`
	ScanIntervalSeconds int       `yaml:"scan_interval_seconds"`
	ArchivePath         string    `yaml:"archive_path"`
	LedgerPath          string    `yaml:"ledger_path"`
	Transport           string    `yaml:"transport"`
	API                 API       `yaml:"api"`
	SMTP                SMTP      `yaml:"smtp"`
	SMS                 SMS       `yaml:"sms"`
	Shortener           Shortener `yaml:"shortener"`
}

// Load reads a YAML config file. An empty path yields a default config so the
// daemon can run purely from flags.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ScanIntervalSeconds <= 0 {
		c.ScanIntervalSeconds = int(DefaultScanInterval / time.Second)
	}
	if c.Transport == "" {
		c.Transport = TransportSimple
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSimple, TransportChunked, TransportDirectBlob:
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	return nil
}
