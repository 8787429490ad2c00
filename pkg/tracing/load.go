// Copyright (c) Bas van Beek 2022.
// Copyright (c) Tetrate, Inc 2021.
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

package tracing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigFile names the environment variable holding the path of an
	// optional YAML config file.
	EnvConfigFile = "TRACING_CONFIG_FILE"
	// EnvPrefix is the prefix of all environment variable overrides.
	EnvPrefix = "OTEL_"
)

// document is the layout of the YAML config file.
type document struct {
	OpenTelemetry *Config `yaml:"OpenTelemetry"`
}

// Load resolves a Config from the defaults, the YAML file found at path (if
// path is not empty) and finally the OTEL_ prefixed environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, &ConfigurationError{Err: err}
		}
		if err = Decode(raw, &cfg); err != nil {
			return cfg, &ConfigurationError{Err: fmt.Errorf("config file %s: %w", path, err)}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, &ConfigurationError{Err: err}
	}

	return cfg, nil
}

// Decode overlays the YAML document raw on top of cfg. Settings absent from
// the document keep their current value.
func Decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&document{OpenTelemetry: cfg}); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
