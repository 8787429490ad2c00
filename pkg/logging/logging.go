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

// Package logging provides the zap logger of this binary as a run.Group unit.
package logging

import (
	"fmt"
	"os"
	"path"

	"github.com/tetratelabs/multierror"
	"github.com/tetratelabs/run"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/basvanbeek/routetracer/pkg"
)

// flags
const (
	FlagLevel  = "log-level"
	FlagFormat = "log-format"
)

// log formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

const defaultLevel = "info"

var (
	_ run.Config    = (*Service)(nil)
	_ run.PreRunner = (*Service)(nil)
	_ run.Namer     = (*Service)(nil)
)

// Service builds the process wide zap logger and installs it as the global
// logger, so units registered after it can use zap.L().
type Service struct {
	Level       string
	Format      string
	ServiceName string

	logger *zap.Logger
}

// Name implements run.Unit.
func (s *Service) Name() string {
	return "logging"
}

// GroupName implements run.Namer so the service field defaults to the name of
// the run.Group.
func (s *Service) GroupName(name string) {
	if s.ServiceName == "" {
		s.ServiceName = name
	}
}

// FlagSet implements run.Config.
func (s *Service) FlagSet() *run.FlagSet {
	if s.Level == "" {
		s.Level = defaultLevel
	}
	if s.Format == "" {
		s.Format = FormatConsole
	}
	if s.ServiceName == "" {
		s.ServiceName = path.Base(os.Args[0])
	}

	flags := run.NewFlagSet("Logging options")

	flags.StringVar(
		&s.Level,
		FlagLevel,
		s.Level,
		`Minimum log level, one of [debug info warn error]`)
	flags.StringVar(
		&s.Format,
		FlagFormat,
		s.Format,
		fmt.Sprintf(`Log output format, one of [%s %s]`, FormatConsole, FormatJSON))

	return flags
}

// Validate implements run.Config.
func (s *Service) Validate() error {
	var mErr error

	if _, err := zapcore.ParseLevel(s.Level); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf(pkg.FlagErr, FlagLevel, err))
	}
	if s.Format != FormatConsole && s.Format != FormatJSON {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, FlagFormat, fmt.Errorf("unknown format %q", s.Format)))
	}

	return mErr
}

// PreRun implements run.PreRunner.
func (s *Service) PreRun() error {
	logger, err := New(s.Level, s.Format)
	if err != nil {
		return err
	}
	s.logger = logger.With(zap.String("service", s.ServiceName))
	zap.ReplaceGlobals(s.logger)
	return nil
}

// Logger returns the logger built in PreRun.
func (s *Service) Logger() *zap.Logger {
	if s.logger == nil {
		return zap.L()
	}
	return s.logger
}

// New returns a zap logger writing to stderr at the provided level and format.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch format {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case FormatConsole:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), lvl)
	return zap.New(core, zap.AddCaller()), nil
}
