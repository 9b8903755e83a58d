// Copyright 2026 The Wabbit Authors
// This file is part of the Wabbit compiler.

package compile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/naoina/toml"
)

// ConfigName is the per-project configuration file, looked up next to
// the source file.
const ConfigName = "wabbit.toml"

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config mirrors wabbit.toml. Zero values mean "not set"; command-line
// flags override anything read from the file.
type Config struct {
	Build       BuildConfig
	Diagnostics DiagnosticsConfig
}

// BuildConfig selects the target and passes.
type BuildConfig struct {
	Mode      string `toml:",omitempty"` // interp, wasm or llvm
	Output    string `toml:",omitempty"`
	Optimize  bool   `toml:",omitempty"`
	StepLimit uint64 `toml:",omitempty"` // interpreter instruction budget
}

// DiagnosticsConfig controls how errors are rendered.
type DiagnosticsConfig struct {
	Color string `toml:",omitempty"` // auto, always or never
	JSON  bool   `toml:",omitempty"`
}

// LoadConfig reads a TOML configuration file into cfg.
func LoadConfig(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// FindConfig returns the path of the configuration file next to the
// given source file, or "" when there is none.
func FindConfig(sourcePath string) string {
	path := filepath.Join(filepath.Dir(sourcePath), ConfigName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// DumpConfig renders cfg back as TOML.
func DumpConfig(cfg *Config) ([]byte, error) {
	return tomlSettings.Marshal(cfg)
}
