// Package config loads the parameters a host program uses to construct
// a kernel.Interface, accepting either TOML or YAML source files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Params mirrors the construction options a kernel.Interface accepts.
type Params struct {
	NumTimelines   int    `toml:"num_timelines" yaml:"num_timelines"`
	LogTicksPerSec uint   `toml:"log_ticks_per_sec" yaml:"log_ticks_per_sec"`
	BarrierFlavor  string `toml:"barrier_flavor" yaml:"barrier_flavor"`
	SyncMode       string `toml:"sync_mode" yaml:"sync_mode"`
	RefCount       bool   `toml:"ref_count_payloads" yaml:"ref_count_payloads"`
	WindowSize     int64  `toml:"window_size" yaml:"window_size"`
	MetricsAddr    string `toml:"metrics_addr" yaml:"metrics_addr"`
}

// Default returns the baseline Params a bare kernel.NewInterface call
// would imply: a single-timeline, globally-synchronized, second-scale
// clock.
func Default() Params {
	return Params{
		NumTimelines:   1,
		LogTicksPerSec: 0,
		BarrierFlavor:  "condvar",
		SyncMode:       "global",
		RefCount:       true,
		WindowSize:     -1,
	}
}

// Load reads Params from path, dispatching on file extension: ".toml"
// decodes via BurntSushi/toml, ".yaml"/".yml" via gopkg.in/yaml.v3.
// Unset fields keep Default's values.
func Load(path string) (Params, error) {
	p := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(raw), &p); err != nil {
			return p, fmt.Errorf("config: decode toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return p, fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	default:
		return p, fmt.Errorf("config: unsupported extension %q", ext)
	}
	return p, nil
}

// EnvOverride applies environment-variable overrides on top of p using
// loosely-typed coercion, letting operators patch a file-sourced Params
// without editing the file.
func EnvOverride(p Params, env map[string]string) (Params, error) {
	if v, ok := env["KERNEL_NUM_TIMELINES"]; ok {
		out, err := cast.FromType(v, reflect.TypeOf(int(0)))
		if err != nil {
			return p, fmt.Errorf("config: KERNEL_NUM_TIMELINES: %w", err)
		}
		p.NumTimelines = out.(int)
	}
	if v, ok := env["KERNEL_WINDOW_SIZE"]; ok {
		out, err := cast.FromType(v, reflect.TypeOf(int64(0)))
		if err != nil {
			return p, fmt.Errorf("config: KERNEL_WINDOW_SIZE: %w", err)
		}
		p.WindowSize = out.(int64)
	}
	if v, ok := env["KERNEL_REF_COUNT_PAYLOADS"]; ok {
		out, err := cast.FromType(v, reflect.TypeOf(bool(false)))
		if err != nil {
			return p, fmt.Errorf("config: KERNEL_REF_COUNT_PAYLOADS: %w", err)
		}
		p.RefCount = out.(bool)
	}
	return p, nil
}
