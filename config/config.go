package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pathviz/animation"
	gw "pathviz/grid_world"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Kind is the expected value of the config envelope's kind field.
const Kind = "pathviz"

var ErrWrongKind = errors.New("config kind mismatch")

// OuterConfig is the envelope of the config file; Def holds the Config itself.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Config holds the server, logging and grid settings. Grid dimensions are not here:
// they are fixed at compile time.
type Config struct {
	Server ServerConfig `yaml:"server"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"loglevel"`
	// StepDelay is the pause after each visited cell, as a duration string.
	StepDelay string `yaml:"stepdelay"`
	// RunDeadline optionally bounds a single run, e.g. {duration: 30s}.
	RunDeadline map[string]string `yaml:"rundeadline"`
	Grid        GridConfig        `yaml:"grid"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// GridConfig describes the initial grid: either a preset around start and end,
// or an explicit track which then also determines start and end.
type GridConfig struct {
	Start  gw.Coord `yaml:"start"`
	End    gw.Coord `yaml:"end"`
	Preset string   `yaml:"preset"`
	Track  []string `yaml:"track"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		LogLevel:  "info",
		StepDelay: animation.DefaultStepDelay.String(),
		Grid: GridConfig{
			Start:  gw.DefaultStart,
			End:    gw.DefaultEnd,
			Preset: gw.EmptyPreset,
		},
	}
}

// Load reads the config at path, falling back to defaults if the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return FromYaml(path)
}

// FromYaml reads the config envelope with viper, then decodes its def section over the defaults.
// Viper folds keys to lower case, hence the lower case yaml tags on Config.
func FromYaml(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))

	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if outerConfig.Kind != Kind {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongKind, outerConfig.Kind, Kind)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	cfg := Default()
	if err = yaml.Unmarshal(spec, cfg); err != nil {
		return nil, fmt.Errorf("decode config def %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the server listen address.
func (cfg *Config) Addr() string {
	return cfg.Server.Host + ":" + cfg.Server.Port
}

// Delay parses the step delay.
func (cfg *Config) Delay() (time.Duration, error) {
	if cfg.StepDelay == "" {
		return animation.DefaultStepDelay, nil
	}
	delay, err := time.ParseDuration(cfg.StepDelay)
	if err != nil {
		return 0, fmt.Errorf("step delay: %w", err)
	}
	return delay, nil
}

// WithRunDeadline returns a context extended by the run deadline, if one is specified.
func (cfg *Config) WithRunDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.RunDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("run deadline: %w", err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// InitialGrid builds the grid the session starts with.
func (cfg *Config) InitialGrid() (gw.Grid, error) {
	if len(cfg.Grid.Track) > 0 {
		return gw.FromTrack(cfg.Grid.Track)
	}
	return gw.Preset(cfg.Grid.Preset, cfg.Grid.Start, cfg.Grid.End)
}

// Level converts LogLevel to a slog level; unknown names mean info.
func (cfg *Config) Level() slog.Level {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger returns a text logger writing to w at the configured level.
func (cfg *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
}
