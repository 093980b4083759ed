// Package config holds chart parameters and tool paths. Values come from the
// built-in defaults, then an optional YAML file, then .env and CHARTGEN_*
// environment variables; command-line flags are applied by the caller last.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/dygy/chartgen/internal/enfilade"
	errs "github.com/dygy/chartgen/internal/errors"
	"github.com/dygy/chartgen/internal/exec"
	"github.com/dygy/chartgen/internal/lilypond"
	"github.com/dygy/chartgen/internal/pitch"
	"github.com/dygy/chartgen/internal/random"
	"github.com/dygy/chartgen/internal/score"
)

// DefaultMelody is the melody hidden in the enfilade
const DefaultMelody = "g4 c' b e g d' ef b d' e g e' d' ef b2"

// DefaultFile is read when no config path is given and it exists
const DefaultFile = "chartgen.yaml"

// Environment variables
const (
	EnvLilyPond = "CHARTGEN_LILYPOND"
	EnvViewer   = "CHARTGEN_VIEWER"
	EnvPlayer   = "CHARTGEN_PLAYER"
	EnvSeed     = "CHARTGEN_SEED"
	EnvCacheDir = "CHARTGEN_CACHE_DIR"
)

// Tools are the external programs
type Tools struct {
	LilyPond string `yaml:"lilypond"`
	Viewer   string `yaml:"viewer"`
	Player   string `yaml:"player"`
}

// Server configures the preview server
type Server struct {
	Port int `yaml:"port"`
}

// Config holds every tunable of a chart run
type Config struct {
	Seed      uint64  `yaml:"seed"`
	Count     int     `yaml:"count"`
	Low       string  `yaml:"low"`
	High      string  `yaml:"high"`
	Melody    string  `yaml:"melody"`
	PoolSize  int     `yaml:"pool_size"`
	ChartBPM  float64 `yaml:"chart_bpm"`
	Tools     Tools   `yaml:"tools"`
	CacheDir  string  `yaml:"cache_dir"`
	Server    Server  `yaml:"server"`
	UseCache  bool    `yaml:"use_cache"`
	KeepFiles bool    `yaml:"keep_files"`
}

// Default returns the parameters the charts were first written with
func Default() *Config {
	return &Config{
		Seed:     random.DefaultSeed,
		Count:    20,
		Low:      "c",
		High:     "c''''",
		Melody:   DefaultMelody,
		PoolSize: enfilade.DefaultPoolSize,
		ChartBPM: 60,
		Tools:    Tools{LilyPond: "lilypond"},
		CacheDir: ".cache/charts",
		Server:   Server{Port: 8080},
		UseCache: true,
	}
}

// Load builds a config from defaults, the YAML file at path (DefaultFile when
// empty and present), .env and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	for env, dst := range map[string]*string{
		EnvLilyPond: &c.Tools.LilyPond,
		EnvViewer:   &c.Tools.Viewer,
		EnvPlayer:   &c.Tools.Player,
		EnvCacheDir: &c.CacheDir,
	} {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks the values that would otherwise fail deep in a run
func (c *Config) Validate() error {
	r, err := c.Range()
	if err != nil {
		return err
	}
	if r.High <= r.Low {
		return errs.NewRangeError(int(r.Low), int(r.High), "high must be above low")
	}
	if c.Count < 0 {
		return fmt.Errorf("count %d is negative", c.Count)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool size %d must be positive", c.PoolSize)
	}
	if c.ChartBPM <= 0 {
		return fmt.Errorf("chart bpm %g must be positive", c.ChartBPM)
	}
	return nil
}

// Range parses Low and High
func (c *Config) Range() (pitch.Range, error) {
	return pitch.ParseRange(c.Low, c.High)
}

// MelodyVoice parses Melody
func (c *Config) MelodyVoice() (score.Voice, error) {
	return lilypond.ParseVoice("melody", c.Melody)
}

// ExecTools converts Tools for the process runner
func (c *Config) ExecTools() exec.Tools {
	return exec.Tools{LilyPond: c.Tools.LilyPond, Viewer: c.Tools.Viewer, Player: c.Tools.Player}
}

// Save writes the config as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
