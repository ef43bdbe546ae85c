// Package config reads the player's YAML configuration file.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/matt-g-everett/framescroll/playback"
	"github.com/matt-g-everett/framescroll/transport"
)

// Loader kinds.
const (
	LoaderFile      = "file"
	LoaderSynthetic = "synthetic"
)

type Config struct {
	Mqtt struct {
		URL      string           `yaml:"url"`
		Username string           `yaml:"username"`
		Password string           `yaml:"password"`
		ClientID string           `yaml:"clientId"`
		Qos      byte             `yaml:"qos"`
		Topics   transport.Topics `yaml:"topics"`
	} `yaml:"mqtt"`

	Sequence struct {
		FrameCount            int    `yaml:"frameCount"`
		AssetDirectory        string `yaml:"assetDirectory"`
		AssetNamePrefix       string `yaml:"assetNamePrefix"`
		AssetFormat           string `yaml:"assetFormat"`
		HighResAssetDirectory string `yaml:"highResAssetDirectory"`
		EnableHighResUpgrade  bool   `yaml:"enableHighResUpgrade"`
		BufferRadius          int    `yaml:"bufferRadius"`
		EnablePreload         bool   `yaml:"enablePreload"`
	} `yaml:"sequence"`

	Playback struct {
		FrameRate      int `yaml:"frameRate"`
		SettleAfterMs  int `yaml:"settleAfterMs"`
		PreloadDelayMs int `yaml:"preloadDelayMs"`
	} `yaml:"playback"`

	Http struct {
		Listen    string `yaml:"listen"`
		AssetRoot string `yaml:"assetRoot"`
	} `yaml:"http"`

	Loader struct {
		Kind       string `yaml:"kind"`
		LatencyMs  int    `yaml:"latencyMs"`
		JitterMs   int    `yaml:"jitterMs"`
		Workers    int    `yaml:"workers"`
		CacheBytes int    `yaml:"cacheBytes"`
	} `yaml:"loader"`

	Simulate struct {
		Enabled    bool   `yaml:"enabled"`
		Steps      int    `yaml:"steps"`
		IntervalMs int    `yaml:"intervalMs"`
		PauseMs    int    `yaml:"pauseMs"`
		Easing     string `yaml:"easing"`
	} `yaml:"simulate"`

	LogLevel string `yaml:"logLevel"`
}

// Default returns a Config with every optional value filled in.
func Default() Config {
	var c Config
	c.Mqtt.ClientID = "framescroll"
	c.Mqtt.Topics = transport.Topics{
		Scroll:          "framescroll/scroll",
		FrameShown:      "framescroll/frame",
		PreloadComplete: "framescroll/preloaded",
	}
	c.Sequence.AssetFormat = playback.DefaultAssetFormat
	c.Sequence.BufferRadius = playback.DefaultBufferRadius
	c.Playback.FrameRate = 60
	c.Playback.SettleAfterMs = int(playback.DefaultSettleAfter / time.Millisecond)
	c.Playback.PreloadDelayMs = int(playback.DefaultPreloadDelay / time.Millisecond)
	c.Http.Listen = ":3000"
	c.Loader.Kind = LoaderFile
	c.Loader.Workers = 4
	c.Loader.CacheBytes = 64 << 20
	c.Simulate.Steps = 600
	c.Simulate.IntervalMs = 16
	c.Simulate.PauseMs = 1000
	c.Simulate.Easing = "inOutQuad"
	c.LogLevel = "info"
	return c
}

// Load reads the file at path over the defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over the defaults and checks the values that are not
// covered by playback.Options.
func Decode(r io.Reader) (Config, error) {
	c := Default()
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	switch {
	case c.Loader.Kind != LoaderFile && c.Loader.Kind != LoaderSynthetic:
		return Config{}, &playback.ConfigurationError{Field: "loader.kind", Reason: fmt.Sprintf("unknown kind %q", c.Loader.Kind)}
	case c.Playback.FrameRate < 1:
		return Config{}, &playback.ConfigurationError{Field: "playback.frameRate", Reason: "must be at least 1"}
	case c.Simulate.Enabled && c.Simulate.Steps < 2:
		return Config{}, &playback.ConfigurationError{Field: "simulate.steps", Reason: "must be at least 2"}
	case c.Mqtt.Qos > 2:
		return Config{}, &playback.ConfigurationError{Field: "mqtt.qos", Reason: "must be 0, 1 or 2"}
	}
	return c, nil
}

// FrameInterval is the refresh tick period.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Playback.FrameRate)
}

// ToOptions converts the sequence and playback sections. Callbacks are left for the
// caller to set.
func (c Config) ToOptions() playback.Options {
	opts := playback.DefaultOptions()
	opts.FrameCount = c.Sequence.FrameCount
	opts.AssetDirectory = c.Sequence.AssetDirectory
	opts.AssetNamePrefix = c.Sequence.AssetNamePrefix
	opts.AssetFormat = c.Sequence.AssetFormat
	opts.HighResAssetDirectory = c.Sequence.HighResAssetDirectory
	opts.EnableHighResUpgrade = c.Sequence.EnableHighResUpgrade
	opts.BufferRadius = c.Sequence.BufferRadius
	opts.EnablePreload = c.Sequence.EnablePreload
	opts.SettleAfter = time.Duration(c.Playback.SettleAfterMs) * time.Millisecond
	opts.PreloadDelay = time.Duration(c.Playback.PreloadDelayMs) * time.Millisecond
	return opts
}
