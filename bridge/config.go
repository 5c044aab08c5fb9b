package bridge

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pjmedia/goconf/bridge/pcm"
	"gopkg.in/yaml.v3"
)

// Option is a creation-time bitmask flag (spec §6 "Creation options").
type Option uint32

const (
	// NoMic disables capture from the device port (external collaborator;
	// recorded here only so an application wiring a device port can read it
	// back from Config).
	NoMic Option = 1 << iota
	// NoDevice means the caller supplies its own clock instead of a sound
	// device driving slot 0.
	NoDevice
	// SmallFilter selects the compact windowed-sinc resampling filter.
	SmallFilter
	// UseLinear selects linear interpolation instead of windowed-sinc
	// resampling.
	UseLinear
)

func (o Option) Has(flag Option) bool { return o&flag != 0 }

const (
	defaultMaxSlots        = 32
	defaultSampleRate      = 16000
	defaultChannels        = 1
	defaultSamplesPerFrame = 320 // 20ms @ 16kHz
	defaultBitsPerSample   = 16
)

// Config carries the parameters of Create (spec §6), loaded either
// programmatically or from YAML.
type Config struct {
	MaxSlots        int
	SampleRate      int
	Channels        int
	SamplesPerFrame int
	BitsPerSample   int
	Options         Option
	WorkerThreads   int
}

// DefaultConfig mirrors pjmedia_conf_param_default: zero workers, no option
// bits set, 16kHz/mono/20ms/16-bit.
func DefaultConfig() Config {
	return Config{
		MaxSlots:        defaultMaxSlots,
		SampleRate:      defaultSampleRate,
		Channels:        defaultChannels,
		SamplesPerFrame: defaultSamplesPerFrame,
		BitsPerSample:   defaultBitsPerSample,
	}
}

// Validate enforces the synchronous Config invariants from spec §3/§6.
func (c Config) Validate() error {
	if c.MaxSlots < 2 {
		return fmt.Errorf("%w: max_slots must be >= 2 (slot 0 plus at least one port), got %d", ErrInvalidConfig, c.MaxSlots)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("%w: channel_count must be positive, got %d", ErrInvalidConfig, c.Channels)
	}
	if c.SamplesPerFrame <= 0 {
		return fmt.Errorf("%w: samples_per_frame must be positive, got %d", ErrInvalidConfig, c.SamplesPerFrame)
	}
	if c.BitsPerSample != 16 {
		return fmt.Errorf("%w: only bits_per_sample=16 is supported, got %d", ErrInvalidConfig, c.BitsPerSample)
	}
	if c.WorkerThreads < 0 {
		return fmt.Errorf("%w: worker_threads must be >= 0, got %d", ErrInvalidConfig, c.WorkerThreads)
	}
	return nil
}

// yamlConfig is the on-disk shape, following the teacher's pattern of a
// private wire struct decoupled from the public Config (bridge/config.go
// in the example corpus).
type yamlConfig struct {
	Bridge struct {
		MaxSlots      int      `yaml:"max_slots"`
		SampleRate    int      `yaml:"sample_rate"`
		Channels      int      `yaml:"channels"`
		PtimeMs       int      `yaml:"ptime_ms"`
		WorkerThreads int      `yaml:"worker_threads"`
		Options       []string `yaml:"options"`
	} `yaml:"bridge"`
}

// LoadConfig reads bridge creation parameters from a YAML file, applying
// DefaultConfig for any unset field.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.Bridge.MaxSlots > 0 {
		cfg.MaxSlots = yc.Bridge.MaxSlots
	}
	if yc.Bridge.SampleRate > 0 {
		cfg.SampleRate = yc.Bridge.SampleRate
	}
	if yc.Bridge.Channels > 0 {
		cfg.Channels = yc.Bridge.Channels
	}
	if yc.Bridge.PtimeMs > 0 {
		ptime := time.Duration(yc.Bridge.PtimeMs) * time.Millisecond
		n, err := pcm.PtimeToSamples(cfg.SampleRate, ptime)
		if err != nil {
			return Config{}, fmt.Errorf("bridge.ptime_ms: %w", err)
		}
		cfg.SamplesPerFrame = n
	}
	if yc.Bridge.WorkerThreads > 0 {
		cfg.WorkerThreads = yc.Bridge.WorkerThreads
	}

	for _, name := range yc.Bridge.Options {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "NO_MIC":
			cfg.Options |= NoMic
		case "NO_DEVICE":
			cfg.Options |= NoDevice
		case "SMALL_FILTER":
			cfg.Options |= SmallFilter
		case "USE_LINEAR":
			cfg.Options |= UseLinear
		default:
			return Config{}, fmt.Errorf("%w: unknown bridge.options entry %q", ErrInvalidConfig, name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
