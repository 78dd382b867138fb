package gps

import "time"

// Config describes how a route is played back. It is a value type: every
// change produces a new Config, either by assigning a fresh struct or
// through With.
type Config struct {
	UseRealisticTiming       bool          `json:"use_realistic_timing" mapstructure:"use_realistic_timing"`
	DelayBetweenEmissions    time.Duration `json:"delay_between_emissions" mapstructure:"delay_between_emissions"`
	DistanceBetweenEmissions float64       `json:"distance_between_emissions" mapstructure:"distance_between_emissions"` // meters
	LoopIndefinitely         bool          `json:"loop_indefinitely" mapstructure:"loop_indefinitely"`
	SpeedMultiplier          float64       `json:"speed_multiplier" mapstructure:"speed_multiplier"`
	NoiseLevelInMeters       float64       `json:"noise_level_in_meters" mapstructure:"noise_level_in_meters"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		UseRealisticTiming:       false,
		DelayBetweenEmissions:    1000 * time.Millisecond,
		DistanceBetweenEmissions: 0,
		LoopIndefinitely:         false,
		SpeedMultiplier:          1.0,
		NoiseLevelInMeters:       0,
	}
}

// Validate checks if the configuration is valid and returns an error if not
func (c Config) Validate() error {
	if c.SpeedMultiplier <= 0 {
		return ErrInvalidSpeedMultiplier
	}
	if c.NoiseLevelInMeters < 0 {
		return ErrInvalidNoiseLevel
	}
	if c.DelayBetweenEmissions < 0 {
		return ErrInvalidDelay
	}
	if c.DistanceBetweenEmissions < 0 {
		return ErrInvalidDistance
	}
	return nil
}

// Option assigns one or more fields of a Config.
type Option func(*Config)

// With returns a copy of c with opts applied. c itself is never modified.
func (c Config) With(opts ...Option) Config {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func WithRealisticTiming(enabled bool) Option {
	return func(c *Config) { c.UseRealisticTiming = enabled }
}

func WithDelay(d time.Duration) Option {
	return func(c *Config) { c.DelayBetweenEmissions = d }
}

func WithDistance(meters float64) Option {
	return func(c *Config) { c.DistanceBetweenEmissions = meters }
}

func WithLoop(loop bool) Option {
	return func(c *Config) { c.LoopIndefinitely = loop }
}

func WithSpeedMultiplier(m float64) Option {
	return func(c *Config) { c.SpeedMultiplier = m }
}

func WithNoise(meters float64) Option {
	return func(c *Config) { c.NoiseLevelInMeters = meters }
}
