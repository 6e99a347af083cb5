// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Navigator  NavigatorConfig  `mapstructure:"navigator" yaml:"navigator"`
	Pathfinder PathfinderConfig `mapstructure:"pathfinder" yaml:"pathfinder"`
	Frontier   FrontierConfig   `mapstructure:"frontier" yaml:"frontier"`
	Collision  CollisionConfig  `mapstructure:"collision" yaml:"collision"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Sim        SimConfig        `mapstructure:"sim" yaml:"sim"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// NavigatorConfig tunes the per-tick navigation state machine.
type NavigatorConfig struct {
	// StuckWindow is the number of consecutive ticks with an unchanged
	// position that count as one stuck episode.
	StuckWindow int `mapstructure:"stuck_window" yaml:"stuck_window"`
	// StuckEpisodeLimit is the number of stuck episodes after which the
	// active path is abandoned and control deferred.
	StuckEpisodeLimit int `mapstructure:"stuck_episode_limit" yaml:"stuck_episode_limit"`
}

// PathfinderConfig bounds the grid search.
type PathfinderConfig struct {
	// MaxDistance caps the path cost considered by the search; goals beyond
	// it yield no path rather than an unbounded search.
	MaxDistance int `mapstructure:"max_distance" yaml:"max_distance"`
	// AllowWater treats water tiles as traversable (e.g. after acquiring a
	// swim ability). Off by default.
	AllowWater bool `mapstructure:"allow_water" yaml:"allow_water"`
}

// FrontierConfig tunes frontier detection and scoring.
type FrontierConfig struct {
	MaxSearchDepth  int     `mapstructure:"max_search_depth" yaml:"max_search_depth"`
	MaxFrontiers    int     `mapstructure:"max_frontiers" yaml:"max_frontiers"`
	DistancePenalty float64 `mapstructure:"distance_penalty" yaml:"distance_penalty"`
	ObjectiveBonus  float64 `mapstructure:"objective_bonus" yaml:"objective_bonus"`
	// Randomize enables the start-seed scatter and the small score
	// perturbation used for exploration diversity. When disabled, detection
	// is fully deterministic.
	Randomize bool `mapstructure:"randomize" yaml:"randomize"`
	// Seed seeds the detector's random source; 0 seeds from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// CollisionConfig tunes the collision-recovery tracker.
type CollisionConfig struct {
	// FailureLimit is the consecutive-failure count at which a
	// (position, direction) is permanently abandoned.
	FailureLimit int `mapstructure:"failure_limit" yaml:"failure_limit"`
	// MovementResetThreshold is the run of successful moves, anywhere, that
	// resets all transient failure counters.
	MovementResetThreshold int `mapstructure:"movement_reset_threshold" yaml:"movement_reset_threshold"`
}

// StoreConfig configures durable persistence of abandoned positions.
type StoreConfig struct {
	// Path is the sqlite database file; "~" expands to the home directory.
	// An empty path selects the in-memory store (no persistence).
	Path string `mapstructure:"path" yaml:"path"`
	// FlushInterval is how often queued mutations are written out.
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
}

// SimConfig configures the scripted simulation harness.
type SimConfig struct {
	TicksPerSecond float64 `mapstructure:"ticks_per_second" yaml:"ticks_per_second"`
	MaxTicks       int     `mapstructure:"max_ticks" yaml:"max_ticks"`
	ViewRadius     int     `mapstructure:"view_radius" yaml:"view_radius"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tilenav")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Navigator --
	v.SetDefault("navigator.stuck_window", 5)
	v.SetDefault("navigator.stuck_episode_limit", 3)

	// -- Pathfinder --
	v.SetDefault("pathfinder.max_distance", 50)
	v.SetDefault("pathfinder.allow_water", false)

	// -- Frontier --
	v.SetDefault("frontier.max_search_depth", 50)
	v.SetDefault("frontier.max_frontiers", 20)
	v.SetDefault("frontier.distance_penalty", 0.5)
	v.SetDefault("frontier.objective_bonus", 30.0)
	v.SetDefault("frontier.randomize", true)
	v.SetDefault("frontier.seed", 0)

	// -- Collision --
	v.SetDefault("collision.failure_limit", 5)
	v.SetDefault("collision.movement_reset_threshold", 2)

	// -- Store --
	v.SetDefault("store.path", "~/.tilenav/abandoned.db")
	v.SetDefault("store.flush_interval", "2s")

	// -- Sim --
	v.SetDefault("sim.ticks_per_second", 20.0)
	v.SetDefault("sim.max_ticks", 500)
	v.SetDefault("sim.view_radius", 7)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Navigator.StuckWindow <= 0 {
		return fmt.Errorf("navigator.stuck_window must be a positive integer")
	}
	if c.Navigator.StuckEpisodeLimit <= 0 {
		return fmt.Errorf("navigator.stuck_episode_limit must be a positive integer")
	}
	if c.Pathfinder.MaxDistance <= 0 {
		return fmt.Errorf("pathfinder.max_distance must be a positive integer")
	}
	if c.Frontier.MaxSearchDepth <= 0 {
		return fmt.Errorf("frontier.max_search_depth must be a positive integer")
	}
	if c.Frontier.MaxFrontiers <= 0 {
		return fmt.Errorf("frontier.max_frontiers must be a positive integer")
	}
	if c.Frontier.DistancePenalty < 0 {
		return fmt.Errorf("frontier.distance_penalty must not be negative")
	}
	if c.Collision.FailureLimit <= 0 {
		return fmt.Errorf("collision.failure_limit must be a positive integer")
	}
	if c.Collision.MovementResetThreshold <= 0 {
		return fmt.Errorf("collision.movement_reset_threshold must be a positive integer")
	}
	if c.Store.FlushInterval <= 0 {
		return fmt.Errorf("store.flush_interval must be a positive duration")
	}
	if c.Sim.ViewRadius <= 0 {
		return fmt.Errorf("sim.view_radius must be a positive integer")
	}
	return nil
}

// ResolveStorePath expands a leading "~" in the store path. An empty result
// means persistence is disabled.
func (c *Config) ResolveStorePath() (string, error) {
	if c.Store.Path == "" {
		return "", nil
	}
	path, err := homedir.Expand(c.Store.Path)
	if err != nil {
		return "", fmt.Errorf("failed to expand store path %q: %w", c.Store.Path, err)
	}
	return path, nil
}
