package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pennyrush/pennyrush/go/internal/bidding"
	"github.com/pennyrush/pennyrush/go/internal/scheduler"
)

// Config is the YAML policy file. Every value has a working default, so
// a missing file just runs the stock policy.
type Config struct {
	Bidding struct {
		ExtensionWindowSeconds int `yaml:"extension_window_seconds"`
		BidSpacingSeconds      int `yaml:"bid_spacing_seconds"`
	} `yaml:"bidding"`

	Scheduler struct {
		LiveDurationSeconds int `yaml:"live_duration_seconds"`
		BatchSize           int `yaml:"batch_size"`
		Workers             int `yaml:"workers"`
	} `yaml:"scheduler"`

	Bots scheduler.RosterConfig `yaml:"bots"`

	FinishedWindowHours int `yaml:"finished_window_hours"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Bidding.ExtensionWindowSeconds = 12
	cfg.Bidding.BidSpacingSeconds = 2
	cfg.Scheduler.LiveDurationSeconds = 60
	cfg.Scheduler.BatchSize = 50
	cfg.Scheduler.Workers = 8
	cfg.FinishedWindowHours = 24
	return cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) biddingPolicy() bidding.Policy {
	return bidding.Policy{
		ExtensionWindow: time.Duration(c.Bidding.ExtensionWindowSeconds) * time.Second,
		BidSpacing:      time.Duration(c.Bidding.BidSpacingSeconds) * time.Second,
	}
}

func (c *Config) schedulerConfig() scheduler.Config {
	cfg := scheduler.DefaultConfig()
	cfg.LiveDuration = time.Duration(c.Scheduler.LiveDurationSeconds) * time.Second
	cfg.BatchSize = int32(c.Scheduler.BatchSize)
	cfg.NumWorkers = c.Scheduler.Workers
	return cfg
}

func (c *Config) finishedWindow() time.Duration {
	return time.Duration(c.FinishedWindowHours) * time.Hour
}

// botStrategy builds the bot policy; an empty roster means no bots.
func (c *Config) botStrategy() scheduler.Strategy {
	if len(c.Bots.Roster) == 0 {
		return scheduler.NopStrategy{}
	}
	return scheduler.NewRosterStrategy(c.Bots)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
