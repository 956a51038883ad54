package config

import (
	"fmt"
	"os"
	"time"

	"github.com/LeniadVe/DryCleaning/internal/input"
	"github.com/LeniadVe/DryCleaning/internal/model"

	"gopkg.in/yaml.v3"
)

// HoursEntryConfig sets hours for a group of weekdays.
type HoursEntryConfig struct {
	Days   []string `yaml:"days"`             // "monday", ...
	Open   string   `yaml:"open,omitempty"`   // "09:00" or "09:00:00"
	Close  string   `yaml:"close,omitempty"`  // "18:00" or "18:00:00"
	Closed bool     `yaml:"closed,omitempty"` // ignore open/close
}

// DateOverrideConfig sets hours for one calendar date.
type DateOverrideConfig struct {
	Date   string `yaml:"date"` // "2024-12-25"
	Open   string `yaml:"open,omitempty"`
	Close  string `yaml:"close,omitempty"`
	Closed bool   `yaml:"closed,omitempty"`
	Note   string `yaml:"note,omitempty"`
}

// HoursConfig is the root configuration for hours.yaml.
type HoursConfig struct {
	Week  []HoursEntryConfig   `yaml:"week"`
	Dates []DateOverrideConfig `yaml:"dates"`
}

// LoadHoursConfig loads and validates the hours file.
func LoadHoursConfig(path string) (*HoursConfig, error) {
	if path == "" {
		path = "configs/hours.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hours config: %w", err)
	}
	return parseHoursConfig(data)
}

func parseHoursConfig(data []byte) (*HoursConfig, error) {
	var cfg HoursConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse hours config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate hours config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *HoursConfig) Validate() error {
	_, err := c.WeekHours()
	if err != nil {
		return err
	}
	_, err = c.DateHours()
	return err
}

// WeekHours resolves the configured weekdays. Later entries win.
func (c *HoursConfig) WeekHours() (map[time.Weekday]model.WorkHours, error) {
	week := make(map[time.Weekday]model.WorkHours)
	for i, e := range c.Week {
		if len(e.Days) == 0 {
			return nil, fmt.Errorf("week[%d]: days is required", i)
		}
		hours, err := resolveHours(e.Open, e.Close, e.Closed, fmt.Sprintf("week[%d]", i))
		if err != nil {
			return nil, err
		}
		for j, name := range e.Days {
			day, err := input.Weekday(name)
			if err != nil {
				return nil, fmt.Errorf("week[%d].days[%d]: %w", i, j, err)
			}
			week[day] = hours
		}
	}
	return week, nil
}

// DateHours resolves the configured date overrides.
func (c *HoursConfig) DateHours() (map[model.Date]model.WorkHours, error) {
	dates := make(map[model.Date]model.WorkHours)
	for i, o := range c.Dates {
		if o.Date == "" {
			return nil, fmt.Errorf("dates[%d]: date is required", i)
		}
		d, err := input.Date(o.Date)
		if err != nil {
			return nil, fmt.Errorf("dates[%d]: %w", i, err)
		}
		if _, dup := dates[d]; dup {
			return nil, fmt.Errorf("dates[%d]: duplicate date %s", i, o.Date)
		}
		hours, err := resolveHours(o.Open, o.Close, o.Closed, fmt.Sprintf("dates[%d]", i))
		if err != nil {
			return nil, err
		}
		dates[d] = hours
	}
	return dates, nil
}

func resolveHours(open, close string, closed bool, prefix string) (model.WorkHours, error) {
	if closed {
		return model.Closed(), nil
	}
	if open == "" {
		return model.WorkHours{}, fmt.Errorf("%s.open is required", prefix)
	}
	if close == "" {
		return model.WorkHours{}, fmt.Errorf("%s.close is required", prefix)
	}

	hours, err := input.WorkHours(open, close)
	if err != nil {
		return model.WorkHours{}, fmt.Errorf("%s: %w", prefix, err)
	}
	return hours, nil
}

// String returns a summary of the configuration.
func (c *HoursConfig) String() string {
	closed := 0
	for _, o := range c.Dates {
		if o.Closed {
			closed++
		}
	}
	return fmt.Sprintf("HoursConfig: %d week entries, %d date overrides (%d closed)",
		len(c.Week), len(c.Dates), closed)
}
