package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"
)

// hoursWatcher tracks the last applied revision of hours.yaml.
type hoursWatcher struct {
	path     string
	lastMod  time.Time
	lastData []byte
	onUpdate func(*HoursConfig)
}

// WatchHours applies hours.yaml through onUpdate and polls it every interval.
// onUpdate runs again only when the file content changes and still validates;
// an invalid edit keeps the previously applied hours.
func WatchHours(ctx context.Context, path string, interval time.Duration, onUpdate func(*HoursConfig)) error {
	if path == "" {
		path = "configs/hours.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	w := &hoursWatcher{path: path, onUpdate: onUpdate}
	if _, err := w.poll(); err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = w.poll()
			}
		}
	}()

	return nil
}

// poll reports whether a new configuration was applied.
func (w *hoursWatcher) poll() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return false, fmt.Errorf("stat hours config: %w", err)
	}
	if w.lastData != nil && info.ModTime().Equal(w.lastMod) {
		return false, nil
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		return false, fmt.Errorf("read hours config: %w", err)
	}
	w.lastMod = info.ModTime()
	if w.lastData != nil && bytes.Equal(data, w.lastData) {
		return false, nil
	}

	cfg, err := parseHoursConfig(data)
	if err != nil {
		return false, err
	}
	w.lastData = data
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
	return true, nil
}
