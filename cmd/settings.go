package main

import (
	"time"

	"github.com/robfig/config"
)

// demoSection is the [demo] section of the optional config file.
const demoSection = "demo"

// Config file keys
const (
	keyRuns          = "runs"
	keyTTL           = "ttl_ms"
	keyInterval      = "interval_ms"
	keyUpdateTTL     = "update_ttl_ms"
	keyProducerDelay = "producer_delay_ms"
	keyRequestEvery  = "request_every_ms"
)

type settings struct {
	Runs          int
	TTL           time.Duration
	Interval      time.Duration
	UpdateTTL     time.Duration
	ProducerDelay time.Duration
	RequestEvery  time.Duration
}

func defaultSettings() settings {
	return settings{
		Runs:          50,
		TTL:           1000 * time.Millisecond,
		Interval:      100 * time.Millisecond,
		UpdateTTL:     500 * time.Millisecond,
		ProducerDelay: 300 * time.Millisecond,
		RequestEvery:  100 * time.Millisecond,
	}
}

// loadSettings overlays values from the [demo] section of path on the defaults.
// Missing keys keep their default.
func loadSettings(path string) (settings, error) {
	s := defaultSettings()
	if path == "" {
		return s, nil
	}

	c, err := config.ReadDefault(path)
	if err != nil {
		return s, err
	}

	if c.HasOption(demoSection, keyRuns) {
		if s.Runs, err = c.Int(demoSection, keyRuns); err != nil {
			return s, err
		}
	}

	millis := map[string]*time.Duration{
		keyTTL:           &s.TTL,
		keyInterval:      &s.Interval,
		keyUpdateTTL:     &s.UpdateTTL,
		keyProducerDelay: &s.ProducerDelay,
		keyRequestEvery:  &s.RequestEvery,
	}
	for key, dst := range millis {
		if !c.HasOption(demoSection, key) {
			continue
		}
		ms, err := c.Int(demoSection, key)
		if err != nil {
			return s, err
		}
		*dst = time.Duration(ms) * time.Millisecond
	}

	return s, nil
}
