package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (TIMELINEWATCH_*). It respects flags that have been explicitly set
// (changed map). Returns error if any environment variable has an invalid
// format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("script", os.Getenv("TIMELINEWATCH_SCRIPT"), &cfg.Script)
	s.setString("log-level", os.Getenv("TIMELINEWATCH_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("TIMELINEWATCH_LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("frame", os.Getenv("TIMELINEWATCH_FRAME_INTERVAL"), &cfg.FrameInterval); err != nil {
		return err
	}
	if err := s.setDuration("debounce", os.Getenv("TIMELINEWATCH_DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}

	s.setBoolFromString("realtime", os.Getenv("TIMELINEWATCH_REALTIME"), &cfg.Realtime)
	s.setBoolFromString("watch", os.Getenv("TIMELINEWATCH_WATCH"), &cfg.Watch)
	s.setBoolFromString("metrics", os.Getenv("TIMELINEWATCH_METRICS"), &cfg.Metrics)

	return nil
}
