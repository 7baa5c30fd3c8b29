package main

import (
	"gopkg.in/ini.v1"
)

// config holds onecd's own CLI-level defaults, distinct from anything
// the database file format itself carries. Grounded on server/conf's
// ini.v1-backed Cfg (the teacher's own config loader shape), scaled down
// to the handful of settings a CLI front-end needs.
type config struct {
	LogLevel         string
	DefaultPageSize  int
	MaintenanceEvery string
}

func defaultConfig() config {
	return config{LogLevel: "info", DefaultPageSize: 4096, MaintenanceEvery: "@every 1m"}
}

// loadConfig reads path (if non-empty) as an onecd.ini file, overlaying
// values onto the defaults. A missing path is not an error; an
// unparseable one is.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}
	sec := raw.Section("onecd")
	if v := sec.Key("log_level").String(); v != "" {
		cfg.LogLevel = v
	}
	if v := sec.Key("default_page_size").MustInt(0); v != 0 {
		cfg.DefaultPageSize = v
	}
	if v := sec.Key("maintenance_every").String(); v != "" {
		cfg.MaintenanceEvery = v
	}
	return cfg, nil
}
