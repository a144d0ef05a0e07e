package qdrant

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Host: "qdrant", Port: 6334, Collection: "case_chunks", VectorDim: 1536}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   ConfigErrorCode
	}{
		{"missing host", func(c *Config) { c.Host = " " }, ConfigErrorMissingHost},
		{"zero port", func(c *Config) { c.Port = 0 }, ConfigErrorInvalidPort},
		{"port too large", func(c *Config) { c.Port = 70000 }, ConfigErrorInvalidPort},
		{"missing collection", func(c *Config) { c.Collection = "" }, ConfigErrorMissingCollection},
		{"negative dim", func(c *Config) { c.VectorDim = -1 }, ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			var cfgErr *ConfigError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) {
				t.Fatalf("want ConfigError got=%v", err)
			}
			if cfgErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, cfgErr.Code)
			}
		})
	}
}
