package qdrant

import (
	"fmt"
	"strconv"
	"strings"
)

type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"-"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
	VectorDim  int    `yaml:"vector_dim"`
}

type ConfigErrorCode string

const (
	ConfigErrorMissingHost       ConfigErrorCode = "missing_host"
	ConfigErrorInvalidPort       ConfigErrorCode = "invalid_port"
	ConfigErrorMissingCollection ConfigErrorCode = "missing_collection"
	ConfigErrorInvalidVectorDim  ConfigErrorCode = "invalid_vector_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid qdrant config"
	}
	switch e.Code {
	case ConfigErrorMissingHost:
		return "QDRANT_HOST is required"
	case ConfigErrorInvalidPort:
		return fmt.Sprintf("invalid QDRANT_PORT=%q; expected the gRPC port, e.g. 6334", e.Value)
	case ConfigErrorMissingCollection:
		return "QDRANT_COLLECTION is required"
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf("invalid QDRANT_VECTOR_DIM=%q; expected positive integer", e.Value)
	default:
		return "invalid qdrant config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return &ConfigError{Code: ConfigErrorMissingHost}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Code: ConfigErrorInvalidPort, Value: strconv.Itoa(c.Port)}
	}
	if strings.TrimSpace(c.Collection) == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection}
	}
	if c.VectorDim <= 0 {
		return &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: strconv.Itoa(c.VectorDim)}
	}
	return nil
}
