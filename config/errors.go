package config

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrReadFile is returned when the YAML file cannot be read or parsed.
	ErrReadFile = errors.New("config: read file")
)
