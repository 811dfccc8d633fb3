package cache

import (
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Construction defaults, matching the maxSize and defaultTtlMs options.
const (
	DefaultMaxSize = 100
	DefaultTTL     = 60 * time.Second
)

// Sentinel errors for cache operations.
var (
	ErrInvalidKey       = errors.New("cache: key is invalid")
	ErrKeyTooLong       = errors.New("cache: key exceeds max length")
	ErrUnsupportedValue = errors.New("cache: value cannot be encoded")
)

// Clock supplies the current time. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Stats reports the live size of a cache after an expiry sweep.
type Stats struct {
	Size    int `json:"size"`
	MaxSize int `json:"maxSize"`
}

// FillRatio returns Size/MaxSize, or 0 when MaxSize is unset.
func (s Stats) FillRatio() float64 {
	if s.MaxSize <= 0 {
		return 0
	}
	return float64(s.Size) / float64(s.MaxSize)
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
