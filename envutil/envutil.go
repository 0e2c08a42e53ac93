// Package envutil reads typed configuration from environment variables, with
// per-context overrides for tests.
package envutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrNotAllowed is returned by OneOf readers for values outside the allowed set.
var ErrNotAllowed = errors.New("value not allowed")

// get returns a Reader for key, preferring a context override.
func get(ctx context.Context, key string) Reader[string] {
	if val, ok := getEnvOverride(ctx, key); ok {
		return Reader[string]{key: key, present: true, value: val}
	}

	val, ok := os.LookupEnv(key)

	return Reader[string]{key: key, present: ok, value: val}
}

func apply[T any](rdr Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// String returns a Reader for the given environment variable key.
func String(ctx context.Context, key string, opts ...Option[string]) Reader[string] {
	return apply(get(ctx, key), opts)
}

// Bool accepts the forms understood by strconv.ParseBool.
func Bool(ctx context.Context, key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(ctx, key), func(s string) (bool, error) {
		return strconv.ParseBool(strings.TrimSpace(s))
	}), opts)
}

// Int reads a base-10 integer.
func Int(ctx context.Context, key string, opts ...Option[int]) Reader[int] {
	return apply(Map(get(ctx, key), func(s string) (int, error) {
		return strconv.Atoi(strings.TrimSpace(s))
	}), opts)
}

// Duration reads a value such as "50ms" or "1m30s".
func Duration(ctx context.Context, key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(get(ctx, key), func(s string) (time.Duration, error) {
		return time.ParseDuration(strings.TrimSpace(s))
	}), opts)
}

// URL reads an absolute URL.
func URL(ctx context.Context, key string, opts ...Option[*url.URL]) Reader[*url.URL] {
	return apply(Map(get(ctx, key), func(s string) (*url.URL, error) {
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}

		if !u.IsAbs() {
			return nil, fmt.Errorf("%w: %q is not absolute", ErrBadEnvVar, s)
		}

		return u, nil
	}), opts)
}

// SlogLevel reads debug, info, warn or error (case insensitive), or a number.
func SlogLevel(ctx context.Context, key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(get(ctx, key), func(s string) (slog.Level, error) {
		var level slog.Level

		err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s))))

		return level, err
	}), opts)
}

// OneOf reads a string that must be one of allowed (case insensitive). The
// result is lower-cased.
func OneOf(ctx context.Context, key string, allowed []string, opts ...Option[string]) Reader[string] {
	return apply(Map(get(ctx, key), func(s string) (string, error) {
		s = strings.ToLower(strings.TrimSpace(s))
		if !slices.Contains(allowed, s) {
			return s, fmt.Errorf("%w: %q (allowed: %s)", ErrNotAllowed, s, strings.Join(allowed, ", "))
		}

		return s, nil
	}), opts)
}

// Positive is a Validate helper for numeric settings such as pool sizes.
func Positive[T int | time.Duration](v T) error {
	if v <= 0 {
		return fmt.Errorf("%w: %v must be positive", ErrNotAllowed, v)
	}

	return nil
}
