package persistence

import (
	"context"
	"fmt"
)

// Pinger is any backing store that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Check names one dependency of a health probe
type Check struct {
	Name   string
	Pinger Pinger
}

// HealthCheck pings every check in order and reports the first failure
func HealthCheck(checks ...Check) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check.Pinger.Ping(ctx); err != nil {
				return fmt.Errorf("%s: %w", check.Name, err)
			}
		}
		return nil
	}
}
