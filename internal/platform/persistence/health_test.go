package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("AllHealthy", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		check := HealthCheck(
			Check{Name: "postgres", Pinger: PingFunc(func(context.Context) error { return nil })},
			Check{Name: "redis", Pinger: PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })},
		)
		assert.NoError(t, check(ctx))
	})

	t.Run("ReportsFirstFailure", func(t *testing.T) {
		down := errors.New("connection refused")
		var pinged []string
		ping := func(name string, err error) Pinger {
			return PingFunc(func(context.Context) error {
				pinged = append(pinged, name)
				return err
			})
		}

		err := HealthCheck(
			Check{Name: "postgres", Pinger: ping("postgres", nil)},
			Check{Name: "mongodb", Pinger: ping("mongodb", down)},
			Check{Name: "redis", Pinger: ping("redis", nil)},
		)(ctx)

		require.Error(t, err)
		assert.ErrorIs(t, err, down)
		assert.Contains(t, err.Error(), "mongodb")
		assert.Equal(t, []string{"postgres", "mongodb"}, pinged)
	})
}
