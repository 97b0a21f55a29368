package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
)

func testPostgresConfig() config.Postgres {
	return config.Postgres{
		Host:            "db.local",
		Port:            6543,
		User:            "pos",
		Password:        "p@ss:w/rd",
		DB:              "event_pos",
		SSLMode:         "disable",
		MaxConns:        7,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
		LockTimeout:     1500 * time.Millisecond,
		AppName:         "posctl",
	}
}

func TestNewPoolConfig(t *testing.T) {
	t.Run("Should escape credentials", func(t *testing.T) {
		pgConf, err := newPoolConfig(testPostgresConfig())
		require.NoError(t, err)

		assert.Equal(t, "db.local", pgConf.ConnConfig.Host)
		assert.Equal(t, uint16(6543), pgConf.ConnConfig.Port)
		assert.Equal(t, "pos", pgConf.ConnConfig.User)
		assert.Equal(t, "p@ss:w/rd", pgConf.ConnConfig.Password)
		assert.Equal(t, "event_pos", pgConf.ConnConfig.Database)
	})

	t.Run("Should set session parameters", func(t *testing.T) {
		pgConf, err := newPoolConfig(testPostgresConfig())
		require.NoError(t, err)

		assert.Equal(t, "1500", pgConf.ConnConfig.RuntimeParams["lock_timeout"])
		assert.Equal(t, "posctl", pgConf.ConnConfig.RuntimeParams["application_name"])
		assert.NotNil(t, pgConf.ConnConfig.Tracer)
	})

	t.Run("Should leave lock timeout unset when zero", func(t *testing.T) {
		cfg := testPostgresConfig()
		cfg.LockTimeout = 0

		pgConf, err := newPoolConfig(cfg)
		require.NoError(t, err)

		_, ok := pgConf.ConnConfig.RuntimeParams["lock_timeout"]
		assert.False(t, ok)
	})

	t.Run("Should apply pool limits", func(t *testing.T) {
		pgConf, err := newPoolConfig(testPostgresConfig())
		require.NoError(t, err)

		assert.Equal(t, int32(7), pgConf.MaxConns)
		assert.Equal(t, int32(2), pgConf.MinConns)
		assert.Equal(t, time.Hour, pgConf.MaxConnLifetime)
		assert.Equal(t, time.Minute, pgConf.MaxConnIdleTime)
	})
}
