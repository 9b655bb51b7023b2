package scanner_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 15*time.Minute, cfg.Scan.Tick)
	require.True(t, cfg.Scan.NotifyEnabled)
	require.Equal(t, "email", cfg.Scan.NotifyMethod)
	require.Equal(t, ":8082", cfg.Scan.MetricsAddr)

	require.Equal(t, int32(10), cfg.DB.MaxConns)
	require.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)

	require.Equal(t, "localhost:1025", cfg.SMTP.Addr)
	require.Equal(t, 5*time.Second, cfg.SMTP.Timeout)

	require.False(t, cfg.OTEL.Enable)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("testdata/nope.yaml")
	require.NoError(t, err)
	require.Equal(t, "Dripgate", cfg.Scan.SiteName)
}
