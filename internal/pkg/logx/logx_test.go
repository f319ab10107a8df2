package logx

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeIP(t *testing.T) {
	tests := map[string]string{
		"203.0.113.57:5000":         "203.0.113.0",
		"203.0.113.57":              "203.0.113.0",
		"[2001:db8:abcd:12::1]:443": "2001:db8:abcd::",
		"[::ffff:198.51.100.9]:80":  "198.51.100.0",
		"127.0.0.1:8080":            "127.0.0.1",
		"not-an-ip":                 "unknown_ip",
		"":                          "unknown_ip",
	}

	for in, want := range tests {
		require.Equal(t, want, anonymizeIP(in), in)
	}
}

func TestInitGlobalLogger_Levels(t *testing.T) {
	req := require.New(t)
	t.Cleanup(func() { _ = InitGlobalLogger(false, "") })

	req.NoError(InitGlobalLogger(false, ""))
	req.Equal(zerolog.InfoLevel, log.Logger.GetLevel())

	req.NoError(InitGlobalLogger(true, ""))
	req.Equal(zerolog.DebugLevel, log.Logger.GetLevel())

	req.NoError(InitGlobalLogger(false, "warn"))
	req.Equal(zerolog.WarnLevel, log.Logger.GetLevel())

	req.Error(InitGlobalLogger(false, "loud"))
}
