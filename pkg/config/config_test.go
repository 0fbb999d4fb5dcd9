package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ADMIN_BOOKING_POLICY", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "pending", cfg.Booking.AdminPolicy)
	assert.Equal(t, 120, cfg.RateLimit.PerMinute)
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "9090")

	assert.Equal(t, ":9090", Load().HTTPAddr)
}

func TestLoad_NormalizesCase(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("ADMIN_BOOKING_POLICY", "DENY")

	cfg := Load()
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "deny", cfg.Booking.AdminPolicy)
}

func TestEnvList_TrimsAndSkipsEmpty(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,http://b.example:5173,")

	got := envList("ALLOWED_ORIGINS", "")
	assert.Equal(t, []string{"https://a.example", "http://b.example:5173"}, got)
}

func TestEnvInt_BadValueFallsBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "lots")
	assert.Equal(t, 7, envInt("RATE_LIMIT_BURST", 7))
}
