package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetters(t *testing.T) {
	t.Setenv("ALUMNET_INT", "42")
	t.Setenv("ALUMNET_BAD_INT", "forty")
	t.Setenv("ALUMNET_FLOAT", "0.25")
	t.Setenv("ALUMNET_DURATION", "90s")
	t.Setenv("ALUMNET_LIST", "a, b,,c ")

	assert.Equal(t, 42, GetIntEnv("ALUMNET_INT", 1))
	assert.Equal(t, 7, GetIntEnv("ALUMNET_BAD_INT", 7))
	assert.Equal(t, 0.25, GetFloatEnv("ALUMNET_FLOAT", 1))
	assert.Equal(t, 90*time.Second, GetDurationEnv("ALUMNET_DURATION", time.Second))
	assert.Equal(t, time.Minute, GetDurationEnv("ALUMNET_MISSING", time.Minute))
	assert.Equal(t, []string{"a", "b", "c"}, GetListEnv("ALUMNET_LIST", nil))
	assert.Equal(t, "fallback", GetEnv("ALUMNET_MISSING", "fallback"))
}

func TestIsProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	assert.True(t, IsProduction())

	t.Setenv("ENV", "staging")
	assert.False(t, IsProduction())
}
