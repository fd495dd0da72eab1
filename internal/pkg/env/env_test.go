package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := Env
	Env = values
	t.Cleanup(func() { Env = prev })
}

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	withEnv(t, map[string]string{"GUILDPAY_TEST_KEY": "from-file"})
	t.Setenv("GUILDPAY_TEST_KEY", "from-os")

	assert.Equal(t, "from-file", GetEnv("GUILDPAY_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("GUILDPAY_MISSING_KEY", "def"))
}

func TestGetEnvFallsBackToOS(t *testing.T) {
	withEnv(t, map[string]string{})
	t.Setenv("GUILDPAY_TEST_OS", "os-value")

	assert.Equal(t, "os-value", GetEnv("GUILDPAY_TEST_OS", "def"))
}

func TestGetBool(t *testing.T) {
	withEnv(t, map[string]string{
		"A": "TRUE",
		"B": "0",
		"C": "maybe",
	})

	assert.True(t, GetBool("A", false))
	assert.False(t, GetBool("B", true))
	assert.True(t, GetBool("C", true))
	assert.False(t, GetBool("UNSET_BOOL", false))
}

func TestGetIntAndDuration(t *testing.T) {
	withEnv(t, map[string]string{
		"BATCH":    "40",
		"BAD":      "forty",
		"INTERVAL": "15",
		"TIMEOUT":  "1m30s",
	})

	n, err := GetInt("BATCH", 25)
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	_, err = GetInt("BAD", 25)
	assert.Error(t, err)

	n, err = GetInt("UNSET_INT", 25)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	d, err := GetDuration("INTERVAL", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	d, err = GetDuration("TIMEOUT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}
