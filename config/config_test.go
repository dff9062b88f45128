package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, lines []string) string {
	path := filepath.Join(t.TempDir(), "api.conf")
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600)
	require.NoError(t, err)
	return path
}

func requiredLines() []string {
	lines := []string{"[api]"}
	for _, key := range configRequiredStrings {
		lines = append(lines, key+"=value_"+key)
	}
	lines = append(lines,
		DatabasePort+"=5432",
		ListenPort+"=8080",
		MemcachedPort+"=11211",
	)
	return lines
}

func TestLoadRequiredAndDefaults(t *testing.T) {
	applyDefaults()

	err := load(writeConfig(t, requiredLines()))
	require.NoError(t, err)

	assert.Equal(t, "value_"+DatabaseHost, ConfigStrings[DatabaseHost])
	assert.Equal(t, int64(8080), ConfigInt64s[ListenPort])
	assert.Equal(t, int64(3600), ConfigInt64s[DashboardCacheTTL])
	assert.True(t, ConfigBool[StorageUseSSL])
}

func TestLoadOverridesOptional(t *testing.T) {
	applyDefaults()

	lines := append(requiredLines(),
		DashboardCacheTTL+"=120",
		StorageUseSSL+"=false",
		InternalDomain+"=@example.com",
	)
	err := load(writeConfig(t, lines))
	require.NoError(t, err)

	assert.Equal(t, int64(120), ConfigInt64s[DashboardCacheTTL])
	assert.False(t, ConfigBool[StorageUseSSL])
	assert.Equal(t, "@example.com", ConfigStrings[InternalDomain])

	applyDefaults()
}

func TestLoadMissingRequired(t *testing.T) {
	err := load(writeConfig(t, []string{"[api]", Environment + "=dev"}))
	assert.Error(t, err)
}
