package maestro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestLoadConfigTOML(t *testing.T) {
	file := writeFile(t, "config.toml", `
name = "billing"
node = "node-7"
debug = true

[nats]
url = "nats://broker:4222"
prefix = "billing."

[redis]
addr = "redis:6379"
key = "billing:nodes"
`)

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "billing", cfg.Name)
	assert.Equal(t, "node-7", cfg.Node)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "billing.", cfg.NATS.Prefix)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "billing:nodes", cfg.Redis.Key)
}

func TestLoadConfigJSON(t *testing.T) {
	file := writeFile(t, "config.json", `{"name":"billing","node":"node-7"}`)

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "billing", cfg.Name)
	assert.Equal(t, "node-7", cfg.Node)
}

func TestLoadConfigSniffsFormat(t *testing.T) {
	// no extension: content decides
	file := writeFile(t, "conf", `{"name":"sniffed"}`)

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "sniffed", cfg.Name)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestWithConfigAppliesIdentity(t *testing.T) {
	b := newTestBroker(WithConfig(Config{Name: "billing", Node: "node-7"}))
	assert.Equal(t, "node-7", b.NodeID())
	assert.Equal(t, "billing", b.name)
}

func TestFindConfigFileFromEnv(t *testing.T) {
	t.Setenv("MAESTRO_CONFIG", "/etc/maestro/config.toml")
	assert.Equal(t, "/etc/maestro/config.toml", FindConfigFile())
}

func TestConfigFileFromArgs(t *testing.T) {
	assert.Equal(t, "a.toml", configFileFromArgs([]string{"--config", "a.toml"}))
	assert.Equal(t, "b.toml", configFileFromArgs([]string{"--config=b.toml"}))
	assert.Equal(t, "", configFileFromArgs([]string{"--verbose"}))
	assert.Equal(t, "", configFileFromArgs([]string{"positional"}))
}
