package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "switchgear.json")
	assert.NilError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NilError(t, cfg.Validate())
	assert.Equal(t, cfg.System.Tick(), 2*time.Second)
	assert.Equal(t, cfg.System.HistorySize, 15)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{"System": {"TickMillis": 500}, "NATS": {"Enabled": true}}`))
	assert.NilError(t, err)

	assert.Equal(t, cfg.System.Tick(), 500*time.Millisecond)
	assert.Equal(t, cfg.System.HistorySize, 15)
	assert.Assert(t, cfg.NATS.Enabled)
	assert.Equal(t, cfg.NATS.URL, "nats://127.0.0.1:4222")
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"System": `))
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `{"Addr": ":9000", "Mongo": {"Database": "plant"}}`)

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Addr, ":9000")
	assert.Equal(t, cfg.Mongo.Database, "plant")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Assert(t, os.IsNotExist(err))
}

func TestLoadEnvironmentWins(t *testing.T) {
	path := writeConfig(t, `{"System": {"TickMillis": 500}}`)
	t.Setenv("SWGR_TICK_MILLIS", "250")
	t.Setenv("SWGR_MQTT_ENABLED", "true")

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.System.Tick(), 250*time.Millisecond)
	assert.Assert(t, cfg.MQTT.Enabled)
}

func TestLoadBadEnvironment(t *testing.T) {
	t.Setenv("SWGR_TICK_MILLIS", "soon")

	_, err := Load("")
	assert.ErrorContains(t, err, "parse environment")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.System.TickMillis = 0
	cfg.SQL.Enabled = true
	cfg.SQL.Driver = "sqlite"

	err := cfg.Validate()
	assert.ErrorContains(t, err, "TickMillis")
	assert.ErrorContains(t, err, "sqlite")
	assert.ErrorContains(t, err, "DSN")
}

func TestRoot(t *testing.T) {
	rc := Default().System.Root()
	assert.Equal(t, rc.Tick, 2*time.Second)
	assert.Equal(t, rc.HistorySize, 15)
}
