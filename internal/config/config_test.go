package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	addr, err := cfg.ProgramAddress()
	require.NoError(t, err)
	assert.Equal(t, DefaultProgramID, addr.String())
}

func TestLoadFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("log_level: debug\ndefault_identity: alice\n"), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "alice", cfg.DefaultIdentity)
	assert.Equal(t, uint64(DefaultLamportsPerByte), cfg.LamportsPerByte)
	assert.Equal(t, DefaultProgramID, cfg.ProgramID)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvIdentity, "bob")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "bob", cfg.DefaultIdentity)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("program_id: nope\n"), 0600))
	_, err := Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{{{"), 0600))
	_, err = Load(dir)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.LamportsPerByte = 10
	cfg.DefaultIdentity = "carol"
	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadKeepsExplicitZeroRate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("lamports_per_byte: 0\n"), 0600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Zero(t, cfg.LamportsPerByte)
	assert.Equal(t, DefaultProgramID, cfg.ProgramID)
}

func TestLoadLamportsPerByteOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("lamports_per_byte: 10\n"), 0600))

	t.Setenv(EnvLamportsPerByte, "25")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), cfg.LamportsPerByte)

	t.Setenv(EnvLamportsPerByte, "-1")
	_, err = Load(dir)
	assert.ErrorContains(t, err, EnvLamportsPerByte)
}
