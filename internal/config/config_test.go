package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SF_JWT_KEY", "k")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8443", cfg.Addr)
	require.Equal(t, 24*time.Hour, cfg.InviteTTL)
	require.Equal(t, 30*24*time.Hour, cfg.MaxInviteTTL)
	require.Equal(t, 100, cfg.CascadePageSize)
	require.Equal(t, uint64(5), cfg.CascadePageTries)
	require.Equal(t, "@every 5m", cfg.SweepInvites)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DotenvAndOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SF_ADDR=:9000\nSF_INVITE_TTL=2h\nSF_CASCADE_PAGE_SIZE=7\n"), 0o600))
	t.Setenv("SF_ADDR", ":7000")
	t.Setenv("SF_INVITE_TTL", "")
	t.Setenv("SF_CASCADE_PAGE_SIZE", "")
	os.Unsetenv("SF_INVITE_TTL")
	os.Unsetenv("SF_CASCADE_PAGE_SIZE")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Addr, "environment wins over the file")
	require.Equal(t, 2*time.Hour, cfg.InviteTTL)
	require.Equal(t, 7, cfg.CascadePageSize)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("SF_REDEEM_WINDOW", "soon")
	_, err := Load("")
	require.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	cfg := Config{ExportBackend: "s3", InviteTTL: time.Hour, MaxInviteTTL: time.Minute}
	err := cfg.Validate()
	require.ErrorContains(t, err, "SF_JWT_KEY")
	require.ErrorContains(t, err, "SF_S3_BUCKET")
	require.ErrorContains(t, err, "max ttl")

	cfg = Config{JWTKey: "k", ExportBackend: "ftp"}
	require.ErrorContains(t, cfg.Validate(), "unknown export backend")
}
