package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devnetProfile = `
name: SATOR devnet
cluster: devnet
program_id: 5P8REXo8Jqu2ha8uQJRqm2HviKCpLa1sxsoEpLyhZCHf
commitment: finalized
rpc_rps: 5
networking:
  outbound_mode: allowlist
  allowlist:
    - api.devnet.solana.com
`

const plantProfile = `
name: Plant floor (offline)
cluster: custom
program_id: 5P8REXo8Jqu2ha8uQJRqm2HviKCpLa1sxsoEpLyhZCHf
snapshot:
  driver: sqlite
  dsn: file:/var/lib/sator/anchors.db
networking:
  island_mode: true
`

const lockedProfile = `
name: Locked down
code: locked
cluster: mainnet-beta
program_id: 5P8REXo8Jqu2ha8uQJRqm2HviKCpLa1sxsoEpLyhZCHf
networking:
  outbound_mode: denylist
  denylist:
    - api.mainnet-beta.solana.com
`

func writeProfiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"profile_devnet.yaml": devnetProfile,
		"profile_plant.yaml":  plantProfile,
		"profile_prod.yaml":   lockedProfile,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoadProfile_Devnet(t *testing.T) {
	dir := writeProfiles(t)

	p, err := LoadProfile(dir, "DEVNET")
	require.NoError(t, err)
	assert.Equal(t, "SATOR devnet", p.Name)
	assert.Equal(t, "devnet", p.Code)
	assert.False(t, p.IsIslandMode())
	assert.True(t, p.IsAllowed("api.devnet.solana.com"))
	assert.False(t, p.IsAllowed("api.mainnet-beta.solana.com"))

	cfg := &Config{RPCURL: "https://api.mainnet-beta.solana.com", Commitment: "confirmed"}
	require.NoError(t, p.Apply(cfg))
	assert.Equal(t, "https://api.devnet.solana.com", cfg.RPCURL)
	assert.Equal(t, "finalized", cfg.Commitment)
	assert.Equal(t, 5.0, cfg.RPCRate)
	assert.Equal(t, []string{"api.devnet.solana.com"}, cfg.PacketHosts)
	assert.False(t, cfg.Offline())
}

func TestLoadProfile_IslandRequiresSnapshot(t *testing.T) {
	dir := writeProfiles(t)

	p, err := LoadProfile(dir, "plant")
	require.NoError(t, err)
	assert.True(t, p.IsIslandMode())
	assert.False(t, p.IsAllowed("api.devnet.solana.com"))

	cfg := &Config{RPCURL: "https://api.devnet.solana.com"}
	require.NoError(t, p.Apply(cfg))
	assert.True(t, cfg.Offline())
	assert.Equal(t, "file:/var/lib/sator/anchors.db", cfg.SnapshotDSN)

	p.Snapshot.DSN = ""
	assert.Error(t, p.Apply(&Config{}))
}

func TestLoadProfile_DenylistRejectsRPC(t *testing.T) {
	dir := writeProfiles(t)

	p, err := LoadProfile(dir, "prod")
	require.NoError(t, err)
	assert.Equal(t, "locked", p.Code)

	err = p.Apply(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.mainnet-beta.solana.com")
}

func TestLoadProfile_Missing(t *testing.T) {
	_, err := LoadProfile(t.TempDir(), "nowhere")
	assert.Error(t, err)
}

func TestLoadAllProfiles(t *testing.T) {
	dir := writeProfiles(t)

	profiles, err := LoadAllProfiles(dir)
	require.NoError(t, err)
	assert.Len(t, profiles, 3)
	assert.Contains(t, profiles, "devnet")
	assert.Contains(t, profiles, "plant")
	assert.Contains(t, profiles, "locked")
}

func TestResolve_AppliesProfile(t *testing.T) {
	dir := writeProfiles(t)
	for _, k := range []string{"SATOR_RPC_URL", "SATOR_CLUSTER", "SATOR_PROGRAM_ID", "SATOR_COMMITMENT", "SATOR_OFFLINE", "SATOR_SNAPSHOT_DSN"} {
		t.Setenv(k, "")
	}
	t.Setenv("SATOR_PROFILE", "devnet")
	t.Setenv("SATOR_PROFILES_DIR", dir)

	cfg, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "5P8REXo8Jqu2ha8uQJRqm2HviKCpLa1sxsoEpLyhZCHf", cfg.ProgramID)
	assert.Equal(t, "finalized", cfg.Commitment)

	t.Setenv("SATOR_PROFILE", "missing")
	_, err = Resolve()
	assert.Error(t, err)
}
