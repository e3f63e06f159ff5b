package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/explorer"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

// DefaultRPCURLs maps named clusters to their public RPC endpoints.
var DefaultRPCURLs = map[string]string{
	explorer.ClusterMainnet: "https://api.mainnet-beta.solana.com",
	explorer.ClusterDevnet:  "https://api.devnet.solana.com",
	explorer.ClusterTestnet: "https://api.testnet.solana.com",
}

// Config holds process configuration.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	RPCURL     string
	Cluster    string
	ProgramID  string
	Commitment string
	RPCRate    float64
	RPCTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	SnapshotDriver string
	SnapshotDSN    string

	OTelEnabled  bool
	OTelEndpoint string

	Profile     string
	ProfilesDir string

	// PacketHosts lists the http(s) hosts the server may fetch packets from.
	PacketHosts []string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cluster := getenv("SATOR_CLUSTER", explorer.ClusterDevnet)
	rpcURL := os.Getenv("SATOR_RPC_URL")
	if rpcURL == "" {
		rpcURL = DefaultRPCURLs[cluster]
	}
	if os.Getenv("SATOR_OFFLINE") == "true" {
		rpcURL = ""
	}

	return &Config{
		Port:      getenv("PORT", "8080"),
		LogLevel:  getenv("LOG_LEVEL", "INFO"),
		LogFormat: getenv("LOG_FORMAT", "text"),

		RPCURL:     rpcURL,
		Cluster:    cluster,
		ProgramID:  os.Getenv("SATOR_PROGRAM_ID"),
		Commitment: getenv("SATOR_COMMITMENT", "confirmed"),
		RPCRate:    getfloat("SATOR_RPC_RPS", 0),
		RPCTimeout: getduration("SATOR_RPC_TIMEOUT", 10*time.Second),

		RedisAddr:     os.Getenv("SATOR_REDIS_ADDR"),
		RedisPassword: os.Getenv("SATOR_REDIS_PASSWORD"),
		CacheTTL:      getduration("SATOR_CACHE_TTL", 30*time.Second),

		SnapshotDriver: getenv("SATOR_SNAPSHOT_DRIVER", "sqlite"),
		SnapshotDSN:    os.Getenv("SATOR_SNAPSHOT_DSN"),

		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		Profile:     os.Getenv("SATOR_PROFILE"),
		ProfilesDir: getenv("SATOR_PROFILES_DIR", "profiles"),

		PacketHosts: getlist("SATOR_PACKET_HOSTS"),
	}
}

// Resolve loads the environment, overlays SATOR_PROFILE when set, and
// validates the result.
func Resolve() (*Config, error) {
	cfg := Load()
	if cfg.Profile != "" {
		p, err := LoadProfile(cfg.ProfilesDir, cfg.Profile)
		if err != nil {
			return nil, err
		}
		if err := p.Apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields every ledger operation depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.ProgramID == "" {
		errs = append(errs, errors.New("SATOR_PROGRAM_ID is required"))
	} else if _, err := pda.ParsePublicKey(c.ProgramID); err != nil {
		errs = append(errs, fmt.Errorf("SATOR_PROGRAM_ID: %w", err))
	}
	if c.RPCURL == "" && c.SnapshotDSN == "" {
		errs = append(errs, fmt.Errorf("SATOR_RPC_URL or SATOR_SNAPSHOT_DSN is required for cluster %q", c.Cluster))
	}
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("SATOR_COMMITMENT %q is not one of processed, confirmed, finalized", c.Commitment))
	}
	if c.RPCRate < 0 {
		errs = append(errs, errors.New("SATOR_RPC_RPS must not be negative"))
	}
	return errors.Join(errs...)
}

// Offline reports whether cfg reads only from the snapshot store.
func (c *Config) Offline() bool {
	return c.RPCURL == "" && c.SnapshotDSN != ""
}

// Program returns the parsed program id. Call Validate first.
func (c *Config) Program() (pda.PublicKey, error) {
	return pda.ParsePublicKey(c.ProgramID)
}

// ExplorerCluster returns the cluster used for explorer links. Custom
// clusters link through the configured RPC URL.
func (c *Config) ExplorerCluster() explorer.Cluster {
	if c.Cluster == explorer.ClusterCustom {
		return explorer.Cluster{Name: explorer.ClusterCustom, CustomURL: c.RPCURL}
	}
	return explorer.Named(c.Cluster)
}

// SlogLevel maps LogLevel to a slog level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getlist(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getfloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring invalid float setting", "key", key, "value", v)
		return def
	}
	return f
}

func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", v)
		return def
	}
	return d
}
