package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClusterProfile is a named deployment target: which ledger to read, under
// which program, and what the process may reach on the network.
type ClusterProfile struct {
	Name       string           `yaml:"name" json:"name"`
	Code       string           `yaml:"code" json:"code"`
	Cluster    string           `yaml:"cluster" json:"cluster"`
	RPCURL     string           `yaml:"rpc_url,omitempty" json:"rpc_url,omitempty"`
	ProgramID  string           `yaml:"program_id" json:"program_id"`
	Commitment string           `yaml:"commitment,omitempty" json:"commitment,omitempty"`
	RPCRate    float64          `yaml:"rpc_rps,omitempty" json:"rpc_rps,omitempty"`
	Snapshot   SnapshotConfig   `yaml:"snapshot,omitempty" json:"snapshot,omitempty"`
	Networking NetworkingConfig `yaml:"networking" json:"networking"`
}

// SnapshotConfig points at an offline account mirror.
type SnapshotConfig struct {
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// NetworkingConfig controls outbound networking policy.
type NetworkingConfig struct {
	OutboundMode string   `yaml:"outbound_mode" json:"outbound_mode"` // "allowlist" | "denylist" | "island"
	Allowlist    []string `yaml:"allowlist,omitempty" json:"allowlist,omitempty"`
	Denylist     []string `yaml:"denylist,omitempty" json:"denylist,omitempty"`
	IslandMode   bool     `yaml:"island_mode" json:"island_mode"` // no outbound at all; snapshot only
}

// LoadProfile loads profile_<code>.yaml from profilesDir.
func LoadProfile(profilesDir, code string) (*ClusterProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile ClusterProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}

	return &profile, nil
}

// LoadAllProfiles loads all profile_*.yaml files from profilesDir, keyed by code.
func LoadAllProfiles(profilesDir string) (map[string]*ClusterProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*ClusterProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile ClusterProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			// profile_devnet.yaml -> devnet
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

// IsIslandMode returns true if the profile blocks all outbound networking.
func (p *ClusterProfile) IsIslandMode() bool {
	return p.Networking.IslandMode || p.Networking.OutboundMode == "island"
}

// IsAllowed checks if a hostname is allowed by the networking policy.
func (p *ClusterProfile) IsAllowed(hostname string) bool {
	if p.IsIslandMode() {
		return false
	}

	switch p.Networking.OutboundMode {
	case "allowlist":
		for _, h := range p.Networking.Allowlist {
			if h == hostname {
				return true
			}
		}
		return false
	case "denylist":
		for _, h := range p.Networking.Denylist {
			if h == hostname {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Apply overlays the non-empty profile fields onto cfg. It fails when the
// resulting RPC endpoint is not reachable under the profile's networking
// policy, or when an island profile has no snapshot source.
func (p *ClusterProfile) Apply(cfg *Config) error {
	if p.Cluster != "" {
		cfg.Cluster = p.Cluster
		if p.RPCURL == "" {
			if def, ok := DefaultRPCURLs[p.Cluster]; ok {
				cfg.RPCURL = def
			}
		}
	}
	overlay(&cfg.RPCURL, p.RPCURL)
	overlay(&cfg.ProgramID, p.ProgramID)
	overlay(&cfg.Commitment, p.Commitment)
	overlay(&cfg.SnapshotDriver, p.Snapshot.Driver)
	overlay(&cfg.SnapshotDSN, p.Snapshot.DSN)
	if p.RPCRate > 0 {
		cfg.RPCRate = p.RPCRate
	}
	if p.Networking.OutboundMode == "allowlist" && !p.IsIslandMode() {
		cfg.PacketHosts = append(cfg.PacketHosts, p.Networking.Allowlist...)
	}

	if p.IsIslandMode() {
		if cfg.SnapshotDSN == "" {
			return fmt.Errorf("profile %q is island mode but has no snapshot dsn", p.Code)
		}
		cfg.RPCURL = ""
		return nil
	}
	u, err := url.Parse(cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("profile %q rpc url: %w", p.Code, err)
	}
	if !p.IsAllowed(u.Hostname()) {
		return fmt.Errorf("profile %q does not allow outbound to %s", p.Code, u.Hostname())
	}
	return nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
