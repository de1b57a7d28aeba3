package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// NetworkProfile is a named set of network and contract identifiers loaded
// from a YAML file (testnet, futurenet, mainnet, or a local quickstart).
type NetworkProfile struct {
	Name              string `yaml:"name" json:"name"`
	SorobanRPCURL     string `yaml:"soroban_rpc_url" json:"soroban_rpc_url"`
	HorizonURL        string `yaml:"horizon_url" json:"horizon_url"`
	NetworkPassphrase string `yaml:"network_passphrase" json:"network_passphrase"`
	FriendbotURL      string `yaml:"friendbot_url,omitempty" json:"friendbot_url,omitempty"`
	ContractID        string `yaml:"contract_id,omitempty" json:"contract_id,omitempty"`
	ExplorerURL       string `yaml:"explorer_url,omitempty" json:"explorer_url,omitempty"`
}

// LoadProfile loads a network profile by name from profilesDir. It searches
// for profile_<name>.yaml.
func LoadProfile(profilesDir, name string) (*NetworkProfile, error) {
	name = strings.ToLower(name)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", name))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}

	var profile NetworkProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}

	if profile.Name == "" {
		profile.Name = name
	}
	if profile.SorobanRPCURL == "" {
		return nil, fmt.Errorf("profile %q: soroban_rpc_url is required", name)
	}
	if profile.NetworkPassphrase == "" {
		return nil, fmt.Errorf("profile %q: network_passphrase is required", name)
	}

	return &profile, nil
}

// Apply overlays the profile's identifiers onto cfg.
func (p *NetworkProfile) Apply(cfg *Config) {
	cfg.SorobanRPCURL = p.SorobanRPCURL
	cfg.NetworkPassphrase = p.NetworkPassphrase
	if p.HorizonURL != "" {
		cfg.HorizonURL = p.HorizonURL
	}
	if p.FriendbotURL != "" {
		cfg.FriendbotURL = p.FriendbotURL
	}
	if p.ContractID != "" {
		cfg.ContractID = p.ContractID
	}
	if p.ExplorerURL != "" {
		cfg.ExplorerURL = p.ExplorerURL
	}
}
