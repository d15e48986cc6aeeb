// Package config loads and validates the icpw-node demo binary's JSON
// configuration, following the teacher's Init(flagConfigFile)/Keys
// package-global pattern (internal/config/config.go), generalized from
// cluster/metric configuration to node identity and transport settings.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
)

// TransportConfig holds the connection parameters for the node's NATS
// transport, the Go-native equivalent of the teacher's
// pkg/nats.NatsConfig.
type TransportConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	CredsFilePath string `json:"credsFilePath,omitempty"`
}

// NodeConfig holds the demo binary's own identity and ambient
// settings.
type NodeConfig struct {
	GroupID    string `json:"groupId"`
	EdgeNodeID string `json:"edgeNodeId"`
	Namespace  string `json:"namespace,omitempty"`

	Transport TransportConfig `json:"transport"`

	LogLevel    string `json:"logLevel,omitempty"`
	MetricsAddr string `json:"metricsAddr,omitempty"`
	AdminAddr   string `json:"adminAddr,omitempty"`

	// RebirthInterval, if non-empty, is a time.ParseDuration string
	// controlling how often the demo binary's maintenance scheduler
	// triggers a full node rebirth as a self-healing measure against
	// subscribers that missed the original NBIRTH/DBIRTH. Empty disables
	// the periodic rebirth entirely.
	RebirthInterval string `json:"rebirthInterval,omitempty"`
}

// Keys holds the global configuration loaded by Init, following the
// teacher's package-global config variable convention.
var Keys = NodeConfig{
	Namespace:   "spBv1.0",
	LogLevel:    "info",
	MetricsAddr: ":9090",
	AdminAddr:   ":8081",
	Transport: TransportConfig{
		Host: "127.0.0.1",
		Port: 4222,
	},
}

// Init reads flagConfigFile (if it exists; a missing file is not an
// error, matching the teacher's default-config fallback), validates it
// against configSchema, and decodes it over Keys.
func Init(flagConfigFile string) error {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := Validate(configSchema, raw); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return err
	}

	if Keys.GroupID == "" || Keys.EdgeNodeID == "" {
		return errors.New("config: groupId and edgeNodeId are required")
	}
	return nil
}
