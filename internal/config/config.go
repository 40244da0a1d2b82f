// Package config loads Snarl configuration from file and environment.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/snarlhq/snarl/internal/patterns"
	"github.com/snarlhq/snarl/internal/policy"
	"github.com/snarlhq/snarl/internal/secrets"
)

// DefaultPath is where the CLI looks for configuration when --config is not
// given. A missing file at this path falls back to Default().
const DefaultPath = "configs/snarl.yaml"

// Config holds all application configuration.
type Config struct {
	Graph         GraphConfig         `mapstructure:"graph"`
	Detection     DetectionConfig     `mapstructure:"detection"`
	Policy        policy.GateConfig   `mapstructure:"policy"`
	History       HistoryConfig       `mapstructure:"history"`
	Vector        VectorConfig        `mapstructure:"vector"`
	Temporal      TemporalConfig      `mapstructure:"temporal"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Server        ServerConfig        `mapstructure:"server"`
	Secrets       SecretsConfig       `mapstructure:"secrets"`
}

// GraphConfig selects and configures the graph source.
type GraphConfig struct {
	// Source is "neo4j" or "file".
	Source   string `mapstructure:"source"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// File is the graph document path when Source is "file".
	File string `mapstructure:"file"`
}

// DetectionConfig mirrors patterns.Config with file-friendly field types.
type DetectionConfig struct {
	HubThreshold           int      `mapstructure:"hub_threshold"`
	EnabledPatterns        []string `mapstructure:"enabled_patterns"`
	MinSeverity            string   `mapstructure:"min_severity"`
	IncludeRemediation     bool     `mapstructure:"include_remediation"`
	ExcludedNodeTypes      []string `mapstructure:"excluded_node_types"`
	ExcludedEdgeTypes      []string `mapstructure:"excluded_edge_types"`
	DetectPartialIsolation bool     `mapstructure:"detect_partial_isolation"`
	Roots                  []string `mapstructure:"roots"`
}

// PatternsConfig converts the section into an engine configuration. Unknown
// pattern or severity names pass through unchanged; the engine rejects them
// during validation.
func (d DetectionConfig) PatternsConfig() patterns.Config {
	cfg := patterns.DefaultConfig()
	if d.HubThreshold > 0 {
		cfg.HubThreshold = d.HubThreshold
	}
	if len(d.EnabledPatterns) > 0 {
		cfg.EnabledPatterns = make([]patterns.PatternType, len(d.EnabledPatterns))
		for i, name := range d.EnabledPatterns {
			cfg.EnabledPatterns[i] = patterns.PatternType(name)
		}
	}
	if d.MinSeverity != "" {
		cfg.MinSeverity = patterns.Severity(d.MinSeverity)
	}
	cfg.IncludeRemediation = d.IncludeRemediation
	cfg.ExcludedNodeTypes = append([]string(nil), d.ExcludedNodeTypes...)
	cfg.ExcludedEdgeTypes = append([]string(nil), d.ExcludedEdgeTypes...)
	cfg.DetectPartialIsolation = d.DetectPartialIsolation
	cfg.Roots = append([]string(nil), d.Roots...)
	return cfg
}

// HistoryConfig locates the run history store.
type HistoryConfig struct {
	Dir string `mapstructure:"dir"`
}

// VectorConfig configures the signature archive.
type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

// TemporalConfig configures the workflow client.
type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// ObservabilityConfig configures tracing and audit logging.
type ObservabilityConfig struct {
	// OTLPEndpoint enables trace export when set (e.g. "localhost:4317").
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
	// AuditPath is a file path, "stdout", "stderr", or empty to disable.
	AuditPath string `mapstructure:"audit_path"`
}

// ServerConfig holds listen addresses for the HTTP surfaces.
type ServerConfig struct {
	HealthAddr   string `mapstructure:"health_addr"`
	ExplorerAddr string `mapstructure:"explorer_addr"`
}

// SecretsConfig selects the secrets backend.
type SecretsConfig struct {
	// Provider is "env", "file" or "vault".
	Provider     string `mapstructure:"provider"`
	File         string `mapstructure:"file"`
	VaultAddress string `mapstructure:"vault_address"`
	VaultToken   string `mapstructure:"vault_token"`
	VaultMount   string `mapstructure:"vault_mount"`
	VaultPath    string `mapstructure:"vault_path"`
}

// Manager builds a secrets manager for the configured backend.
func (c SecretsConfig) Manager() (*secrets.Manager, error) {
	scfg := &secrets.Config{
		Provider:  c.Provider,
		EnvPrefix: "SNARL_",
	}
	switch c.Provider {
	case "vault":
		scfg.VaultConfig = &secrets.VaultConfig{
			Address:    c.VaultAddress,
			Token:      c.VaultToken,
			MountPath:  c.VaultMount,
			SecretPath: c.VaultPath,
		}
	case "file":
		scfg.FileConfig = &secrets.FileConfig{Path: c.File}
	}
	return secrets.NewManager(scfg)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Source:   "neo4j",
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
		},
		Detection: DetectionConfig{
			HubThreshold:       patterns.DefaultHubThreshold,
			MinSeverity:        string(patterns.SeverityInfo),
			IncludeRemediation: true,
		},
		Policy:  *policy.DefaultGateConfig(),
		History: HistoryConfig{Dir: ".snarl/history"},
		Vector: VectorConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "snarl_signatures",
		},
		Temporal: TemporalConfig{
			Host:      "localhost:7233",
			Namespace: "default",
			TaskQueue: "snarl-analysis",
		},
		Observability: ObservabilityConfig{
			SampleRatio: 1.0,
			Environment: "development",
		},
		Server: ServerConfig{
			HealthAddr:   ":8085",
			ExplorerAddr: ":8086",
		},
		Secrets: SecretsConfig{Provider: "env"},
	}
}

// Load reads configuration from path, layered over Default and the SNARL_*
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SNARL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for issues and returns warnings. Callers
// print them; none of them block startup.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Graph.Source {
	case "neo4j":
		if c.Graph.URI == "" {
			warnings = append(warnings, "graph source 'neo4j' is configured but uri is empty")
		}
	case "file":
		if c.Graph.File == "" {
			warnings = append(warnings, "graph source 'file' is configured but file path is empty")
		}
	case "":
		warnings = append(warnings, "graph source is empty (expected 'neo4j' or 'file')")
	default:
		warnings = append(warnings, fmt.Sprintf("graph source '%s' is not recognized (expected 'neo4j' or 'file')", c.Graph.Source))
	}

	if c.Detection.HubThreshold < 1 {
		warnings = append(warnings, fmt.Sprintf("detection hub_threshold %d is below 1 and will be rejected", c.Detection.HubThreshold))
	}
	if s := c.Detection.MinSeverity; s != "" && !patterns.Severity(s).Valid() {
		warnings = append(warnings, fmt.Sprintf("detection min_severity '%s' is not a known severity", s))
	}
	for _, name := range c.Detection.EnabledPatterns {
		if _, ok := patterns.ParsePatternType(name); !ok {
			warnings = append(warnings, fmt.Sprintf("detection enabled_patterns contains unknown pattern type '%s'", name))
		}
	}

	if c.Vector.Port < 0 || c.Vector.Port > 65535 {
		warnings = append(warnings, fmt.Sprintf("vector port %d is outside the valid range", c.Vector.Port))
	}

	if r := c.Observability.SampleRatio; r < 0 || r > 1.0 {
		warnings = append(warnings, fmt.Sprintf("observability sample_ratio %.2f is outside [0.0, 1.0]", r))
	}

	switch c.Secrets.Provider {
	case "", "env", "file", "vault":
	default:
		warnings = append(warnings, fmt.Sprintf("secrets provider '%s' is not recognized (expected 'env', 'file' or 'vault')", c.Secrets.Provider))
	}

	return warnings
}

// ResolveCredentials fills credential fields that are still empty after file
// and environment loading by asking the secrets manager. Lookup misses leave
// the fields empty.
func (c *Config) ResolveCredentials(ctx context.Context, mgr *secrets.Manager) {
	if c.Graph.Password == "" {
		c.Graph.Password = mgr.GetOrDefault(ctx, string(secrets.SecretGraphPassword), "")
	}
	if c.Vector.APIKey == "" {
		c.Vector.APIKey = mgr.GetOrDefault(ctx, string(secrets.SecretVectorAPIKey), "")
	}
}
