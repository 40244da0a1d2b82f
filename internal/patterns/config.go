package patterns

// DefaultHubThreshold is the connection count a node may reach before the hub
// detector flags it.
const DefaultHubThreshold = 10

// Config controls one detection pass. Build from DefaultConfig and override;
// a zero Config fails validation.
type Config struct {
	// HubThreshold is the degree sum above which a node counts as a hub.
	// Must be at least 1.
	HubThreshold int `json:"hub_threshold"`
	// EnabledPatterns selects which detectors run. Empty means all.
	EnabledPatterns []PatternType `json:"enabled_patterns,omitempty"`
	// MinSeverity drops findings below this level from the result. Empty
	// keeps everything.
	MinSeverity Severity `json:"min_severity,omitempty"`
	// IncludeRemediation attaches suggested actions to each finding.
	IncludeRemediation bool `json:"include_remediation"`
	// ExcludedNodeTypes removes nodes (and their edges) before detection.
	ExcludedNodeTypes []string `json:"excluded_node_types,omitempty"`
	// ExcludedEdgeTypes removes edges before detection. Nodes left isolated
	// by the removal are not excluded; the orphan detector picks them up.
	ExcludedEdgeTypes []string `json:"excluded_edge_types,omitempty"`
	// DetectPartialIsolation also flags nodes missing only one direction of
	// edges. Off by default: only fully isolated nodes are orphans.
	DetectPartialIsolation bool `json:"detect_partial_isolation"`
	// Roots is the dead-code entry-point set. Empty means infer it as all
	// nodes with no incoming edges.
	Roots []string `json:"roots,omitempty"`
}

// DefaultConfig returns the standard detection configuration: all detectors,
// hub threshold 10, everything at info and above, remediations on.
func DefaultConfig() Config {
	return Config{
		HubThreshold:       DefaultHubThreshold,
		EnabledPatterns:    append([]PatternType(nil), AllPatternTypes...),
		MinSeverity:        SeverityInfo,
		IncludeRemediation: true,
	}
}

// Validate checks the configuration, returning a *ConfigurationError on the
// first problem found.
func (c Config) Validate() error {
	if c.HubThreshold < 1 {
		return newConfigError("hub_threshold", "must be >= 1, got %d", c.HubThreshold)
	}
	for _, t := range c.EnabledPatterns {
		if _, ok := ParsePatternType(string(t)); !ok {
			return newConfigError("enabled_patterns", "unknown pattern type %q", string(t))
		}
	}
	if c.MinSeverity != "" && !c.MinSeverity.Valid() {
		return newConfigError("min_severity", "unknown severity %q", string(c.MinSeverity))
	}
	return nil
}

// enabled reports whether a detector should run under this configuration.
func (c Config) enabled(t PatternType) bool {
	if len(c.EnabledPatterns) == 0 {
		return true
	}
	for _, e := range c.EnabledPatterns {
		if e == t {
			return true
		}
	}
	return false
}
