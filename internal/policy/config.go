package policy

import (
	"fmt"

	"github.com/snarlhq/snarl/internal/patterns"
)

// GateConfig defines which gates run and how strict they are. MaxTotal uses
// -1 for "disabled" because a limit of zero is a meaningful policy.
type GateConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	SeverityCeiling string `mapstructure:"severity_ceiling" json:"severity_ceiling"`
	CeilingSeverity string `mapstructure:"ceiling_severity" json:"ceiling_severity"`

	MaxTotal      int    `mapstructure:"max_total" json:"max_total"`
	TotalSeverity string `mapstructure:"total_severity" json:"total_severity"`

	TypeLimits   map[string]int `mapstructure:"type_limits" json:"type_limits,omitempty"`
	TypeSeverity string         `mapstructure:"type_severity" json:"type_severity"`

	FailOnRegression   bool   `mapstructure:"fail_on_regression" json:"fail_on_regression"`
	RegressionSeverity string `mapstructure:"regression_severity" json:"regression_severity"`
}

// DefaultGateConfig returns the default policy: block on critical findings
// and on regressions, leave counts unconstrained.
func DefaultGateConfig() *GateConfig {
	return &GateConfig{
		Enabled:            true,
		SeverityCeiling:    "critical",
		CeilingSeverity:    "critical",
		MaxTotal:           -1,
		TotalSeverity:      "required",
		TypeSeverity:       "required",
		FailOnRegression:   true,
		RegressionSeverity: "required",
	}
}

// parseSeverity converts a string to GateSeverity, defaulting to required.
func parseSeverity(s string) GateSeverity {
	switch s {
	case "critical":
		return SeverityCritical
	case "required":
		return SeverityRequired
	case "advisory":
		return SeverityAdvisory
	default:
		return SeverityRequired
	}
}

// BuildPipeline constructs a gate pipeline from configuration. Unknown
// severity or pattern type names in the config are rejected.
func BuildPipeline(cfg *GateConfig) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultGateConfig()
	}

	p := NewPipeline()
	if !cfg.Enabled {
		return p, nil
	}

	if cfg.SeverityCeiling != "" {
		ceiling, ok := patterns.ParseSeverity(cfg.SeverityCeiling)
		if !ok {
			return nil, fmt.Errorf("unknown severity_ceiling %q", cfg.SeverityCeiling)
		}
		p.AddGate(NewSeverityCeilingGate(ceiling, parseSeverity(cfg.CeilingSeverity)))
	}

	if cfg.MaxTotal >= 0 {
		p.AddGate(NewTotalLimitGate(cfg.MaxTotal, parseSeverity(cfg.TotalSeverity)))
	}

	if len(cfg.TypeLimits) > 0 {
		limits := make(map[patterns.PatternType]int, len(cfg.TypeLimits))
		for name, limit := range cfg.TypeLimits {
			t, ok := patterns.ParsePatternType(name)
			if !ok {
				return nil, fmt.Errorf("unknown pattern type %q in type_limits", name)
			}
			limits[t] = limit
		}
		p.AddGate(NewTypeLimitGate(limits, parseSeverity(cfg.TypeSeverity)))
	}

	if cfg.FailOnRegression {
		p.AddGate(NewRegressionGate(parseSeverity(cfg.RegressionSeverity)))
	}

	return p, nil
}

// FormatReport returns a human-readable gate report.
func FormatReport(result *PipelineResult) string {
	var s string
	s += "╔══════════════════════════════════════════╗\n"
	s += "║        Policy Gate Report                ║\n"
	s += "╠══════════════════════════════════════════╣\n"

	for _, gr := range result.Gates {
		icon := "✓"
		switch gr.Status {
		case GateFailed:
			icon = "✗"
		case GateSkipped:
			icon = "○"
		case GateWarning:
			icon = "⚠"
		}

		severity := ""
		switch gr.Severity {
		case SeverityCritical:
			severity = "[CRITICAL]"
		case SeverityRequired:
			severity = "[REQUIRED]"
		case SeverityAdvisory:
			severity = "[ADVISORY]"
		}

		s += fmt.Sprintf("║ %s %-16s %-10s %s\n", icon, gr.Name, severity, gr.Message)
		for _, d := range gr.Details {
			s += fmt.Sprintf("║   → %s\n", d)
		}
	}

	s += "╠══════════════════════════════════════════╣\n"
	status := "PASSED"
	switch result.Status {
	case GateFailed:
		status = "FAILED"
	case GateWarning:
		status = "PASSED WITH WARNINGS"
	}
	s += fmt.Sprintf("║ Result: %s (%s)\n", status, result.Summary)
	s += "╚══════════════════════════════════════════╝\n"

	return s
}
