package planning

import (
	"github.com/hupe1980/skillmesh/config"
)

// NewFromConfig creates a Planner from the planner and audit sections of
// the application configuration. The returned close function releases the
// audit store and is never nil.
func NewFromConfig(k Kernel, cfg config.PlannerConfig, audit config.AuditConfig) (*Planner, func() error, error) {
	closer := func() error { return nil }

	var store AuditStore
	if audit.Enabled {
		if audit.SQLitePath == "" {
			store = NewMemoryAuditStore()
		} else {
			s, err := OpenSQLiteAuditStore(audit.SQLitePath)
			if err != nil {
				return nil, closer, err
			}
			store, closer = s, s.Close
		}
	}

	p, err := New(k, func(o *Options) {
		if cfg.MaxTokens > 0 {
			o.MaxTokens = cfg.MaxTokens
		}
		o.MaxSteps = cfg.MaxSteps
		o.Manual.RelevancyThreshold = cfg.RelevancyThreshold
		if cfg.MaxRelevantFunctions > 0 {
			o.Manual.MaxRelevantFunctions = cfg.MaxRelevantFunctions
		}
		o.Manual.ExcludedSkills = append(o.Manual.ExcludedSkills, cfg.ExcludedSkills...)
		o.Manual.ExcludedFunctions = append(o.Manual.ExcludedFunctions, cfg.ExcludedFunctions...)
		o.Audit = store
	})
	if err != nil {
		_ = closer()
		return nil, func() error { return nil }, err
	}

	return p, closer, nil
}
