package config

import (
	"fmt"
	"time"
)

// Validate checks a loaded config for problems that would break a campaign
// run. It returns all findings rather than stopping at the first.
func Validate(cfg *CampaignConfig) []error {
	var errs []error
	c := &cfg.Campaign

	if c.Name == "" {
		errs = append(errs, fmt.Errorf("campaign.name is required"))
	}
	if len(c.Phases) == 0 {
		errs = append(errs, fmt.Errorf("campaign.phases must not be empty"))
	}

	seen := map[string]bool{}
	for _, p := range c.Phases {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("phase with empty id"))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("duplicate phase id %q", p.ID))
		}
		seen[p.ID] = true
	}

	for name, tool := range c.Tools {
		if tool.Command == "" {
			errs = append(errs, fmt.Errorf("tool %q has no command", name))
		}
		if tool.Timeout != "" {
			if _, err := time.ParseDuration(tool.Timeout); err != nil {
				errs = append(errs, fmt.Errorf("tool %q: invalid timeout %q", name, tool.Timeout))
			}
		}
	}

	if c.Safety.MonitorInterval != "" {
		if _, err := time.ParseDuration(c.Safety.MonitorInterval); err != nil {
			errs = append(errs, fmt.Errorf("safety.monitor_interval: invalid duration %q", c.Safety.MonitorInterval))
		}
	}

	return errs
}
