// Package inference derives semantic labels and quality measures from the
// segmented movement data: activity flags on staypoints, transport modes on
// triplegs, temporal tracking quality and modal split aggregates.
package inference

import (
	"fmt"
	"time"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
)

// ActivityRule decides whether a staypoint counts as an activity (a stop
// with a purpose) rather than a mere wait.
type ActivityRule func(models.Staypoint) bool

// ActivityConfig holds the activity flagging parameters.
type ActivityConfig struct {
	// TimeThreshold is the minimum dwell duration for the default rule.
	// A staypoint longer than this is an activity.
	TimeThreshold time.Duration

	// Rule replaces the default duration rule when set.
	Rule ActivityRule
}

// Validate fails fast on out-of-range configuration.
func (c ActivityConfig) Validate() error {
	if c.Rule == nil && c.TimeThreshold <= 0 {
		return fmt.Errorf("%w: time_threshold must be positive, got %v", pipeline.ErrInvalidConfig, c.TimeThreshold)
	}
	return nil
}

// CreateActivityFlag sets the Activity field on every staypoint. The input
// is not modified; the returned slice carries the flags. Trip generation
// requires flagged staypoints.
func CreateActivityFlag(sps []models.Staypoint, cfg ActivityConfig) ([]models.Staypoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rule := cfg.Rule
	if rule == nil {
		rule = func(sp models.Staypoint) bool {
			return sp.Duration() > cfg.TimeThreshold
		}
	}
	out := append([]models.Staypoint(nil), sps...)
	for i := range out {
		flag := rule(out[i])
		out[i].Activity = &flag
	}
	return out, nil
}
