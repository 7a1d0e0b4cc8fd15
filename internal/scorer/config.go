// Package scorer turns enrichment signals into a 0-100 outreach score, a
// list of opportunity issues and a priority tier.
package scorer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
)

// DefaultConfig returns the default points table. Maximum points sum to 100.
func DefaultConfig() config.ScoreConfig {
	return config.ScoreConfig{
		SSLPoints:   40,
		NoSSLPoints: 10,
		LoadTimeBands: []config.Band{
			{MaxMs: 500, Points: 40},
			{MaxMs: 1000, Points: 32},
			{MaxMs: 2000, Points: 24},
			{MaxMs: 3000, Points: 16},
			{MaxMs: 5000, Points: 8},
		},
		MetaPoints:        5,
		OGPoints:          3,
		H1Points:          2,
		MobilePoints:      5,
		ContactPagePoints: 3,
		PhonePoints:       2,

		SlowMs:     3000,
		VerySlowMs: 5000,

		HotTier:  80,
		WarmTier: 60,
		CoolTier: 40,

		OldCMSMarkers: []string{
			"wordpress 4.", "wordpress 3.", "joomla 2.", "joomla 1.", "drupal 7", "drupal 6",
		},
	}
}

// MaxPoints returns the highest score the table can award.
func MaxPoints(c config.ScoreConfig) int {
	total := max(c.SSLPoints, c.NoSSLPoints)
	best := 0
	for _, b := range c.LoadTimeBands {
		best = max(best, b.Points)
	}
	total += best
	total += c.MetaPoints + c.OGPoints + c.H1Points
	total += c.MobilePoints
	total += c.ContactPagePoints + c.PhonePoints
	return total
}

// ValidateConfig checks that a ScoreConfig is internally consistent.
func ValidateConfig(c config.ScoreConfig) error {
	var errs []string

	points := map[string]int{
		"ssl_points":          c.SSLPoints,
		"no_ssl_points":       c.NoSSLPoints,
		"meta_points":         c.MetaPoints,
		"og_points":           c.OGPoints,
		"h1_points":           c.H1Points,
		"mobile_points":       c.MobilePoints,
		"contact_page_points": c.ContactPagePoints,
		"phone_points":        c.PhonePoints,
	}
	for _, name := range slices.Sorted(maps.Keys(points)) {
		if points[name] < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	prev := -1
	for i, b := range c.LoadTimeBands {
		if b.Points < 0 {
			errs = append(errs, fmt.Sprintf("load_time_bands[%d].points must be >= 0", i))
		}
		if b.MaxMs <= prev {
			errs = append(errs, fmt.Sprintf("load_time_bands[%d].max_ms must be greater than the previous band", i))
		}
		prev = b.MaxMs
	}

	if total := MaxPoints(c); total > 100 {
		errs = append(errs, fmt.Sprintf("maximum points must be <= 100, got %d", total))
	}

	if c.SlowMs <= 0 || c.VerySlowMs < c.SlowMs {
		errs = append(errs, "slow_ms must be > 0 and <= very_slow_ms")
	}

	if c.CoolTier < 0 || c.CoolTier > c.WarmTier || c.WarmTier > c.HotTier || c.HotTier > 100 {
		errs = append(errs, "tiers must satisfy 0 <= cool_tier <= warm_tier <= hot_tier <= 100")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
