package weather

import (
	"fmt"
	"strings"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

const (
	DefaultCriticalVisibilityRatio = 0.5
	DefaultCriticalWindRatio       = 1.5
)

// SeverityThresholds decide when an unsafe snapshot is critical rather than marginal
type SeverityThresholds struct {
	// VisibilityRatio: observed/minimum visibility below this is critical
	VisibilityRatio float64
	// WindRatio: observed/maximum wind above this is critical
	WindRatio float64
}

func DefaultSeverityThresholds() SeverityThresholds {
	return SeverityThresholds{
		VisibilityRatio: DefaultCriticalVisibilityRatio,
		WindRatio:       DefaultCriticalWindRatio,
	}
}

// Evaluator checks snapshots against the minimums table
type Evaluator struct {
	thresholds SeverityThresholds
}

// NewEvaluator builds an evaluator; zero thresholds take the defaults
func NewEvaluator(thresholds SeverityThresholds) *Evaluator {
	if thresholds.VisibilityRatio <= 0 {
		thresholds.VisibilityRatio = DefaultCriticalVisibilityRatio
	}
	if thresholds.WindRatio <= 0 {
		thresholds.WindRatio = DefaultCriticalWindRatio
	}
	return &Evaluator{thresholds: thresholds}
}

// Evaluate decides whether snapshot is flyable at level. Unknown levels are held
// to the strictest row.
func (e *Evaluator) Evaluate(snapshot models.WeatherSnapshot, level models.TrainingLevel) models.SafetyResult {
	mins, err := Minimums(level)
	if err != nil {
		mins = DefaultMinimums[models.TrainingLevelStudent]
	}

	violations := make([]string, 0)

	if snapshot.VisibilityMiles < mins.VisibilityMiles {
		violations = append(violations,
			fmt.Sprintf("Visibility %.1f mi < %g mi minimum", snapshot.VisibilityMiles, mins.VisibilityMiles))
	}
	if mins.CeilingFeet != nil && snapshot.CeilingFeet != nil && *snapshot.CeilingFeet < *mins.CeilingFeet {
		violations = append(violations,
			fmt.Sprintf("Ceiling %g ft < %g ft minimum", *snapshot.CeilingFeet, *mins.CeilingFeet))
	}
	if snapshot.WindSpeedKnots > mins.WindSpeedKnots {
		violations = append(violations,
			fmt.Sprintf("Wind speed %.0f kt > %g kt maximum", snapshot.WindSpeedKnots, mins.WindSpeedKnots))
	}
	if mins.WindGustKnots != nil && snapshot.WindGustKnots != nil && *snapshot.WindGustKnots > *mins.WindGustKnots {
		violations = append(violations,
			fmt.Sprintf("Wind gusts %.0f kt > %g kt maximum", *snapshot.WindGustKnots, *mins.WindGustKnots))
	}
	if !mins.PrecipitationAllowed && HasPrecipitation(snapshot.Conditions) {
		violations = append(violations, "Precipitation not allowed for this training level")
	}
	if HasThunderstorm(snapshot.Conditions) {
		violations = append(violations, "Thunderstorms present - flight not authorized")
	}
	if !mins.IcingAllowed && HasIcing(snapshot) {
		violations = append(violations, "Icing conditions present")
	}

	return models.SafetyResult{
		IsSafe:           len(violations) == 0,
		ViolatedMinimums: violations,
		Severity:         e.severity(snapshot, mins),
	}
}

func (e *Evaluator) severity(snapshot models.WeatherSnapshot, mins WeatherMinimums) models.Severity {
	if HasThunderstorm(snapshot.Conditions) {
		return models.SeverityCritical
	}
	if !mins.IcingAllowed && HasIcing(snapshot) {
		return models.SeverityCritical
	}
	if snapshot.VisibilityMiles/mins.VisibilityMiles < e.thresholds.VisibilityRatio {
		return models.SeverityCritical
	}
	if snapshot.WindSpeedKnots/mins.WindSpeedKnots > e.thresholds.WindRatio {
		return models.SeverityCritical
	}
	return models.SeverityMarginal
}

var precipitationTags = []string{"rain", "snow", "drizzle", "sleet"}

func HasPrecipitation(conditions []string) bool {
	return anyTag(conditions, precipitationTags...)
}

func HasThunderstorm(conditions []string) bool {
	for _, c := range conditions {
		if strings.Contains(strings.ToLower(c), "thunderstorm") {
			return true
		}
	}
	return false
}

// HasIcing is freezing temperature with liquid precipitation
func HasIcing(snapshot models.WeatherSnapshot) bool {
	return snapshot.TemperatureF <= 32 && anyTag(snapshot.Conditions, "rain", "drizzle")
}

func anyTag(conditions []string, tags ...string) bool {
	for _, c := range conditions {
		for _, t := range tags {
			if strings.EqualFold(c, t) {
				return true
			}
		}
	}
	return false
}
