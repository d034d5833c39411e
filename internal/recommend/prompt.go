package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/weather"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// Prompt carries everything the generator needs to propose new times
type Prompt struct {
	OriginalTime     time.Time
	DurationMinutes  int
	Location         models.Location
	StudentName      string
	InstructorName   string
	AircraftReg      string
	TrainingLevel    models.TrainingLevel
	Minimums         weather.WeatherMinimums
	ViolatedMinimums []string
	Weather          models.WeatherSnapshot
	Availability     []models.TimeWindow
	Count            int
	EarliestTime     time.Time
	LatestTime       time.Time
}

func optional(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%g %s", *v, unit)
}

// Render formats the prompt as the user message sent to the model
func (p Prompt) Render() string {
	var b strings.Builder

	b.WriteString("You are a flight training scheduler. A flight lesson has been cancelled due to weather.\n\n")

	b.WriteString("Original booking:\n")
	fmt.Fprintf(&b, "- Time: %s\n", p.OriginalTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %d minutes\n", p.DurationMinutes)
	if p.Location.Name != "" {
		fmt.Fprintf(&b, "- Location: %s %s (timezone %s)\n", p.Location.Name, p.Location.Code, p.Location.Timezone)
	}
	if p.StudentName != "" {
		fmt.Fprintf(&b, "- Student: %s (%s)\n", p.StudentName, p.TrainingLevel)
	}
	if p.InstructorName != "" {
		fmt.Fprintf(&b, "- Instructor: %s\n", p.InstructorName)
	}
	if p.AircraftReg != "" {
		fmt.Fprintf(&b, "- Aircraft: %s\n", p.AircraftReg)
	}

	b.WriteString("\nCurrent weather:\n")
	fmt.Fprintf(&b, "- Visibility: %.1f mi (minimum %g)\n", p.Weather.VisibilityMiles, p.Minimums.VisibilityMiles)
	fmt.Fprintf(&b, "- Wind: %.0f kt (maximum %g)\n", p.Weather.WindSpeedKnots, p.Minimums.WindSpeedKnots)
	fmt.Fprintf(&b, "- Ceiling: %s (minimum %s)\n", optional(p.Weather.CeilingFeet, "ft"), optional(p.Minimums.CeilingFeet, "ft"))
	fmt.Fprintf(&b, "- Conditions: %s\n", strings.Join(p.Weather.Conditions, ", "))

	if len(p.ViolatedMinimums) > 0 {
		b.WriteString("\nViolated minimums:\n")
		for _, v := range p.ViolatedMinimums {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}

	if len(p.Availability) > 0 {
		b.WriteString("\nInstructor availability:\n")
		for _, w := range p.Availability {
			fmt.Fprintf(&b, "- %s to %s\n", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
		}
	}

	b.WriteString("\nRequirements:\n")
	fmt.Fprintf(&b, "1. Proposed start between %s and %s\n", p.EarliestTime.Format(time.RFC3339), p.LatestTime.Format(time.RFC3339))
	b.WriteString("2. Must align with instructor availability when listed\n")
	b.WriteString("3. Prefer morning slots\n")
	b.WriteString("4. Consider weather forecast trends\n")

	fmt.Fprintf(&b, "\nReturn JSON {\"options\": [...]} with exactly %d options, each with "+
		"\"proposedTime\" (RFC 3339), \"score\" (0-1) and \"reasoning\".", p.Count)
	return b.String()
}
