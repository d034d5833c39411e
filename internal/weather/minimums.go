package weather

import (
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

var ErrUnknownTrainingLevel = errors.New("unknown training level")

// WeatherMinimums is the set of limits a training level may fly in.
// Nil Ceiling or WindGust means the limit does not apply.
type WeatherMinimums struct {
	VisibilityMiles      float64
	CeilingFeet          *float64
	WindSpeedKnots       float64
	WindGustKnots        *float64
	PrecipitationAllowed bool
	IcingAllowed         bool
}

func limit(v float64) *float64 { return &v }

// DefaultMinimums is the static minimums table keyed by training level
var DefaultMinimums = map[models.TrainingLevel]WeatherMinimums{
	models.TrainingLevelStudent: {
		VisibilityMiles:      5,
		CeilingFeet:          limit(3000),
		WindSpeedKnots:       10,
		WindGustKnots:        limit(15),
		PrecipitationAllowed: false,
		IcingAllowed:         true,
	},
	models.TrainingLevelPrivate: {
		VisibilityMiles:      3,
		CeilingFeet:          limit(1000),
		WindSpeedKnots:       20,
		WindGustKnots:        limit(25),
		PrecipitationAllowed: true,
		IcingAllowed:         true,
	},
	models.TrainingLevelInstrument: {
		VisibilityMiles:      1,
		CeilingFeet:          limit(200),
		WindSpeedKnots:       30,
		WindGustKnots:        limit(35),
		PrecipitationAllowed: true,
		IcingAllowed:         false,
	},
}

// Minimums returns the row for level
func Minimums(level models.TrainingLevel) (WeatherMinimums, error) {
	m, ok := DefaultMinimums[level]
	if !ok {
		return WeatherMinimums{}, fmt.Errorf("%w: %q", ErrUnknownTrainingLevel, level)
	}
	return m, nil
}
