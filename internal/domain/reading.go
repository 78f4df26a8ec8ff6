package domain

import (
	"errors"
	"math"
	"time"
)

// Reading is one timestamped environmental measurement. It is created by the
// collector adapter, consumed read-only by the decision engine, and persisted
// exactly once per evaluation cycle that results in an alert.
type Reading struct {
	ID          int64     `db:"id" json:"id,omitempty"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	Temperature float64   `db:"temperature" json:"temperature"` // °C
	Humidity    float64   `db:"humidity" json:"humidity"`       // %
	RainMM      float64   `db:"rain_mm" json:"rain_mm"`
	Condition   string    `db:"condition_text" json:"condition_text"`
	WindKMH     float64   `db:"wind_kmh" json:"wind_kmh"`
}

// ErrIncompleteReading marks a reading missing a required numeric feature.
// Evaluation of such a reading is abandoned at the boundary; no partial alert
// is ever produced from it.
var ErrIncompleteReading = errors.New("reading is missing a required numeric field")

// Validate checks that the three feature fields are usable numbers. The
// collector encodes an absent upstream field as NaN so the gap survives the
// struct boundary.
func (r Reading) Validate() error {
	for _, v := range []float64{r.Temperature, r.Humidity, r.RainMM} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrIncompleteReading
		}
	}
	return nil
}

// Features returns the model feature vector in its contractual order:
// temperature, humidity, rain.
func (r Reading) Features() []float64 {
	return []float64{r.Temperature, r.Humidity, r.RainMM}
}

// ForecastDay is one entry of the short-horizon daily forecast.
type ForecastDay struct {
	Date      time.Time `json:"date"`
	TempMax   float64   `json:"temp_max"`
	TempMin   float64   `json:"temp_min"`
	Humidity  float64   `json:"humidity"`
	RainMM    float64   `json:"rain_mm"`
	Condition string    `json:"condition"`
}
