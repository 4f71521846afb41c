package destination

import "math"

// Status is the risk classification of a destination, ordered by severity.
type Status string

const (
	StatusRecommended    Status = "Recommended"
	StatusCaution        Status = "Caution Advised"
	StatusRisky          Status = "Risky"
	StatusNotRecommended Status = "Not Recommended"
)

// Severity returns 0 for Recommended up to 3 for Not Recommended, -1 for unknown values.
func (s Status) Severity() int {
	switch s {
	case StatusRecommended:
		return 0
	case StatusCaution:
		return 1
	case StatusRisky:
		return 2
	case StatusNotRecommended:
		return 3
	}
	return -1
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool { return s.Severity() >= 0 }

// MaxStress is the top of the stress scale shared by NoiseDB, SoilPPM and EcoStress
// on the live destination.
const MaxStress = 100

// ClampStress bounds v to [0, MaxStress]. NaN becomes 0.
func ClampStress(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > MaxStress:
		return MaxStress
	}
	return v
}

// MetricSet holds the environmental readings for one destination.
// EcoStress is always on a 0-100 scale; raw physical fields are unbounded.
type MetricSet struct {
	AirQualityAQI float64 `json:"air_quality_aqi"`
	WaterPPM      float64 `json:"water_ppm"`
	SoilPPM       float64 `json:"soil_ppm"`
	NoiseDB       float64 `json:"noise_db"`
	CrowdDensity  float64 `json:"crowd_density"`
	InfraLoad     float64 `json:"infra_load"`
	Temperature   float64 `json:"temperature"`
	EcoStress     float64 `json:"eco_stress"`
}

// Guide is a local tour guide that can be assigned to a booking.
type Guide struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	Languages               []string `json:"languages"`
	PricePerDay             int64    `json:"price_per_day"`
	SustainabilityCertified bool     `json:"sustainability_certified"`
	PremiumOnly             bool     `json:"premium_only,omitempty"`
}

// Destination is a travel destination with its current risk picture.
type Destination struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Country        string    `json:"country"`
	Description    string    `json:"description"`
	Tags           []string  `json:"tags,omitempty"`
	Metrics        MetricSet `json:"metrics"`
	Status         Status    `json:"status"`
	LocalSignals   []string  `json:"local_signals"`
	BaseCostPerDay int64     `json:"base_cost_per_day"`
	Live           bool      `json:"live"`
	LastSync       string    `json:"last_sync,omitempty"`
	Guides         []Guide   `json:"guides,omitempty"`
}

// FindGuide returns the guide with the given id.
func (d Destination) FindGuide(id string) (Guide, bool) {
	for _, g := range d.Guides {
		if g.ID == id {
			return g, true
		}
	}
	return Guide{}, false
}

// clone returns a deep copy so seed state cannot be mutated through a returned value.
func (d Destination) clone() Destination {
	c := d
	c.Tags = append([]string(nil), d.Tags...)
	c.LocalSignals = append([]string(nil), d.LocalSignals...)
	if d.Guides != nil {
		c.Guides = make([]Guide, len(d.Guides))
		for i, g := range d.Guides {
			g.Languages = append([]string(nil), g.Languages...)
			c.Guides[i] = g
		}
	}
	return c
}

// MetricsUpdate is the subset of live readings reported by the sensor feed.
type MetricsUpdate struct {
	NoiseDB      float64  `json:"noise_db"`
	SoilPPM      float64  `json:"soil_ppm"`
	EcoStress    float64  `json:"eco_stress"`
	Status       Status   `json:"status"`
	LastSync     string   `json:"last_sync"`
	LocalSignals []string `json:"local_signals"`
}

// Apply overlays the live fields onto d. Air quality, water, crowd density,
// infrastructure load and temperature have no live source and are kept.
func (u MetricsUpdate) Apply(d Destination) Destination {
	out := d.clone()
	out.Metrics.NoiseDB = ClampStress(u.NoiseDB)
	out.Metrics.SoilPPM = ClampStress(u.SoilPPM)
	out.Metrics.EcoStress = ClampStress(u.EcoStress)
	out.Status = u.Status
	out.LocalSignals = append([]string(nil), u.LocalSignals...)
	out.LastSync = u.LastSync
	return out
}
