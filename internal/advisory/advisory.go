// Package advisory produces the prose travel advisory for a destination.
// Advisories are informational only and never change a Status or a price.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neexbeast/ecobalance/internal/destination"
)

const defaultTimeout = 20 * time.Second

// Advisory is a generated summary of a destination's risk picture.
type Advisory struct {
	Summary         string   `json:"summary"`
	Risks           []string `json:"risks"`
	SignalAnalysis  string   `json:"signal_analysis,omitempty"`
	Recommendation  string   `json:"recommendation"`
	BestAlternative string   `json:"best_alternative,omitempty"`
	Fallback        bool     `json:"fallback"`
}

// Generator turns a prompt into a JSON document.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Cache stores advisories for a destination state.
type Cache interface {
	Get(ctx context.Context, d destination.Destination) (*Advisory, error)
	Set(ctx context.Context, d destination.Destination, a *Advisory) error
}

// Advisor asks a Generator for advisories and falls back to static text on any failure.
type Advisor struct {
	gen     Generator
	cache   Cache
	log     *slog.Logger
	timeout time.Duration
}

// NewAdvisor constructs an Advisor. gen and cache may be nil.
func NewAdvisor(gen Generator, cache Cache, log *slog.Logger) *Advisor {
	if log == nil {
		log = slog.Default()
	}
	return &Advisor{gen: gen, cache: cache, log: log, timeout: defaultTimeout}
}

// Advise returns the advisory for d. alternatives are offered to the model as
// suggestions. It never fails; the result is a fallback when generation does.
func (a *Advisor) Advise(ctx context.Context, d destination.Destination, alternatives []destination.Destination) Advisory {
	if a.gen == nil {
		return Fallback(d)
	}

	if a.cache != nil {
		cached, err := a.cache.Get(ctx, d)
		if err != nil {
			a.log.Warn("advisory cache read failed", "destination", d.ID, "err", err)
		} else if cached != nil {
			return *cached
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.gen.Generate(genCtx, buildPrompt(d, alternatives))
	if err != nil {
		a.log.Warn("advisory generation failed", "destination", d.ID, "err", err)
		return Fallback(d)
	}

	adv, err := parse(raw)
	if err != nil {
		a.log.Warn("advisory response unusable", "destination", d.ID, "err", err)
		return Fallback(d)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, d, &adv); err != nil {
			a.log.Warn("advisory cache write failed", "destination", d.ID, "err", err)
		}
	}
	return adv
}

// Fallback is the neutral advisory shown when no generated one is available.
func Fallback(d destination.Destination) Advisory {
	return Advisory{
		Summary:        fmt.Sprintf("An AI overview of %s is not available right now. The status shown is based on the latest environmental readings.", nameOf(d)),
		Risks:          append([]string(nil), d.LocalSignals...),
		Recommendation: fmt.Sprintf("Current status: %s. Review the local signals before you travel.", d.Status),
		Fallback:       true,
	}
}

func nameOf(d destination.Destination) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

func buildPrompt(d destination.Destination, alternatives []destination.Destination) string {
	m := d.Metrics
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the safety and sustainability of %s, %s.\n", nameOf(d), d.Country)
	b.WriteString("All metrics use raw real-world units. Higher values are generally worse for human health and environmental stress.\n\n")
	b.WriteString("Current metrics:\n")
	fmt.Fprintf(&b, "- Air quality: %g AQI (0-50 good, 51-100 moderate, 151+ unhealthy)\n", m.AirQualityAQI)
	fmt.Fprintf(&b, "- Water quality: %g PPM contaminants (<100 excellent, 100-300 moderate, >500 poor)\n", m.WaterPPM)
	fmt.Fprintf(&b, "- Soil quality: %g PPM pollution\n", m.SoilPPM)
	fmt.Fprintf(&b, "- Noise level: %g dB (<50 quiet, 50-70 moderate, >85 harmful)\n", m.NoiseDB)
	fmt.Fprintf(&b, "- Crowd density: %g people per m2 (<0.5 comfortable, >2.0 crowded)\n", m.CrowdDensity)
	fmt.Fprintf(&b, "- Infrastructure load: %g%% utilization\n", m.InfraLoad)
	fmt.Fprintf(&b, "- Temperature: %g C\n", m.Temperature)
	fmt.Fprintf(&b, "- Eco-stress: %g / 100\n", m.EcoStress)
	fmt.Fprintf(&b, "Current status: %s\n\n", d.Status)

	b.WriteString("Local signals (real-time community alerts):\n")
	for _, s := range d.LocalSignals {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\nExplain what these numbers mean for a traveler's comfort and health.\n")
	if len(alternatives) > 0 {
		names := make([]string, 0, len(alternatives))
		for _, alt := range alternatives {
			names = append(names, nameOf(alt))
		}
		fmt.Fprintf(&b, "Suggest which of these alternatives might be better: %s.\n", strings.Join(names, ", "))
	}
	b.WriteString(`Respond with a JSON object with the keys "summary", "risks" (array of strings), "signal_analysis", "recommendation" and "best_alternative".`)
	return b.String()
}

// parse decodes a model response, tolerating a markdown code fence around it.
func parse(raw string) (Advisory, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return Advisory{}, fmt.Errorf("empty response")
	}

	var adv Advisory
	if err := json.Unmarshal([]byte(s), &adv); err != nil {
		return Advisory{}, fmt.Errorf("decoding advisory: %w", err)
	}
	adv.Summary = strings.TrimSpace(adv.Summary)
	if adv.Summary == "" {
		return Advisory{}, fmt.Errorf("advisory has no summary")
	}
	adv.Fallback = false
	return adv, nil
}
