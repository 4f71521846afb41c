// Package pricing computes the minimum price of a trip and validates what a
// traveller chooses to contribute against it.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/neexbeast/ecobalance/internal/destination"
)

// ErrInvalidQuote is returned for quotes that cannot be priced.
var ErrInvalidQuote = errors.New("invalid quote")

// ComfortTier is the travel comfort level picked for a booking.
type ComfortTier string

const (
	TierStandard  ComfortTier = "Standard"
	TierPremium   ComfortTier = "Premium"
	TierEcoLuxury ComfortTier = "Eco-Luxury"
)

// Config holds the pricing constants. All amounts are in the smallest display
// unit of the configured currency.
type Config struct {
	CurrencyScale     int64
	EcoRatePerPoint   float64
	PlatformSurcharge int64
	TaxRate           float64
	TierMultipliers   map[ComfortTier]float64
}

// DefaultConfig returns the documented constants. Every tier prices the same
// base until multipliers are configured.
func DefaultConfig() Config {
	return Config{
		CurrencyScale:     1,
		EcoRatePerPoint:   250,
		PlatformSurcharge: 500,
		TaxRate:           0.18,
		TierMultipliers: map[ComfortTier]float64{
			TierStandard:  1.0,
			TierPremium:   1.0,
			TierEcoLuxury: 1.0,
		},
	}
}

// Breakdown is an itemised price. Base + EcoAdjustment + PlatformSurcharge + Tax == Total.
type Breakdown struct {
	Base              int64 `json:"base"`
	EcoAdjustment     int64 `json:"eco_adjustment"`
	PlatformSurcharge int64 `json:"platform_surcharge"`
	Tax               int64 `json:"tax"`
	Total             int64 `json:"total"`
}

// Engine prices trips with a fixed Config.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine. Missing tier multipliers fall back to the defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.CurrencyScale <= 0 {
		cfg.CurrencyScale = 1
	}
	if len(cfg.TierMultipliers) == 0 {
		cfg.TierMultipliers = DefaultConfig().TierMultipliers
	}
	return &Engine{cfg: cfg}
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	c := e.cfg
	c.TierMultipliers = make(map[ComfortTier]float64, len(e.cfg.TierMultipliers))
	for k, v := range e.cfg.TierMultipliers {
		c.TierMultipliers[k] = v
	}
	return c
}

// maxAmount bounds every line so the int64 arithmetic below cannot overflow.
const maxAmount = float64(1 << 62)

func amount(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v >= maxAmount {
		return 0, false
	}
	return int64(v), true
}

// Price computes the breakdown for a trip to dest.
//
// Lines are kept unrounded until the total. Base and EcoAdjustment are
// reported floored and the tax line absorbs the remainder, so the breakdown
// always sums to Total and Tax is never negative.
func (e *Engine) Price(dest destination.Destination, travelers, durationDays int, tier ComfortTier) (Breakdown, error) {
	if travelers < 1 {
		return Breakdown{}, fmt.Errorf("%w: travelers must be at least 1, got %d", ErrInvalidQuote, travelers)
	}
	if durationDays < 1 {
		return Breakdown{}, fmt.Errorf("%w: duration must be at least 1 day, got %d", ErrInvalidQuote, durationDays)
	}
	mult, ok := e.cfg.TierMultipliers[tier]
	if !ok {
		return Breakdown{}, fmt.Errorf("%w: unknown comfort tier %q", ErrInvalidQuote, tier)
	}
	if math.IsNaN(mult) || mult < 0 {
		return Breakdown{}, fmt.Errorf("%w: bad multiplier for tier %q", ErrInvalidQuote, tier)
	}
	if dest.BaseCostPerDay < 0 {
		return Breakdown{}, fmt.Errorf("%w: negative base cost for %s", ErrInvalidQuote, dest.ID)
	}

	ecoStress := dest.Metrics.EcoStress
	if math.IsNaN(ecoStress) || ecoStress < 0 {
		ecoStress = 0
	}

	base := float64(dest.BaseCostPerDay) * float64(travelers) * float64(durationDays) * float64(e.cfg.CurrencyScale) * mult
	eco := ecoStress * e.cfg.EcoRatePerPoint
	platform := float64(e.cfg.PlatformSurcharge)
	subtotal := base + eco + platform
	tax := subtotal * e.cfg.TaxRate

	baseLine, okBase := amount(math.Floor(base))
	ecoLine, okEco := amount(math.Floor(eco))
	total, okTotal := amount(math.Round(subtotal + tax))
	if !okBase || !okEco || !okTotal || e.cfg.PlatformSurcharge < 0 {
		return Breakdown{}, fmt.Errorf("%w: price for %s is out of range", ErrInvalidQuote, dest.ID)
	}

	b := Breakdown{
		Base:              baseLine,
		EcoAdjustment:     ecoLine,
		PlatformSurcharge: e.cfg.PlatformSurcharge,
		Total:             total,
	}
	b.Tax = b.Total - b.Base - b.EcoAdjustment - b.PlatformSurcharge
	return b, nil
}

// ParseTier converts s into a ComfortTier known to the engine.
func (e *Engine) ParseTier(s string) (ComfortTier, bool) {
	t := ComfortTier(s)
	_, ok := e.cfg.TierMultipliers[t]
	return t, ok
}
