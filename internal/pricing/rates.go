package pricing

import (
	"errors"
	"fmt"
)

// ServiceKind is the kind of studio session.
type ServiceKind string

const (
	Video ServiceKind = "video"
	Audio ServiceKind = "audio"
)

// MaxCameras is the largest camera setup the studio offers.
const MaxCameras = 3

// Rate is the configuration of one session setup.
type Rate struct {
	Rate        float64 `yaml:"rate" json:"rate"`
	MinHours    int     `yaml:"min_hours" json:"min_hours"`
	Description string  `yaml:"description" json:"description"`
}

// RateCard bundles every price table the studio publishes.
type RateCard struct {
	Video     map[int]Rate `yaml:"video"`
	Audio     Rate         `yaml:"audio"`
	Discounts Schedule     `yaml:"discounts"`
	Package   PackageRates `yaml:"package"`
}

var ErrUnknownSetup = errors.New("unknown session setup")

// DefaultRateCard returns the studio's standard rates.
func DefaultRateCard() RateCard {
	return RateCard{
		Video: map[int]Rate{
			0: {Rate: 1000, MinHours: 3, Description: "Space Rental"},
			1: {Rate: 1500, MinHours: 1, Description: "Single Cam Setup"},
			2: {Rate: 2500, MinHours: 1, Description: "Two Cam Setup"},
			3: {Rate: 3500, MinHours: 2, Description: "Three Cam Setup"},
		},
		Audio:     Rate{Rate: 799, MinHours: 1, Description: "Dubbing / VO"},
		Discounts: append(Schedule(nil), DefaultSchedule...),
		Package:   DefaultPackageRates(),
	}
}

// Lookup resolves the rate for a setup. cameras is ignored for audio.
func (c RateCard) Lookup(kind ServiceKind, cameras int) (Rate, error) {
	switch kind {
	case Audio:
		return c.Audio, nil
	case Video:
		r, ok := c.Video[cameras]
		if !ok {
			return Rate{}, fmt.Errorf("%w: %d cameras", ErrUnknownSetup, cameras)
		}
		return r, nil
	default:
		return Rate{}, fmt.Errorf("%w: kind %q", ErrUnknownSetup, kind)
	}
}

// Validate checks that every setup from 0 to MaxCameras is priced and that the
// discount and package tables are usable.
func (c RateCard) Validate() error {
	for cams := 0; cams <= MaxCameras; cams++ {
		r, ok := c.Video[cams]
		if !ok {
			return fmt.Errorf("video rate for %d cameras is missing", cams)
		}
		if err := r.validate(); err != nil {
			return fmt.Errorf("video %d cameras: %w", cams, err)
		}
	}
	if err := c.Audio.validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := c.Discounts.Validate(); err != nil {
		return err
	}
	for cams := 1; cams <= MaxCameras; cams++ {
		if _, ok := c.Package.Cameras[cams]; !ok {
			return fmt.Errorf("package rates for %d cameras are missing", cams)
		}
	}
	if c.Package.ReelsPerShootHour <= 0 || c.Package.FullLengthPerShootHour <= 0 {
		return errors.New("package per-shoot-hour counts must be positive")
	}
	return nil
}

func (r Rate) validate() error {
	if r.Rate <= 0 {
		return errors.New("rate must be positive")
	}
	if r.MinHours < 1 {
		return errors.New("min_hours must be at least 1")
	}
	if r.Description == "" {
		return errors.New("description is required")
	}
	return nil
}
