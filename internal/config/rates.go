package config

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"studiobook/internal/pricing"
)

// LoadRates reads a rate card YAML file. Sections left out of the file keep the
// studio's default rates.
func LoadRates(path string) (*pricing.RateCard, error) {
	if path == "" {
		path = "configs/rates.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}

	card := pricing.DefaultRateCard()
	if err := yaml.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}

	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("validate rates: %w", err)
	}
	return &card, nil
}

// LiveRates holds the rate card currently offered to new carts.
type LiveRates struct {
	v atomic.Pointer[pricing.RateCard]
}

// NewLiveRates starts with card.
func NewLiveRates(card pricing.RateCard) *LiveRates {
	l := &LiveRates{}
	l.Set(&card)
	return l
}

// Current returns the active rate card.
func (l *LiveRates) Current() pricing.RateCard {
	return *l.v.Load()
}

func (l *LiveRates) Set(card *pricing.RateCard) {
	l.v.Store(card)
}
