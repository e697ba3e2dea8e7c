package session

import (
	"time"

	"github.com/voxdeck/voxdeck/internal/nav"
)

// Config collects every tunable of the playback pipeline.
type Config struct {
	// SynthesisEndpoint is the text-to-speech HTTP endpoint.
	SynthesisEndpoint string `yaml:"synthesis_endpoint" mapstructure:"synthesis_endpoint" env:"VOXDECK_SYNTHESIS_ENDPOINT"`

	// Concurrency caps simultaneous prefetch synthesis requests.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" env:"VOXDECK_CONCURRENCY" envDefault:"1"`

	// PrefetchDelay spaces consecutive prefetch requests.
	PrefetchDelay time.Duration `yaml:"prefetch_delay" mapstructure:"prefetch_delay" env:"VOXDECK_PREFETCH_DELAY" envDefault:"500ms"`

	// PrefetchHorizon is how many upcoming items stay warmed.
	PrefetchHorizon int `yaml:"prefetch_horizon" mapstructure:"prefetch_horizon" env:"VOXDECK_PREFETCH_HORIZON" envDefault:"4"`

	// Backoff is the cooldown after a rate-limit signal.
	Backoff time.Duration `yaml:"backoff" mapstructure:"backoff" env:"VOXDECK_BACKOFF" envDefault:"10s"`

	// MinRequestSpacing is the minimum gap between any two synthesis
	// requests, rate-limit or not.
	MinRequestSpacing time.Duration `yaml:"min_request_spacing" mapstructure:"min_request_spacing" env:"VOXDECK_MIN_REQUEST_SPACING" envDefault:"300ms"`

	// AutoPlay starts playback as soon as the session starts.
	AutoPlay bool `yaml:"auto_play" mapstructure:"auto_play" env:"VOXDECK_AUTO_PLAY" envDefault:"true"`

	// ClosingMessage is announced when the presentation finishes.
	// Empty disables the announcement.
	ClosingMessage string `yaml:"closing_message" mapstructure:"closing_message" env:"VOXDECK_CLOSING_MESSAGE" envDefault:"That's the end of this presentation."`

	// Nav holds the navigation timing tunables.
	Nav nav.Config `yaml:"nav" mapstructure:"nav"`
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:       1,
		PrefetchDelay:     500 * time.Millisecond,
		PrefetchHorizon:   4,
		Backoff:           10 * time.Second,
		MinRequestSpacing: 300 * time.Millisecond,
		AutoPlay:          true,
		ClosingMessage:    "That's the end of this presentation.",
		Nav:               nav.DefaultConfig(),
	}
}
