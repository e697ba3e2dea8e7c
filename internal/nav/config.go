package nav

import "time"

// Config holds the navigation timing tunables.
type Config struct {
	// HeaderDuration is how long non-narrated slides stay on screen
	// while playing.
	HeaderDuration time.Duration `yaml:"header_duration" mapstructure:"header_duration" env:"VOXDECK_HEADER_DURATION" envDefault:"2500ms"`

	// TransitionPause is added after narration before advancing.
	TransitionPause time.Duration `yaml:"transition_pause" mapstructure:"transition_pause" env:"VOXDECK_TRANSITION_PAUSE" envDefault:"400ms"`

	// FallbackDuration is used for narratable slides whose records carry
	// no nominal duration and whose narration never became available.
	FallbackDuration time.Duration `yaml:"fallback_duration" mapstructure:"fallback_duration" env:"VOXDECK_FALLBACK_DURATION" envDefault:"6s"`

	// PauseFinishGrace is the quiet period after a manual pause on the
	// terminal position before the presentation counts as finished.
	PauseFinishGrace time.Duration `yaml:"pause_finish_grace" mapstructure:"pause_finish_grace" env:"VOXDECK_PAUSE_FINISH_GRACE" envDefault:"3s"`

	// AudioPollInterval is how often auto-advance re-checks a pending
	// narration asset.
	AudioPollInterval time.Duration `yaml:"audio_poll_interval" mapstructure:"audio_poll_interval" env:"VOXDECK_AUDIO_POLL_INTERVAL" envDefault:"250ms"`

	// AudioWaitMax bounds how long auto-advance waits for narration
	// before falling back to the nominal duration.
	AudioWaitMax time.Duration `yaml:"audio_wait_max" mapstructure:"audio_wait_max" env:"VOXDECK_AUDIO_WAIT_MAX" envDefault:"8s"`
}

// DefaultConfig returns the standard navigation timings.
func DefaultConfig() Config {
	return Config{
		HeaderDuration:    2500 * time.Millisecond,
		TransitionPause:   400 * time.Millisecond,
		FallbackDuration:  6 * time.Second,
		PauseFinishGrace:  3 * time.Second,
		AudioPollInterval: 250 * time.Millisecond,
		AudioWaitMax:      8 * time.Second,
	}
}
