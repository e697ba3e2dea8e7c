package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# text-to-speech synthesis endpoint
# synthesis_endpoint: "https://example.com/api/synthesize"

# start playing as soon as the deck loads
auto_play: true

# how many upcoming slides to keep warmed
prefetch_horizon: 4

# simultaneous prefetch synthesis requests
concurrency: 1

# wait between consecutive prefetch requests
prefetch_delay: "500ms"

# cooldown after the backend reports a rate limit
backoff: "10s"

# minimum gap between any two synthesis requests
min_request_spacing: "300ms"

# spoken when the presentation finishes (empty disables it)
closing_message: "That's the end of this presentation."

# navigation timing
nav:
  # display time for non-narrated slides
  header_duration: "2500ms"
  # pause after narration before advancing
  transition_pause: "400ms"
  # display time when narration never becomes available
  fallback_duration: "6s"
  # quiet period after pausing on the last slide before finishing
  pause_finish_grace: "3s"
  # how often to re-check a pending narration asset
  audio_poll_interval: "250ms"
  # how long to wait for narration before giving up
  audio_wait_max: "8s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the voxdeck config file",
	Long:    paragraph(fmt.Sprintf("\n%s the voxdeck config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("voxdeck config\nvoxdeck config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Voxdeck", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
