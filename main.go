// Package main provides the entry point for the voxdeck CLI, a narrated
// slideshow player: it loads a slide deck, keeps narration audio warmed
// ahead of the displayed slide, and auto-advances in sync with playback.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/voxdeck/voxdeck/internal/audio"
	"github.com/voxdeck/voxdeck/internal/narrate"
	"github.com/voxdeck/voxdeck/internal/session"
	"github.com/voxdeck/voxdeck/internal/slide"
	"github.com/voxdeck/voxdeck/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	endpoint   string
	autoPlay   bool
	headless   bool
	debug      bool

	keyword = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}).
		Render

	paragraph = lipgloss.NewStyle().
			Width(78).
			Padding(0, 0, 0, 2).
			Render

	rootCmd = &cobra.Command{
		Use:   "voxdeck [DECK]",
		Short: "Play a narrated slideshow from a JSON deck",
		Long: paragraph(fmt.Sprintf("\nPlay a slide deck %s: audio is cached and "+
			"prefetched ahead of the displayed slide, and slides auto-advance as "+
			"each narration finishes.", keyword("with narration"))),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			if configFile != "" {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("read config: %w", err)
				}
				return nil
			}
			tryLoadConfigFromDefaultPlaces()
			return nil
		},
	}
)

// loadConfig layers defaults, the viper config file, environment
// variables, and flags, in that order.
func loadConfig() (session.Config, error) {
	cfg := session.DefaultConfig()

	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if endpoint != "" {
		cfg.SynthesisEndpoint = endpoint
	}
	if rootCmd.Flags().Changed("autoplay") {
		cfg.AutoPlay = autoPlay
	}
	return cfg, nil
}

// deckFromArg opens the deck source: a path (with ~ expansion), or
// stdin for "-" or no argument.
func deckFromArg(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, nil
	}
	path, err := homedir.Expand(args[0])
	if err != nil {
		return nil, fmt.Errorf("expand path: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}
	return f, nil
}

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SynthesisEndpoint == "" {
		return errors.New("no synthesis endpoint configured - set --endpoint or VOXDECK_SYNTHESIS_ENDPOINT")
	}

	src, err := deckFromArg(args)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck

	deck, err := slide.LoadDeck(src)
	if err != nil {
		return err
	}
	if deck.Len() == 0 {
		return errors.New("deck is empty")
	}

	synth := narrate.NewHTTPSynthesizer(cfg.SynthesisEndpoint, nil)
	player := audio.NewTimerPlayer()
	sess := session.New(cfg, deck, synth, player)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runHeadless(ctx, sess)
	}

	p := ui.NewProgram(ctx, sess)
	sess.Start(ctx)
	_, err = p.Run()
	sess.Stop()
	return err
}

// runHeadless plays the deck without a TUI, exiting when the
// presentation finishes or the context is cancelled.
func runHeadless(ctx context.Context, sess *session.Session) error {
	done := make(chan struct{})
	sess.SetOnFinished(func() { close(done) })
	sess.Start(ctx)
	defer sess.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tryLoadConfigFromDefaultPlaces reads voxdeck.yml from the platform
// config directories, creating a default file when none exists.
func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voxdeck")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voxdeck")}, dirs...)
	}

	if c := os.Getenv("VOXDECK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voxdeck")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voxdeck")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "voxdeck.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.RunE = execute
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: voxdeck.yml in the platform config dir)")
	rootCmd.Flags().StringVar(&endpoint, "endpoint", "", "synthesis endpoint URL")
	rootCmd.Flags().BoolVar(&autoPlay, "autoplay", true, "start playing immediately")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run without the TUI")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(configCmd)

	rootCmd.Version = Version
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if rootCmd.Version == "" {
		rootCmd.Version = "unknown (built from source)"
	}
}
