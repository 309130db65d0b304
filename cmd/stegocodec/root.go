package main

import (
	"os"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/andresmejia3/stegocodec/pkg/stego"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Global flags
var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "stegocodec",
	Short: "Hide messages in PNG, BMP, JPEG, WAV and MP3 files",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// progress returns a stderr progress bar, or nil with --quiet.
func progress(description string) codec.ProgressFunc {
	if quiet {
		return nil
	}
	return stego.NewProgressBar(os.Stderr, description)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Hide progress bars")
}
