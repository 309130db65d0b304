package main

import (
	"os"

	"github.com/andresmejia3/stegocodec/pkg/stego"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	revealFlags struct {
		Input string
		Pass  string
		Out   string
	}
)

var revealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Reveal a message hidden in an image or audio file",
	Run: func(cmd *cobra.Command, args []string) {
		rArgs := &stego.RevealArgs{
			StegoPath:  &revealFlags.Input,
			Passphrase: &revealFlags.Pass,
			Writer:     os.Stdout,
			Progress:   progress(" 🔓 Revealing"),
		}

		if revealFlags.Out != "" {
			f, err := os.Create(revealFlags.Out)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create output file")
			}
			defer f.Close()
			rArgs.Writer = f
		}

		report, err := stego.Reveal(rArgs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to reveal message")
		}
		log.Debug().Str("format", report.Format.String()).Int("bytes", report.MessageSize).Str("envelope", stego.FlagNames(report.Flags)).Msg("Message revealed")
	},
}

func init() {
	rootCmd.AddCommand(revealCmd)

	revealCmd.Flags().StringVarP(&revealFlags.Input, "input", "i", "", "Path to stego file (required)")
	revealCmd.MarkFlagRequired("input")
	revealCmd.Flags().StringVarP(&revealFlags.Pass, "passphrase", "p", "", "Passphrase to decrypt the message")
	revealCmd.Flags().StringVarP(&revealFlags.Out, "output", "o", "", "Output path for revealed message (optional)")
}
