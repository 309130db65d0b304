package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresmejia3/stegocodec/pkg/stego"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	concealFlags struct {
		Cover       string
		Pass        string
		Msg         string
		File        string
		Out         string
		Degradation int
		Compress    bool
		ECC         bool
		DryRun      bool
	}
)

var concealCmd = &cobra.Command{
	Use:   "conceal",
	Short: "Conceal a message in an image or audio file",
	Long: `Encrypts a message with a passphrase and hides it in a PNG, BMP, JPEG, WAV or MP3 file.

Degradation is bits per byte (1, 2, 4, 8) for PNG, BMP and WAV and AC coefficients
per block (1-54) for JPEG. MP3 uses its private header bits and ignores it.`,
	Run: func(cmd *cobra.Command, args []string) {
		if concealFlags.Pass == "" {
			log.Fatal().Msg("a passphrase is required")
		}
		if concealFlags.Msg != "" && concealFlags.File != "" {
			log.Fatal().Msg("message and file flags cannot both be provided")
		}
		if concealFlags.Degradation < 0 {
			log.Fatal().Msg("degradation cannot be negative")
		}

		if concealFlags.Out == "" {
			concealFlags.Out = stego.DefaultOutput(concealFlags.Cover)
		} else if err := os.MkdirAll(filepath.Dir(concealFlags.Out), 0755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create output directory")
		}

		cArgs := &stego.ConcealArgs{
			CoverPath:   &concealFlags.Cover,
			Passphrase:  &concealFlags.Pass,
			Message:     &concealFlags.Msg,
			File:        &concealFlags.File,
			Output:      &concealFlags.Out,
			Degradation: &concealFlags.Degradation,
			Compress:    &concealFlags.Compress,
			ECC:         &concealFlags.ECC,
			DryRun:      &concealFlags.DryRun,
		}
		if !concealFlags.DryRun {
			cArgs.Progress = progress(" 🔒 Concealing")
		}

		report, err := stego.Conceal(cArgs)
		if concealFlags.DryRun && report != nil {
			fmt.Printf("Format:       %s\n", report.Format)
			fmt.Printf("Degradation:  %d\n", report.Degradation)
			fmt.Printf("Envelope:     %d bytes (%s)\n", report.Envelope, stego.FlagNames(report.Flags))
			fmt.Printf("Capacity:     %d bytes\n", report.Capacity)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to conceal message")
		}
		if concealFlags.DryRun {
			fmt.Println("✅ Message fits")
			return
		}
		log.Info().Str("output", report.Output).Int("bytes", report.Envelope).Int("capacity", report.Capacity).Msg("Message concealed")
	},
}

func init() {
	rootCmd.AddCommand(concealCmd)

	concealCmd.Flags().StringVarP(&concealFlags.Cover, "input", "i", "", "Path to cover file (required)")
	concealCmd.MarkFlagRequired("input")
	concealCmd.Flags().StringVarP(&concealFlags.Pass, "passphrase", "p", "", "Passphrase to encrypt the message (required)")
	concealCmd.Flags().StringVarP(&concealFlags.Msg, "message", "m", "", "Message you want to conceal")
	concealCmd.Flags().StringVarP(&concealFlags.File, "file", "f", "", "Path to file to conceal. Use '-' for stdin.")
	concealCmd.Flags().StringVarP(&concealFlags.Out, "output", "o", "", "Output path (default: <input>.out.<ext>)")
	concealCmd.Flags().IntVarP(&concealFlags.Degradation, "degradation", "d", 0, "Bits per byte or AC coefficients per block (default: per format)")
	concealCmd.Flags().BoolVarP(&concealFlags.Compress, "compress", "z", false, "Compress the message with zstd before embedding")
	concealCmd.Flags().BoolVarP(&concealFlags.ECC, "ecc", "r", false, "Protect the message with Reed-Solomon parity")
	concealCmd.Flags().BoolVar(&concealFlags.DryRun, "dry-run", false, "Check if the message fits without encoding")
}
