package main

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/stego"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verifyFlags struct {
		Input string
		Pass  string
	}
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify that a stego file holds a message",
	Long:  `Decrypts the hidden payload and opens its envelope, repairing Reed-Solomon protected payloads, without writing the message anywhere.`,
	Run: func(cmd *cobra.Command, args []string) {
		vArgs := &stego.RevealArgs{
			StegoPath:  &verifyFlags.Input,
			Passphrase: &verifyFlags.Pass,
			Progress:   progress(" 🔎 Verifying"),
		}

		result, err := stego.Verify(vArgs)
		if err != nil {
			color.New(color.FgRed, color.Bold).Println("❌ No message found")
			log.Fatal().Err(err).Msg("Verification failed")
		}

		color.New(color.FgGreen, color.Bold).Println("✅ Verification successful!")
		fmt.Printf("Format:           %s\n", result.Format)
		fmt.Printf("Degradation:      %d\n", result.Degradation)
		fmt.Printf("Message Size:     %d bytes\n", result.MessageSize)
		fmt.Printf("Envelope:         %d bytes (%s)\n", result.Envelope, stego.FlagNames(result.Flags))
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyFlags.Input, "input", "i", "", "Path to stego file (required)")
	verifyCmd.MarkFlagRequired("input")
	verifyCmd.Flags().StringVarP(&verifyFlags.Pass, "passphrase", "p", "", "Passphrase used to conceal the message")
}
