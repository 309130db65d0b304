package main

import (
	"fmt"

	"github.com/andresmejia3/stegocodec/pkg/stego"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Inspect a cover or stego file",
	Long:  `Shows the container format, its image or audio parameters, its capacity at the default degradation and any embedding header that can be read without a passphrase.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		info, err := stego.GetInfo(path)
		if err != nil {
			return fmt.Errorf("failed to get info from %s: %w", path, err)
		}

		fmt.Println("Container Information:")
		fmt.Println("----------------------")
		fmt.Printf("Format:           %s (%s)\n", info.Format, info.Type)
		fmt.Printf("Size:             %d bytes\n", info.Size)
		if info.Width > 0 {
			fmt.Printf("Dimensions:       %dx%d\n", info.Width, info.Height)
		}
		switch info.Format {
		case stego.FormatJPEG:
			fmt.Printf("Components:       %d\n", info.Components)
			fmt.Printf("Restart Interval: %d\n", info.RestartInterval)
		case stego.FormatWAV:
			fmt.Printf("Audio:            %d Hz, %d-bit, %d ch\n", info.SampleRate, info.BitDepth, info.Channels)
		case stego.FormatMP3:
			fmt.Printf("Frames:           %d\n", info.Frames)
			fmt.Printf("Stream:           %s\n", info.FrameFormat)
			if info.ID3 != nil {
				fmt.Printf("ID3v2.%d:          %q by %q\n", info.ID3.Version, info.ID3.Title, info.ID3.Artist)
			}
		}
		if info.Type == stego.TypeAudio {
			fmt.Printf("Duration:         %s\n", info.Duration)
		}

		for _, row := range info.Capacities {
			if row.Degradation == info.DefaultDegradation {
				fmt.Printf("Capacity:         %d bytes at degradation %d\n", row.Message, row.Degradation)
			}
		}
		if info.StoredDegradation > 0 {
			fmt.Printf("Embedding Header: degradation %d\n", info.StoredDegradation)
		} else {
			fmt.Printf("Embedding Header: none\n")
		}
		if info.Format == stego.FormatJPEG {
			if info.JstegBytes >= 0 {
				fmt.Printf("Jsteg Payload:    %d bytes\n", info.JstegBytes)
			} else {
				fmt.Printf("Jsteg Payload:    none\n")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
