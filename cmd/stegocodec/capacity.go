package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/stegocodec/pkg/stego"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var capacityCmd = &cobra.Command{
	Use:   "capacity [file]",
	Short: "Calculate the storage capacity of a cover file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := stego.Load(args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load cover")
		}

		unit := "Bits/Byte"
		switch c.Format {
		case stego.FormatJPEG:
			unit = "AC/Block"
		case stego.FormatMP3:
			unit = "Channel"
		}

		wtr := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(wtr, "Format\t%s\tEnvelope (Bytes)\tMessage (Bytes)\tMessage+ECC (Bytes)\n", unit)
		fmt.Fprintln(wtr, "------\t---------\t----------------\t---------------\t-------------------")
		for _, row := range c.Capacities() {
			d := fmt.Sprint(row.Degradation)
			if c.Format == stego.FormatMP3 {
				d = "private bits"
			}
			fmt.Fprintf(wtr, "%s\t%s\t%d\t%d\t%d\n", c.Format, d, row.Envelope, row.Message, row.MessageECC)
		}
		wtr.Flush()
	},
}

func init() {
	rootCmd.AddCommand(capacityCmd)
}
