package main

import (
	"os"
	"strconv"

	"github.com/andresmejia3/stegocodec/pkg/api"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serveFlags struct {
		Port      int
		Origins   []string
		MaxUpload int64
	}
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Starts an HTTP server with these endpoints:

  GET  /api/v1/health    health check
  POST /api/v1/capacity  capacity table of an uploaded file
  POST /api/v1/conceal   hide a message, returns the stego file
  POST /api/v1/reveal    extract a message
  POST /api/v1/analyze   chi-square verdict and optional MSE/PSNR`,
	Run: func(cmd *cobra.Command, args []string) {
		port := strconv.Itoa(serveFlags.Port)
		if !cmd.Flags().Changed("port") {
			if env := os.Getenv("PORT"); env != "" {
				port = env
			}
		}
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		router := api.NewRouter(api.Config{
			AllowOrigins: serveFlags.Origins,
			MaxUpload:    serveFlags.MaxUpload,
		})

		log.Info().Str("port", port).Strs("origins", serveFlags.Origins).Msg("Server starting")
		if err := router.Run(":" + port); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 8080, "Port to listen on (default: $PORT or 8080)")
	serveCmd.Flags().StringSliceVar(&serveFlags.Origins, "origin", nil, "Allowed CORS origin, repeatable (default: any)")
	serveCmd.Flags().Int64Var(&serveFlags.MaxUpload, "max-upload", 32<<20, "Largest accepted upload in bytes")
}
