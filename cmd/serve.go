package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/csvinsight-cli/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /analyze for uploaded CSV files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		addr := c.ServeAddr
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			addr = serveAddr
		}
		opt, err := pipelineOptions(c)
		if err != nil {
			return err
		}
		srv := server.New(server.Config{
			UploadDir:      c.UploadDir,
			OutputDir:      c.OutputDir,
			AllowedOrigins: c.AllowedOrigins,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
		}, opt, logger())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config serve_addr)")
	rootCmd.AddCommand(serveCmd)
}
