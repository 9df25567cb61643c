package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/terrace-extractor/internal/imaging"
	"github.com/ironsheep/terrace-extractor/internal/server"
)

func (a *app) infoCmd() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print raster size, format and georeferencing as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if image == "" {
				image = a.cfg.Image
			}
			if image == "" {
				return fmt.Errorf("no input image given")
			}
			info, err := imaging.LoadImageInfo(imaging.NewImageCache(), image)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "input raster")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction tools over MCP on stdin and stdout",
		Long: `serve runs a Model Context Protocol server speaking JSON-RPC 2.0 on stdin and
stdout. Configure it as a stdio server in an MCP client. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Info("Serving MCP on stdio", zap.String("version", Version))
			return server.New(a.logger, Version).Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func versionText() string {
	return fmt.Sprintf("terrace-extractor %s\n  Build time: %s\n  Git commit: %s\n", Version, BuildTime, GitCommit)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionText())
		},
	}
}
