package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Serve the phasegate tools, the ledger resource and the prompts over
the MCP stdio transport. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Info("mcp server starting",
				zap.String("version", server.Version),
				zap.String("root", a.stack.Layout.Root))
			if err := server.Serve(server.New(a.stack)); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStack: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "phasegate v%s\n", server.Version)
		},
	}
}
