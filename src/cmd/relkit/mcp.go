package main

import (
	"github.com/spf13/cobra"

	"relkit/src/logger"
	"relkit/src/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "mcp",
		Annotations: map[string]string{stdioProtocol: "true"},
		Short:       "Serve read-only release lookups over MCP on stdio",
		Long: `Runs a Model Context Protocol server on stdin/stdout exposing the tools
find_tagged_build, find_build_with_artifact, get_build_number and
check_version. Mutating operations stay CLI-only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			return mcp.NewServer(client, logger.NewSilentLogger(), buildVersion).Run()
		},
	}
}
