package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/algotrace/tracequery/pkg/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server (stdio) for AI agents",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s := mcpserver.NewServer(version)
	return server.ServeStdio(s)
}
