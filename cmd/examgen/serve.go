package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/algotrace/tracequery/pkg/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP question-generation API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := httpapi.NewServer()
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	fmt.Printf("listening on %s\n", serveAddr)
	return http.ListenAndServe(serveAddr, mux)
}
