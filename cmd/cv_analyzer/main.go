// Package main provides the entry point for the CV Analyzer HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cv_analyzer",
	Short: "CV Analyzer HTTP API Server",
	Long:  "CV Analyzer classifies uploaded documents as CVs, extracts structured candidate data via Gemini and serves a searchable candidate catalog over REST.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
