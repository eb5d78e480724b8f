package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/autodoc/cv-analyzer/internal/catalog"
	"github.com/autodoc/cv-analyzer/internal/logger"
	"github.com/autodoc/cv-analyzer/internal/types"
)

var checkStoreKeep bool

var checkStoreCmd = &cobra.Command{
	Use:   "check-store",
	Short: "Verify catalog storage end to end",
	Long:  `Connect to the catalog, ensure the schema exists, append a debug record, read it back and delete it again.`,
	RunE:  runCheckStore,
}

func init() {
	checkStoreCmd.Flags().BoolVar(&checkStoreKeep, "keep", false, "Leave the debug record in the catalog")
	rootCmd.AddCommand(checkStoreCmd)
}

func runCheckStore(cmd *cobra.Command, _ []string) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	log, err := logger.New(false, false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck // Best-effort flush on exit

	ctx := context.Background()

	store, err := catalog.Connect(ctx, catalog.Config{DatabaseURL: databaseURL}, log)
	if err != nil {
		return fmt.Errorf("failed to connect to catalog: %w", err)
	}
	defer store.Close()

	cmd.Println("Ensuring catalog schema...")
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("schema check failed: %w", err)
	}

	cv := types.CVData{
		FirstName: "Debug",
		LastName:  "User",
		Email:     "debug@example.com",
		Phone:     "123",
		Summary:   "Debug summary",
		Skills:    []string{"DebugSkill"},
	}

	cmd.Println("Appending debug record...")
	id, err := store.Append(ctx, cv, "debug_test.txt")
	if err != nil {
		return fmt.Errorf("append failed: %w", err)
	}
	cmd.Printf("Appended record %s\n", id)

	cmd.Println("Reading back...")
	rec := store.Get(ctx, id)
	if rec == nil {
		return fmt.Errorf("read-back failed: record %s not found", id)
	}
	if rec.FirstName != cv.FirstName || rec.LastName != cv.LastName {
		return fmt.Errorf("read-back mismatch: got %s %s", rec.FirstName, rec.LastName)
	}
	cmd.Printf("Read back %s %s (%s)\n", rec.FirstName, rec.LastName, rec.Filename)

	if checkStoreKeep {
		log.Info("debug record kept", zap.String("id", id.String()))
		cmd.Println("Storage check passed (record kept).")
		return nil
	}

	cmd.Println("Cleaning up...")
	if !store.Delete(ctx, id) {
		return fmt.Errorf("cleanup failed: could not delete record %s", id)
	}

	cmd.Println("Storage check passed.")
	return nil
}
