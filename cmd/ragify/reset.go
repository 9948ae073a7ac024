package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragify/ragify/internal/qdrant"
)

var (
	resetCollection string
	resetYes        bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete a collection and everything indexed in it",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetCollection, "collection", "", "collection to delete (default from config)")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	collection := resetCollection
	if collection == "" {
		collection = cfg.Qdrant.Collection
	}

	if !resetYes {
		cmd.Printf("Delete collection %q and all its points? [y/N] ", collection)
		var answer string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "y" && answer != "Y" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	store, err := qdrant.New(cfg.Qdrant)
	if err != nil {
		return err
	}
	if err := store.DeleteCollection(context.Background(), collection); err != nil {
		return fmt.Errorf("delete collection %q: %w", collection, err)
	}

	cmd.Printf("Collection %q deleted.\n", collection)
	return nil
}
