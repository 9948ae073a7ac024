package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ragify/ragify/internal/qdrant"
	"github.com/ragify/ragify/pkg/types"
)

var listCollection string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents in a collection",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listCollection, "collection", "", "collection to list (default from config)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	collection := listCollection
	if collection == "" {
		collection = cfg.Qdrant.Collection
	}

	store, err := qdrant.New(cfg.Qdrant)
	if err != nil {
		return err
	}

	ctx := context.Background()
	fragments := make(map[string]int)

	var offset any
	for {
		points, next, err := store.Scroll(ctx, collection, 500, offset)
		if err != nil {
			return fmt.Errorf("scroll %q: %w", collection, err)
		}
		for _, p := range points {
			if url, ok := p.Payload[types.PayloadURL].(string); ok {
				fragments[url]++
			}
		}
		if next == nil || len(points) == 0 {
			break
		}
		offset = next
	}

	if len(fragments) == 0 {
		cmd.Printf("Collection %q is empty.\n", collection)
		return nil
	}

	urls := make([]string, 0, len(fragments))
	for url := range fragments {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	cmd.Printf("%d documents in %q:\n", len(urls), collection)
	for _, url := range urls {
		cmd.Printf("  %s (%d fragments)\n", url, fragments[url])
	}
	return nil
}
