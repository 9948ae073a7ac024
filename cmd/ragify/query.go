package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragify/ragify/internal/embedder"
	"github.com/ragify/ragify/internal/qdrant"
	"github.com/ragify/ragify/pkg/types"
)

var (
	queryCollection string
	queryLimit      int
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Semantic search over an indexed collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryCollection, "collection", "", "collection to search (default from config)")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 5, "maximum number of results")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	collection := queryCollection
	if collection == "" {
		collection = cfg.Qdrant.Collection
	}

	emb, err := embedder.New(cfg.Embedding)
	if err != nil {
		return err
	}
	defer func() {
		_ = emb.Close()
	}()

	store, err := qdrant.New(cfg.Qdrant)
	if err != nil {
		return err
	}

	ctx := context.Background()
	vector, err := emb.Embed(ctx, args[0])
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	hits, err := store.Search(ctx, collection, vector, queryLimit)
	if err != nil {
		return fmt.Errorf("search %q: %w", collection, err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(hits, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if len(hits) == 0 {
		cmd.Println("No results.")
		return nil
	}
	for i, hit := range hits {
		title, _ := hit.Payload[types.PayloadTitle].(string)
		url, _ := hit.Payload[types.PayloadURL].(string)
		text, _ := hit.Payload[types.PayloadText].(string)
		cmd.Printf("[%d] %.3f %s\n    %s\n    %s\n", i+1, hit.Score, title, url, snippet(text, 160))
	}
	return nil
}

func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
