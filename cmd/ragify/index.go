package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ragify/ragify/internal/chunker"
	"github.com/ragify/ragify/internal/config"
	"github.com/ragify/ragify/internal/embedder"
	"github.com/ragify/ragify/internal/extract"
	"github.com/ragify/ragify/internal/pipeline"
	"github.com/ragify/ragify/internal/qdrant"
)

var (
	indexCollection string
	indexWorkers    int
	indexReport     string
)

var indexCmd = &cobra.Command{
	Use:   "index [directory]",
	Short: "Index a directory tree into the vector store",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexCollection, "collection", "", "collection name (default: derived from directory)")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "concurrent files (default from config)")
	indexCmd.Flags().StringVar(&indexReport, "report", "", "report output path (default from config)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if indexWorkers > 0 {
		cfg.Processing.Workers = indexWorkers
	}
	if indexReport != "" {
		cfg.Output.ReportPath = indexReport
	}

	collection := indexCollection
	if collection == "" {
		collection = cfg.Qdrant.Collection
	}
	if collection == "" {
		collection = config.DeriveCollection(root)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	// Fail fast when a collaborator is down rather than after scanning.
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("qdrant unreachable at %s: %w", cfg.Qdrant.URL, err)
	}
	if _, err := emb.Embed(ctx, "connectivity check"); err != nil {
		return fmt.Errorf("embedding provider unreachable: %w", err)
	}

	tok := chunker.NewTokenizer(log)
	cache := embedder.NewCache(0)
	batcher := embedder.NewBatcher(emb, tok, cfg.Embedding, cache, log)
	registry := extract.NewRegistry(cfg.Extraction, log)

	p := pipeline.New(cfg, collection, store, batcher, registry, tok, log)

	log.Info("starting indexing run",
		zap.String("root", root),
		zap.String("collection", collection),
		zap.Int("workers", cfg.Processing.Workers))

	sum, runErr := p.Run(ctx, root)

	out, err := pipeline.RenderReport(sum, cfg.Output.ReportFormat)
	if err == nil {
		cmd.Println(out)
	}
	if cfg.Output.ReportPath != "" {
		if err := pipeline.WriteReport(sum, cfg.Output.ReportFormat, cfg.Output.ReportPath); err != nil {
			log.Warn("failed to write report file", zap.Error(err))
		} else {
			cmd.Printf("Report written to %s\n", cfg.Output.ReportPath)
		}
	}

	if runErr != nil {
		return fmt.Errorf("indexing run aborted: %w", runErr)
	}
	if sum.FilesFailed > 0 {
		return fmt.Errorf("%d of %d files failed", sum.FilesFailed, sum.FilesScanned)
	}
	return nil
}
