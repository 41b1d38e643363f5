package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/futig/context-rag/internal/builder"
	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/repository"
	"github.com/spf13/cobra"
)

type askOptions struct {
	files    []string
	strategy string
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Index local files and answer a question from them",
		Long: `Ingests every --file into an in-memory context, then runs the
question through quick-match, ranking and answer synthesis.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringSliceVarP(&opts.files, "file", "f", nil, "document to index (repeatable)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "ranking strategy: embedding, keyword or hybrid")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runAsk(cmd *cobra.Command, root *rootOptions, opts *askOptions, question string) error {
	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if opts.strategy != "" {
		cfg.RAGCfg.Strategy = opts.strategy
	}

	pipeline, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}

	repo := repository.NewContextMemory(entity.Context{ID: localContextID, Name: "local files"})
	uc := builder.NewSearchUsecase(cfg, repo, pipeline, log)

	files, err := readFiles(opts.files)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if _, err := uc.IngestFiles(ctx, localContextID, files); err != nil {
		return fmt.Errorf("ingest files: %w", err)
	}

	answer, err := uc.Search(ctx, question, localContextID)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if root.json {
		data, err := json.MarshalIndent(entity.SearchResponse{
			QueryID:  answer.QueryID,
			Response: answer.Text,
			Sources:  answer.Sources,
			Path:     answer.Path,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	cmd.Println()
	cmd.Printf("Path: %s\n", answer.Path)
	if len(answer.Sources) > 0 {
		cmd.Println("Sources:")
		for _, s := range answer.Sources {
			cmd.Printf("  - %s (%s)\n", s.Title, s.URL)
		}
	}

	return nil
}
