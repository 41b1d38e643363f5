// Package cli implements the context-rag-cli commands, which run the
// pipeline in-process against local files.
package cli

import (
	"fmt"
	"os"

	"github.com/futig/context-rag/internal/builder"
	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/pkg/logger"
	"github.com/futig/context-rag/internal/pkg/validator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// localContextID is the single in-memory context files are ingested into
const localContextID entity.ContextID = 1

type rootOptions struct {
	env      string
	logLevel string
	json     bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "context-rag-cli",
		Short:        "Ask questions about local documents",
		SilenceUsage: true,
	}
	cmd.SetOut(os.Stdout)

	cmd.PersistentFlags().StringVar(&opts.env, "env", "local", "environment name, selects the .env.<env> file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "output as JSON")

	cmd.AddCommand(newAskCmd(opts))
	cmd.AddCommand(newChunksCmd(opts))

	return cmd
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(o.env)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(o.logLevel)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

func readFiles(paths []string) ([]entity.FileData, error) {
	files := make([]entity.FileData, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		files = append(files, entity.FileData{
			Filename: validator.SanitizeFilename(path),
			Content:  content,
		})
	}

	return files, nil
}

func buildPipeline(cfg *config.Config, log *zap.Logger) (*builder.Pipeline, error) {
	p, err := builder.BuildPipeline(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return p, nil
}
