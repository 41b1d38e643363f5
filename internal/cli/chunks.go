package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type chunkOutput struct {
	Filename string   `json:"filename"`
	Chunks   []string `json:"chunks"`
}

func newChunksCmd(root *rootOptions) *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Print the chunks produced for local files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChunks(cmd, root, files)
		},
	}

	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "document to split (repeatable)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runChunks(cmd *cobra.Command, root *rootOptions, paths []string) error {
	cfg, log, err := root.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pipeline, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}

	files, err := readFiles(paths)
	if err != nil {
		return err
	}

	out := make([]chunkOutput, 0, len(files))
	for _, f := range files {
		out = append(out, chunkOutput{
			Filename: f.Filename,
			Chunks:   pipeline.Chunker.Split(string(f.Content)),
		})
	}

	if root.json {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal chunks: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, f := range out {
		cmd.Printf("%s: %d chunks (mode %s)\n", f.Filename, len(f.Chunks), pipeline.Chunker.Mode())
		for i, c := range f.Chunks {
			cmd.Printf("  [%d] %s\n", i, c)
		}
	}

	return nil
}
