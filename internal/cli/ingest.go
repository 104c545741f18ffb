package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/postbridge-backend/internal/domain"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index posts from a JSON file",
	Long: `Reads a single post object or an array of posts and upserts each one.
Use --file - to read from stdin.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "path to a JSON post or array of posts")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	raw, err := readInput(cmd, ingestFile)
	if err != nil {
		return err
	}
	posts, err := decodePosts(raw)
	if err != nil {
		return err
	}
	return withRuntime(cmd, func(rt *runtime) error {
		var failed int
		for _, p := range posts {
			if err := rt.ingestion.Upsert(cmd.Context(), p); err != nil {
				failed++
				cmd.PrintErrf("failed %s: %v\n", p.ID, err)
				continue
			}
			cmd.Printf("indexed %s\n", p.ID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d posts failed", failed, len(posts))
		}
		return nil
	})
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func decodePosts(raw []byte) ([]domain.Post, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("no posts in input")
	}
	if raw[0] == '[' {
		var posts []domain.Post
		if err := json.Unmarshal(raw, &posts); err != nil {
			return nil, fmt.Errorf("decode posts: %w", err)
		}
		return posts, nil
	}
	var post domain.Post
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	return []domain.Post{post}, nil
}
