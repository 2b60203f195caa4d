package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/quillmate/plugin/ai/rag"
)

var indexCmd = &cobra.Command{
	Use:   "index <article.md>...",
	Short: "Embed markdown articles into the retrieval collection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(viper.New())
		if err != nil {
			return err
		}
		if p.Driver != "postgres" {
			return errors.New("indexing requires the postgres driver")
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		indexer := rag.NewIndexer(embedder(p), st)
		total := 0
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			n, err := indexer.IndexArticle(cmd.Context(), p.RAG.Collection, string(raw))
			if err != nil {
				return errors.Wrapf(err, "failed to index %s", path)
			}
			slog.Info("article indexed", "path", path, "chunks", n)
			total += n
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks into %q\n", total, p.RAG.Collection)
		return nil
	},
}
