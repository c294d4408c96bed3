// Command docuvec manages an embedded document table: write documents,
// build text indexes and run vector or full-text queries from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docuvec/docuvec/internal/config"
	"github.com/docuvec/docuvec/internal/logger"
	"github.com/docuvec/docuvec/pkg/docstore"
	"github.com/docuvec/docuvec/pkg/retriever"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "docuvec",
	Short: "Document store over an embedded database",
	Long:  `Manage a document table backed by an embedded database: write documents, build full-text indexes, and run vector or lexical queries.`,
}

// jsonDocument is the CLI wire form of a document.
type jsonDocument struct {
	ID        string         `json:"id,omitempty"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	Score     *float64       `json:"score,omitempty"`
}

func openStore(ctx context.Context) (*docstore.Store, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	meta, err := cfg.MetadataSchema()
	if err != nil {
		return nil, nil, err
	}
	store, err := docstore.Open(ctx, docstore.Config{
		Path:          cfg.Database.Path,
		Table:         cfg.Database.Table,
		Metadata:      meta,
		EmbeddingDims: cfg.Database.EmbeddingDims,
		Logger:        log,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, log, nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the document table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		d := store.Descriptor()
		fmt.Printf("Table %q ready at %s (%d dims, %d metadata fields)\n",
			d.Table, d.Path, d.EmbeddingDims, len(d.Metadata))
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write [file]",
	Short: "Write documents from a JSON file (or stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var in io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			in = f
		}
		var jdocs []jsonDocument
		if err := json.NewDecoder(in).Decode(&jdocs); err != nil {
			return fmt.Errorf("decode documents: %w", err)
		}
		docs := make([]docstore.Document, len(jdocs))
		for i, jd := range jdocs {
			docs[i] = docstore.Document{ID: jd.ID, Content: jd.Content, Meta: jd.Meta, Embedding: jd.Embedding}
		}

		policyName, _ := cmd.Flags().GetString("on-duplicate")
		var policy docstore.DuplicatePolicy
		switch policyName {
		case "overwrite", "":
			policy = docstore.DuplicateOverwrite
		case "skip":
			policy = docstore.DuplicateSkip
		case "fail":
			policy = docstore.DuplicateFail
		default:
			return fmt.Errorf("unknown duplicate policy %q (want overwrite, skip or fail)", policyName)
		}

		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		written, err := store.WriteDocuments(ctx, docs, policy)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d of %d documents\n", written, len(docs))
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count documents in the table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		n, err := store.CountDocuments(ctx, nil)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete documents by identifier",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		removed, err := store.DeleteDocuments(ctx, args)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d documents\n", removed)
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build a full-text index on a field",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		field, _ := cmd.Flags().GetString("field")
		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if err := store.CreateTextIndex(ctx, field); err != nil {
			return err
		}
		fmt.Printf("Text index ready on %q\n", field)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <vector>",
	Short: "Vector similarity search (vector as comma-separated floats)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query, err := parseVector(args[0])
		if err != nil {
			return err
		}
		topK, _ := cmd.Flags().GetInt("top-k")
		metric, _ := cmd.Flags().GetString("metric")

		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		r, err := retriever.NewEmbedding(store,
			retriever.WithTopK(topK),
			retriever.WithMetric(docstore.Metric(metric)))
		if err != nil {
			return err
		}
		docs, err := r.Retrieve(ctx, query)
		if err != nil {
			return err
		}
		return printDocuments(docs)
	},
}

var textCmd = &cobra.Command{
	Use:   "text <query>",
	Short: "Full-text search against an indexed field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		topK, _ := cmd.Flags().GetInt("top-k")
		field, _ := cmd.Flags().GetString("field")

		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		r, err := retriever.NewFTS(store,
			retriever.WithTopK(topK),
			retriever.WithField(field))
		if err != nil {
			return err
		}
		docs, err := r.Retrieve(ctx, args[0])
		if err != nil {
			return err
		}
		return printDocuments(docs)
	},
}

func parseVector(arg string) ([]float32, error) {
	parts := strings.Split(arg, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func printDocuments(docs []docstore.Document) error {
	out := make([]jsonDocument, len(docs))
	for i, d := range docs {
		out[i] = jsonDocument{ID: d.ID, Content: d.Content, Meta: d.Meta, Embedding: d.Embedding, Score: d.Score}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "docuvec.yaml", "path to config file")

	writeCmd.Flags().String("on-duplicate", "overwrite", "duplicate policy: overwrite, skip or fail")
	indexCmd.Flags().String("field", "content", "text field to index")
	searchCmd.Flags().Int("top-k", retriever.DefaultTopK, "maximum results")
	searchCmd.Flags().String("metric", string(docstore.MetricCosine), "similarity metric: cosine, dot or euclidean")
	textCmd.Flags().Int("top-k", retriever.DefaultTopK, "maximum results")
	textCmd.Flags().String("field", "content", "indexed text field to query")

	rootCmd.AddCommand(initCmd, writeCmd, countCmd, deleteCmd, indexCmd, searchCmd, textCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
