package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dshills/promptkb/internal/app"
	"github.com/dshills/promptkb/internal/config"
	"github.com/dshills/promptkb/internal/fusion"
	"github.com/dshills/promptkb/internal/mcp"
	"github.com/dshills/promptkb/internal/searcher"
	"github.com/dshills/promptkb/internal/storage"
	"github.com/dshills/promptkb/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newCLI builds the command tree
func newCLI() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		printVersion(c.App.Writer)
	}

	return &cli.App{
		Name:    "promptkb",
		Usage:   "Hybrid search over a prompt-engineering knowledge base",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the SQLite database (overrides config and " + config.EnvDBPath + ")",
			},
			&cli.StringFlag{
				Name:  "llm",
				Usage: "Completion provider: openai or none",
			},
			&cli.StringFlag{
				Name:  "llm-model",
				Usage: "Completion model name",
			},
			&cli.StringFlag{
				Name:  "embedder",
				Usage: "Embedding provider: local or openai",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the MCP server on stdio",
				Action: serveCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest the text files of a directory into a knowledge base",
				ArgsUsage: "<directory>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kb",
						Aliases: []string{"k"},
						Usage:   "Knowledge base name (defaults to the directory name)",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Description used when the knowledge base is created",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Tag added to every document (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "include-hidden",
						Usage: "Ingest dot-files and dot-directories",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent file batches (0 = number of CPUs)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search one or all knowledge bases",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					kbFlag(),
					&cli.StringSliceFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Batch query (repeatable); results are printed per query",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Batch queries searched at once",
						Value: searcher.DefaultBatchConcurrency,
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results (0 = configured default)",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of ranked results to skip",
					},
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Search mode: hybrid, lexical or semantic",
						Value:   string(searcher.ModeHybrid),
					},
					&cli.Float64Flag{
						Name:  "lexical-weight",
						Usage: "Override the lexical fusion weight",
						Value: -1,
					},
					&cli.Float64Flag{
						Name:  "semantic-weight",
						Usage: "Override the semantic fusion weight",
						Value: -1,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print results as JSON",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Abandon the search after this long (0 = no timeout)",
					},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Suggest completions for a partial query",
				ArgsUsage: "<query>",
				Action:    suggestCommand,
				Flags: []cli.Flag{
					kbFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of suggestions",
						Value: searcher.DefaultSuggestLimit,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show knowledge bases and index statistics",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kb",
						Aliases: []string{"k"},
						Usage:   "Knowledge base name or ID (default: list all)",
					},
				},
			},
			{
				Name:  "version",
				Usage: "Print version and build information",
				Action: func(c *cli.Context) error {
					printVersion(c.App.Writer)
					return nil
				},
			},
		},
	}
}

func kbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "kb",
		Aliases: []string{"k"},
		Usage:   "Knowledge base name or ID (default: all knowledge bases)",
	}
}

// knowledgeBaseID resolves the --kb flag. An unset flag yields "", which searches every knowledge base.
func knowledgeBaseID(c *cli.Context, a *app.App) (string, error) {
	ref := c.String("kb")
	if ref == "" {
		return "", nil
	}
	kb, err := a.ResolveKnowledgeBase(c.Context, ref)
	if err != nil {
		return "", fmt.Errorf("knowledge base %q: %w", ref, err)
	}
	return kb.ID, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Stdout is reserved for MCP protocol and command output
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "promptkb\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Build Mode: %s\n", storage.BuildMode)
	fmt.Fprintf(w, "SQLite Driver: %s\n", storage.DriverName)
	fmt.Fprintf(w, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
}

// openApp loads configuration, applies global flag overrides and wires the components
func openApp(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg.Apply(config.Overrides{
		DBPath:            c.String("db"),
		LLMProvider:       c.String("llm"),
		LLMModel:          c.String("llm-model"),
		EmbeddingProvider: c.String("embedder"),
	})
	return app.New(cfg)
}

func serveCommand(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	slog.Info("promptkb MCP server starting",
		"version", version,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
		"vector_extension", storage.VectorExtensionAvailable)

	server, err := mcp.NewServer(a)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}

func ingestCommand(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return errors.New("directory argument is required")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	name := c.String("kb")
	if name == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}

	cfg := a.Config.IngestConfig()
	cfg.Description = c.String("description")
	cfg.Tags = c.StringSlice("tag")
	if c.IsSet("include-hidden") {
		cfg.IncludeHidden = c.Bool("include-hidden")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}

	stats, err := a.Ingester.IngestDirectory(c.Context, name, dir, cfg)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Ingested %s into %q (%s)\n", dir, name, stats.KnowledgeBaseID)
	fmt.Fprintf(w, "  files:      %d indexed, %d unchanged, %d failed, %d removed\n",
		stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.FilesRemoved)
	fmt.Fprintf(w, "  documents:  %d\n", stats.DocumentsCreated)
	fmt.Fprintf(w, "  embeddings: %d created, %d failed\n", stats.EmbeddingsCreated, stats.EmbeddingsFailed)
	fmt.Fprintf(w, "  duration:   %s\n", stats.Duration.Round(time.Millisecond))
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	kbID, err := knowledgeBaseID(c, a)
	if err != nil {
		return err
	}

	mode, err := searcher.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	limit := c.Int("limit")
	if limit <= 0 {
		limit = a.Config.Search.DefaultLimit
	}

	weights := a.Config.Weights()
	if c.IsSet("lexical-weight") {
		weights.Lexical = c.Float64("lexical-weight")
	}
	if c.IsSet("semantic-weight") {
		weights.Semantic = c.Float64("semantic-weight")
	}

	ctx := c.Context
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := searcher.SearchOptions{
		KnowledgeBaseID: kbID,
		Limit:           limit,
		Offset:          c.Int("offset"),
		Mode:            mode,
		Weights:         &weights,
	}

	if queries := c.StringSlice("query"); len(queries) > 0 {
		return runBatch(ctx, c, a, queries, opts, weights)
	}

	results, err := a.Searcher.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, toJSONResults(results))
	}
	printResults(c.App.Writer, results, weights, mode)
	return nil
}

type jsonBatch struct {
	Query   string       `json:"query"`
	Results []jsonResult `json:"results"`
}

func runBatch(ctx context.Context, c *cli.Context, a *app.App, queries []string, opts searcher.SearchOptions, weights fusion.Weights) error {
	batches, err := a.Searcher.BatchSearch(ctx, queries, opts, c.Int("concurrency"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if c.Bool("json") {
		out := make([]jsonBatch, len(batches))
		for i, results := range batches {
			out[i] = jsonBatch{Query: queries[i], Results: toJSONResults(results)}
		}
		return writeJSON(w, out)
	}

	for i, results := range batches {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s\n", queries[i])
		printResults(w, results, weights, opts.Mode)
	}
	return nil
}

func printResults(w io.Writer, results []types.FusedResult, weights fusion.Weights, mode searcher.SearchMode) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}

	if mode == searcher.ModeHybrid {
		fmt.Fprintf(w, "%d results (weights lexical=%.2f semantic=%.2f)\n\n", len(results), weights.Lexical, weights.Semantic)
	} else {
		fmt.Fprintf(w, "%d results (%s)\n\n", len(results), mode)
	}

	for _, r := range results {
		name := r.DocumentID
		if r.Document != nil {
			name = r.Document.Name
		}
		fmt.Fprintf(w, "[%d] %s  %.3f (lex %.3f, sem %.3f)\n", r.Rank, name, r.HybridScore, r.LexicalScore, r.SemanticScore)
		if r.Snippet != "" {
			fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(r.Snippet, "\n", " "))
		}
	}
}

type jsonResult struct {
	Rank          int      `json:"rank"`
	DocumentID    string   `json:"document_id"`
	Name          string   `json:"name,omitempty"`
	FileType      string   `json:"file_type,omitempty"`
	HybridScore   float64  `json:"hybrid_score"`
	LexicalScore  float64  `json:"lexical_score"`
	SemanticScore float64  `json:"semantic_score"`
	Sources       []string `json:"sources"`
	Snippet       string   `json:"snippet,omitempty"`
}

func toJSONResults(results []types.FusedResult) []jsonResult {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		jr := jsonResult{
			Rank:          r.Rank,
			DocumentID:    r.DocumentID,
			HybridScore:   r.HybridScore,
			LexicalScore:  r.LexicalScore,
			SemanticScore: r.SemanticScore,
			Sources:       []string{},
			Snippet:       r.Snippet,
		}
		if r.Document != nil {
			jr.Name = r.Document.Name
			jr.FileType = r.Document.FileType
		}
		for _, src := range []types.Source{types.SourceLexical, types.SourceSemantic} {
			if r.Sources.Has(src) {
				jr.Sources = append(jr.Sources, string(src))
			}
		}
		out = append(out, jr)
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func suggestCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	kbID, err := knowledgeBaseID(c, a)
	if err != nil {
		return err
	}

	suggestions, err := a.Searcher.Suggest(c.Context, query, kbID, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, s := range suggestions {
		fmt.Fprintln(c.App.Writer, s)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	w := c.App.Writer
	if ref := c.String("kb"); ref != "" {
		kb, err := a.ResolveKnowledgeBase(c.Context, ref)
		if err != nil {
			return fmt.Errorf("knowledge base %q: %w", ref, err)
		}
		return printStatus(c.Context, w, a.Storage, kb)
	}

	kbs, err := a.Storage.ListKnowledgeBases(c.Context)
	if err != nil {
		return err
	}
	if len(kbs) == 0 {
		fmt.Fprintln(w, "No knowledge bases. Run 'promptkb ingest <directory>' to create one.")
		return nil
	}
	for _, kb := range kbs {
		if err := printStatus(c.Context, w, a.Storage, kb); err != nil {
			return err
		}
	}
	return nil
}

func printStatus(ctx context.Context, w io.Writer, store storage.Storage, kb *storage.KnowledgeBase) error {
	status, err := store.GetStatus(ctx, kb.ID)
	if err != nil {
		return err
	}

	lastIngested := "never"
	if !kb.LastIngestedAt.IsZero() {
		lastIngested = kb.LastIngestedAt.Local().Format(time.RFC3339)
	}

	fmt.Fprintf(w, "%s (%s)\n", kb.Name, kb.ID)
	fmt.Fprintf(w, "  root:          %s\n", kb.RootPath)
	fmt.Fprintf(w, "  last ingested: %s\n", lastIngested)
	fmt.Fprintf(w, "  files:         %d\n", status.FilesCount)
	fmt.Fprintf(w, "  documents:     %d\n", status.DocumentsCount)
	fmt.Fprintf(w, "  embeddings:    %d\n", status.EmbeddingsCount)
	fmt.Fprintf(w, "  index size:    %.2f MB\n", status.IndexSizeMB)
	fmt.Fprintf(w, "  fts index:     %v\n", status.Health.FTSIndexesBuilt)
	return nil
}
