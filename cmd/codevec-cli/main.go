// Command codevec-cli builds, searches, merges, and inspects codevec
// indexes from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kumarlokesh/codevec"
	"github.com/kumarlokesh/codevec/internal/config"
	"github.com/kumarlokesh/codevec/internal/devtools"
	"github.com/kumarlokesh/codevec/internal/vectorstore"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	help := flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *help || flag.NArg() == 0 {
		showHelp()
		if *help {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "codevec-cli: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "codevec-cli: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)

	args := flag.Args()
	subcommand, subcommandArgs := args[0], args[1:]

	var cmdErr error
	switch subcommand {
	case "build":
		cmdErr = runBuild(log, cfg, subcommandArgs)
	case "search":
		cmdErr = runSearch(log, subcommandArgs)
	case "merge":
		cmdErr = runMerge(log, cfg, subcommandArgs)
	case "stats":
		cmdErr = runStats(log, subcommandArgs)
	case "demo":
		cmdErr = runDemo(log, subcommandArgs)
	default:
		fmt.Fprintf(os.Stderr, "codevec-cli: unknown command %q\n\n", subcommand)
		showHelp()
		os.Exit(1)
	}

	if cmdErr != nil {
		log.Error().Err(cmdErr).Str("command", subcommand).Msg("command failed")
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var writer = os.Stderr
	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func showHelp() {
	fmt.Print(`codevec-cli

Usage:
  codevec-cli [flags] <command> [arguments]

Flags:
  --config string   Path to config file
  --help            Show this help message

Commands:
  build <index.mvec> <dir>            Build an index from source files under dir
  search <index.mvec> <query>         Search an index for chunks similar to query
  merge <out.mvec> <in1> [in2 ...]    Merge one or more indexes into a new index
  stats <index.mvec>                  Print summary statistics for an index
  demo                                Build a small in-memory demo index and query it
`)
}

func runBuild(log zerolog.Logger, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: build <index-file> <dir>")
	}
	outPath, dir := args[0], args[1]

	backend := codevec.Backend(cfg.Index.Backend)
	idxCfg := codevec.Config{
		ModelID:        cfg.Index.ModelID,
		Dimensions:     cfg.Index.Dimensions,
		M:              cfg.Index.M,
		EfConstruction: cfg.Index.EfConstruction,
		EfSearch:       cfg.Index.EfSearch,
	}
	idx, err := codevec.New(backend, idxCfg)
	if err != nil {
		return err
	}

	chunker := devtools.NewChunker()
	defer chunker.Close()

	runID := uuid.New().String()
	sessionID := devtools.NewSessionID()
	log = log.With().Str("session_id", sessionID).Logger()
	log.Info().Str("run_id", runID).Str("dir", dir).Msg("starting build")

	ctx := context.Background()
	count := 0
	err = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return walkErr
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			log.Warn().Err(readErr).Str("path", path).Msg("skipping unreadable file")
			return nil
		}
		chunks, chunkErr := chunker.ChunkFile(ctx, path, content)
		if chunkErr != nil {
			log.Warn().Err(chunkErr).Str("path", path).Msg("skipping unchunkable file")
			return nil
		}
		for _, c := range chunks {
			c = c.WithArtifact(runID)
			vector := deterministicVector(c.Body, idxCfg.Dimensions)
			if addErr := idx.Add(c, vector); addErr != nil {
				return addErr
			}
			count++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("build: failed to create output file: %w", err)
	}
	defer f.Close()

	if err := saveIndex(idx, f); err != nil {
		return fmt.Errorf("build: failed to save index: %w", err)
	}

	log.Info().Int("chunks", count).Str("output", outPath).Msg("index built")
	return nil
}

func runSearch(log zerolog.Logger, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: search <index-file> <query text>")
	}
	idx, err := loadIndex(args[0])
	if err != nil {
		return err
	}
	query := strings.Join(args[1:], " ")
	vector := deterministicVector(query, idx.Dimensions())

	results, err := idx.Search(vector, 10)
	if err != nil {
		return err
	}
	for i, r := range results {
		fmt.Printf("%2d. %-40s %.3f  %s:%d-%d\n", i+1, r.Chunk.QualifiedName(), r.Similarity, r.Chunk.File, r.Chunk.LineStart, r.Chunk.LineEnd)
	}
	return nil
}

func runMerge(log zerolog.Logger, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: merge <output-file> <input-file> [input-file ...]")
	}
	outPath := args[0]
	inputs := args[1:]

	merger := codevec.NewMerger()
	for _, path := range inputs {
		idx, err := loadIndex(path)
		if err != nil {
			return err
		}
		if accepted := merger.AddIndex(idx, path); !accepted {
			log.Warn().Str("source", path).Msg("rejected incompatible source index")
		}
	}

	backend := codevec.BackendBruteForce
	merged, err := merger.Build(backend)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("merge: failed to create output file: %w", err)
	}
	defer f.Close()
	if err := saveIndex(merged, f); err != nil {
		return fmt.Errorf("merge: failed to save merged index: %w", err)
	}

	if cfg.ChromaMirror.Enabled {
		mirror, err := vectorstore.NewChromaMirror(cfg.ChromaMirror.URL, cfg.ChromaMirror.APIKey, cfg.ChromaMirror.Collection, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to ChromaDB mirror; continuing without it")
		} else if err := mirror.Mirror(context.Background(), merged.Entries()); err != nil {
			log.Warn().Err(err).Msg("failed to mirror merged entries to ChromaDB")
		}
	}

	log.Info().Int("sources", len(inputs)).Int("rejected", len(merger.RejectedArtifacts())).Int("size", merged.Size()).Msg("merge complete")
	return nil
}

func runStats(log zerolog.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: stats <index-file>")
	}
	idx, err := loadIndex(args[0])
	if err != nil {
		return err
	}
	stats := idx.Stats()
	fmt.Printf("backend:    %s\n", idx.Backend())
	fmt.Printf("model:      %s\n", stats.ModelID)
	fmt.Printf("dimensions: %d\n", stats.Dimensions)
	fmt.Printf("chunks:     %d\n", stats.Total)
	fmt.Printf("files:      %d\n", stats.FileCount)
	for kind, count := range stats.ByKind {
		fmt.Printf("  %-14s %d\n", kind, count)
	}
	return nil
}

func runDemo(log zerolog.Logger, _ []string) error {
	idx, err := codevec.New(codevec.BackendBruteForce, codevec.Config{ModelID: "demo", Dimensions: 8})
	if err != nil {
		return err
	}
	fixtures := []string{
		"func Add(a, b int) int { return a + b }",
		"func Subtract(a, b int) int { return a - b }",
		"func Add(x, y int) int { return x + y }",
	}
	for i, body := range fixtures {
		c, err := chunkFromBody(fmt.Sprintf("fn%d", i), body)
		if err != nil {
			return err
		}
		if err := idx.Add(c, deterministicVector(body, 8)); err != nil {
			return err
		}
	}

	results, err := idx.Search(deterministicVector(fixtures[0], 8), 3)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%.3f  %s\n", r.Similarity, r.Chunk.Name)
	}
	for _, g := range idx.FindDuplicates(0.9) {
		fmt.Printf("duplicate group of %d chunks\n", g.Count)
	}
	return nil
}
