package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/postgres"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

// categoryStore is the subset of postgres.CategoryRepo the seeder needs.
type categoryStore interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, name string, parentID *int64, sortOrder int) (int64, error)
}

func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		file        = flag.String("file", "", "Category paths, one per line, e.g. Life/Food/Cafe (default stdin)")
		dryRun      = flag.Bool("dry-run", false, "Dry run mode (don't write to Postgres)")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	in := io.Reader(os.Stdin)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", *file, err)
		}
		defer f.Close()
		in = f
	}

	paths, err := readPaths(in)
	if err != nil {
		log.Fatalf("Failed to read category paths: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, *databaseURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	start := time.Now()
	created, err := seed(ctx, postgres.NewCategoryRepo(pool), paths, *dryRun)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	slog.Info("Seeding complete", "paths", len(paths), "created", created, "dry_run", *dryRun, "duration", time.Since(start))
}

// readPaths parses slash-separated category paths. Blank lines and lines
// starting with # are ignored.
func readPaths(r io.Reader) ([][]string, error) {
	var paths [][]string
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var segments []string
		for _, s := range strings.Split(text, "/") {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, fmt.Errorf("line %d: empty segment in %q", line, text)
			}
			segments = append(segments, s)
		}
		paths = append(paths, segments)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

type nodeKey struct {
	parent int64 // 0 for roots
	name   string
}

// seed creates every missing category along each path and returns how many
// were created. Existing categories are matched by parent and name, so
// reruns are idempotent. Sort order follows first appearance in the input.
func seed(ctx context.Context, store categoryStore, paths [][]string, dryRun bool) (int, error) {
	existing, err := store.ListCategories(ctx)
	if err != nil {
		return 0, err
	}

	known := make(map[nodeKey]int64, len(existing))
	siblings := make(map[int64]int)
	for _, c := range existing {
		var parent int64
		if c.ParentID != nil {
			parent = *c.ParentID
		}
		known[nodeKey{parent: parent, name: c.Name}] = c.ID
		siblings[parent]++
	}

	created := 0
	nextFakeID := int64(-1)
	for _, path := range paths {
		var parent int64
		for _, name := range path {
			key := nodeKey{parent: parent, name: name}
			if id, ok := known[key]; ok {
				parent = id
				continue
			}

			var parentID *int64
			if parent != 0 {
				parentID = &parent
			}
			sortOrder := siblings[parent]

			var id int64
			if dryRun {
				id = nextFakeID
				nextFakeID--
			} else {
				id, err = store.Create(ctx, name, parentID, sortOrder)
				if err != nil {
					return created, err
				}
			}
			slog.Debug("Created category", "name", name, "id", id, "parent_id", parent, "dry_run", dryRun)

			known[key] = id
			siblings[parent]++
			created++
			parent = id
		}
	}
	return created, nil
}
