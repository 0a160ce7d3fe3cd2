package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"linklander/backend/internal/entity"
	"linklander/backend/internal/graph"
	"linklander/backend/internal/persistence"
	"linklander/backend/pkg/config"
	apperrors "linklander/backend/pkg/errors"
	"linklander/backend/pkg/logger"
)

type seedTag struct {
	Name        string
	Description string
}

type seedLink struct {
	Name  string
	URL   string
	Title string
	Tags  []string
}

var demoTags = []seedTag{
	{"golang", "The Go programming language"},
	{"docs", "Reference documentation"},
	{"database", "Storage engines and drivers"},
	{"graph", "Graph databases and query languages"},
	{"tools", "Developer tooling"},
}

var demoLinks = []seedLink{
	{"Go", "https://go.dev", "The Go Programming Language", []string{"golang"}},
	{"Go Packages", "https://pkg.go.dev", "Go Packages", []string{"golang", "docs"}},
	{"Effective Go", "https://go.dev/doc/effective_go", "Effective Go", []string{"golang", "docs"}},
	{"Neo4j Cypher Manual", "https://neo4j.com/docs/cypher-manual/current/", "Cypher Manual", []string{"graph", "database", "docs"}},
	{"SQLite", "https://sqlite.org", "SQLite Home Page", []string{"database"}},
	{"gin", "https://gin-gonic.com", "Gin Web Framework", []string{"golang", "tools"}},
}

func main() {
	reset := flag.Bool("reset", false, "Delete every link and tag before seeding")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...", zap.String("backend", cfg.StoreBackend))

	ctx := context.Background()
	store, err := graph.Open(ctx, graph.OpenConfig{
		Backend: cfg.StoreBackend,
		Neo4j: graph.Neo4jConfig{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		},
		SQLitePath: cfg.SQLitePath,
	}, log.Named("graph"))
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close(ctx)

	gateway := persistence.New(store, log, persistence.Options{EnforceUniqueLinkNames: cfg.UniqueLinkNames})
	if err := gateway.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	stats, err := seed(ctx, gateway, log, *reset)
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}

	log.Info("Database seeding completed successfully!",
		zap.Int("links_created", stats.links),
		zap.Int("tags_created", stats.tags),
		zap.Int("links_deleted", stats.deletedLinks),
		zap.Int("tags_deleted", stats.deletedTags),
	)
}

type seedStats struct {
	links, tags               int
	deletedLinks, deletedTags int
}

// seed creates the demo tags and links. Existing tags are reused and
// links whose url is already stored are skipped, so running it twice is safe.
func seed(ctx context.Context, gw *persistence.Gateway, log *zap.Logger, reset bool) (seedStats, error) {
	var stats seedStats

	if reset {
		log.Warn("Resetting store...")
		links, err := gw.GetAllLinks(ctx)
		if err != nil {
			return stats, err
		}
		for _, l := range links {
			if err := gw.DeleteLink(ctx, l.UUID); err != nil {
				return stats, err
			}
			stats.deletedLinks++
		}
		tags, err := gw.GetAllTags(ctx)
		if err != nil {
			return stats, err
		}
		for _, t := range tags {
			if err := gw.DeleteTag(ctx, t.UUID); err != nil {
				return stats, err
			}
			stats.deletedTags++
		}
	}

	tagIDs := make(map[string]string, len(demoTags))
	existingTags, err := gw.GetAllTags(ctx)
	if err != nil {
		return stats, err
	}
	for _, t := range existingTags {
		tagIDs[t.Name] = t.UUID
	}
	for _, t := range demoTags {
		if _, ok := tagIDs[t.Name]; ok {
			continue
		}
		id, err := gw.AddTag(ctx, t.Name, t.Description)
		if err != nil {
			return stats, fmt.Errorf("creating tag %s: %w", t.Name, err)
		}
		tagIDs[t.Name] = id
		stats.tags++
	}

	for _, l := range demoLinks {
		existing, err := gw.SearchLinks(ctx, entity.LinkURL, l.URL)
		if err != nil {
			return stats, err
		}
		if containsURL(existing, l.URL) {
			log.Debug("Link already present, skipping", zap.String("url", l.URL))
			continue
		}

		id, err := gw.AddLink(ctx, l.Name, l.URL, l.Title)
		if apperrors.IsErrorType(err, apperrors.ErrorTypeConstraint) {
			log.Warn("Link name already taken, skipping", zap.String("name", l.Name))
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("creating link %s: %w", l.Name, err)
		}
		stats.links++

		tagUUIDs := make([]string, 0, len(l.Tags))
		for _, name := range l.Tags {
			tagUUIDs = append(tagUUIDs, tagIDs[name])
		}
		if err := gw.SetLinkTags(ctx, id, tagUUIDs); err != nil {
			return stats, fmt.Errorf("tagging link %s: %w", l.Name, err)
		}
	}

	return stats, nil
}

func containsURL(links []entity.Link, url string) bool {
	for _, l := range links {
		if l.URL == url {
			return true
		}
	}
	return false
}
