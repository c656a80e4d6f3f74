package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/opensource-finance/kestrel/internal/domain"
)

//go:embed data/policies.json
var seedFS embed.FS

// Load builds a Store from the configured source. The store is fully
// materialized and validated before the first request is served.
func Load(ctx context.Context, cfg domain.CatalogConfig, repo domain.Repository) (*Store, error) {
	switch cfg.Source {
	case "", "embedded":
		return LoadEmbedded()
	case "file":
		return LoadFile(cfg.Path)
	case "repository":
		return LoadRepository(ctx, repo)
	default:
		return nil, fmt.Errorf("unsupported catalog source: %s", cfg.Source)
	}
}

// LoadEmbedded builds a Store from the seed catalog compiled into the binary.
func LoadEmbedded() (*Store, error) {
	data, err := seedFS.ReadFile("data/policies.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded catalog: %w", err)
	}
	return parse(data)
}

// LoadFile builds a Store from a JSON catalog file.
func LoadFile(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return parse(data)
}

// LoadRepository builds a Store from the policies table.
func LoadRepository(ctx context.Context, repo domain.Repository) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required for catalog source %q", "repository")
	}
	records, err := repo.ListPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	out := make([]domain.PolicyRecord, 0, len(records))
	for _, r := range records {
		out = append(out, *r)
	}
	return New(out)
}

func parse(data []byte) (*Store, error) {
	var records []domain.PolicyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(records)
}
