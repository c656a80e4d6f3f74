package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence. The catalog
// itself is served from memory; the repository stores quote history,
// handoff tickets, and (optionally) the catalog source records.
type Repository interface {
	// Catalog source operations
	SavePolicy(ctx context.Context, policy *PolicyRecord) error
	ListPolicies(ctx context.Context) ([]*PolicyRecord, error)

	// Quote history
	SaveQuote(ctx context.Context, quote *Quote) error
	GetQuote(ctx context.Context, quoteID string) (*Quote, error)

	// Handoff tickets
	SaveHandoff(ctx context.Context, ticket *HandoffTicket) error
	GetHandoff(ctx context.Context, ticketID string) (*HandoffTicket, error)
	UpdateHandoffStatus(ctx context.Context, ticketID string, status string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver" koanf:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath" koanf:"sqlitepath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost" koanf:"postgreshost"`
	PostgresPort     int    `json:"postgresPort" koanf:"postgresport"`
	PostgresUser     string `json:"postgresUser" koanf:"postgresuser"`
	PostgresPassword string `json:"postgresPassword" koanf:"postgrespassword"`
	PostgresDB       string `json:"postgresDb" koanf:"postgresdb"`
	PostgresSSLMode  string `json:"postgresSslMode" koanf:"postgressslmode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns" koanf:"maxopenconns"`
	MaxIdleConns    int           `json:"maxIdleConns" koanf:"maxidleconns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" koanf:"connmaxlifetime"`
}
