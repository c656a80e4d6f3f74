// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SavePolicy stores or updates a catalog source record.
func (r *SQLRepository) SavePolicy(ctx context.Context, policy *domain.PolicyRecord) error {
	if policy == nil || policy.ID == "" {
		return fmt.Errorf("%w: policy id is required", ErrInvalidInput)
	}

	sumInsured, _ := json.Marshal(policy.SumInsured)
	premiums, _ := json.Marshal(policy.PremiumYearly)
	eligibility, _ := json.Marshal(policy.Eligibility)
	exclusions, _ := json.Marshal(policy.Exclusions)
	riders, _ := json.Marshal(policy.Riders)

	now := time.Now().UTC()

	query := `
		INSERT INTO policies (
			id, name, type, description, sum_insured, premium_yearly,
			eligibility, exclusions, riders, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			description = excluded.description,
			sum_insured = excluded.sum_insured,
			premium_yearly = excluded.premium_yearly,
			eligibility = excluded.eligibility,
			exclusions = excluded.exclusions,
			riders = excluded.riders,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		policy.ID, policy.Name, string(policy.Type), policy.Description,
		string(sumInsured), string(premiums), string(eligibility),
		string(exclusions), string(riders),
		now, now,
	)
	return err
}

// ListPolicies retrieves all catalog source records in id order.
func (r *SQLRepository) ListPolicies(ctx context.Context) ([]*domain.PolicyRecord, error) {
	query := `
		SELECT id, name, type, description, sum_insured, premium_yearly,
			   eligibility, exclusions, riders
		FROM policies
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.PolicyRecord
	for rows.Next() {
		var p domain.PolicyRecord
		var pType, sumInsured, premiums, eligibility, exclusions, riders string

		if err := rows.Scan(
			&p.ID, &p.Name, &pType, &p.Description,
			&sumInsured, &premiums, &eligibility, &exclusions, &riders,
		); err != nil {
			return nil, err
		}

		p.Type = domain.PolicyType(pType)
		if err := json.Unmarshal([]byte(sumInsured), &p.SumInsured); err != nil {
			return nil, fmt.Errorf("failed to parse sum_insured for %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(premiums), &p.PremiumYearly); err != nil {
			return nil, fmt.Errorf("failed to parse premium_yearly for %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(eligibility), &p.Eligibility); err != nil {
			return nil, fmt.Errorf("failed to parse eligibility for %s: %w", p.ID, err)
		}
		json.Unmarshal([]byte(exclusions), &p.Exclusions)
		json.Unmarshal([]byte(riders), &p.Riders)

		policies = append(policies, &p)
	}

	return policies, rows.Err()
}

// SaveQuote stores a quote result.
func (r *SQLRepository) SaveQuote(ctx context.Context, quote *domain.Quote) error {
	if quote == nil || quote.ID == "" {
		return fmt.Errorf("%w: quote id is required", ErrInvalidInput)
	}

	profile, _ := json.Marshal(quote.Profile)
	recommendations, _ := json.Marshal(quote.Recommendations)
	metadata, _ := json.Marshal(quote.Metadata)

	query := `
		INSERT INTO quotes (id, profile, recommendations, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		quote.ID, string(profile), string(recommendations), string(metadata), quote.Timestamp,
	)
	return err
}

// GetQuote retrieves a quote by ID.
func (r *SQLRepository) GetQuote(ctx context.Context, quoteID string) (*domain.Quote, error) {
	if quoteID == "" {
		return nil, fmt.Errorf("%w: quote id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, profile, recommendations, metadata, timestamp
		FROM quotes
		WHERE id = ?
	`

	var quote domain.Quote
	var profile, recommendations, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), quoteID).Scan(
		&quote.ID, &profile, &recommendations, &metadata, &quote.Timestamp,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(profile), &quote.Profile)
	json.Unmarshal([]byte(recommendations), &quote.Recommendations)
	json.Unmarshal([]byte(metadata), &quote.Metadata)

	return &quote, nil
}

// SaveHandoff stores a handoff ticket.
func (r *SQLRepository) SaveHandoff(ctx context.Context, ticket *domain.HandoffTicket) error {
	if ticket == nil || ticket.ID == "" {
		return fmt.Errorf("%w: ticket id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO handoffs (id, quote_id, name, phone, preferred_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ticket.ID, ticket.QuoteID, ticket.Name, ticket.Phone,
		ticket.PreferredTime, ticket.Status, ticket.CreatedAt, ticket.UpdatedAt,
	)
	return err
}

// GetHandoff retrieves a handoff ticket by ID.
func (r *SQLRepository) GetHandoff(ctx context.Context, ticketID string) (*domain.HandoffTicket, error) {
	if ticketID == "" {
		return nil, fmt.Errorf("%w: ticket id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, quote_id, name, phone, preferred_time, status, created_at, updated_at
		FROM handoffs
		WHERE id = ?
	`

	var t domain.HandoffTicket
	err := r.db.QueryRowContext(ctx, r.rebind(query), ticketID).Scan(
		&t.ID, &t.QuoteID, &t.Name, &t.Phone,
		&t.PreferredTime, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// UpdateHandoffStatus transitions a ticket to a new status.
func (r *SQLRepository) UpdateHandoffStatus(ctx context.Context, ticketID string, status string) error {
	if ticketID == "" {
		return fmt.Errorf("%w: ticket id is required", ErrInvalidInput)
	}

	query := `
		UPDATE handoffs
		SET status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, time.Now().UTC(), ticketID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
