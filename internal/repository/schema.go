package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaPolicies = `
CREATE TABLE IF NOT EXISTS policies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    description TEXT,
    sum_insured TEXT NOT NULL,
    premium_yearly TEXT NOT NULL,
    eligibility TEXT NOT NULL,
    exclusions TEXT,
    riders TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policies_type ON policies(type);
`

const schemaQuotes = `
CREATE TABLE IF NOT EXISTS quotes (
    id TEXT PRIMARY KEY,
    profile TEXT NOT NULL,
    recommendations TEXT NOT NULL,
    metadata TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quotes_timestamp ON quotes(timestamp);
`

const schemaHandoffs = `
CREATE TABLE IF NOT EXISTS handoffs (
    id TEXT PRIMARY KEY,
    quote_id TEXT,
    name TEXT NOT NULL,
    phone TEXT NOT NULL,
    preferred_time TEXT,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_handoffs_status ON handoffs(status);
CREATE INDEX IF NOT EXISTS idx_handoffs_quote ON handoffs(quote_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaPolicies,
		schemaQuotes,
		schemaHandoffs,
	}
}
