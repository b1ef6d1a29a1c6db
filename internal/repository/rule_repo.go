package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/terminal-bench/civicfix/internal/config"
	"github.com/terminal-bench/civicfix/internal/models"
)

// RuleRepository persists routing rules in postgres. Rules are loaded once
// at startup; the serial id preserves insertion order, which is the table
// order the matcher's tie-break depends on.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository opens the database connection and verifies it.
func NewRuleRepository(cfg *config.Config) (*RuleRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &RuleRepository{db: db}, nil
}

// Close closes the database connection.
func (r *RuleRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureSchema creates the routing_rules table if it does not exist.
func (r *RuleRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS routing_rules (
			id SERIAL PRIMARY KEY,
			city TEXT NOT NULL,
			district TEXT,
			issue_type TEXT NOT NULL,
			contact_email TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create routing_rules table: %w", err)
	}
	return nil
}

// LoadAll returns every routing rule ordered by id, i.e. insertion order.
func (r *RuleRepository) LoadAll(ctx context.Context) ([]models.RoutingRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, city, COALESCE(district, ''), issue_type, contact_email
		 FROM routing_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routing rules: %w", err)
	}
	defer rows.Close()

	var rules []models.RoutingRule
	for rows.Next() {
		var rule models.RoutingRule
		err := rows.Scan(&rule.ID, &rule.City, &rule.District, &rule.IssueType, &rule.ContactEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// Count returns the number of routing rules.
func (r *RuleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM routing_rules").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count routing rules: %w", err)
	}
	return count, nil
}

// Insert adds a routing rule and returns it with its assigned id.
func (r *RuleRepository) Insert(ctx context.Context, rule models.RoutingRule) (models.RoutingRule, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO routing_rules (city, district, issue_type, contact_email)
		 VALUES ($1, NULLIF($2, ''), $3, $4) RETURNING id`,
		rule.City, rule.District, rule.IssueType, rule.ContactEmail,
	).Scan(&rule.ID)
	if err != nil {
		return models.RoutingRule{}, fmt.Errorf("failed to insert routing rule: %w", err)
	}
	return rule, nil
}

// SeedSampleRules inserts a fixed sample rule set when the table is empty.
// Operational convenience for fresh installs; a non-empty table is left
// untouched.
func (r *RuleRepository) SeedSampleRules(ctx context.Context) (bool, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	samples := []models.RoutingRule{
		{City: "Parangipettai", District: "Bhuvanagiri", IssueType: "Pothole", ContactEmail: "roads@parangipettai.example"},
		{City: "Parangipettai", District: "Bhuvanagiri", IssueType: "Streetlight", ContactEmail: "lighting@parangipettai.example"},
		{City: "Parangipettai", District: "Bhuvanagiri", IssueType: "Garbage", ContactEmail: "sanitation@parangipettai.example"},
		{City: "Cuddalore", District: "Cuddalore", IssueType: "Pothole", ContactEmail: "roads@cuddalore.example"},
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rule := range samples {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO routing_rules (city, district, issue_type, contact_email)
			 VALUES ($1, NULLIF($2, ''), $3, $4)`,
			rule.City, rule.District, rule.IssueType, rule.ContactEmail,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert sample rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit sample rules: %w", err)
	}
	return true, nil
}
