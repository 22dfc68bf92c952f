package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vitos/company_page/internal/domain"
)

type SQLiteStore struct {
	db      *sql.DB
	timeNow func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db, timeNow: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			symbol TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			buying_power TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fundamentals_cache (
			symbol TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			fetched_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// CompanyRepository Implementation

func (s *SQLiteStore) SaveCompany(ctx context.Context, c *domain.Company) error {
	query := `INSERT INTO companies (symbol, name, description, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT(symbol) DO UPDATE SET
			  name=excluded.name,
			  description=excluded.description,
			  updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query, c.Symbol, c.Name, c.Description, s.timeNow())
	return err
}

func (s *SQLiteStore) GetCompany(ctx context.Context, symbol string) (*domain.Company, error) {
	row := s.db.QueryRowContext(ctx, `SELECT symbol, name, description FROM companies WHERE symbol = ?`, symbol)

	var c domain.Company
	if err := row.Scan(&c.Symbol, &c.Name, &c.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("company %s: %w", symbol, domain.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]*domain.Company, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, name, description FROM companies ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []*domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.Symbol, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		companies = append(companies, &c)
	}
	return companies, rows.Err()
}

// BuyingPowerSource Implementation

// SaveBuyingPower stores the amount as text so no precision is lost.
func (s *SQLiteStore) SaveBuyingPower(ctx context.Context, accountID string, amount decimal.Decimal) error {
	query := `INSERT INTO accounts (id, buying_power, updated_at)
			  VALUES (?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  buying_power=excluded.buying_power,
			  updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query, accountID, amount.String(), s.timeNow())
	return err
}

func (s *SQLiteStore) GetBuyingPower(ctx context.Context, accountID string) (decimal.Decimal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT buying_power FROM accounts WHERE id = ?`, accountID)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
		}
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account %s: bad buying power %q: %w", accountID, raw, err)
	}
	return amount, nil
}

// FundamentalsCache Implementation

func (s *SQLiteStore) SaveFundamentals(ctx context.Context, f *domain.Fundamentals) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode fundamentals %s: %w", f.Symbol, err)
	}
	query := `INSERT INTO fundamentals_cache (symbol, payload, fetched_at)
			  VALUES (?, ?, ?)
			  ON CONFLICT(symbol) DO UPDATE SET
			  payload=excluded.payload,
			  fetched_at=excluded.fetched_at`
	_, err = s.db.ExecContext(ctx, query, f.Symbol, string(payload), s.timeNow())
	return err
}

// GetFundamentals returns the cached entry unless it is older than maxAge.
// A zero maxAge never expires.
func (s *SQLiteStore) GetFundamentals(ctx context.Context, symbol string, maxAge time.Duration) (*domain.Fundamentals, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM fundamentals_cache WHERE symbol = ?`, symbol)

	var (
		payload   string
		fetchedAt time.Time
	)
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fundamentals %s: %w", symbol, domain.ErrNotFound)
		}
		return nil, err
	}
	if maxAge > 0 && s.timeNow().Sub(fetchedAt) > maxAge {
		return nil, fmt.Errorf("fundamentals %s expired: %w", symbol, domain.ErrNotFound)
	}

	var f domain.Fundamentals
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return nil, fmt.Errorf("decode fundamentals %s: %w", symbol, err)
	}
	return &f, nil
}
