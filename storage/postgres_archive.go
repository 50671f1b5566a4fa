package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"stuytown-watcher/models"
)

// PostgresArchive appends every extracted snapshot to a Postgres table,
// keeping a history of observations that the whole-file JSON state cannot.
// It is optional: the monitor runs without it when no DSN is configured.
type PostgresArchive struct {
	db *sql.DB
}

// NewPostgresArchive opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use archive.
func NewPostgresArchive(dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: ping failed after retries: %w", err)
	}

	a := &PostgresArchive{db: db}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return a, nil
}

func (a *PostgresArchive) migrate() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id           SERIAL PRIMARY KEY,
			cycle_at     TIMESTAMPTZ NOT NULL,
			address      TEXT        NOT NULL,
			price        TEXT        NOT NULL,
			bedrooms     TEXT        NOT NULL DEFAULT '',
			availability TEXT        NOT NULL DEFAULT '',
			url          TEXT        NOT NULL DEFAULT '',
			is_new       BOOLEAN     NOT NULL DEFAULT FALSE
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_cycle_at ON snapshots(cycle_at);
		CREATE INDEX IF NOT EXISTS idx_snapshots_address  ON snapshots(address);
	`)
	return err
}

// Archive inserts one row per extracted listing, flagging the ones the
// detector classified as new this cycle.
func (a *PostgresArchive) Archive(snapshot []*models.Listing, newItems []*models.Listing) error {
	if len(snapshot) == 0 {
		return nil
	}

	newSet := make(map[string]struct{}, len(newItems))
	for _, l := range newItems {
		newSet[l.Address] = struct{}{}
	}
	cycleAt := time.Now()

	const batchSize = 50
	for i := 0; i < len(snapshot); i += batchSize {
		end := i + batchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		if err := a.insertBatch(snapshot[i:end], newSet, cycleAt); err != nil {
			return err
		}
	}
	return nil
}

func (a *PostgresArchive) insertBatch(batch []*models.Listing, newSet map[string]struct{}, cycleAt time.Time) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*7)

	for idx, l := range batch {
		base := idx * 7
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		_, isNew := newSet[l.Address]
		valueArgs = append(valueArgs,
			cycleAt, l.Address, l.Price, l.Bedrooms, l.Availability, l.URL, isNew)
	}

	query := fmt.Sprintf(`
		INSERT INTO snapshots (cycle_at, address, price, bedrooms, availability, url, is_new)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := a.db.Exec(query, valueArgs...)
	if err != nil {
		return fmt.Errorf("archive: insert batch: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (a *PostgresArchive) Close() error {
	return a.db.Close()
}
