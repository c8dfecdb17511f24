// Package sqlregistry provides a SQLite-backed dataset registry. Registered
// HDF5 files are scanned and their datasets indexed by standard name for
// fast lookup without reopening the files.
package sqlregistry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/hdf"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	distribution_id TEXT PRIMARY KEY,
	file_path       TEXT NOT NULL,
	registered_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS datasets (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	distribution_id TEXT NOT NULL REFERENCES files(distribution_id) ON DELETE CASCADE,
	dataset_path    TEXT NOT NULL,
	standard_name   TEXT NOT NULL DEFAULT '',
	units           TEXT NOT NULL DEFAULT '',
	long_name       TEXT NOT NULL DEFAULT '',
	shape           TEXT NOT NULL DEFAULT '',
	UNIQUE (distribution_id, dataset_path)
);

CREATE INDEX IF NOT EXISTS idx_datasets_standard_name ON datasets (standard_name);
`

// Store is a dataset registry over a SQLite database.
//
// Thread Safety:
// Safe for concurrent use; database/sql pools connections and WAL mode
// allows concurrent readers during writes.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens (or creates) the registry database at path and applies the
// schema.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WrapFatal(err, "sqlregistry", "Open", "open database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.WrapFatal(err, "sqlregistry", "Open", "apply schema")
	}
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Kind reports store.KindSQL.
func (s *Store) Kind() store.Kind { return store.KindSQL }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RegisterFile scans the HDF5 file and records its datasets under the
// distribution ID, replacing any previous registration of the same
// distribution.
func (s *Store) RegisterFile(ctx context.Context, distributionID, filePath string) (int, error) {
	infos, err := hdf.Scan(filePath)
	if err != nil {
		return 0, errors.Wrap(err, "sqlregistry", "RegisterFile", "scan "+filePath)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "sqlregistry", "RegisterFile", "begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (distribution_id, file_path, registered_at)
		VALUES (?, ?, ?)
		ON CONFLICT (distribution_id)
		DO UPDATE SET file_path = excluded.file_path,
		              registered_at = excluded.registered_at`,
		distributionID, filePath, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, errors.Wrap(err, "sqlregistry", "RegisterFile", "upsert file")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM datasets WHERE distribution_id = ?`, distributionID); err != nil {
		return 0, errors.Wrap(err, "sqlregistry", "RegisterFile", "clear old records")
	}

	for _, info := range infos {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO datasets
				(distribution_id, dataset_path, standard_name, units, long_name, shape)
			VALUES (?, ?, ?, ?, ?, ?)`,
			distributionID, info.Path, info.StandardName, info.Units,
			info.LongName, encodeShape(info.Shape))
		if err != nil {
			return 0, errors.Wrap(err, "sqlregistry", "RegisterFile",
				"insert dataset "+info.Path)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "sqlregistry", "RegisterFile", "commit")
	}
	s.logger.Info("file registered",
		"distribution_id", distributionID, "file", filePath, "datasets", len(infos))
	return len(infos), nil
}

// FindByStandardName returns all records whose standard_name matches
// exactly, ordered by file path then dataset path.
func (s *Store) FindByStandardName(ctx context.Context, name string) ([]store.DatasetRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.distribution_id, f.file_path, d.dataset_path,
		       d.standard_name, d.units, d.long_name, d.shape
		FROM datasets d
		JOIN files f ON f.distribution_id = d.distribution_id
		WHERE d.standard_name = ?
		ORDER BY f.file_path, d.dataset_path`, name)
	if err != nil {
		return nil, errors.Wrap(err, "sqlregistry", "FindByStandardName", "query")
	}
	defer rows.Close()
	return scanRecords(rows)
}

// GetDistribution returns the records of one distribution.
func (s *Store) GetDistribution(ctx context.Context, distributionID string) ([]store.DatasetRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE distribution_id = ?`, distributionID).Scan(&exists)
	if err != nil {
		return nil, errors.Wrap(err, "sqlregistry", "GetDistribution", "check distribution")
	}
	if exists == 0 {
		return nil, fmt.Errorf("sqlregistry: distribution %q: %w",
			distributionID, errors.ErrDistributionNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.distribution_id, f.file_path, d.dataset_path,
		       d.standard_name, d.units, d.long_name, d.shape
		FROM datasets d
		JOIN files f ON f.distribution_id = d.distribution_id
		WHERE d.distribution_id = ?
		ORDER BY d.dataset_path`, distributionID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlregistry", "GetDistribution", "query")
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Query runs an arbitrary read-only SQL query against the registry and
// returns the rows as a tabular result.
func (s *Store) Query(ctx context.Context, q query.SQLQuery) (*query.Result, error) {
	rows, err := s.db.QueryContext(ctx, q.Text, q.Args...)
	if err != nil {
		return nil, errors.WrapInvalid(err, "sqlregistry", "Query", "execute "+q.ID)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "sqlregistry", "Query", "read columns")
	}
	result := query.NewResult(columns...)
	for rows.Next() {
		values := make([]any, len(columns))
		scans := make([]any, len(columns))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, errors.Wrap(err, "sqlregistry", "Query", "scan row")
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if err := result.AddRow(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlregistry", "Query", "iterate rows")
	}
	return result, nil
}

func scanRecords(rows *sql.Rows) ([]store.DatasetRecord, error) {
	var records []store.DatasetRecord
	for rows.Next() {
		var rec store.DatasetRecord
		var shape string
		if err := rows.Scan(&rec.DistributionID, &rec.FilePath, &rec.DatasetPath,
			&rec.StandardName, &rec.Units, &rec.LongName, &shape); err != nil {
			return nil, errors.Wrap(err, "sqlregistry", "scanRecords", "scan row")
		}
		rec.Shape = decodeShape(shape)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlregistry", "scanRecords", "iterate rows")
	}
	return records, nil
}

func encodeShape(shape []uint64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.FormatUint(d, 10)
	}
	return strings.Join(parts, ",")
}

func decodeShape(s string) []uint64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	shape := make([]uint64, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			continue
		}
		shape = append(shape, d)
	}
	return shape
}
