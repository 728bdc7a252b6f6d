package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dshills/codecontext/pkg/types"
)

// SQLiteStorage persists the fragments of one project snapshot. Fragment
// order is significant: the position of a fragment is its vector ordinal.
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the fragment store at dbPath
func NewSQLiteStorage(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// OpenExisting opens a store that must already exist on disk
func OpenExisting(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("fragment store: %w", err)
	}
	return NewSQLiteStorage(ctx, dbPath)
}

// WriteSnapshot builds a fresh store at dbPath holding frags and files.
// The database is written under a temporary name and renamed into place,
// so readers never observe a partial store.
func WriteSnapshot(ctx context.Context, dbPath string, frags []*types.Fragment, files []File) error {
	tmp := dbPath + ".tmp"
	removeDB(tmp)

	s, err := NewSQLiteStorage(ctx, tmp)
	if err != nil {
		return err
	}
	if err := s.ReplaceFragments(ctx, frags, files); err != nil {
		_ = s.Close()
		removeDB(tmp)
		return err
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		_ = s.Close()
		removeDB(tmp)
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := s.Close(); err != nil {
		removeDB(tmp)
		return err
	}

	removeDB(dbPath)
	if err := os.Rename(tmp, dbPath); err != nil {
		removeDB(tmp)
		return fmt.Errorf("install fragment store: %w", err)
	}
	return nil
}

// removeDB deletes a database file and its WAL side files
func removeDB(path string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Fragment operations

// ReplaceFragments atomically swaps the stored snapshot for frags and files
func (s *SQLiteStorage) ReplaceFragments(ctx context.Context, frags []*types.Fragment, files []File) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := replaceFragments(ctx, tx, frags, files); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func replaceFragments(ctx context.Context, tx *sql.Tx, frags []*types.Fragment, files []File) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM fragments"); err != nil {
		return fmt.Errorf("failed to clear fragments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM files"); err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}

	insertFragment, err := tx.PrepareContext(ctx, `INSERT INTO fragments (ordinal, `+fragmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare fragment insert: %w", err)
	}
	defer func() { _ = insertFragment.Close() }()
	for i, f := range frags {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("fragment %d (%s): %w", i, f.FilePath, err)
		}
		rec, err := newFragmentRecord(f)
		if err != nil {
			return err
		}
		if _, err := insertFragment.ExecContext(ctx, rec.args(i)...); err != nil {
			return fmt.Errorf("failed to insert fragment %s: %w", f.ID, err)
		}
	}

	insertFile := `INSERT INTO files (path, language, size_bytes, mod_time, fragment_count)
		VALUES (?, ?, ?, ?, ?)`
	for _, file := range files {
		_, err := tx.ExecContext(ctx, insertFile,
			file.Path, string(file.Language), file.SizeBytes, file.ModTime.UnixNano(), file.FragmentCount)
		if err != nil {
			return fmt.Errorf("failed to insert file %s: %w", file.Path, err)
		}
	}
	return nil
}

// LoadFragments returns every fragment in ordinal order, without embeddings
func (s *SQLiteStorage) LoadFragments(ctx context.Context) ([]*types.Fragment, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+fragmentColumns+" FROM fragments ORDER BY ordinal")
	if err != nil {
		return nil, fmt.Errorf("failed to load fragments: %w", err)
	}
	return collectFragments(rows)
}

// ListFragmentsByFile returns the fragments of one file in line order
func (s *SQLiteStorage) ListFragmentsByFile(ctx context.Context, filePath string) ([]*types.Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fragmentColumns+" FROM fragments WHERE file_path = ? ORDER BY start_line, ordinal", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}
	return collectFragments(rows)
}

func collectFragments(rows *sql.Rows) ([]*types.Fragment, error) {
	defer func() { _ = rows.Close() }()

	var frags []*types.Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}
	return frags, rows.Err()
}

// File operations

// ListFiles returns the indexed files sorted by path
func (s *SQLiteStorage) ListFiles(ctx context.Context) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, language, size_bytes, mod_time, fragment_count FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []File
	for rows.Next() {
		var f File
		var lang string
		var mod int64
		if err := rows.Scan(&f.Path, &lang, &f.SizeBytes, &mod, &f.FragmentCount); err != nil {
			return nil, err
		}
		f.Language = types.Language(lang)
		f.ModTime = time.Unix(0, mod)
		files = append(files, f)
	}
	return files, rows.Err()
}

// Status operations

// GetStatus summarizes the stored snapshot
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{Languages: make(map[types.Language]int)}

	var version sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	status.SchemaVersion = version.String

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fragments").Scan(&status.FragmentsCount); err != nil {
		return nil, fmt.Errorf("failed to count fragments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT language, COUNT(*), COALESCE(SUM(size_bytes), 0) FROM files GROUP BY language")
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var lang string
		var count int
		var size int64
		if err := rows.Scan(&lang, &count, &size); err != nil {
			return nil, err
		}
		status.Languages[types.Language(lang)] = count
		status.FilesCount += count
		status.SizeBytes += size
	}
	return status, rows.Err()
}
