package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/treechunk/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// File operations

const fileColumns = `
	id, path, language, content_hash, size_bytes, chunk_count, parse_error,
	last_indexed_at, created_at, updated_at`

// upsertFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertFileWithQuerier(ctx context.Context, q querier, file *File) error {
	query := `
		INSERT INTO files (path, language, content_hash, size_bytes, chunk_count, parse_error, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language = excluded.language,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			chunk_count = excluded.chunk_count,
			parse_error = excluded.parse_error,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		file.Path, file.Language, file.ContentHash[:], file.SizeBytes, file.ChunkCount,
		file.ParseError, now, now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	file.LastIndexedAt = now
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	return s.upsertFileWithQuerier(ctx, s.querier(), file)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row scanner) (*File, error) {
	var file File
	var hash []byte
	var parseError sql.NullString
	var lastIndexedAt sql.NullTime

	err := row.Scan(
		&file.ID, &file.Path, &file.Language, &hash, &file.SizeBytes, &file.ChunkCount,
		&parseError, &lastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	copy(file.ContentHash[:], hash)
	if parseError.Valid {
		file.ParseError = &parseError.String
	}
	if lastIndexedAt.Valid {
		file.LastIndexedAt = lastIndexedAt.Time
	}
	return &file, nil
}

// getFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, where string, arg interface{}) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE ` + where
	file, err := scanFile(q.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *SQLiteStorage) GetFile(ctx context.Context, path string) (*File, error) {
	return s.getFileWithQuerier(ctx, s.querier(), "path = ?", path)
}

func (s *SQLiteStorage) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return s.getFileWithQuerier(ctx, s.querier(), "id = ?", fileID)
}

// listFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier) ([]*File, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+fileColumns+` FROM files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context) ([]*File, error) {
	return s.listFilesWithQuerier(ctx, s.querier())
}

// deleteFileWithQuerier removes a file; its chunks are removed by cascade
func (s *SQLiteStorage) deleteFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	return s.deleteFileWithQuerier(ctx, s.querier(), fileID)
}

// Chunk operations

const chunkColumns = `
	c.seq, c.chunk_type, c.parent_seq, c.start_byte, c.end_byte, c.start_line,
	c.end_line, c.indent, c.content, c.content_hash, c.token_count, f.path, f.language`

func scanChunk(row scanner, extra ...interface{}) (*types.Chunk, error) {
	var chunk types.Chunk
	var chunkType string
	dest := []interface{}{
		&chunk.ID, &chunkType, &chunk.ParentID, &chunk.StartByte, &chunk.EndByte,
		&chunk.StartLine, &chunk.EndLine, &chunk.Indent, &chunk.Content,
		&chunk.ContentHash, &chunk.TokenCount, &chunk.File, &chunk.Language,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	chunk.Type = types.ChunkType(chunkType)
	return &chunk, nil
}

// replaceChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) replaceChunksWithQuerier(ctx context.Context, q querier, fileID int64, chunks []*types.Chunk) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	query := `
		INSERT INTO chunks (file_id, seq, chunk_type, parent_seq, start_byte, end_byte,
		                    start_line, end_line, indent, content, content_hash, token_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("invalid chunk %d: %w", chunk.ID, err)
		}
		_, err := q.ExecContext(ctx, query,
			fileID, chunk.ID, string(chunk.Type), chunk.ParentID, chunk.StartByte, chunk.EndByte,
			chunk.StartLine, chunk.EndLine, chunk.Indent, chunk.Content, chunk.ContentHash, chunk.TokenCount)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ID, err)
		}
	}

	result, err := q.ExecContext(ctx, `UPDATE files SET chunk_count = ?, updated_at = ? WHERE id = ?`,
		len(chunks), time.Now(), fileID)
	if err != nil {
		return fmt.Errorf("failed to update chunk count: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceChunks replaces all chunks of a file atomically
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, fileID int64, chunks []*types.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.replaceChunksWithQuerier(ctx, tx, fileID, chunks); err != nil {
		return err
	}
	return tx.Commit()
}

// listChunksByFileWithQuerier returns a file's chunks in id order with
// ChildIDs rebuilt from parent references
func (s *SQLiteStorage) listChunksByFileWithQuerier(ctx context.Context, q querier, fileID int64) ([]*types.Chunk, error) {
	query := `
		SELECT ` + chunkColumns + `
		FROM chunks c
		JOIN files f ON c.file_id = f.id
		WHERE c.file_id = ?
		ORDER BY c.seq
	`
	rows, err := q.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*types.Chunk, 0)
	bySeq := make(map[int]*types.Chunk)
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if parent, ok := bySeq[chunk.ParentID]; ok {
			parent.ChildIDs = append(parent.ChildIDs, chunk.ID)
		}
		bySeq[chunk.ID] = chunk
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunksByFile(ctx context.Context, fileID int64) ([]*types.Chunk, error) {
	return s.listChunksByFileWithQuerier(ctx, s.querier(), fileID)
}

// childSeqs returns the ids of a chunk's direct children in order
func childSeqs(ctx context.Context, q querier, fileID int64, seq int) ([]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seq FROM chunks WHERE file_id = ? AND parent_seq = ? AND seq != parent_seq ORDER BY seq`,
		fileID, seq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// getChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, fileID int64, seq int) (*types.Chunk, error) {
	query := `
		SELECT ` + chunkColumns + `
		FROM chunks c
		JOIN files f ON c.file_id = f.id
		WHERE c.file_id = ? AND c.seq = ?
	`
	chunk, err := scanChunk(q.QueryRowContext(ctx, query, fileID, seq))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	chunk.ChildIDs, err = childSeqs(ctx, q, fileID, seq)
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, fileID int64, seq int) (*types.Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), fileID, seq)
}

// Search operations

func (s *SQLiteStorage) SearchChunks(ctx context.Context, query string, limit int, filters *SearchFilters) ([]*types.SearchResult, error) {
	return searchChunks(ctx, s.querier(), query, limit, filters)
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{Languages: make(map[string]int)}

	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&status.FilesCount)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE parse_error IS NOT NULL").Scan(&status.FailedFiles)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&status.ChunksCount)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, "SELECT language, COUNT(*) FROM files GROUP BY language")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		status.Languages[lang] = count
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	var lastIndexedAt sql.NullTime
	err = q.QueryRowContext(ctx, "SELECT last_indexed_at FROM files ORDER BY last_indexed_at DESC LIMIT 1").Scan(&lastIndexedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastIndexedAt.Valid {
		status.LastIndexedAt = lastIndexedAt.Time
	}

	if version, err := currentVersion(ctx, q); err == nil {
		status.SchemaVersion = version.String()
	}

	// Calculate database size
	var pageCount, pageSize int
	err = q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var ftsTable string
	ftsErr := q.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE name = 'chunks_fts'").Scan(&ftsTable)

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexesBuilt:    ftsErr == nil,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations use the transaction's querier

func (t *sqliteTx) UpsertFile(ctx context.Context, file *File) error {
	return t.storage.upsertFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetFile(ctx context.Context, path string) (*File, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), "path = ?", path)
}

func (t *sqliteTx) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), "id = ?", fileID)
}

func (t *sqliteTx) ListFiles(ctx context.Context) ([]*File, error) {
	return t.storage.listFilesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) ReplaceChunks(ctx context.Context, fileID int64, chunks []*types.Chunk) error {
	return t.storage.replaceChunksWithQuerier(ctx, t.querier(), fileID, chunks)
}

func (t *sqliteTx) ListChunksByFile(ctx context.Context, fileID int64) ([]*types.Chunk, error) {
	return t.storage.listChunksByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) GetChunk(ctx context.Context, fileID int64, seq int) (*types.Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), fileID, seq)
}

func (t *sqliteTx) SearchChunks(ctx context.Context, query string, limit int, filters *SearchFilters) ([]*types.SearchResult, error) {
	return searchChunks(ctx, t.querier(), query, limit, filters)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
