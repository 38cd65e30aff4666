package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/music-assist/backend/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a unified SQLite-based storage that provides access to the
// document, embedding and conversation store interfaces through
// wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.music-assist/data/music-assist.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".music-assist", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "music-assist.db")

	// Open database with WAL mode for better concurrency. Pragmas go
	// in the DSN so every pooled connection gets them, foreign_keys
	// included.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// EmbeddingStore returns an EmbeddingStore interface backed by this store.
func (s *Store) EmbeddingStore() driven.EmbeddingStore {
	return &embeddingStore{store: s}
}

// ConversationStore returns a ConversationStore interface backed by this store.
func (s *Store) ConversationStore() driven.ConversationStore {
	return &conversationStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version,
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, source_url, title, raw_text, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_url = excluded.source_url,
			title = excluded.title,
			raw_text = excluded.raw_text,
			fetched_at = excluded.fetched_at
	`, doc.ID, doc.SourceURL, doc.Title, doc.RawText, doc.FetchedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_url, title, raw_text, fetched_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocument(row)
}

// GetDocumentBySourceURL retrieves the document stored for a source URL.
func (s *documentStore) GetDocumentBySourceURL(ctx context.Context, sourceURL string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_url, title, raw_text, fetched_at
		FROM documents WHERE source_url = ?
	`, sourceURL)

	return scanDocument(row)
}

// ListDocuments returns all stored documents.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_url, title, raw_text, fetched_at
		FROM documents ORDER BY fetched_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.SourceURL, &doc.Title, &doc.RawText, &doc.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document; chunks and embeddings cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// SaveChunks stores chunks for a document.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, ordinal, text, start_offset, end_offset)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			ordinal = excluded.ordinal,
			text = excluded.text,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Ordinal,
			chunk.Text, chunk.StartOffset, chunk.EndOffset); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, ordinal, text, start_offset, end_offset
		FROM chunks WHERE id = ?
	`, id)

	var chunk domain.Chunk
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Ordinal,
		&chunk.Text, &chunk.StartOffset, &chunk.EndOffset); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return &chunk, nil
}

// GetChunks retrieves all chunks for a document in ordinal order.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, ordinal, text, start_offset, end_offset
		FROM chunks WHERE document_id = ?
		ORDER BY ordinal
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Ordinal,
			&chunk.Text, &chunk.StartOffset, &chunk.EndOffset); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// CountDocuments returns the number of stored documents.
func (s *documentStore) CountDocuments(ctx context.Context) (int, error) {
	return s.store.count(ctx, "documents")
}

// CountChunks returns the number of stored chunks.
func (s *documentStore) CountChunks(ctx context.Context) (int, error) {
	return s.store.count(ctx, "chunks")
}

// ==================== Embedding Store ====================

// embeddingStore implements driven.EmbeddingStore.
type embeddingStore struct {
	store *Store
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

// SaveEmbedding stores or replaces the embedding for a chunk.
func (s *embeddingStore) SaveEmbedding(ctx context.Context, rec driven.EmbeddingRecord) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, model, vector)
		VALUES (?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			model = excluded.model,
			vector = excluded.vector
	`, rec.ChunkID, rec.Model, float32SliceToBytes(rec.Vector))

	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// ListEmbeddings returns all persisted embedding records.
func (s *embeddingStore) ListEmbeddings(ctx context.Context) ([]driven.EmbeddingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, model, vector FROM embeddings
	`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var recs []driven.EmbeddingRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec driven.EmbeddingRecord
		var blob []byte
		if err := rows.Scan(&rec.ChunkID, &rec.Model, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		rec.Vector = bytesToFloat32Slice(blob)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return recs, nil
}

// CountEmbeddings returns the number of persisted embeddings.
func (s *embeddingStore) CountEmbeddings(ctx context.Context) (int, error) {
	return s.store.count(ctx, "embeddings")
}

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// SaveConversation stores a new conversation.
func (s *conversationStore) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, conv.ID, conv.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation with its turns in append order.
func (s *conversationStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM conversations WHERE id = ?
	`, id)

	var conv domain.Conversation
	if err := row.Scan(&conv.ID, &conv.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT role, text, sources, created_at
		FROM turns WHERE conversation_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn domain.Turn
		var role, sourcesJSON string
		if err := rows.Scan(&role, &turn.Text, &sourcesJSON, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn.Role = domain.Role(role)

		if sourcesJSON != "" && sourcesJSON != jsonNull {
			if err := json.Unmarshal([]byte(sourcesJSON), &turn.Sources); err != nil {
				return nil, fmt.Errorf("unmarshalling turn sources: %w", err)
			}
		}
		conv.Turns = append(conv.Turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	return &conv, nil
}

// AppendTurn appends one turn to an existing conversation.
func (s *conversationStore) AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error {
	sourcesJSON, err := json.Marshal(turn.Sources)
	if err != nil {
		return fmt.Errorf("marshalling turn sources: %w", err)
	}

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO turns (conversation_id, role, text, sources, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, conversationID, string(turn.Role), turn.Text, string(sourcesJSON), ts)

	if err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	return nil
}

// CountConversations returns the number of stored conversations.
func (s *conversationStore) CountConversations(ctx context.Context) (int, error) {
	return s.store.count(ctx, "conversations")
}

// ==================== Helpers ====================

// count returns the row count of a table.
func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.SourceURL, &doc.Title, &doc.RawText, &doc.FetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
