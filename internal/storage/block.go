package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stepjourney/internal/domain"
	"stepjourney/internal/logger"
)

const blockColumns = `id, type, parent_id, content_json, properties_json, created_by, deleted, created_at, updated_at`

const upsertBlock = `INSERT INTO blocks (` + blockColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		type = excluded.type,
		parent_id = excluded.parent_id,
		content_json = excluded.content_json,
		properties_json = excluded.properties_json,
		created_by = excluded.created_by,
		deleted = excluded.deleted,
		updated_at = excluded.updated_at`

// BlockStore implements domain.BlockStore over the blocks table.
type BlockStore struct {
	db  *DB
	log *logger.Logger
}

func NewBlockStore(db *DB, log *logger.Logger) *BlockStore {
	if db == nil {
		panic("storage: NewBlockStore requires a DB")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BlockStore{db: db, log: log}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func scanBlock(r rowScanner) (domain.Block, error) {
	var (
		raw                  domain.RawBlock
		contentJSON, props   string
		deleted              int
		createdAt, updatedAt string
	)
	if err := r.Scan(&raw.ID, &raw.Type, &raw.ParentID, &contentJSON, &props, &raw.CreatedBy, &deleted, &createdAt, &updatedAt); err != nil {
		return domain.Block{}, err
	}
	if err := json.Unmarshal([]byte(contentJSON), &raw.Content); err != nil {
		return domain.Block{}, fmt.Errorf("decode content of %s: %w", raw.ID, err)
	}
	raw.Properties = json.RawMessage(props)
	raw.Deleted = deleted != 0
	if t, err := parseTime(createdAt); err == nil {
		raw.CreatedAt = domain.Timestamp{Time: t}
	}
	if t, err := parseTime(updatedAt); err == nil {
		raw.UpdatedAt = domain.Timestamp{Time: t}
	}
	return domain.ToBlock(raw)
}

func (s *BlockStore) Get(id string) (*domain.Block, error) {
	b, err := scanBlock(s.db.queryRow(`SELECT `+blockColumns+` FROM blocks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get block %s: %w", id, domain.ErrBlockNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	return &b, nil
}

// Put inserts or replaces b, filling in missing timestamps and actor.
func (s *BlockStore) Put(b *domain.Block) error {
	return s.put(s.db.conn, b)
}

// PutMany writes blocks in one transaction.
func (s *BlockStore) PutMany(blocks []domain.Block) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin put blocks: %w", err)
	}
	defer tx.Rollback()
	for i := range blocks {
		if err := s.put(tx, &blocks[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put blocks: %w", err)
	}
	return nil
}

func (s *BlockStore) put(ex execer, b *domain.Block) error {
	if b.ID == "" {
		return domain.ErrMissingID
	}
	content := b.Content
	if content == nil {
		content = []string{}
	}
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	props := b.Properties
	if props == nil {
		props = domain.DefaultProperties(b.Type)
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.UpdatedAt.Before(b.CreatedAt) {
		b.UpdatedAt = b.CreatedAt
	}
	if b.CreatedBy == "" {
		b.CreatedBy = domain.SystemActor
	}
	deleted := 0
	if b.Deleted {
		deleted = 1
	}
	_, err = ex.Exec(s.db.rebind(upsertBlock),
		b.ID, string(b.Type), b.ParentID, string(contentJSON), string(propsJSON), b.CreatedBy, deleted,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put block %s: %w", b.ID, err)
	}
	return nil
}

// BulkDelete removes rows outright. Soft deletion is a Put with Deleted set.
func (s *BlockStore) BulkDelete(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.exec(`DELETE FROM blocks WHERE id IN (`+placeholders(len(ids))+`)`, args...); err != nil {
		return fmt.Errorf("bulk delete blocks: %w", err)
	}
	return nil
}

func (s *BlockStore) Count() (int, error) {
	var n int
	if err := s.db.queryRow(`SELECT COUNT(*) FROM blocks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return n, nil
}

// Fingerprint summarizes the table as row count and latest updated_at. It
// changes whenever any process writes a block.
func (s *BlockStore) Fingerprint() (string, error) {
	var (
		n       int
		updated string
	)
	if err := s.db.queryRow(`SELECT COUNT(*), COALESCE(MAX(updated_at), '') FROM blocks`).Scan(&n, &updated); err != nil {
		return "", fmt.Errorf("fingerprint blocks: %w", err)
	}
	return fmt.Sprintf("%d:%s", n, updated), nil
}

func (s *BlockStore) WhereParent(parentID string) ([]domain.Block, error) {
	return s.list(`WHERE parent_id = ? AND deleted = 0`, parentID)
}

func (s *BlockStore) WhereType(t domain.BlockType) ([]domain.Block, error) {
	return s.list(`WHERE type = ? AND deleted = 0`, string(t))
}

func (s *BlockStore) WhereDeleted(deleted bool) ([]domain.Block, error) {
	flag := 0
	if deleted {
		flag = 1
	}
	return s.list(`WHERE deleted = ?`, flag)
}

// All returns every live block.
func (s *BlockStore) All() ([]domain.Block, error) {
	return s.list(`WHERE deleted = 0`)
}

// PurgeDeleted hard-deletes tombstones last touched before cutoff.
func (s *BlockStore) PurgeDeleted(before time.Time) (int, error) {
	res, err := s.db.exec(`DELETE FROM blocks WHERE deleted = 1 AND updated_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("purge deleted blocks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge deleted blocks: %w", err)
	}
	return int(n), nil
}

// list scans matching rows. Rows that fail conversion are logged and skipped
// so one bad record does not hide the rest.
func (s *BlockStore) list(where string, args ...any) ([]domain.Block, error) {
	rows, err := s.db.query(`SELECT `+blockColumns+` FROM blocks `+where+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	blocks := []domain.Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			s.log.Warn("skipping unreadable block row", "error", err)
			continue
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}
