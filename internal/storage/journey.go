package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stepjourney/internal/domain"
)

var ErrJourneyNotFound = domain.ErrJourneyNotFound

// JourneyStore implements domain.JourneyStore over the journeys and steps tables.
type JourneyStore struct {
	db *DB
}

func NewJourneyStore(db *DB) *JourneyStore {
	if db == nil {
		panic("storage: NewJourneyStore requires a DB")
	}
	return &JourneyStore{db: db}
}

func scanJourney(r rowScanner) (domain.Journey, error) {
	var (
		j                    domain.Journey
		createdAt, updatedAt string
	)
	if err := r.Scan(&j.ID, &j.Title, &j.Description, &j.RootBlockID, &createdAt, &updatedAt); err != nil {
		return domain.Journey{}, err
	}
	j.CreatedAt, _ = parseTime(createdAt)
	j.UpdatedAt, _ = parseTime(updatedAt)
	return j, nil
}

func (s *JourneyStore) GetJourney(id string) (*domain.Journey, error) {
	j, err := scanJourney(s.db.queryRow(
		`SELECT id, title, description, root_block_id, created_at, updated_at FROM journeys WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get journey %s: %w", id, ErrJourneyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get journey: %w", err)
	}
	return &j, nil
}

func (s *JourneyStore) PutJourney(j *domain.Journey) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.UpdatedAt.Before(j.CreatedAt) {
		j.UpdatedAt = j.CreatedAt
	}
	_, err := s.db.exec(
		`INSERT INTO journeys (id, title, description, root_block_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			root_block_id = excluded.root_block_id,
			updated_at = excluded.updated_at`,
		j.ID, j.Title, j.Description, j.RootBlockID, formatTime(j.CreatedAt), formatTime(j.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put journey %s: %w", j.ID, err)
	}
	return nil
}

func (s *JourneyStore) ListJourneys() ([]domain.Journey, error) {
	rows, err := s.db.query(
		`SELECT id, title, description, root_block_id, created_at, updated_at FROM journeys ORDER BY title ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	defer rows.Close()

	out := []domain.Journey{}
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journey: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// DeleteJourney removes the journey row and its step index. Blocks are left
// to the block store.
func (s *JourneyStore) DeleteJourney(id string) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin delete journey: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(s.db.rebind(`DELETE FROM steps WHERE journey_id = ?`), id); err != nil {
		return fmt.Errorf("delete steps: %w", err)
	}
	if _, err := tx.Exec(s.db.rebind(`DELETE FROM journeys WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete journey: %w", err)
	}
	return tx.Commit()
}

// ReplaceSteps swaps the step index of a journey atomically.
func (s *JourneyStore) ReplaceSteps(journeyID string, steps []domain.StepRecord) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin replace steps: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(s.db.rebind(`DELETE FROM steps WHERE journey_id = ?`), journeyID); err != nil {
		return fmt.Errorf("clear steps: %w", err)
	}
	insert := s.db.rebind(`INSERT INTO steps (id, journey_id, group_id, rank, title, step_id_in_group) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, st := range steps {
		if _, err := tx.Exec(insert, st.ID, journeyID, st.GroupID, st.Rank, st.Title, st.StepIDInGroup); err != nil {
			return fmt.Errorf("insert step %s: %w", st.ID, err)
		}
	}
	return tx.Commit()
}

// ListSteps returns the journey's steps in rank order.
func (s *JourneyStore) ListSteps(journeyID string) ([]domain.StepRecord, error) {
	rows, err := s.db.query(
		`SELECT id, journey_id, group_id, rank, title, step_id_in_group FROM steps WHERE journey_id = ? ORDER BY rank ASC`,
		journeyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	out := []domain.StepRecord{}
	for rows.Next() {
		var st domain.StepRecord
		if err := rows.Scan(&st.ID, &st.JourneyID, &st.GroupID, &st.Rank, &st.Title, &st.StepIDInGroup); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
