package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawBlock is the persisted / fixture wire shape of a block.
type RawBlock struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ParentID   string          `json:"parentId,omitempty"`
	Parent     string          `json:"parent,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
	Content    []string        `json:"content"`
	CreatedAt  Timestamp       `json:"createdAt"`
	UpdatedAt  Timestamp       `json:"updatedAt"`
	CreatedBy  string          `json:"createdBy,omitempty"`
	Deleted    bool            `json:"deleted,omitempty"`
}

// Timestamp decodes RFC 3339 strings, epoch milliseconds, or null.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", data, err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// ToRaw converts a typed block back to its wire shape.
func ToRaw(b Block) (RawBlock, error) {
	props, err := json.Marshal(b.Properties)
	if err != nil {
		return RawBlock{}, fmt.Errorf("marshal properties: %w", err)
	}
	return RawBlock{
		ID:         b.ID,
		Type:       string(b.Type),
		ParentID:   b.ParentID,
		Properties: props,
		Content:    append([]string{}, b.Content...),
		CreatedAt:  Timestamp{b.CreatedAt},
		UpdatedAt:  Timestamp{b.UpdatedAt},
		CreatedBy:  b.CreatedBy,
		Deleted:    b.Deleted,
	}, nil
}

// ToBlock converts a raw record into its typed variant using the current time
// for missing timestamps.
func ToBlock(raw RawBlock) (Block, error) {
	return ToBlockAt(raw, time.Now().UTC())
}

// ToBlockAt converts a raw record into its typed variant. Unknown property
// keys are dropped. Missing timestamps default to now and a missing actor to
// SystemActor. Duplicate child ids are collapsed to their first occurrence.
func ToBlockAt(raw RawBlock, now time.Time) (Block, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return Block{}, ErrMissingID
	}
	t := BlockType(strings.TrimSpace(raw.Type))
	if !t.Valid() {
		return Block{}, &UnknownBlockTypeError{ID: id, Type: raw.Type}
	}
	props, err := DecodeProperties(t, raw.Properties)
	if err != nil {
		return Block{}, fmt.Errorf("block %s: %w", id, err)
	}

	parentID := strings.TrimSpace(raw.ParentID)
	if parentID == "" {
		parentID = strings.TrimSpace(raw.Parent)
	}

	createdAt := raw.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := raw.UpdatedAt.Time
	if updatedAt.IsZero() {
		updatedAt = now
	}
	if updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	createdBy := strings.TrimSpace(raw.CreatedBy)
	if createdBy == "" {
		createdBy = SystemActor
	}

	return Block{
		ID:         id,
		Type:       t,
		ParentID:   parentID,
		Content:    uniqueIDs(raw.Content, id),
		Properties: props,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		CreatedBy:  createdBy,
		Deleted:    raw.Deleted,
	}, nil
}

// ToBlocks converts a batch. A failing record is skipped and its error
// collected; the rest of the batch still converts.
func ToBlocks(raws []RawBlock) ([]Block, error) {
	now := time.Now().UTC()
	out := make([]Block, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		b, err := ToBlockAt(raw, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, b)
	}
	return out, errors.Join(errs...)
}

// DecodeProperties decodes data into the property record legal for t. Empty
// or null data yields the empty record.
func DecodeProperties(t BlockType, data json.RawMessage) (Properties, error) {
	props := DefaultProperties(t)
	if props == nil {
		return nil, &UnknownBlockTypeError{Type: string(t)}
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return props, nil
	}

	var err error
	switch p := props.(type) {
	case JourneyProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case StepGroupProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case StepProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case PageProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case TextProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case ToDoProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case CalloutProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case CodeProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case ImageProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case BookmarkProperties:
		err = json.Unmarshal(trimmed, &p)
		props = p
	case DividerProperties:
		// no legal keys
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s properties: %w", t, err)
	}
	return props, nil
}

func uniqueIDs(ids []string, self string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == self || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
