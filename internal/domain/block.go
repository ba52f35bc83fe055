package domain

import (
	"encoding/json"
	"time"
)

type BlockType string

const (
	BlockTypeJourney   BlockType = "journey"
	BlockTypeStepGroup BlockType = "step_group"
	BlockTypeStep      BlockType = "step"

	BlockTypePage         BlockType = "page"
	BlockTypeText         BlockType = "text"
	BlockTypeHeading1     BlockType = "heading_1"
	BlockTypeHeading2     BlockType = "heading_2"
	BlockTypeHeading3     BlockType = "heading_3"
	BlockTypeBulletedList BlockType = "bulleted_list"
	BlockTypeNumberedList BlockType = "numbered_list"
	BlockTypeToDo         BlockType = "to_do"
	BlockTypeToggle       BlockType = "toggle"
	BlockTypeCallout      BlockType = "callout"
	BlockTypeQuote        BlockType = "quote"
	BlockTypeDivider      BlockType = "divider"
	BlockTypeCode         BlockType = "code"
	BlockTypeImage        BlockType = "image"
	BlockTypeBookmark     BlockType = "bookmark"
)

// BlockTypes lists every known variant in declaration order.
var BlockTypes = []BlockType{
	BlockTypeJourney, BlockTypeStepGroup, BlockTypeStep,
	BlockTypePage, BlockTypeText,
	BlockTypeHeading1, BlockTypeHeading2, BlockTypeHeading3,
	BlockTypeBulletedList, BlockTypeNumberedList,
	BlockTypeToDo, BlockTypeToggle, BlockTypeCallout, BlockTypeQuote,
	BlockTypeDivider, BlockTypeCode, BlockTypeImage, BlockTypeBookmark,
}

// Valid reports whether t is one of the known block variants.
func (t BlockType) Valid() bool {
	for _, known := range BlockTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SystemActor is recorded as CreatedBy when a record carries no actor.
const SystemActor = "system"

// Block is a single node of the content tree. Ownership is by relation: a
// parent lists child ids in Content and each child points back via ParentID.
type Block struct {
	ID         string     `json:"id"`
	Type       BlockType  `json:"type"`
	ParentID   string     `json:"parentId,omitempty"`
	Content    []string   `json:"content"`
	Properties Properties `json:"properties"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	CreatedBy  string     `json:"createdBy"`
	Deleted    bool       `json:"deleted,omitempty"`
}

// UnmarshalJSON routes decoding through ToBlock so every decoded block is
// schema-checked and carries only variant-legal properties.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw RawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out, err := ToBlock(raw)
	if err != nil {
		return err
	}
	*b = out
	return nil
}

// Clone returns a deep copy; later mutation of either value does not affect the other.
func (b Block) Clone() Block {
	out := b
	if b.Content != nil {
		out.Content = append([]string(nil), b.Content...)
	}
	if b.Properties != nil {
		out.Properties = b.Properties.cloneProperties()
	}
	return out
}

// Touch bumps UpdatedAt to now. UpdatedAt never moves backwards and never
// drops below CreatedAt.
func (b *Block) Touch(now time.Time) {
	if now.After(b.UpdatedAt) {
		b.UpdatedAt = now
	}
	if b.UpdatedAt.Before(b.CreatedAt) {
		b.UpdatedAt = b.CreatedAt
	}
}

// IndexOfChild returns the position of id in Content or -1.
func (b *Block) IndexOfChild(id string) int {
	for i, c := range b.Content {
		if c == id {
			return i
		}
	}
	return -1
}

// HasChild reports whether id is listed in Content.
func (b *Block) HasChild(id string) bool {
	return b.IndexOfChild(id) >= 0
}

// RemoveChild drops id from Content. Returns false when it was not listed.
func (b *Block) RemoveChild(id string) bool {
	i := b.IndexOfChild(id)
	if i < 0 {
		return false
	}
	b.Content = append(b.Content[:i:i], b.Content[i+1:]...)
	return true
}

// InsertChild places id at index (clamped; negative appends). Any existing
// occurrence is removed first so ids stay unique within Content.
func (b *Block) InsertChild(id string, index int) {
	b.RemoveChild(id)
	if index < 0 || index > len(b.Content) {
		index = len(b.Content)
	}
	b.Content = append(b.Content, "")
	copy(b.Content[index+1:], b.Content[index:])
	b.Content[index] = id
}
