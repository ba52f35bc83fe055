package domain

import "time"

// Journey is the catalog row for a guided tour. The block tree rooted at
// RootBlockID is the source of truth for its structure.
type Journey struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RootBlockID string    `json:"rootBlockId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StepRecord is the per-step index row. Rank orders steps within a journey.
type StepRecord struct {
	ID            string `json:"id"`
	JourneyID     string `json:"journeyId"`
	GroupID       string `json:"groupId"`
	Rank          string `json:"rank"`
	Title         string `json:"title"`
	StepIDInGroup int    `json:"stepIdInGroup"`
}

// FlattenedStep is a step projected with its group and a global position.
// Values are rebuilt on every flatten and never mutated in place.
type FlattenedStep struct {
	Block         Block          `json:"block"`
	Properties    StepProperties `json:"properties"`
	GroupID       string         `json:"groupId"`
	GlobalIndex   int            `json:"globalIndex"`
	StepIDInGroup int            `json:"stepIdInGroup"`
}

// BlockStore is the persistence collaborator for blocks.
type BlockStore interface {
	Get(id string) (*Block, error)
	Put(b *Block) error
	PutMany(blocks []Block) error
	BulkDelete(ids []string) error
	Count() (int, error)
	WhereParent(parentID string) ([]Block, error)
	WhereType(t BlockType) ([]Block, error)
	WhereDeleted(deleted bool) ([]Block, error)
	All() ([]Block, error)
	PurgeDeleted(before time.Time) (int, error)
}

// JourneyStore is the persistence collaborator for journeys and their step index.
type JourneyStore interface {
	GetJourney(id string) (*Journey, error)
	PutJourney(j *Journey) error
	ListJourneys() ([]Journey, error)
	DeleteJourney(id string) error
	ReplaceSteps(journeyID string, steps []StepRecord) error
	ListSteps(journeyID string) ([]StepRecord, error)
}
