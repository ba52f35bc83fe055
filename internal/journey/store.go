// Package journey is the guided-tour viewer state: the loaded journey, its
// flattened steps, the current position and which groups are expanded.
package journey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"stepjourney/internal/domain"
	"stepjourney/internal/logger"
	"stepjourney/internal/rank"
	"stepjourney/internal/service"
	"stepjourney/internal/tree"
)

const EventStepChanged = "journey:step"

// StepChanged is the payload of EventStepChanged.
type StepChanged struct {
	JourneyID string `json:"journeyId"`
	Index     int    `json:"index"`
	StepID    string `json:"stepId"`
	GroupID   string `json:"groupId"`
}

// ErrNotLoaded is returned by operations that need a loaded journey.
var ErrNotLoaded = errors.New("no journey loaded")

// Store holds one loaded journey at a time. The zero index is the first
// step; navigation clamps at both ends.
type Store struct {
	loader  *Loader
	catalog domain.JourneyStore
	emitter service.EventEmitter
	log     *logger.Logger

	mu       sync.RWMutex
	root     *domain.Block
	steps    []domain.FlattenedStep
	current  int
	expanded map[string]bool
}

// NewStore panics on a nil loader. catalog may be nil, in which case no
// step index is written and ListJourneys only sees blocks.
func NewStore(loader *Loader, catalog domain.JourneyStore, emitter service.EventEmitter, log *logger.Logger) *Store {
	if loader == nil {
		panic("journey: NewStore requires a loader")
	}
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		loader:   loader,
		catalog:  catalog,
		emitter:  emitter,
		log:      log,
		expanded: make(map[string]bool),
	}
}

// Load reads both block sources, flattens the journey and resets the
// position to the first step. id may be a catalog id or a root block id.
func (s *Store) Load(ctx context.Context, id string) error {
	root, steps, err := s.Preview(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.root = &root
	s.steps = steps
	s.current = 0
	s.expanded = make(map[string]bool)
	if len(steps) > 0 {
		s.expanded[steps[0].GroupID] = true
	}
	s.mu.Unlock()

	s.log.Debug("journey loaded", "journey_id", root.ID, "steps", len(steps))
	if s.catalog != nil {
		if err := s.reindex(root, steps); err != nil {
			s.log.Warn("journey step index not updated", "journey_id", root.ID, "error", err)
		}
	}
	return nil
}

// Preview flattens a journey without touching the loaded state.
func (s *Store) Preview(ctx context.Context, id string) (domain.Block, []domain.FlattenedStep, error) {
	rootID := s.resolveRoot(id)
	blocks, err := s.loader.LoadBlocks(ctx)
	if err != nil {
		return domain.Block{}, nil, err
	}
	ix := tree.NewIndex(blocks)
	root, ok := ix.Get(rootID)
	if !ok {
		return domain.Block{}, nil, fmt.Errorf("load journey %s: %w", id, domain.ErrJourneyNotFound)
	}
	steps, err := tree.FlattenJourney(root, ix)
	if err != nil {
		return domain.Block{}, nil, fmt.Errorf("load journey %s: %w", id, err)
	}
	return root, steps, nil
}

func (s *Store) resolveRoot(id string) string {
	if s.catalog == nil {
		return id
	}
	j, err := s.catalog.GetJourney(id)
	if err != nil || j.RootBlockID == "" {
		return id
	}
	return j.RootBlockID
}

// Journey returns the loaded root block.
func (s *Store) Journey() (domain.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.root == nil {
		return domain.Block{}, false
	}
	return s.root.Clone(), true
}

// Steps returns the flattened steps in navigation order.
func (s *Store) Steps() []domain.FlattenedStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FlattenedStep(nil), s.steps...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}

func (s *Store) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) CurrentStep() (domain.FlattenedStep, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.steps) == 0 {
		return domain.FlattenedStep{}, false
	}
	return s.steps[s.current], true
}

// SetStep moves to index i clamped to the step range and expands the
// step's group. Returns the resulting index.
func (s *Store) SetStep(ctx context.Context, i int) int {
	s.mu.Lock()
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return 0
	}
	i = max(0, min(i, len(s.steps)-1))
	changed := i != s.current
	s.current = i
	step := s.steps[i]
	s.expanded[step.GroupID] = true
	rootID := s.root.ID
	s.mu.Unlock()

	if changed {
		s.emitter.Emit(ctx, EventStepChanged, StepChanged{
			JourneyID: rootID,
			Index:     i,
			StepID:    step.Block.ID,
			GroupID:   step.GroupID,
		})
	}
	return i
}

func (s *Store) NextStep(ctx context.Context) int {
	return s.SetStep(ctx, s.CurrentIndex()+1)
}

func (s *Store) PrevStep(ctx context.Context) int {
	return s.SetStep(ctx, s.CurrentIndex()-1)
}

// GoToStep moves to the step with the given block id.
func (s *Store) GoToStep(ctx context.Context, stepID string) (int, bool) {
	s.mu.RLock()
	idx := -1
	for _, st := range s.steps {
		if st.Block.ID == stepID {
			idx = st.GlobalIndex
			break
		}
	}
	s.mu.RUnlock()
	if idx < 0 {
		return s.CurrentIndex(), false
	}
	return s.SetStep(ctx, idx), true
}

func (s *Store) IsExpanded(groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[groupID]
}

// ToggleGroup flips a group's expanded flag and returns the new value.
func (s *Store) ToggleGroup(groupID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded[groupID] {
		delete(s.expanded, groupID)
		return false
	}
	s.expanded[groupID] = true
	return true
}

func (s *Store) ExpandedGroups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ListJourneys returns catalog entries plus any journey root block that
// has no entry, ordered by title then id.
func (s *Store) ListJourneys(ctx context.Context) ([]domain.Journey, error) {
	var out []domain.Journey
	byRoot := map[string]bool{}
	if s.catalog != nil {
		js, err := s.catalog.ListJourneys()
		if err != nil {
			return nil, fmt.Errorf("list journeys: %w", err)
		}
		for _, j := range js {
			out = append(out, j)
			byRoot[j.RootBlockID] = true
			byRoot[j.ID] = true
		}
	}
	blocks, err := s.loader.LoadBlocks(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		if !domain.IsJourneyBlock(b) || byRoot[b.ID] {
			continue
		}
		out = append(out, catalogEntry(b))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func catalogEntry(root domain.Block) domain.Journey {
	j := domain.Journey{
		ID:          root.ID,
		Title:       domain.BlockTitle(root, ""),
		RootBlockID: root.ID,
		CreatedAt:   root.CreatedAt,
		UpdatedAt:   root.UpdatedAt,
	}
	if p, ok := domain.AsJourney(root); ok {
		j.Description = p.Description
	}
	return j
}

// reindex writes the catalog entry and step index for root. Steps keep
// their previous rank while it still sorts after the preceding step; new
// or moved steps get a rank between their neighbours.
func (s *Store) reindex(root domain.Block, steps []domain.FlattenedStep) error {
	entry := catalogEntry(root)
	if existing, err := s.catalog.GetJourney(root.ID); err == nil {
		entry.CreatedAt = existing.CreatedAt
	}
	if err := s.catalog.PutJourney(&entry); err != nil {
		return err
	}
	prev, err := s.catalog.ListSteps(entry.ID)
	if err != nil {
		return err
	}
	old := make(map[string]string, len(prev))
	for _, r := range prev {
		old[r.ID] = r.Rank
	}
	ids := make([]string, len(steps))
	for i, st := range steps {
		ids[i] = st.Block.ID
	}
	ranks, err := AssignRanks(ids, old)
	if err != nil {
		return err
	}
	records := make([]domain.StepRecord, len(steps))
	for i, st := range steps {
		records[i] = domain.StepRecord{
			ID:            st.Block.ID,
			JourneyID:     entry.ID,
			GroupID:       st.GroupID,
			Rank:          ranks[i],
			Title:         domain.BlockTitle(st.Block, ""),
			StepIDInGroup: st.StepIDInGroup,
		}
	}
	return s.catalog.ReplaceSteps(entry.ID, records)
}

// AssignRanks returns strictly increasing ranks for ids, reusing the ranks
// in old where order allows. With no usable old ranks the result is an
// evenly spaced sequence.
func AssignRanks(ids []string, old map[string]string) ([]string, error) {
	out := make([]string, len(ids))
	kept := make([]bool, len(ids))
	last := ""
	reused := false
	for i, id := range ids {
		r, ok := old[id]
		r = rank.Normalize(r)
		if !ok || r == "" || (last != "" && r <= last) {
			continue
		}
		out[i], kept[i], last, reused = r, true, r, true
	}
	if !reused {
		return rank.Sequence(len(ids)), nil
	}

	used := make(map[string]bool, len(ids))
	for i := range out {
		if kept[i] {
			used[out[i]] = true
		}
	}
	lower := ""
	for i := range ids {
		if kept[i] {
			lower = out[i]
			continue
		}
		upper := ""
		for j := i + 1; j < len(ids); j++ {
			if kept[j] {
				upper = out[j]
				break
			}
		}
		r, err := rank.BetweenUnique(used, lower, upper)
		if err != nil {
			return nil, fmt.Errorf("rank step %s: %w", ids[i], err)
		}
		out[i] = r
		used[r] = true
		lower = r
	}
	return out, nil
}
