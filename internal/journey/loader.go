package journey

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"stepjourney/internal/domain"
)

// PersistedBlocks is the read side of the block store the loader needs.
type PersistedBlocks interface {
	All() ([]domain.Block, error)
	WhereDeleted(deleted bool) ([]domain.Block, error)
}

// FixtureBlocks supplies static blocks, e.g. a *fixtures.Set.
type FixtureBlocks interface {
	Blocks() []domain.Block
}

// Loader merges persisted and fixture blocks. Persisted entries win by id,
// and a persisted tombstone hides the fixture block with the same id.
type Loader struct {
	persisted PersistedBlocks
	fixtures  FixtureBlocks
}

// NewLoader accepts nil for either source.
func NewLoader(persisted PersistedBlocks, fixtures FixtureBlocks) *Loader {
	return &Loader{persisted: persisted, fixtures: fixtures}
}

func (l *Loader) LoadBlocks(ctx context.Context) ([]domain.Block, error) {
	var live, tombstones, static []domain.Block

	g, ctx := errgroup.WithContext(ctx)
	if l.persisted != nil {
		g.Go(func() error {
			var err error
			live, err = l.persisted.All()
			if err != nil {
				return fmt.Errorf("load persisted blocks: %w", err)
			}
			return ctx.Err()
		})
		g.Go(func() error {
			var err error
			tombstones, err = l.persisted.WhereDeleted(true)
			if err != nil {
				return fmt.Errorf("load deleted blocks: %w", err)
			}
			return ctx.Err()
		})
	}
	if l.fixtures != nil {
		g.Go(func() error {
			static = l.fixtures.Blocks()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(live, tombstones, static), nil
}

// Merge returns persisted followed by the fixture blocks whose ids are
// neither persisted nor hidden.
func Merge(persisted, hidden, fixtures []domain.Block) []domain.Block {
	seen := make(map[string]bool, len(persisted)+len(hidden))
	out := make([]domain.Block, 0, len(persisted)+len(fixtures))
	for _, b := range persisted {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	for _, b := range hidden {
		seen[b.ID] = true
	}
	for _, b := range fixtures {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}
