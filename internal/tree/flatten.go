package tree

import (
	"stepjourney/internal/domain"
)

// FlattenJourney walks the journey's step groups and their steps in Content
// order and numbers the steps from zero. Only steps advance the counter.
func FlattenJourney(journey domain.Block, ix *Index) ([]domain.FlattenedStep, error) {
	if !domain.IsJourneyBlock(journey) {
		return nil, domain.ErrNotAJourney
	}
	out := []domain.FlattenedStep{}
	global := 0
	for _, group := range ChildBlocksByType(journey, ix, domain.BlockTypeStepGroup) {
		for pos, step := range ChildBlocksByType(group, ix, domain.BlockTypeStep) {
			props, _ := domain.AsStep(step)
			inGroup := props.StepIDInGroup
			if inGroup <= 0 {
				inGroup = pos + 1
			}
			out = append(out, domain.FlattenedStep{
				Block:         step.Clone(),
				Properties:    props.Clone(),
				GroupID:       group.ID,
				GlobalIndex:   global,
				StepIDInGroup: inGroup,
			})
			global++
		}
	}
	return out, nil
}

// Row is one visible line of a document outline.
type Row struct {
	Block domain.Block
	Depth int
}

// FlattenDocument lists the descendants of root in render order, depth
// first by Content. Children of ids in collapsed are hidden. The root itself
// is not included.
func FlattenDocument(root domain.Block, ix *Index, collapsed map[string]bool) []Row {
	var out []Row
	visited := map[string]bool{root.ID: true}
	var walk func(b domain.Block, depth int)
	walk = func(b domain.Block, depth int) {
		for _, child := range ChildBlocks(b, ix) {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			out = append(out, Row{Block: child, Depth: depth})
			if collapsed[child.ID] {
				continue
			}
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return out
}

// RowIDs returns the block ids of rows in order.
func RowIDs(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Block.ID
	}
	return ids
}
