package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"stepjourney/internal/domain"
	"stepjourney/internal/logger"
	"stepjourney/internal/tree"
)

const (
	EventBlocksChanged = "blocks:changed"
	EventAutosaveError = "autosave:error"
)

// BlocksChanged is the payload of EventBlocksChanged.
type BlocksChanged struct {
	Action string   `json:"action"`
	RootID string   `json:"rootId"`
	IDs    []string `json:"ids,omitempty"`
}

// Snapshot is a value copy of blocks taken before a mutation, plus the ids
// the mutation created. Restoring it puts the copies back and tombstones
// the created blocks.
type Snapshot struct {
	Label   string         `json:"label"`
	Blocks  []domain.Block `json:"blocks"`
	Created []string       `json:"created,omitempty"`
}

// ─────────────────────────────────────────────────────────────
// Block Service — tree mutations over the block store
// ─────────────────────────────────────────────────────────────

// BlockService owns every mutation of the block tree. Each mutation claims
// the ids it touches; overlapping mutations fail with ErrBusy.
type BlockService struct {
	store   domain.BlockStore
	dataDir string
	emitter EventEmitter
	log     *logger.Logger
	guard   mutationGuard
	now     func() time.Time
	newID   func() string
}

// NewBlockService creates a BlockService.
func NewBlockService(store domain.BlockStore, dataDir string, emitter EventEmitter, log *logger.Logger) *BlockService {
	if store == nil {
		panic("service: NewBlockService requires a block store")
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BlockService{
		store:   store,
		dataDir: dataDir,
		emitter: emitter,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Wait blocks until in-flight mutations finish or ctx is done.
func (s *BlockService) Wait(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// ── reads ──────────────────────────────────────────────────

// GetBlock returns a live block with dangling ids filtered from Content.
func (s *BlockService) GetBlock(_ context.Context, id string) (*domain.Block, error) {
	b, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if b.Deleted {
		return nil, fmt.Errorf("get block %s: %w", id, domain.ErrBlockNotFound)
	}
	children, err := s.store.WhereParent(id)
	if err != nil {
		return nil, fmt.Errorf("load children: %w", err)
	}
	live := tree.LiveContent(*b, tree.NewIndex(children))
	return &live, nil
}

// ListChildren returns the live children of id in Content order.
func (s *BlockService) ListChildren(ctx context.Context, id string) ([]domain.Block, error) {
	parent, err := s.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	children, err := s.store.WhereParent(id)
	if err != nil {
		return nil, fmt.Errorf("load children: %w", err)
	}
	return tree.ChildBlocks(*parent, tree.NewIndex(children)), nil
}

// ListBlocks returns every live block.
func (s *BlockService) ListBlocks(_ context.Context) ([]domain.Block, error) {
	return s.store.All()
}

// Subtree returns id and all its live descendants, depth first.
func (s *BlockService) Subtree(_ context.Context, id string) ([]domain.Block, error) {
	ix, err := s.index()
	if err != nil {
		return nil, err
	}
	if !ix.Has(id) {
		return nil, fmt.Errorf("subtree %s: %w", id, domain.ErrBlockNotFound)
	}
	return tree.BlockWithChildren(id, ix), nil
}

// Capture copies the current stored state of ids for a later RestoreSnapshot.
// Unknown ids are skipped.
func (s *BlockService) Capture(_ context.Context, label string, ids ...string) Snapshot {
	snap := Snapshot{Label: label}
	seen := map[string]bool{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		b, err := s.store.Get(id)
		if err != nil {
			continue
		}
		snap.Blocks = append(snap.Blocks, b.Clone())
	}
	return snap
}

// ── mutations ──────────────────────────────────────────────

// CreateBlock creates a block of type t under parentID at index (-1 appends).
// An empty parentID creates a root block. Nil props yield the empty record.
func (s *BlockService) CreateBlock(ctx context.Context, parentID string, t domain.BlockType, props domain.Properties, index int) (*domain.Block, error) {
	if !t.Valid() {
		return nil, &domain.UnknownBlockTypeError{Type: string(t)}
	}
	if props == nil {
		props = domain.DefaultProperties(t)
	} else if !domain.PropertiesMatch(t, props) {
		return nil, fmt.Errorf("create %s: %w", t, ErrPropertiesMismatch)
	}

	unlock, err := s.lock(parentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	b := domain.Block{
		ID:         s.newID(),
		Type:       t,
		ParentID:   parentID,
		Content:    []string{},
		Properties: domain.CloneProperties(props),
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  ActorFrom(ctx),
	}
	writes := []domain.Block{b}

	if parentID != "" {
		parent, err := s.live(parentID)
		if err != nil {
			return nil, fmt.Errorf("create block: %w", err)
		}
		if p, ok := b.Properties.(domain.StepProperties); ok && p.StepIDInGroup == 0 && domain.IsStepGroupBlock(parent) {
			next, err := s.nextStepID(parent)
			if err != nil {
				return nil, err
			}
			p.StepIDInGroup = next
			b.Properties = p
			writes[0] = b
		}
		parent.InsertChild(b.ID, index)
		parent.Touch(now)
		writes = append(writes, parent)
	}

	if err := s.store.PutMany(writes); err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	s.emit(ctx, "create", firstNonEmpty(parentID, b.ID), b.ID)
	return &b, nil
}

// UpdateProperties replaces the property record of id.
func (s *BlockService) UpdateProperties(ctx context.Context, id string, props domain.Properties) (*domain.Block, error) {
	unlock, err := s.lock(id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.live(id)
	if err != nil {
		return nil, fmt.Errorf("update properties: %w", err)
	}
	if !domain.PropertiesMatch(b.Type, props) {
		return nil, fmt.Errorf("update %s: %w", b.Type, ErrPropertiesMismatch)
	}
	b.Properties = domain.CloneProperties(props)
	b.Touch(s.now())
	if err := s.store.Put(&b); err != nil {
		return nil, fmt.Errorf("update properties: %w", err)
	}
	s.emit(ctx, "update", id, id)
	return &b, nil
}

// UpdateTitle sets the display title of id where its variant has one.
func (s *BlockService) UpdateTitle(ctx context.Context, id, title string) (*domain.Block, error) {
	b, err := s.live(id)
	if err != nil {
		return nil, fmt.Errorf("update title: %w", err)
	}
	props, ok := domain.WithTitle(b.Properties, title)
	if !ok {
		return nil, fmt.Errorf("update title: %s blocks have no title", b.Type)
	}
	return s.UpdateProperties(ctx, id, props)
}

// MoveBlock re-parents id under newParentID at index within the parent's
// Content after id has been removed from its old position (-1 appends). An
// empty newParentID detaches id to a root. Moving a block into its own
// subtree fails with ErrCycle.
func (s *BlockService) MoveBlock(ctx context.Context, id, newParentID string, index int) error {
	if id == newParentID {
		return ErrCycle
	}
	ix, err := s.index()
	if err != nil {
		return err
	}
	b, ok := ix.Get(id)
	if !ok {
		return fmt.Errorf("move %s: %w", id, domain.ErrBlockNotFound)
	}
	if newParentID != "" {
		if !ix.Has(newParentID) {
			return fmt.Errorf("move to %s: %w", newParentID, domain.ErrBlockNotFound)
		}
		if tree.Contains(ix, id, newParentID) || tree.IsAncestor(ix, id, newParentID) {
			return ErrCycle
		}
	}

	unlock, err := s.lock(append(subtreeIDs(id, ix), b.ParentID, newParentID)...)
	if err != nil {
		return err
	}
	defer unlock()

	now := s.now()
	b = b.Clone()
	changed := map[string]domain.Block{}
	if b.ParentID != "" {
		if old, ok := ix.Get(b.ParentID); ok {
			old = old.Clone()
			old.RemoveChild(id)
			old.Touch(now)
			changed[old.ID] = old
		}
	}
	if newParentID != "" {
		np, ok := changed[newParentID]
		if !ok {
			np, _ = ix.Get(newParentID)
			np = np.Clone()
		}
		np.InsertChild(id, index)
		np.Touch(now)
		changed[np.ID] = np
	}
	b.ParentID = newParentID
	b.Touch(now)
	changed[b.ID] = b

	writes := make([]domain.Block, 0, len(changed))
	for _, c := range changed {
		writes = append(writes, c)
	}
	if err := s.store.PutMany(writes); err != nil {
		return fmt.Errorf("move block: %w", err)
	}
	s.emit(ctx, "move", firstNonEmpty(newParentID, id), id)
	return nil
}

// DeleteBlock tombstones id and its subtree and unlinks id from its parent.
func (s *BlockService) DeleteBlock(ctx context.Context, id string) error {
	ix, err := s.index()
	if err != nil {
		return err
	}
	b, ok := ix.Get(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, domain.ErrBlockNotFound)
	}
	ids := subtreeIDs(id, ix)
	unlock, err := s.lock(append(ids, b.ParentID)...)
	if err != nil {
		return err
	}
	defer unlock()

	now := s.now()
	writes := make([]domain.Block, 0, len(ids)+1)
	for _, sub := range tree.BlockWithChildren(id, ix) {
		sub = sub.Clone()
		sub.Deleted = true
		sub.Touch(now)
		writes = append(writes, sub)
	}
	if parent, ok := ix.Get(b.ParentID); ok {
		parent = parent.Clone()
		parent.RemoveChild(id)
		parent.Touch(now)
		writes = append(writes, parent)
	}
	if err := s.store.PutMany(writes); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	s.emit(ctx, "delete", firstNonEmpty(b.ParentID, id), ids...)
	return nil
}

// DeleteBlocks deletes several blocks. Ids already removed as part of an
// earlier block's subtree are skipped.
func (s *BlockService) DeleteBlocks(ctx context.Context, ids []string) error {
	for _, id := range ids {
		err := s.DeleteBlock(ctx, id)
		if err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}

// DuplicateBlock copies id and its subtree with fresh ids and inserts the
// copy right after id.
func (s *BlockService) DuplicateBlock(ctx context.Context, id string) (*domain.Block, error) {
	ix, err := s.index()
	if err != nil {
		return nil, err
	}
	src, ok := ix.Get(id)
	if !ok {
		return nil, fmt.Errorf("duplicate %s: %w", id, domain.ErrBlockNotFound)
	}
	unlock, err := s.lock(id, src.ParentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	copies := s.freshCopies(tree.BlockWithChildren(id, ix), now, ActorFrom(ctx))
	root := copies[0]
	root.ParentID = src.ParentID

	writes := copies
	if parent, ok := ix.Get(src.ParentID); ok {
		parent = parent.Clone()
		if err := s.renumberStep(&root, parent); err != nil {
			return nil, err
		}
		parent.InsertChild(root.ID, parent.IndexOfChild(id)+1)
		parent.Touch(now)
		writes = append(writes, parent)
	}
	writes[0] = root

	if err := s.store.PutMany(writes); err != nil {
		return nil, fmt.Errorf("duplicate block: %w", err)
	}
	s.emit(ctx, "duplicate", firstNonEmpty(src.ParentID, root.ID), root.ID)
	return &root, nil
}

// PasteBlocks inserts a clipboard snapshot after targetID with fresh ids.
// Snapshot roots are the blocks whose parent is not in the snapshot. When
// the target has no parent the roots become its last children instead.
// Returns the inserted roots in order.
func (s *BlockService) PasteBlocks(ctx context.Context, targetID string, snapshot []domain.Block) ([]domain.Block, error) {
	if len(snapshot) == 0 {
		return nil, ErrEmptySnapshot
	}
	ix, err := s.index()
	if err != nil {
		return nil, err
	}
	target, ok := ix.Get(targetID)
	if !ok {
		return nil, fmt.Errorf("paste into %s: %w", targetID, domain.ErrBlockNotFound)
	}

	parent, ok := ix.Get(target.ParentID)
	if !ok {
		parent = target
	}
	parent = parent.Clone()
	parentID, insertAt := parent.ID, -1
	if parentID != targetID {
		insertAt = parent.IndexOfChild(targetID) + 1
	}
	unlock, err := s.lock(targetID, parentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	inSnapshot := make(map[string]bool, len(snapshot))
	for _, b := range snapshot {
		inSnapshot[b.ID] = true
	}
	copies := s.freshCopies(snapshot, now, ActorFrom(ctx))

	var roots []domain.Block
	for i := range copies {
		if inSnapshot[snapshot[i].ParentID] {
			continue
		}
		copies[i].ParentID = parentID
		if err := s.renumberStep(&copies[i], parent); err != nil {
			return nil, err
		}
		parent.InsertChild(copies[i].ID, insertAt)
		if insertAt >= 0 {
			insertAt++
		}
		roots = append(roots, copies[i])
	}
	parent.Touch(now)

	if err := s.store.PutMany(append(copies, parent)); err != nil {
		return nil, fmt.Errorf("paste blocks: %w", err)
	}
	ids := make([]string, len(roots))
	for i, r := range roots {
		ids[i] = r.ID
	}
	s.emit(ctx, "paste", parentID, ids...)
	return roots, nil
}

// Indent moves id under its previous live sibling, as the last child.
// Returns false when id has no previous sibling.
func (s *BlockService) Indent(ctx context.Context, id string) (bool, error) {
	ix, err := s.index()
	if err != nil {
		return false, err
	}
	b, ok := ix.Get(id)
	if !ok {
		return false, fmt.Errorf("indent %s: %w", id, domain.ErrBlockNotFound)
	}
	parent, ok := ix.Get(b.ParentID)
	if !ok {
		return false, nil
	}
	siblings := tree.ChildBlocks(parent, ix)
	prev := ""
	for _, sib := range siblings {
		if sib.ID == id {
			break
		}
		prev = sib.ID
	}
	if prev == "" {
		return false, nil
	}
	if err := s.MoveBlock(ctx, id, prev, -1); err != nil {
		return false, err
	}
	return true, nil
}

// Outdent moves id out of its parent to sit right after it in the
// grandparent. Returns false when the parent is a root.
func (s *BlockService) Outdent(ctx context.Context, id string) (bool, error) {
	ix, err := s.index()
	if err != nil {
		return false, err
	}
	b, ok := ix.Get(id)
	if !ok {
		return false, fmt.Errorf("outdent %s: %w", id, domain.ErrBlockNotFound)
	}
	parent, ok := ix.Get(b.ParentID)
	if !ok || parent.ParentID == "" {
		return false, nil
	}
	grand, ok := ix.Get(parent.ParentID)
	if !ok {
		return false, nil
	}
	if err := s.MoveBlock(ctx, id, grand.ID, grand.IndexOfChild(parent.ID)+1); err != nil {
		return false, err
	}
	return true, nil
}

// RestoreSnapshot writes the snapshot's blocks back and tombstones the ids
// the snapshotted action created. UpdatedAt still moves forward.
func (s *BlockService) RestoreSnapshot(ctx context.Context, snap Snapshot) error {
	if len(snap.Blocks) == 0 && len(snap.Created) == 0 {
		return ErrEmptySnapshot
	}
	ids := make([]string, 0, len(snap.Blocks)+len(snap.Created))
	for _, b := range snap.Blocks {
		ids = append(ids, b.ID)
	}
	ids = append(ids, snap.Created...)
	unlock, err := s.lock(ids...)
	if err != nil {
		return err
	}
	defer unlock()

	now := s.now()
	restoring := make(map[string]bool, len(snap.Blocks))
	writes := make([]domain.Block, 0, len(ids))
	for _, b := range snap.Blocks {
		b = b.Clone()
		if cur, err := s.store.Get(b.ID); err == nil && cur.UpdatedAt.After(b.UpdatedAt) {
			b.UpdatedAt = cur.UpdatedAt
		}
		b.Touch(now)
		restoring[b.ID] = true
		writes = append(writes, b)
	}
	for _, id := range snap.Created {
		if restoring[id] {
			continue
		}
		cur, err := s.store.Get(id)
		if err != nil {
			continue
		}
		for _, sub := range s.subtreeOf(*cur) {
			sub.Deleted = true
			sub.Touch(now)
			writes = append(writes, sub)
		}
	}
	if err := s.store.PutMany(writes); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	root := ""
	if len(snap.Blocks) > 0 {
		root = snap.Blocks[0].ID
	} else {
		root = snap.Created[0]
	}
	s.emit(ctx, "restore", root, ids...)
	return nil
}

// ── images ─────────────────────────────────────────────────

// SaveImageFile writes base64 image data under the data directory and
// points the image block's URL at it.
func (s *BlockService) SaveImageFile(ctx context.Context, blockID, dataURL string) (string, error) {
	b, err := s.live(blockID)
	if err != nil {
		return "", err
	}
	props, ok := b.Properties.(domain.ImageProperties)
	if !ok {
		return "", fmt.Errorf("block %s is not an image", blockID)
	}
	data, ext, err := decodeBase64Image(dataURL)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	dir := filepath.Join(s.dataDir, "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("mkdir for image: %w", err)
	}
	filePath := filepath.Join(dir, blockID+ext)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	props.URL = "file://" + filepath.ToSlash(filePath)
	if _, err := s.UpdateProperties(ctx, blockID, props); err != nil {
		return "", err
	}
	return filePath, nil
}

// GetImageData returns a data URL for an image block stored locally.
func (s *BlockService) GetImageData(_ context.Context, blockID string) (string, error) {
	b, err := s.live(blockID)
	if err != nil {
		return "", err
	}
	props, ok := b.Properties.(domain.ImageProperties)
	if !ok || !strings.HasPrefix(props.URL, "file://") {
		return "", nil
	}
	return readBase64File(strings.TrimPrefix(props.URL, "file://"))
}

// ── helpers ────────────────────────────────────────────────

func (s *BlockService) index() (*tree.Index, error) {
	all, err := s.store.All()
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	return tree.NewIndex(all), nil
}

func (s *BlockService) live(id string) (domain.Block, error) {
	b, err := s.store.Get(id)
	if err != nil {
		return domain.Block{}, err
	}
	if b.Deleted {
		return domain.Block{}, fmt.Errorf("block %s: %w", id, domain.ErrBlockNotFound)
	}
	return b.Clone(), nil
}

func (s *BlockService) subtreeOf(root domain.Block) []domain.Block {
	ix, err := s.index()
	if err != nil || !ix.Has(root.ID) {
		return []domain.Block{root.Clone()}
	}
	out := tree.BlockWithChildren(root.ID, ix)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

// lock claims ids for the duration of a mutation. Empty ids are ignored.
func (s *BlockService) lock(ids ...string) (func(), error) {
	claim := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			claim = append(claim, id)
		}
	}
	if !s.guard.TryLockAll(claim...) {
		return nil, ErrBusy
	}
	return func() { s.guard.UnlockAll(claim...) }, nil
}

// freshCopies clones blocks with new ids, remapping parent and content
// references inside the set. References leaving the set are dropped from
// Content; the first block's ParentID is left for the caller to set.
func (s *BlockService) freshCopies(blocks []domain.Block, now time.Time, actor string) []domain.Block {
	ids := make(map[string]string, len(blocks))
	for _, b := range blocks {
		ids[b.ID] = s.newID()
	}
	out := make([]domain.Block, 0, len(blocks))
	for _, b := range blocks {
		c := b.Clone()
		c.ID = ids[b.ID]
		if p, ok := ids[b.ParentID]; ok {
			c.ParentID = p
		}
		content := make([]string, 0, len(b.Content))
		for _, child := range b.Content {
			if n, ok := ids[child]; ok {
				content = append(content, n)
			}
		}
		c.Content = content
		c.CreatedAt, c.UpdatedAt = now, now
		c.CreatedBy = actor
		c.Deleted = false
		out = append(out, c)
	}
	return out
}

// renumberStep gives a step copied into a group the next in-group id.
func (s *BlockService) renumberStep(b *domain.Block, parent domain.Block) error {
	p, ok := domain.AsStep(*b)
	if !ok || !domain.IsStepGroupBlock(parent) {
		return nil
	}
	next, err := s.nextStepID(parent)
	if err != nil {
		return err
	}
	p.StepIDInGroup = next
	b.Properties = p
	return nil
}

func (s *BlockService) nextStepID(group domain.Block) (int, error) {
	steps, err := s.store.WhereParent(group.ID)
	if err != nil {
		return 0, fmt.Errorf("load group steps: %w", err)
	}
	max := 0
	for _, st := range steps {
		if p, ok := domain.AsStep(st); ok && p.StepIDInGroup > max {
			max = p.StepIDInGroup
		}
	}
	return max + 1, nil
}

func (s *BlockService) emit(ctx context.Context, action, rootID string, ids ...string) {
	s.emitter.Emit(ctx, EventBlocksChanged, BlocksChanged{Action: action, RootID: rootID, IDs: ids})
}

func subtreeIDs(id string, ix *tree.Index) []string {
	return tree.IDs(tree.BlockWithChildren(id, ix))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func decodeBase64Image(dataURL string) ([]byte, string, error) {
	ext := ".png"
	encoded := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		comma := strings.IndexByte(dataURL, ',')
		if comma < 0 {
			return nil, "", fmt.Errorf("malformed data url")
		}
		switch mime := dataURL[len("data:"):comma]; {
		case strings.HasPrefix(mime, "image/jpeg"):
			ext = ".jpg"
		case strings.HasPrefix(mime, "image/gif"):
			ext = ".gif"
		case strings.HasPrefix(mime, "image/webp"):
			ext = ".webp"
		}
		encoded = dataURL[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	return data, ext, err
}

func readBase64File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".gif":
		mime = "image/gif"
	case ".webp":
		mime = "image/webp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
