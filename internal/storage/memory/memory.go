// Package memory provides an in-memory Store for tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/platform/id"
	"github.com/dcowern/whispyrkeep/internal/storage"
)

// Store keeps all records in process memory, guarded by a single mutex.
// Events and snapshots are deep-enough copies for the engine's access
// patterns: callers must not mutate returned slices.
type Store struct {
	mu        sync.Mutex
	campaigns map[string]domain.Campaign
	events    map[string][]domain.TurnEvent
	snapshots map[string][]domain.Snapshot
	lore      map[string][]storage.LoreEntry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		campaigns: make(map[string]domain.Campaign),
		events:    make(map[string][]domain.TurnEvent),
		snapshots: make(map[string][]domain.Snapshot),
		lore:      make(map[string][]storage.LoreEntry),
	}
}

// PutCampaign stores or replaces a campaign record.
func (s *Store) PutCampaign(ctx context.Context, campaign domain.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[campaign.ID] = campaign
	return nil
}

// GetCampaign returns a campaign by id.
func (s *Store) GetCampaign(ctx context.Context, id string) (domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return domain.Campaign{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	campaign, ok := s.campaigns[id]
	if !ok {
		return domain.Campaign{}, storage.ErrNotFound
	}
	return campaign, nil
}

// ListCampaigns returns every campaign, ordered by id.
func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Campaign, 0, len(s.campaigns))
	for _, campaign := range s.campaigns {
		out = append(out, campaign)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AppendEvent appends one turn event to the campaign journal.
func (s *Store) AppendEvent(ctx context.Context, event domain.TurnEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	journal := s.events[event.CampaignID]
	var latest uint64
	if n := len(journal); n > 0 {
		latest = journal[n-1].TurnIndex
	}
	if event.TurnIndex != latest+1 {
		return fmt.Errorf("append turn %d after turn %d: journal must stay contiguous", event.TurnIndex, latest)
	}
	s.events[event.CampaignID] = append(journal, event)
	return nil
}

// GetEvent returns the event at a turn index.
func (s *Store) GetEvent(ctx context.Context, campaignID string, turnIndex uint64) (domain.TurnEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.TurnEvent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events[campaignID] {
		if event.TurnIndex == turnIndex {
			return event, nil
		}
	}
	return domain.TurnEvent{}, storage.ErrNotFound
}

// ListEvents returns up to limit events after the given index, ascending.
func (s *Store) ListEvents(ctx context.Context, campaignID string, afterIndex uint64, limit int) ([]domain.TurnEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.TurnEvent
	for _, event := range s.events[campaignID] {
		if event.TurnIndex <= afterIndex {
			continue
		}
		out = append(out, event)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// LatestTurnIndex returns the highest journal index, or 0 when empty.
func (s *Store) LatestTurnIndex(ctx context.Context, campaignID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	journal := s.events[campaignID]
	if len(journal) == 0 {
		return 0, nil
	}
	return journal[len(journal)-1].TurnIndex, nil
}

// DeleteEventsAfter truncates the journal after a turn index.
func (s *Store) DeleteEventsAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	journal := s.events[campaignID]
	kept := journal[:0]
	for _, event := range journal {
		if event.TurnIndex <= turnIndex {
			kept = append(kept, event)
		}
	}
	removed := len(journal) - len(kept)
	s.events[campaignID] = kept
	return removed, nil
}

// SaveSnapshot stores or replaces the snapshot at its turn index.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots := s.snapshots[snapshot.CampaignID]
	for i, existing := range snapshots {
		if existing.TurnIndex == snapshot.TurnIndex {
			snapshots[i] = snapshot
			return nil
		}
	}
	snapshots = append(snapshots, snapshot)
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].TurnIndex < snapshots[j].TurnIndex })
	s.snapshots[snapshot.CampaignID] = snapshots
	return nil
}

// NearestSnapshot returns the closest snapshot at or before a turn index.
func (s *Store) NearestSnapshot(ctx context.Context, campaignID string, turnIndex uint64) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var best domain.Snapshot
	found := false
	for _, snapshot := range s.snapshots[campaignID] {
		if snapshot.TurnIndex > turnIndex {
			break
		}
		best = snapshot
		found = true
	}
	if !found {
		return domain.Snapshot{}, storage.ErrNotFound
	}
	return best, nil
}

// DeleteSnapshotsAfter removes snapshots past a turn index.
func (s *Store) DeleteSnapshotsAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots := s.snapshots[campaignID]
	kept := snapshots[:0]
	for _, snapshot := range snapshots {
		if snapshot.TurnIndex <= turnIndex {
			kept = append(kept, snapshot)
		}
	}
	removed := len(snapshots) - len(kept)
	s.snapshots[campaignID] = kept
	return removed, nil
}

// AppendLore records lore deltas attributed to a turn.
func (s *Store) AppendLore(ctx context.Context, campaignID string, turnIndex uint64, deltas []domain.LoreDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, delta := range deltas {
		entryID, err := id.New()
		if err != nil {
			return fmt.Errorf("generate lore id: %w", err)
		}
		s.lore[campaignID] = append(s.lore[campaignID], storage.LoreEntry{
			ID:         entryID,
			CampaignID: campaignID,
			TurnIndex:  turnIndex,
			Delta:      delta,
		})
	}
	return nil
}

// ListLore returns lore entries in insertion order.
func (s *Store) ListLore(ctx context.Context, campaignID string, includeInvalidated bool) ([]storage.LoreEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []storage.LoreEntry
	for _, entry := range s.lore[campaignID] {
		if entry.Invalidated && !includeInvalidated {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// InvalidateLoreAfter tombstones lore recorded after a turn index.
func (s *Store) InvalidateLoreAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	entries := s.lore[campaignID]
	for i := range entries {
		if entries[i].TurnIndex > turnIndex && !entries[i].Invalidated {
			entries[i].Invalidated = true
			marked++
		}
	}
	return marked, nil
}

var _ storage.Store = (*Store)(nil)
