// Package storage defines the persistence interfaces for the turn engine:
// the append-only event journal, state snapshots, the lore ledger, and
// campaign metadata. Implementations live in subpackages (memory, sqlite).
package storage

import (
	"context"
	"errors"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// CampaignStore persists campaign metadata records.
type CampaignStore interface {
	PutCampaign(ctx context.Context, campaign domain.Campaign) error
	GetCampaign(ctx context.Context, id string) (domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
}

// EventStore persists the per-campaign turn journal. Turn indexes are
// 1-based and strictly monotonic per campaign; the journal is append-only
// except for rewinds, which truncate the suffix.
type EventStore interface {
	// AppendEvent writes one turn event. Appending an index that is not
	// exactly LatestTurnIndex+1 is a caller bug and returns an error.
	AppendEvent(ctx context.Context, event domain.TurnEvent) error
	// GetEvent returns the event at one turn index, or ErrNotFound.
	GetEvent(ctx context.Context, campaignID string, turnIndex uint64) (domain.TurnEvent, error)
	// ListEvents returns up to limit events with turn index greater than
	// afterIndex, in ascending order. A limit of 0 means no limit.
	ListEvents(ctx context.Context, campaignID string, afterIndex uint64, limit int) ([]domain.TurnEvent, error)
	// LatestTurnIndex returns the highest turn index in the journal, or 0
	// when the campaign has no events.
	LatestTurnIndex(ctx context.Context, campaignID string) (uint64, error)
	// DeleteEventsAfter removes every event with turn index greater than
	// turnIndex and reports how many were removed.
	DeleteEventsAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error)
}

// SnapshotStore persists periodic full-state snapshots keyed by turn index.
// Snapshot index 0 is the campaign's initial state.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error
	// NearestSnapshot returns the snapshot with the highest turn index less
	// than or equal to turnIndex, or ErrNotFound when none qualifies.
	NearestSnapshot(ctx context.Context, campaignID string, turnIndex uint64) (domain.Snapshot, error)
	// DeleteSnapshotsAfter removes snapshots with turn index greater than
	// turnIndex and reports how many were removed.
	DeleteSnapshotsAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error)
}

// LoreEntry is one persisted lore delta with its provenance.
type LoreEntry struct {
	ID         string
	CampaignID string
	TurnIndex  uint64
	Delta      domain.LoreDelta
	// Invalidated marks lore detached by a rewind. Invalidated entries are
	// tombstoned, never deleted, so the record of what was once canon
	// survives.
	Invalidated bool
}

// LoreStore persists the campaign lore ledger.
type LoreStore interface {
	AppendLore(ctx context.Context, campaignID string, turnIndex uint64, deltas []domain.LoreDelta) error
	// ListLore returns the campaign's lore in insertion order. Invalidated
	// entries are included only when includeInvalidated is set.
	ListLore(ctx context.Context, campaignID string, includeInvalidated bool) ([]LoreEntry, error)
	// InvalidateLoreAfter tombstones lore recorded after turnIndex and
	// reports how many entries were marked.
	InvalidateLoreAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error)
}

// Store is the full persistence surface the turn engine needs.
type Store interface {
	CampaignStore
	EventStore
	SnapshotStore
	LoreStore
}
