package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/campaign/validate"
	perrors "github.com/dcowern/whispyrkeep/internal/platform/errors"
	"github.com/dcowern/whispyrkeep/internal/storage"
)

const (
	// DefaultSnapshotEvery is the snapshot cadence in turns.
	DefaultSnapshotEvery = 20
	// replayPageSize bounds how many events one replay query loads.
	replayPageSize = 200
)

// Service materializes campaign state from the event journal and manages
// the snapshot cache. Any state it returns can be rebuilt from snapshot 0
// and the journal alone; snapshots are pure acceleration.
type Service struct {
	store         storage.Store
	policy        validate.PathPolicy
	snapshotEvery uint64
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSnapshotEvery overrides the snapshot cadence. Zero keeps the default.
func WithSnapshotEvery(every uint64) Option {
	return func(s *Service) {
		if every > 0 {
			s.snapshotEvery = every
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a state service over the given store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		policy:        validate.StatePathPolicy{},
		snapshotEvery: DefaultSnapshotEvery,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap registers a campaign and persists its initial state as snapshot
// 0. The initial state may seed characters and world flags; a nil initial
// state starts empty.
func (s *Service) Bootstrap(ctx context.Context, campaign domain.Campaign, initial *domain.CampaignState) (*domain.CampaignState, error) {
	if err := campaign.Validate(); err != nil {
		return nil, err
	}

	if initial == nil {
		initial = domain.NewCampaignState(campaign)
	} else {
		initial = initial.Clone()
		initial.TurnIndex = 0
		initial.UniverseTime = campaign.StartingUniverseTime
	}

	hash, err := Hash(initial)
	if err != nil {
		return nil, err
	}

	if err := s.store.PutCampaign(ctx, campaign); err != nil {
		return nil, perrors.Wrap(perrors.CodePersistenceFailed, "store campaign", err)
	}
	err = s.store.SaveSnapshot(ctx, domain.Snapshot{
		CampaignID: campaign.ID,
		TurnIndex:  0,
		State:      initial,
		StateHash:  hash,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return nil, perrors.Wrap(perrors.CodePersistenceFailed, "store initial snapshot", err)
	}
	return initial, nil
}

// Latest returns the newest materialized state and its turn index.
func (s *Service) Latest(ctx context.Context, campaignID string) (*domain.CampaignState, uint64, error) {
	latest, err := s.store.LatestTurnIndex(ctx, campaignID)
	if err != nil {
		return nil, 0, perrors.Wrap(perrors.CodePersistenceFailed, "read latest turn index", err)
	}
	state, err := s.StateAt(ctx, campaignID, latest)
	if err != nil {
		return nil, 0, err
	}
	return state, latest, nil
}

// StateAt materializes the state as of a turn index by replaying events on
// top of the nearest snapshot at or before it. Replay re-verifies each
// event's state hash, so journal corruption surfaces as an error instead of
// silently diverging state.
func (s *Service) StateAt(ctx context.Context, campaignID string, turnIndex uint64) (*domain.CampaignState, error) {
	latest, err := s.store.LatestTurnIndex(ctx, campaignID)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodePersistenceFailed, "read latest turn index", err)
	}
	if turnIndex > latest {
		return nil, perrors.New(perrors.CodeTurnIndexOutOfRange,
			fmt.Sprintf("turn %d is beyond the journal head %d", turnIndex, latest))
	}

	snapshot, err := s.store.NearestSnapshot(ctx, campaignID, turnIndex)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, perrors.New(perrors.CodeCampaignNotFound,
				fmt.Sprintf("campaign %q has no initial snapshot", campaignID))
		}
		return nil, perrors.Wrap(perrors.CodePersistenceFailed, "read snapshot", err)
	}

	current := snapshot.State.Clone()
	cursor := snapshot.TurnIndex
	for cursor < turnIndex {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		limit := replayPageSize
		if remaining := turnIndex - cursor; remaining < uint64(limit) {
			limit = int(remaining)
		}
		page, err := s.store.ListEvents(ctx, campaignID, cursor, limit)
		if err != nil {
			return nil, perrors.Wrap(perrors.CodePersistenceFailed, "list events for replay", err)
		}
		if len(page) == 0 {
			return nil, perrors.New(perrors.CodePersistenceFailed,
				fmt.Sprintf("journal gap replaying campaign %q after turn %d", campaignID, cursor))
		}
		for _, event := range page {
			current, err = s.replayEvent(current, event)
			if err != nil {
				return nil, err
			}
			cursor = event.TurnIndex
		}
	}
	return current, nil
}

func (s *Service) replayEvent(current *domain.CampaignState, event domain.TurnEvent) (*domain.CampaignState, error) {
	next, err := ApplyTurn(current, event.Patch, s.policy)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodePersistenceFailed,
			fmt.Sprintf("replay turn %d", event.TurnIndex), err)
	}
	hash, err := Hash(next)
	if err != nil {
		return nil, err
	}
	if event.StateHash != "" && hash != event.StateHash {
		return nil, perrors.New(perrors.CodePersistenceFailed,
			fmt.Sprintf("state hash mismatch at turn %d: journal %s, replay %s",
				event.TurnIndex, event.StateHash, hash))
	}
	return next, nil
}

// CommitTurn appends a turn event and, when the turn index lands on the
// snapshot cadence, snapshots the resulting state. The event append is the
// commit point; the snapshot is reconstructible from the journal.
func (s *Service) CommitTurn(ctx context.Context, event domain.TurnEvent, next *domain.CampaignState) error {
	if err := s.store.AppendEvent(ctx, event); err != nil {
		return perrors.Wrap(perrors.CodePersistenceFailed, "append turn event", err)
	}
	if event.TurnIndex%s.snapshotEvery != 0 {
		return nil
	}
	return s.SaveSnapshot(ctx, event.CampaignID, event.TurnIndex, next, event.StateHash)
}

// SaveSnapshot persists a snapshot of the given state unconditionally.
func (s *Service) SaveSnapshot(ctx context.Context, campaignID string, turnIndex uint64, snapState *domain.CampaignState, hash string) error {
	if hash == "" {
		var err error
		hash, err = Hash(snapState)
		if err != nil {
			return err
		}
	}
	err := s.store.SaveSnapshot(ctx, domain.Snapshot{
		CampaignID: campaignID,
		TurnIndex:  turnIndex,
		State:      snapState.Clone(),
		StateHash:  hash,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return perrors.Wrap(perrors.CodePersistenceFailed, "store snapshot", err)
	}
	return nil
}
