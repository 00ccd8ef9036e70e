// Package sqlite provides the SQLite-backed Store used by long-lived
// campaigns. Events, snapshots, and lore serialize their structured fields
// as JSON columns; timestamps are stored as UTC millisecond integers.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/platform/id"
	"github.com/dcowern/whispyrkeep/internal/platform/storage/sqlitemigrate"
	"github.com/dcowern/whispyrkeep/internal/storage"
	"github.com/dcowern/whispyrkeep/internal/storage/sqlite/migrations"
)

// Store is a SQLite-backed implementation of storage.Store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the campaign database at path and applies
// embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying database. Nil-safe so callers can defer it in
// all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// PutCampaign stores or replaces a campaign record.
func (s *Store) PutCampaign(ctx context.Context, campaign domain.Campaign) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO campaigns (id, name, dice_seed, failure_style, content_rating, starting_universe_time, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    dice_seed = excluded.dice_seed,
    failure_style = excluded.failure_style,
    content_rating = excluded.content_rating,
    starting_universe_time = excluded.starting_universe_time`,
		campaign.ID, campaign.Name, campaign.DiceSeed, string(campaign.FailureStyle),
		string(campaign.ContentRating), campaign.StartingUniverseTime, toMillis(campaign.CreatedAt))
	if err != nil {
		return fmt.Errorf("put campaign: %w", err)
	}
	return nil
}

// GetCampaign returns a campaign by id.
func (s *Store) GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, dice_seed, failure_style, content_rating, starting_universe_time, created_at
FROM campaigns WHERE id = ?`, campaignID)
	return scanCampaign(row)
}

// ListCampaigns returns every campaign ordered by id.
func (s *Store) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, dice_seed, failure_style, content_rating, starting_universe_time, created_at
FROM campaigns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, campaign)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (domain.Campaign, error) {
	var campaign domain.Campaign
	var failureStyle, contentRating string
	var createdAt int64
	err := row.Scan(&campaign.ID, &campaign.Name, &campaign.DiceSeed, &failureStyle,
		&contentRating, &campaign.StartingUniverseTime, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Campaign{}, storage.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("scan campaign: %w", err)
	}
	campaign.FailureStyle = domain.FailureStyle(failureStyle)
	campaign.ContentRating = domain.Rating(contentRating)
	campaign.CreatedAt = fromMillis(createdAt)
	return campaign, nil
}

// AppendEvent appends a turn event, enforcing journal contiguity inside a
// transaction.
func (s *Store) AppendEvent(ctx context.Context, event domain.TurnEvent) error {
	rollRequests, err := json.Marshal(event.RollRequests)
	if err != nil {
		return fmt.Errorf("marshal roll requests: %w", err)
	}
	rollResults, err := json.Marshal(event.RollResults)
	if err != nil {
		return fmt.Errorf("marshal roll results: %w", err)
	}
	patch, err := json.Marshal(event.Patch)
	if err != nil {
		return fmt.Errorf("marshal state patch: %w", err)
	}
	loreDeltas, err := json.Marshal(event.LoreDeltas)
	if err != nil {
		return fmt.Errorf("marshal lore deltas: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var latest uint64
	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(turn_index), 0) FROM turn_events WHERE campaign_id = ?", event.CampaignID)
	if err := row.Scan(&latest); err != nil {
		return fmt.Errorf("read latest turn index: %w", err)
	}
	if event.TurnIndex != latest+1 {
		return fmt.Errorf("append turn %d after turn %d: journal must stay contiguous", event.TurnIndex, latest)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO turn_events (campaign_id, turn_index, player_input, narrator_text,
    roll_requests, roll_results, state_patch, lore_deltas, state_hash, universe_time, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.CampaignID, event.TurnIndex, event.PlayerInput, event.NarratorText,
		string(rollRequests), string(rollResults), string(patch), string(loreDeltas),
		event.StateHash, event.UniverseTime, toMillis(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert turn event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn event: %w", err)
	}
	return nil
}

const eventColumns = `campaign_id, turn_index, player_input, narrator_text,
    roll_requests, roll_results, state_patch, lore_deltas, state_hash, universe_time, created_at`

// GetEvent returns the event at one turn index.
func (s *Store) GetEvent(ctx context.Context, campaignID string, turnIndex uint64) (domain.TurnEvent, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM turn_events WHERE campaign_id = ? AND turn_index = ?",
		campaignID, turnIndex)
	return scanEvent(row)
}

// ListEvents returns up to limit events after the given index, ascending.
func (s *Store) ListEvents(ctx context.Context, campaignID string, afterIndex uint64, limit int) ([]domain.TurnEvent, error) {
	query := "SELECT " + eventColumns + " FROM turn_events WHERE campaign_id = ? AND turn_index > ? ORDER BY turn_index"
	args := []any{campaignID, afterIndex}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.TurnEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// LatestTurnIndex returns the highest journal index, or 0 when empty.
func (s *Store) LatestTurnIndex(ctx context.Context, campaignID string) (uint64, error) {
	var latest uint64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(turn_index), 0) FROM turn_events WHERE campaign_id = ?", campaignID)
	if err := row.Scan(&latest); err != nil {
		return 0, fmt.Errorf("read latest turn index: %w", err)
	}
	return latest, nil
}

// DeleteEventsAfter truncates the journal after a turn index.
func (s *Store) DeleteEventsAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error) {
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM turn_events WHERE campaign_id = ? AND turn_index > ?", campaignID, turnIndex)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted events: %w", err)
	}
	return int(removed), nil
}

func scanEvent(row rowScanner) (domain.TurnEvent, error) {
	var event domain.TurnEvent
	var rollRequests, rollResults, patch, loreDeltas string
	var createdAt int64
	err := row.Scan(&event.CampaignID, &event.TurnIndex, &event.PlayerInput, &event.NarratorText,
		&rollRequests, &rollResults, &patch, &loreDeltas, &event.StateHash, &event.UniverseTime, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TurnEvent{}, storage.ErrNotFound
		}
		return domain.TurnEvent{}, fmt.Errorf("scan turn event: %w", err)
	}
	if err := json.Unmarshal([]byte(rollRequests), &event.RollRequests); err != nil {
		return domain.TurnEvent{}, fmt.Errorf("unmarshal roll requests: %w", err)
	}
	if err := json.Unmarshal([]byte(rollResults), &event.RollResults); err != nil {
		return domain.TurnEvent{}, fmt.Errorf("unmarshal roll results: %w", err)
	}
	if err := json.Unmarshal([]byte(patch), &event.Patch); err != nil {
		return domain.TurnEvent{}, fmt.Errorf("unmarshal state patch: %w", err)
	}
	if err := json.Unmarshal([]byte(loreDeltas), &event.LoreDeltas); err != nil {
		return domain.TurnEvent{}, fmt.Errorf("unmarshal lore deltas: %w", err)
	}
	event.CreatedAt = fromMillis(createdAt)
	return event, nil
}

// SaveSnapshot stores or replaces the snapshot at its turn index.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	state, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("marshal snapshot state: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO snapshots (campaign_id, turn_index, state, state_hash, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (campaign_id, turn_index) DO UPDATE SET
    state = excluded.state,
    state_hash = excluded.state_hash,
    created_at = excluded.created_at`,
		snapshot.CampaignID, snapshot.TurnIndex, string(state), snapshot.StateHash, toMillis(snapshot.CreatedAt))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// NearestSnapshot returns the closest snapshot at or before a turn index.
func (s *Store) NearestSnapshot(ctx context.Context, campaignID string, turnIndex uint64) (domain.Snapshot, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT campaign_id, turn_index, state, state_hash, created_at
FROM snapshots WHERE campaign_id = ? AND turn_index <= ?
ORDER BY turn_index DESC LIMIT 1`, campaignID, turnIndex)

	var snapshot domain.Snapshot
	var state string
	var createdAt int64
	err := row.Scan(&snapshot.CampaignID, &snapshot.TurnIndex, &state, &snapshot.StateHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Snapshot{}, storage.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(state), &snapshot.State); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshal snapshot state: %w", err)
	}
	snapshot.CreatedAt = fromMillis(createdAt)
	return snapshot, nil
}

// DeleteSnapshotsAfter removes snapshots past a turn index.
func (s *Store) DeleteSnapshotsAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error) {
	result, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM snapshots WHERE campaign_id = ? AND turn_index > ?", campaignID, turnIndex)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted snapshots: %w", err)
	}
	return int(removed), nil
}

// AppendLore records lore deltas attributed to a turn.
func (s *Store) AppendLore(ctx context.Context, campaignID string, turnIndex uint64, deltas []domain.LoreDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lore transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(time.Now())
	for _, delta := range deltas {
		tags, err := json.Marshal(delta.Tags)
		if err != nil {
			return fmt.Errorf("marshal lore tags: %w", err)
		}
		entryID, err := id.New()
		if err != nil {
			return fmt.Errorf("generate lore id: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO lore_entries (id, campaign_id, turn_index, lore_type, lore_text, tags, invalidated, created_at)
VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
			entryID, campaignID, turnIndex, string(delta.Type), delta.Text, string(tags), now)
		if err != nil {
			return fmt.Errorf("insert lore entry: %w", err)
		}
	}
	return tx.Commit()
}

// ListLore returns lore entries in insertion order.
func (s *Store) ListLore(ctx context.Context, campaignID string, includeInvalidated bool) ([]storage.LoreEntry, error) {
	query := `
SELECT id, campaign_id, turn_index, lore_type, lore_text, tags, invalidated
FROM lore_entries WHERE campaign_id = ?`
	if !includeInvalidated {
		query += " AND invalidated = 0"
	}
	query += " ORDER BY rowid"

	rows, err := s.sqlDB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list lore: %w", err)
	}
	defer rows.Close()

	var out []storage.LoreEntry
	for rows.Next() {
		var entry storage.LoreEntry
		var loreType, tags string
		var invalidated int
		err := rows.Scan(&entry.ID, &entry.CampaignID, &entry.TurnIndex, &loreType,
			&entry.Delta.Text, &tags, &invalidated)
		if err != nil {
			return nil, fmt.Errorf("scan lore entry: %w", err)
		}
		entry.Delta.Type = domain.LoreType(loreType)
		if err := json.Unmarshal([]byte(tags), &entry.Delta.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal lore tags: %w", err)
		}
		entry.Invalidated = invalidated != 0
		out = append(out, entry)
	}
	return out, rows.Err()
}

// InvalidateLoreAfter tombstones lore recorded after a turn index.
func (s *Store) InvalidateLoreAfter(ctx context.Context, campaignID string, turnIndex uint64) (int, error) {
	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE lore_entries SET invalidated = 1 WHERE campaign_id = ? AND turn_index > ? AND invalidated = 0",
		campaignID, turnIndex)
	if err != nil {
		return 0, fmt.Errorf("invalidate lore: %w", err)
	}
	marked, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count invalidated lore: %w", err)
	}
	return int(marked), nil
}

var _ storage.Store = (*Store)(nil)
