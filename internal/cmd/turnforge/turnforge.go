// Package turnforge implements the maintenance CLI for campaign journals:
// replay verification, state inspection, rewinds, and demo seeding.
package turnforge

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/campaign/rewind"
	"github.com/dcowern/whispyrkeep/internal/campaign/state"
	"github.com/dcowern/whispyrkeep/internal/campaign/turn"
	"github.com/dcowern/whispyrkeep/internal/campaign/validate"
	"github.com/dcowern/whispyrkeep/internal/platform/config"
	"github.com/dcowern/whispyrkeep/internal/platform/id"
	"github.com/dcowern/whispyrkeep/internal/platform/otel"
	"github.com/dcowern/whispyrkeep/internal/storage/sqlite"
)

// Config holds the CLI's environment configuration.
type Config struct {
	DBPath string `env:"WHISPYRKEEP_DB_PATH" envDefault:"whispyrkeep.db"`
}

const usage = `usage: turnforge <command> [flags]

commands:
  verify  -campaign <id>              replay the journal and recheck state hashes
  show    -campaign <id> [-turn N]    print the state at a turn index (default: latest)
  rewind  -campaign <id> -to N        rewind the campaign to turn N
  seed    [-name <name>] [-seed N]    create a demo campaign with scripted turns`

// Run dispatches a turnforge subcommand.
func Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if len(args) == 0 {
		fmt.Fprintln(errOut, usage)
		return fmt.Errorf("a command is required")
	}

	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	shutdown, err := otel.Setup(ctx, "turnforge")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	command, rest := args[0], args[1:]
	switch command {
	case "verify":
		return runVerify(ctx, rest, store, out)
	case "show":
		return runShow(ctx, rest, store, out)
	case "rewind":
		return runRewind(ctx, rest, store, out)
	case "seed":
		return runSeed(ctx, rest, store, out)
	default:
		fmt.Fprintln(errOut, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// runVerify replays the full journal from the initial snapshot and compares
// each event's recorded hash against the recomputed one.
func runVerify(ctx context.Context, args []string, store *sqlite.Store, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	campaignID := fs.String("campaign", "", "campaign id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*campaignID) == "" {
		return fmt.Errorf("-campaign is required")
	}

	snapshot, err := store.NearestSnapshot(ctx, *campaignID, 0)
	if err != nil {
		return fmt.Errorf("load initial snapshot: %w", err)
	}

	current := snapshot.State.Clone()
	policy := validate.StatePathPolicy{}
	verified := 0
	var cursor uint64
	for {
		page, err := store.ListEvents(ctx, *campaignID, cursor, 200)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, event := range page {
			current, err = state.ApplyTurn(current, event.Patch, policy)
			if err != nil {
				return fmt.Errorf("replay turn %d: %w", event.TurnIndex, err)
			}
			hash, err := state.Hash(current)
			if err != nil {
				return err
			}
			if hash != event.StateHash {
				return fmt.Errorf("hash mismatch at turn %d: journal %s, replay %s",
					event.TurnIndex, event.StateHash, hash)
			}
			verified++
			cursor = event.TurnIndex
		}
	}

	fmt.Fprintf(out, "verified campaign=%s turns=%d\n", *campaignID, verified)
	return nil
}

func runShow(ctx context.Context, args []string, store *sqlite.Store, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	campaignID := fs.String("campaign", "", "campaign id")
	turnIndex := fs.Int64("turn", -1, "turn index (default: latest)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*campaignID) == "" {
		return fmt.Errorf("-campaign is required")
	}

	states := state.NewService(store)
	var shown *domain.CampaignState
	var err error
	if *turnIndex < 0 {
		shown, _, err = states.Latest(ctx, *campaignID)
	} else {
		shown, err = states.StateAt(ctx, *campaignID, uint64(*turnIndex))
	}
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(shown, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	fmt.Fprintln(out, string(encoded))
	return nil
}

func runRewind(ctx context.Context, args []string, store *sqlite.Store, out io.Writer) error {
	fs := flag.NewFlagSet("rewind", flag.ContinueOnError)
	campaignID := fs.String("campaign", "", "campaign id")
	target := fs.Int64("to", -1, "target turn index")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*campaignID) == "" {
		return fmt.Errorf("-campaign is required")
	}
	if *target < 0 {
		return fmt.Errorf("-to is required")
	}

	states := state.NewService(store)
	coordinator := rewind.NewCoordinator(store, states, turn.NewLocks())
	outcome, err := coordinator.Rewind(ctx, *campaignID, uint64(*target))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "rewound campaign=%s target=%d events_deleted=%d snapshots_deleted=%d lore_invalidated=%d\n",
		*campaignID, outcome.TargetIndex, outcome.EventsDeleted, outcome.SnapshotsDeleted, outcome.LoreInvalidated)
	return nil
}

// runSeed creates a demo campaign and drives a few scripted turns through
// the full engine, so every layer gets exercised against the real store.
func runSeed(ctx context.Context, args []string, store *sqlite.Store, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	name := fs.String("name", "Demo Campaign", "campaign name")
	diceSeed := fs.Int64("seed", 42, "campaign dice seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	campaignID, err := id.New()
	if err != nil {
		return fmt.Errorf("generate campaign id: %w", err)
	}

	campaign := domain.Campaign{
		ID:            campaignID,
		Name:          *name,
		DiceSeed:      *diceSeed,
		FailureStyle:  domain.FailureStyleFailForward,
		ContentRating: domain.RatingTeen,
		CreatedAt:     time.Now().UTC(),
	}
	initial := domain.NewCampaignState(campaign)
	initial.Characters["mira"] = &domain.CharacterState{
		Name:               "Mira",
		Level:              1,
		HitPoints:          11,
		MaxHitPoints:       11,
		Abilities:          map[string]int{"wisdom": 14, "dexterity": 12, "strength": 10},
		SkillProficiencies: []string{"perception", "stealth"},
		Inventory:          []string{"rope", "lantern"},
	}

	states := state.NewService(store)
	if _, err := states.Bootstrap(ctx, campaign, initial); err != nil {
		return err
	}

	validator := validate.New(domain.DefaultRatingTable(), validate.StatePathPolicy{})
	engine := turn.NewEngine(store, states, validator, demoScript())

	inputs := []string{
		"I search the abandoned mill.",
		"I climb to the loft.",
		"I pry open the strongbox.",
	}
	for _, input := range inputs {
		result, err := engine.RunTurn(ctx, campaignID, input)
		if err != nil {
			return fmt.Errorf("seed turn: %w", err)
		}
		fmt.Fprintf(out, "turn=%d hash=%s input=%q\n", result.Event.TurnIndex, result.Event.StateHash, input)
	}

	fmt.Fprintf(out, "seeded campaign=%s name=%q turns=%d\n", campaignID, *name, len(inputs))
	return nil
}

// demoScript is a fixed narrator used only for seeding demo data.
func demoScript() turn.Narrator {
	return &scriptNarrator{
		proposals: []string{
			`=== NARRATIVE ===
Dust hangs thick in the mill. Something glints under the grindstone.
=== STATE ===
{"roll_requests":[{"id":"search","kind":"ability_check","actor":"mira","ability":"wisdom","skill":"perception","dc":12}]}`,
			`=== NARRATIVE ===
The loft ladder is half rotten.
=== STATE ===
{"roll_requests":[{"id":"climb","kind":"ability_check","actor":"mira","ability":"dexterity","skill":"acrobatics","dc":10}]}`,
			`=== NARRATIVE ===
The strongbox lid groans against its rusted hinges.
=== STATE ===
{"roll_requests":[{"id":"pry","kind":"ability_check","actor":"mira","ability":"strength","skill":"athletics","dc":13}]}`,
		},
		finals: []string{
			`=== NARRATIVE ===
Mira finds a miller's ledger wedged beneath the grindstone.
=== STATE ===
{"state_patch":[{"op":"advance_time","delta":600},{"op":"replace","path":"flags/ledger_found","value":"true"}],"lore_deltas":[{"type":"soft_lore","text":"The mill closed the winter the river froze solid.","tags":["mill"]}]}`,
			`=== NARRATIVE ===
The ladder holds. From the loft, Mira can see the whole village road.
=== STATE ===
{"state_patch":[{"op":"advance_time","delta":300}]}`,
			`=== NARRATIVE ===
The lid gives way. Inside lies a wax-sealed letter and a handful of cold iron nails.
=== STATE ===
{"state_patch":[{"op":"advance_time","delta":300},{"op":"replace","path":"characters/mira/inventory","value":["rope","lantern","sealed letter","iron nails"]}],"lore_deltas":[{"type":"soft_lore","text":"Cold iron nails ward the miller's dead.","tags":["mill","folklore"]}]}`,
		},
	}
}

type scriptNarrator struct {
	proposals []string
	finals    []string
	calls     int
}

func (s *scriptNarrator) Propose(_ context.Context, _ turn.Context) (string, error) {
	if s.calls >= len(s.proposals) {
		return "", fmt.Errorf("script exhausted")
	}
	return s.proposals[s.calls], nil
}

func (s *scriptNarrator) Finalize(_ context.Context, _ turn.Context, _ []domain.RollResult) (string, error) {
	if s.calls >= len(s.finals) {
		return "", fmt.Errorf("script exhausted")
	}
	raw := s.finals[s.calls]
	s.calls++
	return raw, nil
}
