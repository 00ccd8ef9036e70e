package turn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/campaign/mechanics"
	"github.com/dcowern/whispyrkeep/internal/campaign/state"
	"github.com/dcowern/whispyrkeep/internal/campaign/validate"
	"github.com/dcowern/whispyrkeep/internal/core/dice"
	"github.com/dcowern/whispyrkeep/internal/narrator"
	perrors "github.com/dcowern/whispyrkeep/internal/platform/errors"
	"github.com/dcowern/whispyrkeep/internal/storage"
)

// defaultContextWindow bounds how many prior turns of narration the
// narrator prompt carries.
const defaultContextWindow = 10

// Context is the assembled input for one turn's narration: the campaign,
// its current state, the journal position, recent narration, and the active
// lore ledger.
type Context struct {
	Campaign    domain.Campaign
	State       *domain.CampaignState
	TurnIndex   uint64
	PlayerInput string
	Recent      []string
	Lore        []storage.LoreEntry
}

// Narrator produces the two narration passes of a turn: a proposal that may
// request rolls, and a final response written after seeing the results.
type Narrator interface {
	Propose(ctx context.Context, turn Context) (string, error)
	Finalize(ctx context.Context, turn Context, results []domain.RollResult) (string, error)
}

// Result is the outcome of one turn run. Phase is PERSISTED on success and
// FAILED otherwise; FailedAt records the phase the turn had reached when it
// failed. Errors carries validation issues when validation is what failed;
// Warnings carries non-blocking issues, including recovered parse errors.
type Result struct {
	Phase     Phase
	FailedAt  Phase
	Event     domain.TurnEvent
	State     *domain.CampaignState
	Narrative string
	Warnings  []validate.Issue
	Errors    []validate.Issue
}

// Engine orchestrates the turn lifecycle over a store, the state service,
// the validator, and a narrator.
type Engine struct {
	store         storage.Store
	states        *state.Service
	validator     *validate.Validator
	narrator      Narrator
	policy        validate.PathPolicy
	locks         *Locks
	tracer        trace.Tracer
	now           func() time.Time
	contextWindow int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithContextWindow overrides how many prior narrations feed the prompt.
func WithContextWindow(window int) EngineOption {
	return func(e *Engine) {
		if window > 0 {
			e.contextWindow = window
		}
	}
}

// WithLocks shares a lock registry with other campaign-exclusive
// components, such as the rewind coordinator.
func WithLocks(locks *Locks) EngineOption {
	return func(e *Engine) {
		if locks != nil {
			e.locks = locks
		}
	}
}

// NewEngine creates a turn engine.
func NewEngine(store storage.Store, states *state.Service, validator *validate.Validator, narr Narrator, opts ...EngineOption) *Engine {
	e := &Engine{
		store:         store,
		states:        states,
		validator:     validator,
		narrator:      narr,
		policy:        validate.StatePathPolicy{},
		locks:         NewLocks(),
		tracer:        otel.Tracer("whispyrkeep/turn"),
		now:           time.Now,
		contextWindow: defaultContextWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTurn resolves one player turn end to end. A failed turn persists
// nothing; only the PERSISTED phase has written to the journal.
func (e *Engine) RunTurn(ctx context.Context, campaignID, playerInput string) (*Result, error) {
	if !e.locks.TryAcquire(campaignID) {
		return nil, perrors.New(perrors.CodeTurnInFlight,
			fmt.Sprintf("campaign %q already has a turn in flight", campaignID))
	}
	defer e.locks.Release(campaignID)

	ctx, span := e.tracer.Start(ctx, "turn.run",
		trace.WithAttributes(attribute.String("campaign.id", campaignID)))
	defer span.End()

	machine := NewMachine()
	result, err := e.runLocked(ctx, machine, campaignID, playerInput)
	if err != nil {
		failedAt := machine.Phase()
		_ = machine.Fail()
		span.RecordError(err)
		if result == nil {
			result = &Result{}
		}
		result.Phase = machine.Phase()
		result.FailedAt = failedAt
		return result, err
	}
	span.SetAttributes(attribute.Int64("turn.index", int64(result.Event.TurnIndex)))
	return result, nil
}

func (e *Engine) runLocked(ctx context.Context, machine *Machine, campaignID, playerInput string) (*Result, error) {
	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, perrors.New(perrors.CodeCampaignNotFound, fmt.Sprintf("campaign %q not found", campaignID))
		}
		return nil, perrors.Wrap(perrors.CodePersistenceFailed, "load campaign", err)
	}

	current, latest, err := e.states.Latest(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	turnIndex := latest + 1

	turnCtx, err := e.buildContext(ctx, campaign, current, turnIndex, playerInput)
	if err != nil {
		return nil, err
	}
	if err := machine.Advance(PhaseContextBuilt); err != nil {
		return nil, err
	}

	rawProposal, err := e.narrator.Propose(ctx, turnCtx)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeUnknown, "narrator proposal", err)
	}
	proposal := narrator.Parse(rawProposal)
	parseWarnings := parseIssues("proposal", proposal.Errors)
	if err := machine.Advance(PhaseProposalReceived); err != nil {
		return nil, err
	}

	structural := e.validator.RollRequests(proposal.Payload.RollRequests).
		Merge(e.validator.PatchShape(proposal.Payload.StatePatch)).
		Merge(e.validator.LoreDeltas(proposal.Payload.LoreDeltas, campaign.ContentRating))
	if !structural.Valid() {
		return &Result{Errors: structural.Errors, Warnings: append(parseWarnings, structural.Warnings...)},
			perrors.New(perrors.CodeValidationFailed,
				fmt.Sprintf("proposal failed validation with %d errors", len(structural.Errors)))
	}

	roller := dice.NewRoller(campaign.DiceSeed + int64(turnIndex))
	rollResults := mechanics.Execute(roller, mechanics.ActorsFromState(current), proposal.Payload.RollRequests)
	if err := machine.Advance(PhaseMechanicsExecuted); err != nil {
		return nil, err
	}

	rawFinal, err := e.narrator.Finalize(ctx, turnCtx, rollResults)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeUnknown, "narrator final response", err)
	}
	final := narrator.Parse(rawFinal)
	parseWarnings = append(parseWarnings, parseIssues("final_response", final.Errors)...)
	if err := machine.Advance(PhaseFinalResponse); err != nil {
		return nil, err
	}

	// The final response owns the turn's outcome. Its patch and lore
	// supersede the proposal's; a final response without a payload falls
	// back to what the proposal declared.
	patch := proposal.Payload.StatePatch
	loreDeltas := proposal.Payload.LoreDeltas
	if final.PayloadFound {
		patch = final.Payload.StatePatch
		loreDeltas = final.Payload.LoreDeltas
	}
	narrative := final.Narrative
	if narrative == "" {
		narrative = proposal.Narrative
	}

	outcome := e.validator.PatchShape(patch).
		Merge(e.validator.LoreDeltas(loreDeltas, campaign.ContentRating)).
		Merge(e.validator.PatchAgainstState(patch, current))
	warnings := append(parseWarnings, structural.Warnings...)
	warnings = append(warnings, outcome.Warnings...)
	if !outcome.Valid() {
		return &Result{Errors: outcome.Errors, Warnings: warnings},
			perrors.New(perrors.CodeValidationFailed,
				fmt.Sprintf("final response failed validation with %d errors", len(outcome.Errors)))
	}

	next, err := state.ApplyTurn(current, patch, e.policy)
	if err != nil {
		return nil, err
	}
	hash, err := state.Hash(next)
	if err != nil {
		return nil, err
	}
	if err := machine.Advance(PhaseValidated); err != nil {
		return nil, err
	}

	event := domain.TurnEvent{
		CampaignID:   campaignID,
		TurnIndex:    turnIndex,
		PlayerInput:  playerInput,
		NarratorText: narrative,
		RollRequests: proposal.Payload.RollRequests,
		RollResults:  rollResults,
		Patch:        patch,
		LoreDeltas:   loreDeltas,
		StateHash:    hash,
		UniverseTime: next.UniverseTime,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.states.CommitTurn(ctx, event, next); err != nil {
		return nil, err
	}
	if err := e.store.AppendLore(ctx, campaignID, turnIndex, loreDeltas); err != nil {
		// The turn is committed; the lore ledger is rebuildable from the
		// journal, so record the failure and keep going.
		log.Printf("turn lore append failed campaign=%s turn=%d err=%v", campaignID, turnIndex, err)
	}
	if err := machine.Advance(PhasePersisted); err != nil {
		return nil, err
	}

	return &Result{
		Phase:     machine.Phase(),
		Event:     event,
		State:     next,
		Narrative: narrative,
		Warnings:  warnings,
	}, nil
}

// parseIssues converts recovered parse errors into non-blocking warnings on
// the turn result. A missing payload is an ordinary narrative-only turn;
// the warning keeps the recovery visible.
func parseIssues(field string, parseErrors []string) []validate.Issue {
	if len(parseErrors) == 0 {
		return nil
	}
	issues := make([]validate.Issue, 0, len(parseErrors))
	for _, msg := range parseErrors {
		code := perrors.CodeParsePayloadMissing
		if strings.HasPrefix(msg, "malformed") {
			code = perrors.CodeParsePayloadMalformed
		}
		issues = append(issues, validate.Issue{Path: field, Code: code, Message: msg})
	}
	return issues
}

func (e *Engine) buildContext(ctx context.Context, campaign domain.Campaign, current *domain.CampaignState, turnIndex uint64, playerInput string) (Context, error) {
	turnCtx := Context{
		Campaign:    campaign,
		State:       current,
		TurnIndex:   turnIndex,
		PlayerInput: playerInput,
	}

	var after uint64
	if turnIndex > uint64(e.contextWindow) {
		after = turnIndex - 1 - uint64(e.contextWindow)
	}
	events, err := e.store.ListEvents(ctx, campaign.ID, after, e.contextWindow)
	if err != nil {
		return Context{}, perrors.Wrap(perrors.CodePersistenceFailed, "load recent turns", err)
	}
	for _, event := range events {
		if event.NarratorText != "" {
			turnCtx.Recent = append(turnCtx.Recent, event.NarratorText)
		}
	}

	lore, err := e.store.ListLore(ctx, campaign.ID, false)
	if err != nil {
		return Context{}, perrors.Wrap(perrors.CodePersistenceFailed, "load lore", err)
	}
	turnCtx.Lore = lore
	return turnCtx, nil
}
