/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wordwolf

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

const (
	// SettingsKey holds the draft settings record (roster and word pair).
	SettingsKey = "gameSettings"
	// KeyPrefix is the reserved namespace for every other persisted key.
	KeyPrefix = "wordwolf_"

	DefaultDiscussionMinutes = 5
	MinDiscussionMinutes     = 1
	MaxDiscussionMinutes     = 10
)

type ThemeSource string

const (
	SourcePreset ThemeSource = "preset"
	SourceCustom ThemeSource = "custom"
)

// Bank supplies theme entries and manages the moderator's own cards.
type Bank interface {
	Themes(source ThemeSource) []ThemeEntry
	Cards() []ThemeEntry
	AddCard(ctx context.Context, pair WordPair) (ThemeEntry, error)
	UpdateCard(ctx context.Context, id string, pair WordPair) error
	DeleteCard(ctx context.Context, id string) error
	ClearCards()
}

// Store persists small JSON records. Failures are never fatal to a game.
type Store interface {
	Save(ctx context.Context, key string, value any) error
	Load(ctx context.Context, key string, value any) (bool, error)
	Purge(ctx context.Context, prefix string, keys ...string) error
}

// Clock is the discussion countdown.
type Clock interface {
	Start()
	Pause()
	Reset(seconds int)
	Remaining() int
	Running() bool
}

type Logf func(format string, args ...any)

// Settings is the draft record saved when roles are dealt and restored on Begin.
type Settings struct {
	Players []string `json:"players"`
	Pair    WordPair `json:"pair"`
}

// Draft collects the moderator's input ahead of a deal.
type Draft struct {
	Players           []string    `json:"players"`
	Pair              WordPair    `json:"pair"`
	Source            ThemeSource `json:"source"`
	MinorityCount     int         `json:"minority_count"`
	DiscussionMinutes int         `json:"discussion_minutes"`
}

type TimerView struct {
	Remaining int  `json:"remaining"`
	Running   bool `json:"running"`
}

// View is a read-only copy of the controller state for the presentation layer.
type View struct {
	Phase   Phase     `json:"phase"`
	Draft   Draft     `json:"draft"`
	Session Session   `json:"session"`
	Vote    Vote      `json:"vote"`
	Timer   TimerView `json:"timer"`
}

type Options struct {
	Bank  Bank
	Store Store
	Clock Clock
	Rand  *rand.Rand
	Logf  Logf

	MinorityCount     int
	DiscussionMinutes int
}

// Controller sequences a game from the welcome screen to the result. It is not
// safe for concurrent use; a single writer drives every transition.
type Controller struct {
	phase   Phase
	draft   Draft
	session Session
	vote    Vote

	bank  Bank
	store Store
	clock Clock
	rng   *rand.Rand
	logf  Logf

	defaultMinority int
	defaultMinutes  int
}

func NewController(opts Options) *Controller {
	c := &Controller{
		bank:            opts.Bank,
		store:           opts.Store,
		clock:           opts.Clock,
		rng:             opts.Rand,
		logf:            opts.Logf,
		defaultMinority: opts.MinorityCount,
		defaultMinutes:  opts.DiscussionMinutes,
	}

	if c.bank == nil {
		c.bank = emptyBank{}
	}
	if c.store == nil {
		c.store = nopStore{}
	}
	if c.clock == nil {
		c.clock = &nopClock{}
	}
	if c.rng == nil {
		c.rng = newRand()
	}
	if c.logf == nil {
		c.logf = func(string, ...any) {}
	}
	if c.defaultMinority < 1 {
		c.defaultMinority = 1
	}
	if c.defaultMinutes < MinDiscussionMinutes || c.defaultMinutes > MaxDiscussionMinutes {
		c.defaultMinutes = DefaultDiscussionMinutes
	}

	c.clear()

	return c
}

func newRand() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

func (c *Controller) clear() {
	c.phase = PhaseWelcome
	c.session = Session{}
	c.vote = Vote{}
	c.draft = Draft{
		Players:           []string{},
		Source:            SourcePreset,
		MinorityCount:     c.defaultMinority,
		DiscussionMinutes: c.defaultMinutes,
	}
}

func (c *Controller) Phase() Phase {
	return c.phase
}

// Session returns a copy of the game in progress.
func (c *Controller) Session() Session {
	return c.session.clone()
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() View {
	draft := c.draft
	draft.Players = slices.Clone(c.draft.Players)

	return View{
		Phase:   c.phase,
		Draft:   draft,
		Session: c.session.clone(),
		Vote:    c.vote,
		Timer: TimerView{
			Remaining: c.clock.Remaining(),
			Running:   c.clock.Running(),
		},
	}
}

func (c *Controller) require(phases ...Phase) error {
	if slices.Contains(phases, c.phase) {
		return nil
	}
	return invalid(ErrWrongPhase, fmt.Sprintf("That action is not available during %s.", c.phase))
}

// Begin leaves the welcome screen and restores the last saved roster and words, if any.
func (c *Controller) Begin(ctx context.Context) error {
	if err := c.require(PhaseWelcome); err != nil {
		return err
	}

	var saved Settings
	found, err := c.store.Load(ctx, SettingsKey, &saved)
	if err != nil {
		c.logf("STORE: Failed to load %s: %v", SettingsKey, err)
	}
	if found {
		c.draft.Players = slices.Clone(saved.Players)
		c.draft.Pair = saved.Pair
	}

	c.phase = PhasePlayerSetup

	return nil
}

// SubmitPlayers validates the roster and moves on to theme setup.
func (c *Controller) SubmitPlayers(names []string) error {
	if err := c.require(PhasePlayerSetup); err != nil {
		return err
	}

	roster, err := NormalizeRoster(names)
	if err != nil {
		return err
	}

	c.draft.Players = roster
	c.phase = PhaseThemeSetup

	return nil
}

// ChooseTheme draws a random theme from source. With nothing to draw from, the
// draft pair is cleared and ErrNotAvailable is returned.
func (c *Controller) ChooseTheme(source ThemeSource) (WordPair, error) {
	if err := c.require(PhaseThemeSetup); err != nil {
		return WordPair{}, err
	}

	if source != SourceCustom {
		source = SourcePreset
	}
	c.draft.Source = source

	pair, err := ResolveTheme(c.rng, c.bank.Themes(source))
	c.draft.Pair = pair

	return pair, err
}

// SetWords overrides the drawn pair with words typed in by the moderator.
func (c *Controller) SetWords(pair WordPair) error {
	if err := c.require(PhaseThemeSetup); err != nil {
		return err
	}

	c.draft.Pair = WordPair{
		Majority: strings.TrimSpace(pair.Majority),
		Minority: strings.TrimSpace(pair.Minority),
	}

	return nil
}

func (c *Controller) SetMinorityCount(n int) error {
	if err := c.require(PhaseThemeSetup); err != nil {
		return err
	}
	if err := validateMinorityCount(n, len(c.draft.Players)); err != nil {
		return err
	}

	c.draft.MinorityCount = n

	return nil
}

func (c *Controller) SetDiscussionMinutes(m int) error {
	if err := c.require(PhaseThemeSetup); err != nil {
		return err
	}
	if m < MinDiscussionMinutes || m > MaxDiscussionMinutes {
		return invalid(ErrDiscussionMinutes,
			fmt.Sprintf("Discussion time must be between %d and %d minutes.", MinDiscussionMinutes, MaxDiscussionMinutes))
	}

	c.draft.DiscussionMinutes = m

	return nil
}

// DealRoles assigns roles and starts a fresh session.
func (c *Controller) DealRoles(ctx context.Context) error {
	if err := c.require(PhaseThemeSetup); err != nil {
		return err
	}

	assigned, err := AssignRoles(c.rng, c.draft.Players, c.draft.Pair, c.draft.MinorityCount)
	if err != nil {
		return err
	}

	c.save(ctx, SettingsKey, Settings{
		Players: slices.Clone(c.draft.Players),
		Pair:    c.draft.Pair,
	})

	c.session = NewSession(assigned)
	c.vote = Vote{}
	c.phase = PhaseRoleDistribution

	return nil
}

// StartDiscussion arms the countdown; the moderator starts it separately.
func (c *Controller) StartDiscussion() error {
	if err := c.require(PhaseRoleDistribution); err != nil {
		return err
	}

	c.enterDiscussion()

	return nil
}

func (c *Controller) enterDiscussion() {
	c.vote = Vote{}
	c.clock.Reset(c.draft.DiscussionMinutes * 60)
	c.phase = PhaseDiscussion
}

func (c *Controller) StartTimer() error {
	if err := c.require(PhaseDiscussion); err != nil {
		return err
	}
	c.clock.Start()
	return nil
}

func (c *Controller) PauseTimer() error {
	if err := c.require(PhaseDiscussion); err != nil {
		return err
	}
	c.clock.Pause()
	return nil
}

func (c *Controller) ResetTimer() error {
	if err := c.require(PhaseDiscussion); err != nil {
		return err
	}
	c.clock.Reset(c.draft.DiscussionMinutes * 60)
	return nil
}

// BeginVoting closes the discussion. The countdown does not have to have expired.
func (c *Controller) BeginVoting() error {
	if err := c.require(PhaseDiscussion); err != nil {
		return err
	}

	c.clock.Pause()
	c.vote = Vote{}
	c.phase = PhaseVoting

	return nil
}

// SelectVote records the moderator's pick without applying it.
func (c *Controller) SelectVote(v Vote) error {
	if err := c.require(PhaseVoting); err != nil {
		return err
	}
	if !v.Tie && !c.session.Alive(v.Target) {
		return invalid(ErrPlayerNotFound, fmt.Sprintf("%q is not a remaining player.", v.Target))
	}

	c.vote = v

	return nil
}

// ProcessVote applies the selected vote. Ties and non-decisive eliminations
// return to discussion; a decided game moves to the result.
func (c *Controller) ProcessVote() (EliminationResult, error) {
	if err := c.require(PhaseVoting); err != nil {
		return EliminationResult{}, err
	}
	if !c.vote.selected() {
		return EliminationResult{}, invalid(ErrNoVoteSelected, "Select who was voted out, or a tie.")
	}

	result, err := ProcessVote(c.session.Living, c.vote)
	if err != nil {
		return EliminationResult{}, err
	}

	c.session.Living = result.Living
	if result.Eliminated != nil {
		eliminated := *result.Eliminated
		c.session.Eliminated = &eliminated
		c.session.Exiled = append(c.session.Exiled, eliminated)
	}

	if result.Kind == ResultTerminal {
		c.session.Winner = result.Winner
		c.vote = Vote{}
		c.clock.Pause()
		c.phase = PhaseResult

		return result, nil
	}

	c.enterDiscussion()

	return result, nil
}

// Back returns to the previous screen where the flow allows it.
func (c *Controller) Back() error {
	switch c.phase {
	case PhasePlayerSetup:
		c.phase = PhaseWelcome
	case PhaseThemeSetup:
		c.phase = PhasePlayerSetup
	case PhaseVoting:
		c.enterDiscussion()
	default:
		return invalid(ErrWrongPhase, fmt.Sprintf("There is no previous step from %s.", c.phase))
	}

	return nil
}

// Reset abandons everything and returns to the welcome screen. It is valid from any phase.
func (c *Controller) Reset(ctx context.Context) {
	c.clock.Reset(0)
	c.clear()
	c.bank.ClearCards()
	c.Purge(ctx)
}

// Purge deletes every persisted key of this game so nothing leaks into the next session.
func (c *Controller) Purge(ctx context.Context) {
	if err := c.store.Purge(ctx, KeyPrefix, SettingsKey); err != nil {
		c.logf("STORE: Failed to purge saved state: %v", err)
	}
}

func (c *Controller) save(ctx context.Context, key string, value any) {
	if err := c.store.Save(ctx, key, value); err != nil {
		c.logf("STORE: Failed to save %s: %v", key, err)
	}
}

func (c *Controller) Cards() []ThemeEntry {
	return c.bank.Cards()
}

func (c *Controller) AddCard(ctx context.Context, pair WordPair) (ThemeEntry, error) {
	if pair.Empty() {
		return ThemeEntry{}, invalid(ErrMissingWords, "Enter both the majority word and the wolf word.")
	}

	return c.bank.AddCard(ctx, pair)
}

func (c *Controller) UpdateCard(ctx context.Context, id string, pair WordPair) error {
	if pair.Empty() {
		return invalid(ErrMissingWords, "Enter both the majority word and the wolf word.")
	}

	err := c.bank.UpdateCard(ctx, id, pair)
	if errors.Is(err, ErrCardNotFound) {
		return invalid(err, "That card no longer exists.")
	}

	return err
}

func (c *Controller) DeleteCard(ctx context.Context, id string) error {
	err := c.bank.DeleteCard(ctx, id)
	if errors.Is(err, ErrCardNotFound) {
		return invalid(err, "That card no longer exists.")
	}

	return err
}

type emptyBank struct{}

func (emptyBank) Themes(ThemeSource) []ThemeEntry { return nil }
func (emptyBank) Cards() []ThemeEntry { return nil }
func (emptyBank) AddCard(context.Context, WordPair) (ThemeEntry, error) {
	return ThemeEntry{}, ErrNotAvailable
}
func (emptyBank) UpdateCard(context.Context, string, WordPair) error { return ErrCardNotFound }
func (emptyBank) DeleteCard(context.Context, string) error { return ErrCardNotFound }
func (emptyBank) ClearCards() {}

type nopStore struct{}

func (nopStore) Save(context.Context, string, any) error { return nil }
func (nopStore) Load(context.Context, string, any) (bool, error) { return false, nil }
func (nopStore) Purge(context.Context, string, ...string) error { return nil }

type nopClock struct {
	remaining int
}

func (c *nopClock) Start() {}
func (c *nopClock) Pause() {}
func (c *nopClock) Reset(seconds int) { c.remaining = seconds }
func (c *nopClock) Remaining() int { return c.remaining }
func (c *nopClock) Running() bool { return false }
