package wordwolf

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
)

type memStore struct {
	data    map[string][]byte
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Save(_ context.Context, key string, value any) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = payload
	return nil
}

func (s *memStore) Load(_ context.Context, key string, value any) (bool, error) {
	payload, ok := s.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(payload, value); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *memStore) Purge(_ context.Context, prefix string, keys ...string) error {
	for key := range s.data {
		if strings.HasPrefix(key, prefix) || slices.Contains(keys, key) {
			delete(s.data, key)
		}
	}
	return nil
}

type fakeClock struct {
	remaining int
	running   bool
	resets    []int
}

func (c *fakeClock) Start() { c.running = c.remaining > 0 }
func (c *fakeClock) Pause() { c.running = false }
func (c *fakeClock) Remaining() int { return c.remaining }
func (c *fakeClock) Running() bool { return c.running }
func (c *fakeClock) Reset(seconds int) {
	c.running = false
	c.remaining = seconds
	c.resets = append(c.resets, seconds)
}

type fakeBank struct {
	preset []ThemeEntry
	custom []ThemeEntry
}

func (b *fakeBank) Themes(source ThemeSource) []ThemeEntry {
	if source == SourceCustom {
		return b.custom
	}
	return b.preset
}

func (b *fakeBank) Cards() []ThemeEntry { return slices.Clone(b.custom) }

func (b *fakeBank) AddCard(_ context.Context, pair WordPair) (ThemeEntry, error) {
	entry := ThemeEntry{ID: pair.Majority, MajorityWord: pair.Majority, MinorityWord: pair.Minority}
	b.custom = append(b.custom, entry)
	return entry, nil
}

func (b *fakeBank) UpdateCard(_ context.Context, id string, pair WordPair) error {
	for i := range b.custom {
		if b.custom[i].ID == id {
			b.custom[i].MajorityWord = pair.Majority
			b.custom[i].MinorityWord = pair.Minority
			return nil
		}
	}
	return ErrCardNotFound
}

func (b *fakeBank) DeleteCard(_ context.Context, id string) error {
	for i := range b.custom {
		if b.custom[i].ID == id {
			b.custom = slices.Delete(b.custom, i, i+1)
			return nil
		}
	}
	return ErrCardNotFound
}

func (b *fakeBank) ClearCards() { b.custom = nil }

type harness struct {
	c     *Controller
	store *memStore
	clock *fakeClock
	bank  *fakeBank
	logs  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store: newMemStore(),
		clock: &fakeClock{},
		bank: &fakeBank{
			preset: []ThemeEntry{{ID: "pets", MajorityWord: "cat", MinorityWord: "dog"}},
		},
	}
	h.c = NewController(Options{
		Bank:  h.bank,
		Store: h.store,
		Clock: h.clock,
		Rand:  testRand(42),
		Logf: func(format string, args ...any) {
			h.logs = append(h.logs, format)
		},
		MinorityCount:     1,
		DiscussionMinutes: 3,
	})

	return h
}

func (h *harness) dealt(t *testing.T, players ...string) {
	t.Helper()
	ctx := context.Background()

	if err := h.c.Begin(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := h.c.SubmitPlayers(players); err != nil {
		t.Fatalf("submit players: %v", err)
	}
	if _, err := h.c.ChooseTheme(SourcePreset); err != nil {
		t.Fatalf("choose theme: %v", err)
	}
	if err := h.c.DealRoles(ctx); err != nil {
		t.Fatalf("deal roles: %v", err)
	}
	if err := h.c.StartDiscussion(); err != nil {
		t.Fatalf("start discussion: %v", err)
	}
}

func (h *harness) vote(t *testing.T, v Vote) EliminationResult {
	t.Helper()

	if err := h.c.BeginVoting(); err != nil {
		t.Fatalf("begin voting: %v", err)
	}
	if err := h.c.SelectVote(v); err != nil {
		t.Fatalf("select vote: %v", err)
	}
	result, err := h.c.ProcessVote()
	if err != nil {
		t.Fatalf("process vote: %v", err)
	}
	return result
}

func firstWithRole(players []AssignedPlayer, role Role) string {
	for _, p := range players {
		if p.Role == role {
			return p.Name
		}
	}
	return ""
}

func TestControllerHappyPath(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C", "D")

	if h.c.Phase() != PhaseDiscussion {
		t.Fatalf("expected discussion, got %v", h.c.Phase())
	}
	if h.clock.remaining != 180 {
		t.Fatalf("expected countdown armed at 180, got %d", h.clock.remaining)
	}

	session := h.c.Session()
	if len(session.All) != 4 || len(session.Living) != 4 {
		t.Fatalf("expected 4 dealt players, got %d/%d", len(session.All), len(session.Living))
	}

	citizen := firstWithRole(session.Living, RoleMajority)
	result := h.vote(t, VoteFor(citizen))
	if result.Kind != ResultContinue {
		t.Fatalf("expected continue, got %v", result.Kind)
	}
	if h.c.Phase() != PhaseDiscussion {
		t.Fatalf("expected discussion after continue, got %v", h.c.Phase())
	}
	if h.c.Snapshot().Vote != (Vote{}) {
		t.Fatalf("expected vote selection cleared")
	}
	if len(h.clock.resets) != 2 {
		t.Fatalf("expected countdown re-armed, got resets %v", h.clock.resets)
	}

	wolf := firstWithRole(h.c.Session().Living, RoleMinority)
	result = h.vote(t, VoteFor(wolf))
	if result.Kind != ResultTerminal || result.Winner != RoleMajority {
		t.Fatalf("expected majority win, got %v/%v", result.Kind, result.Winner)
	}

	final := h.c.Session()
	if h.c.Phase() != PhaseResult {
		t.Fatalf("expected result, got %v", h.c.Phase())
	}
	if final.Winner != RoleMajority {
		t.Fatalf("expected winner majority, got %v", final.Winner)
	}
	if final.Eliminated == nil || final.Eliminated.Name != wolf {
		t.Fatalf("expected %q as last eliminated, got %+v", wolf, final.Eliminated)
	}
	if len(final.All) != 4 || len(final.Living) != 2 || len(final.Exiled) != 2 {
		t.Fatalf("unexpected rosters all=%d living=%d exiled=%d", len(final.All), len(final.Living), len(final.Exiled))
	}
}

func TestControllerTieReturnsToDiscussion(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C")

	before := h.c.Session().Living
	result := h.vote(t, TieVote())
	if result.Kind != ResultRetry {
		t.Fatalf("expected retry, got %v", result.Kind)
	}
	if h.c.Phase() != PhaseDiscussion {
		t.Fatalf("expected discussion, got %v", h.c.Phase())
	}
	if !slices.Equal(before, h.c.Session().Living) {
		t.Fatalf("expected living roster unchanged")
	}
	if h.c.Session().Eliminated != nil {
		t.Fatalf("expected no eliminated player after a tie")
	}
}

func TestControllerMinorityWinsAtParity(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C")

	result := h.vote(t, VoteFor(firstWithRole(h.c.Session().Living, RoleMajority)))
	if result.Kind != ResultTerminal || result.Winner != RoleMinority {
		t.Fatalf("expected minority win, got %v/%v", result.Kind, result.Winner)
	}
	if h.c.Phase() != PhaseResult {
		t.Fatalf("expected result, got %v", h.c.Phase())
	}
}

func TestControllerGuardsStayInPhase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.c.SubmitPlayers([]string{"A", "B", "C"}); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}

	if err := h.c.Begin(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := h.c.SubmitPlayers([]string{"A", "B", ""}); !errors.Is(err, ErrTooFewPlayers) {
		t.Fatalf("expected ErrTooFewPlayers, got %v", err)
	}
	if h.c.Phase() != PhasePlayerSetup {
		t.Fatalf("expected player setup, got %v", h.c.Phase())
	}
	if err := h.c.SubmitPlayers([]string{"A", "B", "B"}); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
	}

	if err := h.c.SubmitPlayers([]string{"A", "B", "C"}); err != nil {
		t.Fatalf("submit players: %v", err)
	}
	if err := h.c.DealRoles(ctx); !errors.Is(err, ErrMissingWords) {
		t.Fatalf("expected ErrMissingWords, got %v", err)
	}
	if err := h.c.SetMinorityCount(3); !errors.Is(err, ErrMinorityCount) {
		t.Fatalf("expected ErrMinorityCount, got %v", err)
	}
	if err := h.c.SetDiscussionMinutes(11); !errors.Is(err, ErrDiscussionMinutes) {
		t.Fatalf("expected ErrDiscussionMinutes, got %v", err)
	}
	if h.c.Phase() != PhaseThemeSetup {
		t.Fatalf("expected theme setup, got %v", h.c.Phase())
	}
}

func TestControllerProcessVoteRequiresSelection(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C")

	if err := h.c.BeginVoting(); err != nil {
		t.Fatalf("begin voting: %v", err)
	}
	if _, err := h.c.ProcessVote(); !errors.Is(err, ErrNoVoteSelected) {
		t.Fatalf("expected ErrNoVoteSelected, got %v", err)
	}
	if err := h.c.SelectVote(VoteFor("Z")); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if h.c.Phase() != PhaseVoting {
		t.Fatalf("expected voting, got %v", h.c.Phase())
	}
}

func TestControllerChooseThemeNotAvailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.c.Begin(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := h.c.SubmitPlayers([]string{"A", "B", "C"}); err != nil {
		t.Fatalf("submit players: %v", err)
	}
	if err := h.c.SetWords(WordPair{Majority: "x", Minority: "y"}); err != nil {
		t.Fatalf("set words: %v", err)
	}

	pair, err := h.c.ChooseTheme(SourceCustom)
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("expected ErrNotAvailable, got %v", err)
	}
	if pair != (WordPair{}) || h.c.Snapshot().Draft.Pair != (WordPair{}) {
		t.Fatalf("expected empty pair in draft, got %+v", h.c.Snapshot().Draft.Pair)
	}
}

func TestControllerBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.c.Back(); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}
	_ = h.c.Begin(ctx)
	_ = h.c.SubmitPlayers([]string{"A", "B", "C"})

	if err := h.c.Back(); err != nil || h.c.Phase() != PhasePlayerSetup {
		t.Fatalf("expected player setup, got %v (%v)", h.c.Phase(), err)
	}
	if err := h.c.Back(); err != nil || h.c.Phase() != PhaseWelcome {
		t.Fatalf("expected welcome, got %v (%v)", h.c.Phase(), err)
	}
}

func TestControllerBackFromVoting(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C")

	if err := h.c.StartTimer(); err != nil {
		t.Fatalf("start timer: %v", err)
	}
	h.clock.remaining = 42

	if err := h.c.BeginVoting(); err != nil {
		t.Fatalf("begin voting: %v", err)
	}
	if err := h.c.SelectVote(VoteFor("A")); err != nil {
		t.Fatalf("select vote: %v", err)
	}

	if err := h.c.Back(); err != nil {
		t.Fatalf("back: %v", err)
	}

	view := h.c.Snapshot()
	if view.Phase != PhaseDiscussion {
		t.Fatalf("expected discussion, got %s", view.Phase)
	}
	if view.Vote != (Vote{}) {
		t.Fatalf("expected the vote selection to be cleared, got %+v", view.Vote)
	}
	if view.Timer.Remaining != 3*60 || view.Timer.Running {
		t.Fatalf("expected a re-armed, stopped timer, got %+v", view.Timer)
	}
	if len(view.Session.Living) != 3 {
		t.Fatalf("expected nobody to be eliminated, got %d living", len(view.Session.Living))
	}
}

func TestControllerSetWordsTrims(t *testing.T) {
	h := newHarness(t)

	_ = h.c.Begin(context.Background())
	_ = h.c.SubmitPlayers([]string{"A", "B", "C"})

	if err := h.c.SetWords(WordPair{Majority: "  cat ", Minority: "\tdog\n"}); err != nil {
		t.Fatalf("set words: %v", err)
	}
	if got := h.c.Snapshot().Draft.Pair; got != (WordPair{Majority: "cat", Minority: "dog"}) {
		t.Fatalf("expected trimmed words, got %+v", got)
	}

	if err := h.c.DealRoles(context.Background()); err != nil {
		t.Fatalf("deal roles: %v", err)
	}
	for i := range h.c.Session().All {
		text, _ := h.c.RoleText(i)
		if !strings.HasSuffix(text, ": cat") && !strings.HasSuffix(text, ": dog") {
			t.Fatalf("expected the role text to end with a trimmed word, got %q", text)
		}
	}
}

func TestControllerSessionIsACopy(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C")

	session := h.c.Session()
	session.Living[0].Word = "leaked"
	session.All[0].Name = "Z"
	session.Living = session.Living[:1]

	again := h.c.Session()
	if again.Living[0].Word == "leaked" || again.All[0].Name == "Z" || len(again.Living) != 3 {
		t.Fatalf("expected controller state to be unaffected, got %+v", again)
	}
}

func TestControllerSavesAndRestoresSettings(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C")

	var saved Settings
	found, _ := h.store.Load(context.Background(), SettingsKey, &saved)
	if !found {
		t.Fatalf("expected settings to be saved")
	}
	if !slices.Equal(saved.Players, []string{"A", "B", "C"}) || saved.Pair.Majority != "cat" {
		t.Fatalf("unexpected saved settings %+v", saved)
	}

	c := NewController(Options{Store: h.store, Clock: &fakeClock{}, Rand: testRand(1)})
	if err := c.Begin(context.Background()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	draft := c.Snapshot().Draft
	if !slices.Equal(draft.Players, saved.Players) || draft.Pair != saved.Pair {
		t.Fatalf("expected restored draft, got %+v", draft)
	}
}

func TestControllerSaveFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.store.saveErr = errors.New("disk full")
	h.dealt(t, "A", "B", "C")

	if h.c.Phase() != PhaseDiscussion {
		t.Fatalf("expected discussion, got %v", h.c.Phase())
	}
	if len(h.logs) == 0 {
		t.Fatalf("expected the save failure to be logged")
	}
}

func TestControllerResetFromAnyPhase(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C")
	h.vote(t, VoteFor(firstWithRole(h.c.Session().Living, RoleMajority)))

	h.store.data[KeyPrefix+"cards"] = []byte(`[]`)
	h.store.data["unrelated"] = []byte(`1`)
	h.bank.custom = []ThemeEntry{{ID: "mine", MajorityWord: "a", MinorityWord: "b"}}

	h.c.Reset(context.Background())

	view := h.c.Snapshot()
	if view.Phase != PhaseWelcome {
		t.Fatalf("expected welcome, got %v", view.Phase)
	}
	if len(view.Session.Living) != 0 || len(view.Session.All) != 0 {
		t.Fatalf("expected empty rosters, got %+v", view.Session)
	}
	if view.Session.Eliminated != nil || view.Session.Winner != RoleNone {
		t.Fatalf("expected no eliminated player and no winner, got %+v", view.Session)
	}
	if len(view.Draft.Players) != 0 || !view.Draft.Pair.Empty() {
		t.Fatalf("expected empty draft, got %+v", view.Draft)
	}
	if _, ok := h.store.data[SettingsKey]; ok {
		t.Fatalf("expected settings key purged")
	}
	if _, ok := h.store.data[KeyPrefix+"cards"]; ok {
		t.Fatalf("expected namespaced key purged")
	}
	if _, ok := h.store.data["unrelated"]; !ok {
		t.Fatalf("expected unrelated key kept")
	}
	if len(h.bank.custom) != 0 {
		t.Fatalf("expected custom cards cleared")
	}
	if h.clock.remaining != 0 || h.clock.running {
		t.Fatalf("expected countdown stopped")
	}
}

func TestControllerCards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.c.AddCard(ctx, WordPair{Majority: "tea"}); !errors.Is(err, ErrMissingWords) {
		t.Fatalf("expected ErrMissingWords, got %v", err)
	}
	entry, err := h.c.AddCard(ctx, WordPair{Majority: "tea", Minority: "coffee"})
	if err != nil {
		t.Fatalf("add card: %v", err)
	}
	if err := h.c.UpdateCard(ctx, "missing", WordPair{Majority: "a", Minority: "b"}); !errors.Is(err, ErrCardNotFound) || !IsValidation(err) {
		t.Fatalf("expected validation ErrCardNotFound, got %v", err)
	}
	if err := h.c.DeleteCard(ctx, entry.ID); err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if len(h.c.Cards()) != 0 {
		t.Fatalf("expected no cards, got %v", h.c.Cards())
	}
}

func TestControllerTexts(t *testing.T) {
	h := newHarness(t)
	h.dealt(t, "A", "B", "C")

	text, err := h.c.RoleText(0)
	if err != nil {
		t.Fatalf("role text: %v", err)
	}
	if !strings.Contains(text, h.c.Session().All[0].Word) {
		t.Fatalf("expected word in role text, got %q", text)
	}
	if _, err := h.c.RoleText(3); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}

	voting := h.c.VotingText()
	for i, name := range []string{"A", "B", "C"} {
		if !strings.Contains(voting, string(rune('1'+i))+". "+name) {
			t.Fatalf("expected %q numbered in voting text:\n%s", name, voting)
		}
	}
	if !strings.Contains(Explanation(), "Word Wolf") {
		t.Fatalf("expected explanation to name the game")
	}
}
