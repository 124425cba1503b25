// Word Wolf moderator console
//
// One moderator drives the whole game from a browser on this machine:
// - The moderator enters the players, draws a theme and deals roles
// - Each player's word is handed out privately: copied to the clipboard,
//   or shown as a QR code the player scans on their own phone
// - The discussion countdown runs here and is pushed to the page every tick
// - The moderator enters the vote outcome; the hub decides who won
//
// Every action and every countdown tick goes through Hub.run, so the game
// controller only ever has one writer.

package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Seednode/wordwolf/games/wordwolf"
	"github.com/Seednode/wordwolf/internal/clipboard"
	"github.com/Seednode/wordwolf/internal/countdown"
	"github.com/Seednode/wordwolf/internal/storage"
	"github.com/Seednode/wordwolf/internal/wordbank"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from the moderator's page
type ClientMessage struct {
	Type     string   `json:"type"`
	Players  []string `json:"players,omitempty"`  // set_players
	Source   string   `json:"source,omitempty"`   // choose_theme
	Majority string   `json:"majority,omitempty"` // set_words / add_card / update_card
	Minority string   `json:"minority,omitempty"` // set_words / add_card / update_card
	Count    int      `json:"count,omitempty"`    // set_wolves / set_minutes
	Target   string   `json:"target,omitempty"`   // select_vote
	Tie      bool     `json:"tie,omitempty"`      // select_vote
	CardID   string   `json:"card_id,omitempty"`  // update_card / delete_card
	Text     string   `json:"text,omitempty"`     // copy: "explanation", "voting" or "role"
	Index    int      `json:"index,omitempty"`    // copy role
}

// StateMessage is broadcast after every action.
type StateMessage struct {
	Type      string                `json:"type"` // "state"
	View      wordwolf.View         `json:"view"`
	Cards     []wordwolf.ThemeEntry `json:"cards"`
	MaxWolves int                   `json:"max_wolves"`
	Clipboard bool                  `json:"clipboard"`
}

// TimerMessage is broadcast on every countdown tick.
type TimerMessage struct {
	Type      string `json:"type"` // "timer"
	Remaining int    `json:"remaining"`
	Running   bool   `json:"running"`
}

// SimpleMessage is for notifications ("error", "notice", "copied", "timer_expired").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type action struct {
	client *Client
	msg    ClientMessage
}

type roleCardRequest struct {
	index int
	reply chan roleCardReply
}

type roleCardReply struct {
	text string
	err  error
}

type Hub struct {
	cfg     *Config
	clients map[*Client]bool

	ctrl   *wordwolf.Controller
	copier *clipboard.Copier

	register  chan *Client
	unreg     chan *Client
	actions   chan action
	ticks     chan struct{}
	expired   chan struct{}
	purges    chan struct{}
	roleCards chan roleCardRequest

	stopped chan struct{}
}

func newHub(cfg *Config) *Hub {
	return &Hub{
		cfg:       cfg,
		clients:   make(map[*Client]bool),
		register:  make(chan *Client),
		unreg:     make(chan *Client),
		actions:   make(chan action),
		ticks:     make(chan struct{}, 1),
		expired:   make(chan struct{}, 1),
		purges:    make(chan struct{}, 1),
		roleCards: make(chan roleCardRequest),
		stopped:   make(chan struct{}),
	}
}

// notify wakes the hub without blocking; a pending signal is as good as two.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			// Nothing from this game may survive the process.
			h.ctrl.Reset(context.Background())
			h.closeAll()
			logf(h.cfg, "GAMES: Cleared game state on shutdown")
			return

		case c := <-h.register:
			h.clients[c] = true
			logf(h.cfg, "GAMES: Moderator console connected (%d open)", len(h.clients))
			h.sendStateTo(c)

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			if len(h.clients) == 0 {
				h.ctrl.Reset(ctx)
				logf(h.cfg, "GAMES: Last moderator console closed, cleared game state")
			}

		case a := <-h.actions:
			h.handle(ctx, a)

		case <-h.ticks:
			h.broadcast(h.timerMessage())

		case <-h.expired:
			h.broadcast(h.timerMessage())
			if h.expiryCurrent() {
				h.broadcast(SimpleMessage{
					Type:    "timer_expired",
					Message: "Time is up. Move on to the vote when everyone is ready.",
				})
			}

		case <-h.purges:
			h.ctrl.Purge(ctx)
			logf(h.cfg, "GAMES: Purged saved state on page hide")

		case req := <-h.roleCards:
			text, err := h.ctrl.RoleText(req.index)
			req.reply <- roleCardReply{text: text, err: err}
		}
	}
}

// expiryCurrent reports whether an expiry signal still matches the game. The
// countdown may have been reset or the phase left before the hub got to it.
func (h *Hub) expiryCurrent() bool {
	view := h.ctrl.Snapshot()

	return view.Phase == wordwolf.PhaseDiscussion && view.Timer.Remaining == 0 && !view.Timer.Running
}

func (h *Hub) handle(ctx context.Context, a action) {
	msg := a.msg
	ctrl := h.ctrl

	var (
		err    error
		notice string
	)

	switch msg.Type {
	case "begin":
		err = ctrl.Begin(ctx)
	case "back":
		err = ctrl.Back()
	case "set_players":
		err = ctrl.SubmitPlayers(msg.Players)
	case "choose_theme":
		_, err = ctrl.ChooseTheme(wordwolf.ThemeSource(msg.Source))
		if errors.Is(err, wordwolf.ErrNotAvailable) {
			notice, err = "No custom cards have been registered yet.", nil
		}
	case "set_words":
		err = ctrl.SetWords(wordwolf.WordPair{Majority: msg.Majority, Minority: msg.Minority})
	case "set_wolves":
		err = ctrl.SetMinorityCount(msg.Count)
	case "set_minutes":
		err = ctrl.SetDiscussionMinutes(msg.Count)
	case "deal":
		err = ctrl.DealRoles(ctx)
		if err == nil {
			logf(h.cfg, "GAMES: Dealt roles to %d players", len(ctrl.Session().All))
		}
	case "start_discussion":
		err = ctrl.StartDiscussion()
	case "timer_start":
		err = ctrl.StartTimer()
	case "timer_pause":
		err = ctrl.PauseTimer()
	case "timer_reset":
		err = ctrl.ResetTimer()
	case "begin_voting":
		err = ctrl.BeginVoting()
	case "select_vote":
		err = ctrl.SelectVote(wordwolf.Vote{Target: msg.Target, Tie: msg.Tie})
	case "process_vote":
		var result wordwolf.EliminationResult
		result, err = ctrl.ProcessVote()
		if err == nil {
			notice = describeResult(result)
			logf(h.cfg, "GAMES: Vote processed: %s", notice)
		}
	case "reset":
		ctrl.Reset(ctx)
		logf(h.cfg, "GAMES: Game reset")
	case "purge":
		ctrl.Purge(ctx)
	case "add_card":
		_, err = ctrl.AddCard(ctx, wordwolf.WordPair{Majority: msg.Majority, Minority: msg.Minority})
	case "update_card":
		err = ctrl.UpdateCard(ctx, msg.CardID, wordwolf.WordPair{Majority: msg.Majority, Minority: msg.Minority})
	case "delete_card":
		err = ctrl.DeleteCard(ctx, msg.CardID)
	case "copy":
		h.handleCopy(a.client, msg)
		return
	default:
		return
	}

	if err != nil {
		h.sendError(a.client, err)
	}
	if notice != "" {
		h.broadcast(SimpleMessage{Type: "notice", Message: notice})
	}

	h.broadcastState()
}

// handleCopy only reports success; a failed copy leaves the page as it was.
func (h *Hub) handleCopy(c *Client, msg ClientMessage) {
	var text string

	switch msg.Text {
	case "explanation":
		text = wordwolf.Explanation()
	case "voting":
		text = h.ctrl.VotingText()
	case "role":
		var err error
		text, err = h.ctrl.RoleText(msg.Index)
		if err != nil {
			h.sendError(c, err)
			return
		}
	default:
		return
	}

	if text == "" || !h.copier.Copy(text) {
		return
	}

	h.sendTo(c, SimpleMessage{Type: "copied", Message: msg.Text})
}

func describeResult(result wordwolf.EliminationResult) string {
	if result.Kind == wordwolf.ResultRetry {
		return "The vote was tied, so nobody is out. Discuss again and revote."
	}

	out := result.Eliminated
	majority, minority := 0, 0
	for _, p := range result.Living {
		if p.Role == wordwolf.RoleMinority {
			minority++
		} else {
			majority++
		}
	}

	role := "majority"
	if out.Role == wordwolf.RoleMinority {
		role = "wolf"
	}

	switch {
	case result.Kind == wordwolf.ResultTerminal && result.Winner == wordwolf.RoleMajority:
		return fmt.Sprintf("%s (%s) was voted out. Every wolf is gone: the majority wins!", out.Name, role)
	case result.Kind == wordwolf.ResultTerminal:
		return fmt.Sprintf("%s (%s) was voted out. The wolves now match the majority: the wolves win!", out.Name, role)
	case out.Role == wordwolf.RoleMinority:
		return fmt.Sprintf("%s (wolf) was voted out. %d wolf(s) remain. Keep discussing.", out.Name, minority)
	default:
		return fmt.Sprintf("%s (majority) was voted out. Remaining: %d majority, %d wolf(s). Keep discussing.", out.Name, majority, minority)
	}
}

func (h *Hub) stateMessage() StateMessage {
	view := h.ctrl.Snapshot()

	return StateMessage{
		Type:      "state",
		View:      view,
		Cards:     h.ctrl.Cards(),
		MaxWolves: max(len(view.Draft.Players)-1, 1),
		Clipboard: clipboard.Available(),
	}
}

func (h *Hub) timerMessage() TimerMessage {
	view := h.ctrl.Snapshot()

	return TimerMessage{
		Type:      "timer",
		Remaining: view.Timer.Remaining,
		Running:   view.Timer.Running,
	}
}

func (h *Hub) broadcastState() {
	h.broadcast(h.stateMessage())
}

func (h *Hub) sendStateTo(c *Client) {
	h.sendTo(c, h.stateMessage())
}

func (h *Hub) sendError(c *Client, err error) {
	message := "Something went wrong. Please try again."
	if wordwolf.IsValidation(err) {
		message = err.Error()
	} else {
		errorf("GAMES: %v", err)
	}

	h.sendTo(c, SimpleMessage{Type: "error", Message: message})
}

func (h *Hub) sendTo(c *Client, msg any) {
	if c == nil || !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg any) {
	for c := range h.clients {
		h.sendTo(c, msg)
	}
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

// submit hands an action to the hub unless it has shut down.
func (h *Hub) submit(a action) bool {
	select {
	case h.actions <- a:
		return true
	case <-h.stopped:
		return false
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		select {
		case h.register <- client:
		case <-h.stopped:
			_ = conn.Close()
			return
		}

		logf(cfg, "SERVE: Moderator websocket opened from %s", realIP(r))

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.stopped:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if !h.submit(action{client: c, msg: msg}) {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// servePurge is the target of the page's beacon when it is hidden or closed.
func servePurge(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		notify(h.purges)

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// serveRoleCard renders one player's word as a QR code, so the moderator can
// show it to that player alone.
func serveRoleCard(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		index, err := strconv.Atoi(ps.ByName("index"))
		if err != nil {
			http.Error(w, "invalid player index", http.StatusBadRequest)
			return
		}

		req := roleCardRequest{index: index, reply: make(chan roleCardReply, 1)}
		select {
		case h.roleCards <- req:
		case <-h.stopped:
			http.Error(w, "game is shutting down", http.StatusServiceUnavailable)
			return
		case <-r.Context().Done():
			return
		}

		reply := <-req.reply
		if reply.err != nil {
			http.Error(w, reply.err.Error(), http.StatusNotFound)
			return
		}

		const qrSize = 320
		png, err := qrcode.Encode(reply.text, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)

		logf(cfg, "SERVE: Role card %d (%s) to %s in %s",
			index,
			humanReadableSize(int64(len(png))),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

//go:embed assets/wordwolf/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)
		_, _ = w.Write(indexHTML)
	}
}

type wordWolf struct {
	hub   *Hub
	close func()
}

// newWordWolf wires the game controller to its collaborators. The hub is
// returned stopped; the caller runs it.
func newWordWolf(ctx context.Context, cfg *Config) (*wordWolf, error) {
	themes := wordbank.Builtin()
	if cfg.themes != "" {
		loaded, err := wordbank.LoadFile(cfg.themes)
		if err != nil {
			return nil, fmt.Errorf("load themes: %w", err)
		}
		themes = loaded
	}
	logf(cfg, "GAMES: Loaded %d themes (%d unusable)", len(themes), wordbank.Unusable(themes))

	var (
		store   scratchStore
		closeFn = func() {}
	)
	if cfg.dbPath != "" {
		bolt, err := storage.Open(cfg.dbPath)
		if err != nil {
			return nil, err
		}
		store, closeFn = bolt, func() { _ = bolt.Close() }
		logf(cfg, "STORE: Using %s", cfg.dbPath)
	} else {
		store = storage.NewMemory()
	}

	hub := newHub(cfg)

	clock := countdown.New(cfg.tick,
		func(int) { notify(hub.ticks) },
		func() { notify(hub.expired) },
	)

	hub.ctrl = wordwolf.NewController(wordwolf.Options{
		Bank:              wordbank.New(ctx, themes, store, logger(cfg)),
		Store:             store,
		Clock:             clock,
		Logf:              logger(cfg),
		MinorityCount:     cfg.minorityCount,
		DiscussionMinutes: cfg.discussionMinutes,
	})
	hub.copier = clipboard.New(logger(cfg))

	return &wordWolf{hub: hub, close: closeFn}, nil
}

type scratchStore interface {
	wordwolf.Store
	wordbank.Store
}

// registerWordWolf sets up routes so that:
//   - $path                   → moderator console (HTML)
//   - $path/ws                → websocket for the console
//   - $path/purge             → beacon target that deletes saved state
//   - $path/card/:index/qr    → PNG QR code with one player's word
func registerWordWolf(cfg *Config, path string, mux *httprouter.Router, h *Hub) {
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, h))

	mux.POST(cfg.prefix+path+"/purge", servePurge(cfg, h))

	mux.GET(cfg.prefix+path+"/card/:index/qr", serveRoleCard(cfg, h))
}
