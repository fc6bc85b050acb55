package services

import (
	"context"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

// EngineFactory builds a negotiation engine for one session. onCandidate
// receives locally gathered candidates for forwarding over signaling.
type EngineFactory func(onCandidate func(webrtc.ICECandidateInit)) ports.NegotiationEngine

// SessionController drives one participant's session lifecycle:
// idle -> searching -> negotiating -> connected -> (searching | idle).
//
// All transitions run on the Run loop goroutine, one event at a time to
// completion; local actions are posted into the same loop. The dispatch
// table is registered once at construction and lives as long as the
// controller.
type SessionController struct {
	channel   ports.SignalingChannel
	media     ports.MediaSource
	newEngine EngineFactory

	actions  chan func()
	handlers map[ports.EventType]func(ports.Event)

	// owned by the Run goroutine
	session   domain.Session
	engine    ports.NegotiationEngine
	searching bool

	thread *domain.ChatThread

	// published snapshot for readers outside the loop
	mu           sync.RWMutex
	status       domain.SessionStatus
	remoteTyping bool

	logger *zap.SugaredLogger
}

func NewSessionController(
	channel ports.SignalingChannel,
	media ports.MediaSource,
	newEngine EngineFactory,
	logger *zap.SugaredLogger,
) *SessionController {
	c := &SessionController{
		channel:   channel,
		media:     media,
		newEngine: newEngine,
		actions:   make(chan func(), 16),
		thread:    domain.NewChatThread(),
		session:   domain.Session{Role: domain.RoleUndetermined, Status: domain.StatusIdle},
		status:    domain.StatusIdle,
		logger:    logger,
	}

	c.handlers = map[ports.EventType]func(ports.Event){
		ports.EventWaitingForStranger:   c.onWaiting,
		ports.EventStrangerFound:        c.onStrangerFound,
		ports.EventOffer:                c.onOffer,
		ports.EventAnswer:               c.onAnswer,
		ports.EventICECandidate:         c.onCandidate,
		ports.EventReceiveMessage:       c.onReceiveMessage,
		ports.EventUserTyping:           c.onTyping(true),
		ports.EventUserStoppedTyping:    c.onTyping(false),
		ports.EventStrangerDisconnected: c.onStrangerDisconnected,
	}
	return c
}

// Run processes signaling events and local actions until ctx is cancelled.
func (c *SessionController) Run(ctx context.Context) error {
	events := c.channel.Events()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case fn := <-c.actions:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				c.onChannelDown()
				continue
			}
			c.dispatch(ev)
		}
	}
}

func (c *SessionController) dispatch(ev ports.Event) {
	handler, ok := c.handlers[ev.Type]
	if !ok {
		c.logger.Debugw("ignoring unknown signaling event", "type", ev.Type)
		return
	}
	handler(ev)
}

// Start acquires local media and requests pairing. The error is typed:
// a *domain.MediaError keeps the session idle with no matchmaking request.
func (c *SessionController) Start(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case c.actions <- func() { reply <- c.start(ctx) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Skip leaves the current room and re-enters matchmaking. Valid only while
// connected; otherwise a no-op.
func (c *SessionController) Skip() {
	c.actions <- c.skip
}

// Stop ends the session, releases media and returns to idle. Valid from any
// state.
func (c *SessionController) Stop() {
	done := make(chan struct{})
	c.actions <- func() {
		c.stop()
		close(done)
	}
	<-done
}

// SendMessage sends a chat message; silently a no-op without an active room.
func (c *SessionController) SendMessage(text string) {
	c.actions <- func() { c.sendMessage(text) }
}

// SetTyping toggles the local typing indicator.
func (c *SessionController) SetTyping(typing bool) {
	c.actions <- func() { c.setTyping(typing) }
}

// Status returns the current session status.
func (c *SessionController) Status() domain.SessionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// RemoteTyping reports whether the stranger is currently typing.
func (c *SessionController) RemoteTyping() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remoteTyping
}

// Messages returns a snapshot of the chat thread.
func (c *SessionController) Messages() []domain.ChatMessage {
	return c.thread.Messages()
}

// --- local actions, loop goroutine only ---

func (c *SessionController) start(ctx context.Context) error {
	if c.session.Status != domain.StatusIdle {
		return domain.ErrAlreadyStarted
	}
	if !c.channel.Connected() {
		return domain.ErrSignalClosed
	}

	if _, err := c.media.Acquire(ctx); err != nil {
		c.logger.Warnw("media acquisition failed", "kind", domain.MediaKindOf(err), "error", err)
		return err
	}

	if err := c.emit(ports.Event{Type: ports.EventFindStranger}); err != nil {
		c.media.Release()
		return err
	}

	c.searching = true
	c.setStatus(domain.StatusSearching)
	return nil
}

func (c *SessionController) skip() {
	if c.session.Status != domain.StatusConnected {
		c.logger.Debugw("skip ignored", "status", c.session.Status)
		return
	}

	c.emitBestEffort(ports.Event{Type: ports.EventSkipUser})
	c.endSession(true)
	c.searching = true
	c.setStatus(domain.StatusSearching)
	c.emitBestEffort(ports.Event{Type: ports.EventFindStranger})
}

func (c *SessionController) stop() {
	c.searching = false
	if c.session.ID != "" {
		c.emitBestEffort(ports.Event{Type: ports.EventLeaveRoom, RoomID: c.session.ID})
	}
	c.endSession(true)
	c.media.Release()
	c.setStatus(domain.StatusIdle)
}

func (c *SessionController) sendMessage(text string) {
	if c.session.ID == "" || c.session.Status != domain.StatusConnected {
		return
	}
	if err := c.emit(ports.Event{Type: ports.EventSendMessage, RoomID: c.session.ID, Message: text}); err != nil {
		return
	}
	c.thread.Append(domain.NewChatMessage(text, domain.SenderLocal, time.Time{}))
}

func (c *SessionController) setTyping(typing bool) {
	if c.session.ID == "" || c.session.Status != domain.StatusConnected {
		return
	}
	ev := ports.Event{Type: ports.EventTyping, RoomID: c.session.ID}
	if !typing {
		ev.Type = ports.EventStopTyping
	}
	c.emitBestEffort(ev)
}

// --- signaling event handlers, loop goroutine only ---

func (c *SessionController) onWaiting(ports.Event) {
	if c.session.Status == domain.StatusIdle {
		return
	}
	c.setStatus(domain.StatusSearching)
}

func (c *SessionController) onStrangerFound(ev ports.Event) {
	if c.session.Status != domain.StatusSearching {
		c.logger.Warnw("pairing ignored outside searching", "status", c.session.Status, "room", ev.RoomID)
		return
	}
	if ev.RoomID == "" {
		c.logger.Warn("pairing without room id ignored")
		return
	}

	role := ev.Role
	if role == "" {
		// legacy pairing messages without a role field: receiving the
		// notification designates the offerer
		role = domain.RoleOfferer
	}

	c.session = domain.Session{ID: ev.RoomID, Role: role, Status: domain.StatusNegotiating, StartedAt: time.Now()}
	c.setStatus(domain.StatusNegotiating)
	c.thread.AppendSystem("Stranger connected!")
	c.engine = c.newEngine(c.candidateForwarder(ev.RoomID))

	c.logger.Infow("paired", "room", ev.RoomID, "role", role)

	if role != domain.RoleOfferer {
		return
	}

	offer, err := c.engine.CreateOffer()
	if err != nil {
		// non-fatal: stay in place, skip or stop is the recovery path
		c.logger.Errorw("offer generation failed", "kind", domain.NegotiationKindOf(err), "error", err)
		return
	}
	c.emitBestEffort(ports.Event{Type: ports.EventOffer, RoomID: ev.RoomID, Offer: &offer})
}

func (c *SessionController) onOffer(ev ports.Event) {
	if c.stale(ev) || ev.Offer == nil {
		return
	}
	if c.engine == nil {
		c.logger.Warnw("offer before pairing ignored", "room", ev.RoomID)
		return
	}

	answer, err := c.engine.CreateAnswer(*ev.Offer)
	if err != nil {
		c.logger.Errorw("answer generation failed", "kind", domain.NegotiationKindOf(err), "error", err)
		return
	}

	// tag with the controller's current room, not anything embedded in
	// the offer: the controller is the source of truth for the active room
	c.emitBestEffort(ports.Event{Type: ports.EventAnswer, RoomID: c.session.ID, Answer: &answer})
	c.session.Status = domain.StatusConnected
	c.setStatus(domain.StatusConnected)
}

func (c *SessionController) onAnswer(ev ports.Event) {
	if c.stale(ev) || ev.Answer == nil {
		return
	}
	if c.engine == nil {
		return
	}

	// the engine enforces the phase guard; no duplicate check here
	if err := c.engine.ApplyAnswer(*ev.Answer); err != nil {
		switch domain.NegotiationKindOf(err) {
		case domain.NegotiationOutOfPhase, domain.NegotiationNoLink:
			c.logger.Warnw("stale or duplicate answer rejected", "error", err)
		default:
			c.logger.Errorw("answer application failed", "error", err)
		}
		return
	}

	c.session.Status = domain.StatusConnected
	c.setStatus(domain.StatusConnected)
}

func (c *SessionController) onCandidate(ev ports.Event) {
	if c.stale(ev) || ev.Candidate == nil {
		return
	}
	if c.engine == nil {
		c.logger.Debugw("candidate before pairing dropped", "room", ev.RoomID)
		return
	}
	c.engine.AddRemoteCandidate(*ev.Candidate)
}

func (c *SessionController) onReceiveMessage(ev ports.Event) {
	if c.stale(ev) {
		return
	}
	c.thread.Append(domain.NewChatMessage(ev.Message, domain.SenderRemote, ev.Timestamp))
}

func (c *SessionController) onTyping(typing bool) func(ports.Event) {
	return func(ev ports.Event) {
		if c.stale(ev) {
			return
		}
		c.mu.Lock()
		c.remoteTyping = typing
		c.mu.Unlock()
	}
}

func (c *SessionController) onStrangerDisconnected(ev ports.Event) {
	if c.session.ID == "" {
		return
	}

	if ev.Reason == domain.ReasonSkipped {
		c.thread.AppendSystem("Stranger skipped")
	} else {
		c.thread.AppendSystem("Stranger disconnected")
	}

	// keep the thread: the system entry stays visible until a local
	// skip or stop clears it
	c.endSession(false)

	if c.searching {
		c.setStatus(domain.StatusSearching)
		c.emitBestEffort(ports.Event{Type: ports.EventFindStranger})
		return
	}
	c.setStatus(domain.StatusIdle)
}

func (c *SessionController) onChannelDown() {
	c.logger.Warn("signaling channel disconnected")
	// an already-connected media session may survive a signaling
	// interruption; only searching is abandoned
	c.searching = false
	if c.session.Status == domain.StatusSearching || c.session.Status == domain.StatusNegotiating {
		c.endSession(false)
		c.setStatus(domain.StatusIdle)
	}
}

// --- helpers, loop goroutine only ---

// stale reports whether an event is tagged with a room that is not the
// controller's current one. Events from a dissolved room must never touch a
// fresh engine.
func (c *SessionController) stale(ev ports.Event) bool {
	if c.session.ID == "" {
		return true
	}
	if ev.RoomID != "" && ev.RoomID != c.session.ID {
		c.logger.Debugw("stale session event ignored", "event", ev.Type, "room", ev.RoomID, "current", c.session.ID)
		return true
	}
	return false
}

func (c *SessionController) endSession(clearThread bool) {
	if c.engine != nil {
		c.engine.Teardown()
		c.engine = nil
	}
	c.session = domain.Session{Role: domain.RoleUndetermined, Status: domain.StatusEnded}
	c.mu.Lock()
	c.remoteTyping = false
	c.mu.Unlock()
	if clearThread {
		c.thread.Clear()
	}
}

// candidateForwarder tags candidates with the room that was active when the
// engine was created, so candidates from a torn-down engine are dropped by
// the remote controller's stale check.
func (c *SessionController) candidateForwarder(roomID domain.RoomID) func(webrtc.ICECandidateInit) {
	return func(candidate webrtc.ICECandidateInit) {
		err := c.channel.Emit(ports.Event{
			Type:      ports.EventICECandidate,
			RoomID:    roomID,
			Candidate: &candidate,
		})
		if err != nil {
			c.logger.Debugw("candidate not forwarded", "error", err)
		}
	}
}

func (c *SessionController) emit(ev ports.Event) error {
	if err := c.channel.Emit(ev); err != nil {
		c.logger.Warnw("signaling emit failed", "event", ev.Type, "error", err)
		return domain.ErrSignalClosed
	}
	return nil
}

func (c *SessionController) emitBestEffort(ev ports.Event) {
	_ = c.emit(ev)
}

func (c *SessionController) setStatus(status domain.SessionStatus) {
	c.session.Status = status
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

func (c *SessionController) shutdown() {
	if c.session.ID != "" {
		c.emitBestEffort(ports.Event{Type: ports.EventLeaveRoom, RoomID: c.session.ID})
	}
	c.endSession(true)
	c.media.Release()
	c.setStatus(domain.StatusIdle)
}
