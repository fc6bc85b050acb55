package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
	"github.com/dhruvshibhare/droulette/internal/infrastructure/monitoring"
	"github.com/dhruvshibhare/droulette/pkg/tracing"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServerOptions carries connection tuning for the signaling server.
type ServerOptions struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration

	// RateLimit <= 0 disables per-connection message throttling.
	RateLimit      float64
	RateBurst      int
	MaxMessageSize int64
}

// Server is the websocket signaling boundary: it pairs seekers through the
// matchmaker and relays negotiation and chat traffic between room members.
type Server struct {
	matchmaker ports.Matchmaker
	collector  *monitoring.PrometheusCollector

	connections map[domain.PeerID]*peerConn
	enqueuedAt  map[domain.PeerID]time.Time
	mu          sync.RWMutex

	opts   ServerOptions
	logger *zap.SugaredLogger
}

// peerConn serializes writes: matchmaking notifications for one connection
// arrive from other peers' handler goroutines.
type peerConn struct {
	conn    *websocket.Conn
	limiter *rate.Limiter
	timeout time.Duration
	mu      sync.Mutex
}

func (p *peerConn) send(ev ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(p.timeout))
	return p.conn.WriteJSON(ev)
}

func NewServer(matchmaker ports.Matchmaker, collector *monitoring.PrometheusCollector, opts ServerOptions, logger *zap.SugaredLogger) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Server{
		matchmaker:  matchmaker,
		collector:   collector,
		connections: make(map[domain.PeerID]*peerConn),
		enqueuedAt:  make(map[domain.PeerID]time.Time),
		opts:        opts,
		logger:      logger,
	}
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	peerID := domain.PeerID(r.URL.Query().Get("peer_id"))
	if peerID == "" {
		peerID = domain.PeerID(uuid.NewString())
	}

	pc := &peerConn{conn: conn, timeout: s.opts.WriteTimeout}
	if s.opts.RateLimit > 0 {
		pc.limiter = rate.NewLimiter(rate.Limit(s.opts.RateLimit), s.opts.RateBurst)
	}
	if s.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(s.opts.MaxMessageSize)
	}

	// Check if peer is reconnecting (already exists)
	s.mu.Lock()
	existing, isReconnect := s.connections[peerID]
	if isReconnect && existing != nil {
		existing.conn.Close()
		s.logger.Infow("closing old connection for reconnecting peer", "peer_id", peerID)
	}
	s.connections[peerID] = pc
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.RecordPeerConnected()
	}
	s.logger.Infow("peer connected", "peer_id", peerID, "reconnect", isReconnect)

	conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.opts.PingInterval)
	defer pingTicker.Stop()

	eventChan := make(chan ports.Event, 10)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var ev ports.Event
			if err := conn.ReadJSON(&ev); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if pc.limiter != nil && !pc.limiter.Allow() {
				s.logger.Warnw("message rate exceeded, dropping", "peer_id", peerID, "event", ev.Type)
				continue
			}
			if err := s.handleEvent(context.Background(), peerID, ev); err != nil {
				s.logger.Infow("error handling event", "peer_id", peerID, "event", ev.Type, "error", err)
			}

		case <-pingTicker.C:
			pc.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			pc.mu.Unlock()
			if err != nil {
				s.logger.Infow("error sending ping", "peer_id", peerID, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading from peer", "peer_id", peerID, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	s.mu.Lock()
	// a reconnect may have replaced this entry already; if so, the new
	// handler owns the peer's matchmaking state
	active := s.connections[peerID] == pc
	if active {
		delete(s.connections, peerID)
		delete(s.enqueuedAt, peerID)
	}
	s.mu.Unlock()

	if active {
		s.disconnectPeer(context.Background(), peerID)
	}

	if s.collector != nil {
		s.collector.RecordPeerDisconnected()
	}
	s.logger.Infow("peer disconnected", "peer_id", peerID)
}

func (s *Server) handleEvent(ctx context.Context, peerID domain.PeerID, ev ports.Event) error {
	if ev.Type == "" {
		return fmt.Errorf("event type is required")
	}

	ctx, span := tracing.TraceSignalEvent(ctx, string(ev.Type), string(peerID))
	defer span.End()

	switch ev.Type {
	case ports.EventFindStranger:
		return s.handleFindStranger(ctx, peerID)
	case ports.EventOffer:
		return s.handleForwardDescriptor(ctx, peerID, ev)
	case ports.EventAnswer:
		return s.handleForwardDescriptor(ctx, peerID, ev)
	case ports.EventICECandidate:
		return s.handleForwardCandidate(ctx, peerID, ev)
	case ports.EventSendMessage:
		return s.handleSendMessage(ctx, peerID, ev)
	case ports.EventTyping:
		return s.handleTyping(ctx, peerID, ports.EventUserTyping)
	case ports.EventStopTyping:
		return s.handleTyping(ctx, peerID, ports.EventUserStoppedTyping)
	case ports.EventSkipUser:
		return s.handleLeave(ctx, peerID, domain.ReasonSkipped)
	case ports.EventLeaveRoom:
		return s.handleLeave(ctx, peerID, domain.ReasonLeft)
	default:
		return fmt.Errorf("unknown event type: %s", ev.Type)
	}
}

func (s *Server) handleFindStranger(ctx context.Context, peerID domain.PeerID) error {
	room, err := s.matchmaker.AddSeeker(ctx, peerID)
	if err != nil {
		return fmt.Errorf("matchmaking failed: %w", err)
	}

	if room == nil {
		s.mu.Lock()
		s.enqueuedAt[peerID] = time.Now()
		s.mu.Unlock()
		s.updateWaitingGauge(ctx)
		return s.sendToPeer(peerID, ports.Event{Type: ports.EventWaitingForStranger})
	}

	s.mu.Lock()
	waited := time.Duration(0)
	if t, ok := s.enqueuedAt[room.Offerer]; ok {
		waited = time.Since(t)
	}
	delete(s.enqueuedAt, room.Offerer)
	delete(s.enqueuedAt, room.Answerer)
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.RecordPair(waited)
	}
	s.updateWaitingGauge(ctx)

	s.logger.Infow("room created", "room", room.ID, "offerer", room.Offerer, "answerer", room.Answerer)

	// both members learn the room and their role; exactly one is the offerer
	if err := s.sendToPeer(room.Offerer, ports.Event{
		Type: ports.EventStrangerFound, RoomID: room.ID, Role: domain.RoleOfferer,
	}); err != nil {
		return err
	}
	return s.sendToPeer(room.Answerer, ports.Event{
		Type: ports.EventStrangerFound, RoomID: room.ID, Role: domain.RoleAnswerer,
	})
}

func (s *Server) handleForwardDescriptor(ctx context.Context, peerID domain.PeerID, ev ports.Event) error {
	if ev.Type == ports.EventOffer && (ev.Offer == nil || validateSDP(ev.Offer.SDP) != nil) {
		return fmt.Errorf("invalid offer payload")
	}
	if ev.Type == ports.EventAnswer && (ev.Answer == nil || validateSDP(ev.Answer.SDP) != nil) {
		return fmt.Errorf("invalid answer payload")
	}

	target, room, err := s.roomPeer(ctx, peerID, ev.RoomID)
	if err != nil {
		return err
	}
	ev.RoomID = room.ID

	if s.collector != nil {
		s.collector.RecordSignalRelayed(string(ev.Type))
	}
	s.logger.Debugw("routing descriptor", "event", ev.Type, "from", peerID, "to", target, "room", room.ID)
	return s.sendToPeer(target, ev)
}

func (s *Server) handleForwardCandidate(ctx context.Context, peerID domain.PeerID, ev ports.Event) error {
	if ev.Candidate == nil {
		return fmt.Errorf("ICE candidate is required")
	}

	target, room, err := s.roomPeer(ctx, peerID, ev.RoomID)
	if err != nil {
		return err
	}
	ev.RoomID = room.ID

	if s.collector != nil {
		s.collector.RecordSignalRelayed(string(ev.Type))
	}
	return s.sendToPeer(target, ev)
}

func (s *Server) handleSendMessage(ctx context.Context, peerID domain.PeerID, ev ports.Event) error {
	if ev.Message == "" {
		return fmt.Errorf("message text is required")
	}

	target, room, err := s.roomPeer(ctx, peerID, ev.RoomID)
	if err != nil {
		return err
	}

	if s.collector != nil {
		s.collector.RecordMessageRelayed()
	}
	return s.sendToPeer(target, ports.Event{
		Type:      ports.EventReceiveMessage,
		RoomID:    room.ID,
		Message:   ev.Message,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleTyping(ctx context.Context, peerID domain.PeerID, out ports.EventType) error {
	target, room, err := s.roomPeer(ctx, peerID, "")
	if err != nil {
		return err
	}
	return s.sendToPeer(target, ports.Event{Type: out, RoomID: room.ID})
}

func (s *Server) handleLeave(ctx context.Context, peerID domain.PeerID, reason domain.DisconnectReason) error {
	room, err := s.matchmaker.EndRoom(ctx, peerID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if s.collector != nil {
		s.collector.RecordRoomEnded(reason, time.Since(room.CreatedAt))
	}
	s.logger.Infow("room dissolved", "room", room.ID, "by", peerID, "reason", reason)

	return s.sendToPeer(room.PeerOf(peerID), ports.Event{
		Type:   ports.EventStrangerDisconnected,
		RoomID: room.ID,
		Reason: reason,
	})
}

// disconnectPeer cleans up matchmaking state after a websocket drop and
// notifies the abandoned room member.
func (s *Server) disconnectPeer(ctx context.Context, peerID domain.PeerID) {
	room, err := s.matchmaker.Disconnect(ctx, peerID)
	if err != nil {
		s.logger.Warnw("disconnect cleanup failed", "peer_id", peerID, "error", err)
		return
	}
	s.updateWaitingGauge(ctx)
	if room == nil {
		return
	}

	if s.collector != nil {
		s.collector.RecordRoomEnded(domain.ReasonLeft, time.Since(room.CreatedAt))
	}
	if err := s.sendToPeer(room.PeerOf(peerID), ports.Event{
		Type:   ports.EventStrangerDisconnected,
		RoomID: room.ID,
		Reason: domain.ReasonLeft,
	}); err != nil {
		s.logger.Debugw("abandoned peer unreachable", "room", room.ID, "error", err)
	}
}

// roomPeer resolves the other member of the sender's room. A non-empty
// claimed room id must match the active one: events from dissolved rooms
// are rejected, not forwarded.
func (s *Server) roomPeer(ctx context.Context, peerID domain.PeerID, claimed domain.RoomID) (domain.PeerID, *domain.Room, error) {
	room, err := s.matchmaker.RoomFor(ctx, peerID)
	if err != nil {
		return "", nil, fmt.Errorf("no active room for %s: %w", peerID, err)
	}
	if claimed != "" && claimed != room.ID {
		return "", nil, fmt.Errorf("room mismatch: claimed %s, active %s", claimed, room.ID)
	}

	target := room.PeerOf(peerID)
	if target == "" {
		return "", nil, domain.ErrNotRoomMember
	}
	if !s.isConnected(target) {
		return "", nil, fmt.Errorf("room peer %s is not connected", target)
	}
	return target, room, nil
}

func (s *Server) sendToPeer(peerID domain.PeerID, ev ports.Event) error {
	s.mu.RLock()
	pc, exists := s.connections[peerID]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("peer %s not connected", peerID)
	}
	return pc.send(ev)
}

func (s *Server) isConnected(peerID domain.PeerID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.connections[peerID]
	return exists
}

func (s *Server) updateWaitingGauge(ctx context.Context) {
	if s.collector == nil {
		return
	}
	if n, err := s.matchmaker.WaitingCount(ctx); err == nil {
		s.collector.SetWaiting(n)
	}
}

// ConnectionCount reports the number of open websocket connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func validateSDP(sdp string) error {
	if sdp == "" {
		return fmt.Errorf("SDP cannot be empty")
	}
	if len(sdp) < 2 || sdp[:2] != "v=" {
		return fmt.Errorf("invalid SDP format: must start with 'v='")
	}
	if !strings.Contains(sdp, "o=") || !strings.Contains(sdp, "s=") {
		return fmt.Errorf("invalid SDP format: missing required fields")
	}
	return nil
}
