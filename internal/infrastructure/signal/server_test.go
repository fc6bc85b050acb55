package signal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
	"github.com/dhruvshibhare/droulette/internal/core/services"
	"github.com/dhruvshibhare/droulette/internal/infrastructure/repositories/memory"
)

const testSDP = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

type serverHarness struct {
	server   *Server
	httpSrv  *httptest.Server
	wsURL    string
}

func newServerHarness(t *testing.T) *serverHarness {
	t.Helper()
	matchmaker := services.NewMatchmaker(memory.NewWaitingPool(0), memory.NewRoomRepository(), zap.NewNop().Sugar())
	server := NewServer(matchmaker, nil, ServerOptions{
		PingInterval: 50 * time.Millisecond,
		PongTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, zap.NewNop().Sugar())

	httpSrv := httptest.NewServer(http.HandlerFunc(server.HandleWebSocket))
	t.Cleanup(httpSrv.Close)

	return &serverHarness{
		server:  server,
		httpSrv: httpSrv,
		wsURL:   "ws" + strings.TrimPrefix(httpSrv.URL, "http"),
	}
}

func (h *serverHarness) dial(t *testing.T, peerID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL+"?peer_id="+peerID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) ports.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev ports.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func send(t *testing.T, conn *websocket.Conn, ev ports.Event) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ev))
}

// pair connects two clients and drives them through matchmaking.
func (h *serverHarness) pair(t *testing.T) (offerer, answerer *websocket.Conn, roomID domain.RoomID) {
	t.Helper()
	a := h.dial(t, "alice")
	b := h.dial(t, "bob")

	send(t, a, ports.Event{Type: ports.EventFindStranger})
	waiting := readEvent(t, a)
	require.Equal(t, ports.EventWaitingForStranger, waiting.Type)

	send(t, b, ports.Event{Type: ports.EventFindStranger})
	foundA := readEvent(t, a)
	foundB := readEvent(t, b)

	require.Equal(t, ports.EventStrangerFound, foundA.Type)
	require.Equal(t, ports.EventStrangerFound, foundB.Type)
	require.Equal(t, foundA.RoomID, foundB.RoomID)
	require.Equal(t, domain.RoleOfferer, foundA.Role)
	require.Equal(t, domain.RoleAnswerer, foundB.Role)

	return a, b, foundA.RoomID
}

func TestPairingAssignsOneOfferer(t *testing.T) {
	h := newServerHarness(t)
	_, _, roomID := h.pair(t)
	assert.NotEmpty(t, roomID)
	assert.Equal(t, 2, h.server.ConnectionCount())
}

func TestDescriptorAndCandidateRelay(t *testing.T) {
	h := newServerHarness(t)
	offerer, answerer, roomID := h.pair(t)

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: testSDP}
	send(t, offerer, ports.Event{Type: ports.EventOffer, RoomID: roomID, Offer: &offer})

	relayed := readEvent(t, answerer)
	require.Equal(t, ports.EventOffer, relayed.Type)
	assert.Equal(t, roomID, relayed.RoomID)
	require.NotNil(t, relayed.Offer)
	assert.Equal(t, testSDP, relayed.Offer.SDP)

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: testSDP}
	send(t, answerer, ports.Event{Type: ports.EventAnswer, RoomID: roomID, Answer: &answer})

	relayed = readEvent(t, offerer)
	require.Equal(t, ports.EventAnswer, relayed.Type)
	require.NotNil(t, relayed.Answer)

	candidate := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 192.0.2.1 53165 typ host"}
	send(t, offerer, ports.Event{Type: ports.EventICECandidate, RoomID: roomID, Candidate: &candidate})

	relayed = readEvent(t, answerer)
	require.Equal(t, ports.EventICECandidate, relayed.Type)
	require.NotNil(t, relayed.Candidate)
	assert.Equal(t, candidate.Candidate, relayed.Candidate.Candidate)
}

func TestMalformedOfferNotRelayed(t *testing.T) {
	h := newServerHarness(t)
	offerer, answerer, roomID := h.pair(t)

	bad := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "not sdp"}
	send(t, offerer, ports.Event{Type: ports.EventOffer, RoomID: roomID, Offer: &bad})

	// nothing must arrive; prove ordering with a valid chat message after it
	send(t, offerer, ports.Event{Type: ports.EventSendMessage, RoomID: roomID, Message: "ping"})
	got := readEvent(t, answerer)
	assert.Equal(t, ports.EventReceiveMessage, got.Type)
}

func TestChatRelayStampsTimestamp(t *testing.T) {
	h := newServerHarness(t)
	offerer, answerer, roomID := h.pair(t)

	send(t, offerer, ports.Event{Type: ports.EventSendMessage, RoomID: roomID, Message: "hello"})

	got := readEvent(t, answerer)
	require.Equal(t, ports.EventReceiveMessage, got.Type)
	assert.Equal(t, "hello", got.Message)
	assert.Equal(t, roomID, got.RoomID)
	assert.WithinDuration(t, time.Now(), got.Timestamp, 5*time.Second)
}

func TestTypingRelay(t *testing.T) {
	h := newServerHarness(t)
	offerer, answerer, _ := h.pair(t)

	send(t, offerer, ports.Event{Type: ports.EventTyping})
	got := readEvent(t, answerer)
	assert.Equal(t, ports.EventUserTyping, got.Type)

	send(t, offerer, ports.Event{Type: ports.EventStopTyping})
	got = readEvent(t, answerer)
	assert.Equal(t, ports.EventUserStoppedTyping, got.Type)
}

func TestSkipNotifiesPeerWithReason(t *testing.T) {
	h := newServerHarness(t)
	offerer, answerer, roomID := h.pair(t)

	send(t, offerer, ports.Event{Type: ports.EventSkipUser})

	got := readEvent(t, answerer)
	require.Equal(t, ports.EventStrangerDisconnected, got.Type)
	assert.Equal(t, roomID, got.RoomID)
	assert.Equal(t, domain.ReasonSkipped, got.Reason)
}

func TestAbruptDisconnectNotifiesPeer(t *testing.T) {
	h := newServerHarness(t)
	offerer, answerer, roomID := h.pair(t)

	require.NoError(t, offerer.Close())

	got := readEvent(t, answerer)
	require.Equal(t, ports.EventStrangerDisconnected, got.Type)
	assert.Equal(t, roomID, got.RoomID)
	assert.Equal(t, domain.ReasonLeft, got.Reason)
}

func TestStaleRoomTrafficRejected(t *testing.T) {
	h := newServerHarness(t)
	offerer, answerer, roomID := h.pair(t)

	send(t, offerer, ports.Event{Type: ports.EventLeaveRoom, RoomID: roomID})
	got := readEvent(t, answerer)
	require.Equal(t, ports.EventStrangerDisconnected, got.Type)

	// the dissolved room no longer routes anything
	send(t, offerer, ports.Event{Type: ports.EventSendMessage, RoomID: roomID, Message: "too late"})

	answerer.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var ev ports.Event
	err := answerer.ReadJSON(&ev)
	assert.Error(t, err)
}
