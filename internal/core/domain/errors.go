package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPeerNotFound   = errors.New("peer not found")
	ErrNotRoomMember  = errors.New("peer is not a member of the room")
	ErrAlreadyWaiting = errors.New("peer already in waiting pool")
	ErrNoneWaiting    = errors.New("no peer waiting")
	ErrPoolFull       = errors.New("waiting pool is full")
	ErrSignalClosed   = errors.New("signaling channel is not connected")
	ErrAlreadyStarted = errors.New("session already started")
)

// NegotiationKind classifies negotiation failures so callers and tests can
// assert on the failure class instead of matching log strings.
type NegotiationKind string

const (
	NegotiationCreateOffer  NegotiationKind = "create-offer"
	NegotiationCreateAnswer NegotiationKind = "create-answer"
	NegotiationApplyAnswer  NegotiationKind = "apply-answer"
	NegotiationOutOfPhase   NegotiationKind = "out-of-phase"
	NegotiationNoLink       NegotiationKind = "no-link"
	NegotiationLinkCreate   NegotiationKind = "link-create"
)

// NegotiationError is a typed, non-fatal negotiation failure. The session
// stays in its current state; skip or stop is the recovery path.
type NegotiationError struct {
	Kind NegotiationKind
	Err  error
}

func (e *NegotiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("negotiation %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("negotiation %s", e.Kind)
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}

// NewNegotiationError wraps err with a failure kind.
func NewNegotiationError(kind NegotiationKind, err error) *NegotiationError {
	return &NegotiationError{Kind: kind, Err: err}
}

// NegotiationKindOf extracts the failure kind from err, or "" if err is not
// a NegotiationError.
func NegotiationKindOf(err error) NegotiationKind {
	var ne *NegotiationError
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return ""
}

// MediaKind classifies local media acquisition failures into the
// user-facing categories surfaced by the UI boundary.
type MediaKind string

const (
	MediaPermissionDenied MediaKind = "permission-denied"
	MediaDeviceNotFound   MediaKind = "device-not-found"
	MediaDeviceBusy       MediaKind = "device-busy"
	MediaOverconstrained  MediaKind = "overconstrained"
	MediaSecurityPolicy   MediaKind = "security-policy"
	MediaUnknown          MediaKind = "unknown"
)

// MediaError is a typed media acquisition failure. The session remains idle
// and no matchmaking request is sent.
type MediaError struct {
	Kind MediaKind
	Err  error
}

func (e *MediaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("media %s", e.Kind)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewMediaError wraps err with an acquisition failure kind.
func NewMediaError(kind MediaKind, err error) *MediaError {
	return &MediaError{Kind: kind, Err: err}
}

// MediaKindOf extracts the failure kind from err, or MediaUnknown for any
// other non-nil error.
func MediaKindOf(err error) MediaKind {
	var me *MediaError
	if errors.As(err, &me) {
		return me.Kind
	}
	if err != nil {
		return MediaUnknown
	}
	return ""
}
