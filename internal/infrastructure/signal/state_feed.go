package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"callview/internal/core/domain"
	"callview/internal/statefulclient"
	"callview/pkg/retry"
	"callview/pkg/tracing"
	"callview/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// FeedMetrics counts applied feed messages.
type FeedMetrics interface {
	RecordFeedMessage(messageType string)
}

// StateFeed is the websocket client that receives state patches from the
// calling service and applies them to the stateful client. It is the only
// writer of remote state; local mutators (render element write-back,
// latest errors) go through the stateful client directly.
type StateFeed struct {
	client *statefulclient.Client

	url       string
	token     string
	sessionID string

	pingInterval     time.Duration
	pongTimeout      time.Duration
	writeTimeout     time.Duration
	handshakeTimeout time.Duration

	metrics FeedMetrics
	logger  *zap.SugaredLogger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
}

// FeedMessage is the envelope every feed frame carries.
type FeedMessage struct {
	Type    string          `json:"type"`
	CallID  domain.CallID   `json:"call_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ParticipantPayload struct {
	Participant *domain.RemoteParticipant `json:"participant"`
}

type ParticipantLeftPayload struct {
	UserID domain.UserID `json:"user_id"`
}

type DominantSpeakersPayload struct {
	Speakers []domain.UserID `json:"speakers"`
}

type StreamAvailabilityPayload struct {
	UserID    domain.UserID     `json:"user_id"`
	Kind      domain.StreamKind `json:"kind"`
	Available bool              `json:"available"`
}

type CaptionPayload struct {
	Caption domain.Caption `json:"caption"`
}

type CaptionsStatePayload struct {
	Active         bool   `json:"active"`
	SpokenLanguage string `json:"spoken_language,omitempty"`
}

type ErrorPayload struct {
	Target  domain.ErrorTarget `json:"target"`
	Message string             `json:"message"`
	Code    int                `json:"code"`
}

type FeedOption func(*StateFeed)

func WithFeedMetrics(metrics FeedMetrics) FeedOption {
	return func(f *StateFeed) { f.metrics = metrics }
}

func WithFeedLogger(logger *zap.Logger) FeedOption {
	return func(f *StateFeed) { f.logger = logger.Sugar() }
}

func WithKeepalive(pingInterval, pongTimeout time.Duration) FeedOption {
	return func(f *StateFeed) {
		f.pingInterval = pingInterval
		f.pongTimeout = pongTimeout
	}
}

// NewStateFeed builds a feed for one dial target. token is the join token
// minted by the token service; it rides the Authorization header.
func NewStateFeed(client *statefulclient.Client, url, token string, opts ...FeedOption) *StateFeed {
	f := &StateFeed{
		client:           client,
		url:              url,
		token:            token,
		sessionID:        utils.NewFeedSessionID(),
		pingInterval:     30 * time.Second,
		pongTimeout:      60 * time.Second,
		writeTimeout:     10 * time.Second,
		handshakeTimeout: 10 * time.Second,
		logger:           zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run dials the feed and processes messages until the context is done or
// the connection drops. The dial retries transient failures; the read
// loop does not reconnect, callers decide whether to Run again.
func (f *StateFeed) Run(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.handshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+f.token)
	header.Set("X-Feed-Session", f.sessionID)

	dialCfg := retry.DefaultConfig()
	conn, err := retry.DoWithResult(ctx, dialCfg, func() (*websocket.Conn, error) {
		c, _, err := dialer.DialContext(ctx, f.url, header)
		return c, err
	})
	if err != nil {
		return fmt.Errorf("feed dial %s: %w", f.url, err)
	}
	defer conn.Close()

	f.mu.Lock()
	f.conn = conn
	f.connected = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.conn = nil
		f.connected = false
		f.mu.Unlock()
	}()

	f.logger.Infow("state feed connected", "url", f.url, "session_id", f.sessionID)

	conn.SetReadDeadline(time.Now().Add(f.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(f.pongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(f.pingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan FeedMessage, 16)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var msg FeedMessage
			if err := conn.ReadJSON(&msg); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(f.pongTimeout))
			messageChan <- msg
		}
	}()

	for {
		select {
		case <-ctx.Done():
			f.sendClose(conn)
			return ctx.Err()

		case msg := <-messageChan:
			if err := f.apply(ctx, msg); err != nil {
				f.logger.Warnw("feed message dropped", "type", msg.Type, "call_id", msg.CallID, "error", err)
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("feed ping: %w", err)
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Warnw("state feed read failed", "session_id", f.sessionID, "error", err)
				return err
			}
			f.logger.Infow("state feed closed", "session_id", f.sessionID)
			return nil
		}
	}
}

// IsConnected reports whether the read loop currently holds a connection.
func (f *StateFeed) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

func (f *StateFeed) apply(ctx context.Context, msg FeedMessage) error {
	if msg.Type == "" {
		return fmt.Errorf("message type is required")
	}

	_, span := tracing.TraceFeedMessage(ctx, msg.Type)
	defer span.End()

	if f.metrics != nil {
		f.metrics.RecordFeedMessage(msg.Type)
	}

	switch msg.Type {
	case "call_state":
		return f.applyCallState(msg)
	case "call_ended":
		if msg.CallID == "" {
			return fmt.Errorf("call_id is required")
		}
		f.client.RemoveCall(msg.CallID)
		return nil
	case "participant_joined", "participant_updated":
		return f.applyParticipant(msg)
	case "participant_left":
		return f.applyParticipantLeft(msg)
	case "dominant_speakers":
		return f.applyDominantSpeakers(msg)
	case "stream_availability":
		return f.applyStreamAvailability(msg)
	case "caption":
		return f.applyCaption(msg)
	case "captions_state":
		return f.applyCaptionsState(msg)
	case "device_manager":
		return f.applyDeviceManager(msg)
	case "error":
		return f.applyError(msg)
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (f *StateFeed) applyCallState(msg FeedMessage) error {
	var call domain.Call
	if err := json.Unmarshal(msg.Payload, &call); err != nil {
		return fmt.Errorf("invalid call_state payload: %w", err)
	}
	if call.ID == "" {
		call.ID = msg.CallID
	}
	if call.ID == "" {
		return fmt.Errorf("call_state without call id")
	}
	f.client.SetCall(&call)
	return nil
}

func (f *StateFeed) applyParticipant(msg FeedMessage) error {
	var payload ParticipantPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid participant payload: %w", err)
	}
	if payload.Participant == nil || payload.Participant.UserID == "" {
		return fmt.Errorf("participant payload without user id")
	}
	f.client.UpsertRemoteParticipant(msg.CallID, payload.Participant)
	return nil
}

func (f *StateFeed) applyParticipantLeft(msg FeedMessage) error {
	var payload ParticipantLeftPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid participant_left payload: %w", err)
	}
	if payload.UserID == "" {
		return fmt.Errorf("participant_left without user id")
	}
	f.client.RemoveRemoteParticipant(msg.CallID, payload.UserID)
	return nil
}

func (f *StateFeed) applyDominantSpeakers(msg FeedMessage) error {
	var payload DominantSpeakersPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid dominant_speakers payload: %w", err)
	}
	f.client.SetDominantSpeakers(msg.CallID, payload.Speakers)
	return nil
}

func (f *StateFeed) applyStreamAvailability(msg FeedMessage) error {
	var payload StreamAvailabilityPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid stream_availability payload: %w", err)
	}
	if payload.UserID == "" {
		return fmt.Errorf("stream_availability without user id")
	}
	f.client.SetStreamAvailability(msg.CallID, payload.UserID, payload.Kind, payload.Available)
	return nil
}

func (f *StateFeed) applyCaption(msg FeedMessage) error {
	var payload CaptionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid caption payload: %w", err)
	}
	f.client.AppendCaption(msg.CallID, payload.Caption)
	return nil
}

func (f *StateFeed) applyCaptionsState(msg FeedMessage) error {
	var payload CaptionsStatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid captions_state payload: %w", err)
	}
	f.client.SetCaptionsActive(msg.CallID, payload.Active, payload.SpokenLanguage)
	return nil
}

func (f *StateFeed) applyDeviceManager(msg FeedMessage) error {
	var dm domain.DeviceManagerState
	if err := json.Unmarshal(msg.Payload, &dm); err != nil {
		return fmt.Errorf("invalid device_manager payload: %w", err)
	}
	f.client.SetDeviceManager(&dm)
	return nil
}

func (f *StateFeed) applyError(msg FeedMessage) error {
	var payload ErrorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid error payload: %w", err)
	}
	if payload.Target == "" {
		return fmt.Errorf("error payload without target")
	}
	f.client.AddLatestError(domain.LatestError{
		Target:  payload.Target,
		Message: payload.Message,
		Code:    payload.Code,
	})
	return nil
}

func (f *StateFeed) sendClose(conn *websocket.Conn) {
	conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"))
}
