package statefulclient

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"callview/internal/core/domain"
	"callview/internal/core/ports"
)

// Client owns the snapshot. Every mutation batch produces a brand new
// *domain.CallClientState; substructures that did not change keep their
// old references, which is what the selector layer's reference-equality
// memoization relies on. Readers always see a complete, immutable value.
type Client struct {
	logger  *zap.Logger
	limiter *rate.Limiter

	mu           sync.Mutex
	state        *domain.CallClientState
	subscribers  []subscription
	nextSubID    int
	flushPending bool
}

type subscription struct {
	id      int
	handler ports.StateChangeHandler
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithNotifyLimit bounds state-change fan-out frequency. Notifications
// are coalesced, not dropped: the latest snapshot always gets delivered.
func WithNotifyLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

func New(userID domain.UserID, displayName string, opts ...Option) *Client {
	c := &Client{
		logger: zap.NewNop(),
		state: &domain.CallClientState{
			UserID:        userID,
			DisplayName:   displayName,
			Calls:         map[domain.CallID]*domain.Call{},
			CallsEnded:    map[domain.CallID]*domain.Call{},
			DeviceManager: &domain.DeviceManagerState{},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetState() *domain.CallClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) OnStateChange(handler ports.StateChangeHandler) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscription{id: id, handler: handler})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.subscribers {
			if sub.id == id {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}

// mutate runs one mutation batch. fn edits a shallow copy of the state;
// anything it wants to change below the top level must be cloned first
// (the clone helpers below handle the common paths).
func (c *Client) mutate(fn func(next *domain.CallClientState)) {
	c.mu.Lock()
	next := *c.state
	next.Generation++
	fn(&next)
	c.state = &next

	if c.limiter != nil {
		res := c.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			if !c.flushPending {
				c.flushPending = true
				time.AfterFunc(delay, c.flush)
			} else {
				res.Cancel()
			}
			c.mu.Unlock()
			return
		}
	}

	state := c.state
	subs := append([]subscription(nil), c.subscribers...)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.handler(state)
	}
}

func (c *Client) flush() {
	c.mu.Lock()
	c.flushPending = false
	state := c.state
	subs := append([]subscription(nil), c.subscribers...)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.handler(state)
	}
}

func (c *Client) SetCall(call *domain.Call) {
	c.mutate(func(next *domain.CallClientState) {
		calls := cloneCalls(next.Calls)
		calls[call.ID] = call
		next.Calls = calls
	})
}

// RemoveCall moves a call into the ended set.
func (c *Client) RemoveCall(callID domain.CallID) {
	c.mutate(func(next *domain.CallClientState) {
		call, ok := next.Calls[callID]
		if !ok {
			return
		}
		calls := cloneCalls(next.Calls)
		delete(calls, callID)
		next.Calls = calls

		ended := *call
		ended.Status = domain.CallDisconnected
		endedCalls := cloneCalls(next.CallsEnded)
		endedCalls[callID] = &ended
		next.CallsEnded = endedCalls
	})
}

func (c *Client) UpsertRemoteParticipant(callID domain.CallID, participant *domain.RemoteParticipant) {
	c.mutateCall(callID, func(call *domain.Call) {
		participants := cloneParticipants(call.RemoteParticipants)
		participants[participant.UserID] = participant
		call.RemoteParticipants = participants
	})
}

func (c *Client) RemoveRemoteParticipant(callID domain.CallID, userID domain.UserID) {
	c.mutateCall(callID, func(call *domain.Call) {
		participants := cloneParticipants(call.RemoteParticipants)
		delete(participants, userID)
		call.RemoteParticipants = participants
	})
}

func (c *Client) SetDominantSpeakers(callID domain.CallID, speakers []domain.UserID) {
	c.mutateCall(callID, func(call *domain.Call) {
		call.DominantSpeakers = speakers
	})
}

// AppendCaption copies the captions block so older snapshots keep
// their shorter transcript.
func (c *Client) AppendCaption(callID domain.CallID, caption domain.Caption) {
	c.mutateCall(callID, func(call *domain.Call) {
		var info domain.CaptionsInfo
		if call.Captions != nil {
			info = *call.Captions
		}
		info.IsActive = true
		captions := make([]domain.Caption, 0, len(info.Captions)+1)
		captions = append(captions, info.Captions...)
		info.Captions = append(captions, caption)
		call.Captions = &info
	})
}

func (c *Client) SetCaptionsActive(callID domain.CallID, active bool, spokenLanguage string) {
	c.mutateCall(callID, func(call *domain.Call) {
		var info domain.CaptionsInfo
		if call.Captions != nil {
			info = *call.Captions
		}
		info.IsActive = active
		if spokenLanguage != "" {
			info.SpokenLanguage = spokenLanguage
		}
		call.Captions = &info
	})
}

func (c *Client) SetStreamAvailability(callID domain.CallID, userID domain.UserID, kind domain.StreamKind, available bool) {
	c.mutateStream(callID, userID, kind, func(stream *domain.VideoStream) {
		stream.IsAvailable = available
		if !available {
			stream.RenderElement = nil
		}
	})
}

// SetRenderElement records the lifecycle maintainer's create/dispose
// write-back in the snapshot.
func (c *Client) SetRenderElement(callID domain.CallID, userID domain.UserID, kind domain.StreamKind, element *domain.RenderElement) {
	c.mutateStream(callID, userID, kind, func(stream *domain.VideoStream) {
		stream.RenderElement = element
	})
}

func (c *Client) SetDeviceManager(dm *domain.DeviceManagerState) {
	c.mutate(func(next *domain.CallClientState) {
		next.DeviceManager = dm
	})
}

// AddLatestError keeps at most one entry per target, newest wins.
func (c *Client) AddLatestError(latest domain.LatestError) {
	c.mutate(func(next *domain.CallClientState) {
		errs := make([]domain.LatestError, 0, len(next.LatestErrors)+1)
		for _, e := range next.LatestErrors {
			if e.Target != latest.Target {
				errs = append(errs, e)
			}
		}
		next.LatestErrors = append(errs, latest)
	})
}

func (c *Client) ClearLatestErrors() {
	c.mutate(func(next *domain.CallClientState) {
		next.LatestErrors = nil
	})
}

func (c *Client) mutateCall(callID domain.CallID, fn func(call *domain.Call)) {
	c.mutate(func(next *domain.CallClientState) {
		old, ok := next.Calls[callID]
		if !ok {
			c.logger.Debug("mutation for unknown call dropped", zap.String("call_id", string(callID)))
			return
		}
		call := *old
		fn(&call)
		calls := cloneCalls(next.Calls)
		calls[callID] = &call
		next.Calls = calls
	})
}

func (c *Client) mutateStream(callID domain.CallID, userID domain.UserID, kind domain.StreamKind, fn func(stream *domain.VideoStream)) {
	c.mutateCall(callID, func(call *domain.Call) {
		old, ok := call.RemoteParticipants[userID]
		if !ok {
			c.logger.Debug("mutation for unknown participant dropped",
				zap.String("call_id", string(callID)),
				zap.String("user_id", string(userID)),
			)
			return
		}
		participant := *old
		var stream domain.VideoStream
		switch kind {
		case domain.StreamKindScreenShare:
			if participant.ScreenShareStream != nil {
				stream = *participant.ScreenShareStream
			}
			stream.Kind = kind
			fn(&stream)
			participant.ScreenShareStream = &stream
		default:
			if participant.VideoStream != nil {
				stream = *participant.VideoStream
			}
			stream.Kind = kind
			fn(&stream)
			participant.VideoStream = &stream
		}

		participants := cloneParticipants(call.RemoteParticipants)
		participants[userID] = &participant
		call.RemoteParticipants = participants
	})
}

func cloneCalls(calls map[domain.CallID]*domain.Call) map[domain.CallID]*domain.Call {
	out := make(map[domain.CallID]*domain.Call, len(calls)+1)
	for id, call := range calls {
		out[id] = call
	}
	return out
}

func cloneParticipants(participants map[domain.UserID]*domain.RemoteParticipant) map[domain.UserID]*domain.RemoteParticipant {
	out := make(map[domain.UserID]*domain.RemoteParticipant, len(participants)+1)
	for id, p := range participants {
		out[id] = p
	}
	return out
}
