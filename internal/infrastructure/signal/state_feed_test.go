package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"callview/internal/core/domain"
	"callview/internal/statefulclient"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// feedServer upgrades one connection, writes the given frames and then
// keeps the connection open until the test finishes.
func feedServer(t *testing.T, frames []string, gotAuth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotAuth != nil {
			*gotAuth = r.Header.Get("Authorization")
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open, draining control frames.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func TestStateFeed_AppliesMessages(t *testing.T) {
	frames := []string{
		`{"type":"call_state","call_id":"call-1","payload":{"ID":"call-1","Status":"connected"}}`,
		`{"type":"participant_joined","call_id":"call-1","payload":{"participant":{"UserID":"u2","DisplayName":"Bob"}}}`,
		`{"type":"dominant_speakers","call_id":"call-1","payload":{"speakers":["u2"]}}`,
		`{"type":"error","payload":{"target":"call.mute","message":"denied","code":403}}`,
	}

	var gotAuth string
	srv := feedServer(t, frames, &gotAuth)
	defer srv.Close()

	client := statefulclient.New("u1", "Alice")
	feed := NewStateFeed(client, wsURL(srv), "join-token")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	assert.Eventually(t, func() bool {
		state := client.GetState()
		call := state.Calls["call-1"]
		if call == nil || call.RemoteParticipants["u2"] == nil {
			return false
		}
		return len(call.DominantSpeakers) == 1 && len(state.LatestErrors) == 1
	}, 2*time.Second, 10*time.Millisecond)

	state := client.GetState()
	assert.Equal(t, "Bob", state.Calls["call-1"].RemoteParticipants["u2"].DisplayName)
	assert.Equal(t, domain.UserID("u2"), state.Calls["call-1"].DominantSpeakers[0])
	assert.Equal(t, domain.TargetCallMute, state.LatestErrors[0].Target)
	assert.Equal(t, "Bearer join-token", gotAuth)
	assert.True(t, feed.IsConnected())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
	assert.False(t, feed.IsConnected())
}

func TestStateFeed_UnknownMessageDoesNotStopLoop(t *testing.T) {
	frames := []string{
		`{"type":"wat","payload":{}}`,
		`{"type":"call_state","call_id":"call-9","payload":{"ID":"call-9"}}`,
	}

	srv := feedServer(t, frames, nil)
	defer srv.Close()

	client := statefulclient.New("u1", "Alice")
	feed := NewStateFeed(client, wsURL(srv), "join-token")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	assert.Eventually(t, func() bool {
		return client.GetState().Calls["call-9"] != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStateFeed_StreamAvailabilityAndCaptions(t *testing.T) {
	frames := []string{
		`{"type":"call_state","call_id":"call-1","payload":{"ID":"call-1"}}`,
		`{"type":"participant_joined","call_id":"call-1","payload":{"participant":{"UserID":"u2","DisplayName":"Bob"}}}`,
		`{"type":"stream_availability","call_id":"call-1","payload":{"user_id":"u2","kind":"video","available":true}}`,
		`{"type":"caption","call_id":"call-1","payload":{"caption":{"SpeakerID":"u2","Text":"hello","IsFinal":true}}}`,
	}

	srv := feedServer(t, frames, nil)
	defer srv.Close()

	client := statefulclient.New("u1", "Alice")
	feed := NewStateFeed(client, wsURL(srv), "join-token")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	assert.Eventually(t, func() bool {
		call := client.GetState().Calls["call-1"]
		if call == nil || call.Captions == nil {
			return false
		}
		p := call.RemoteParticipants["u2"]
		return p != nil && p.VideoStream != nil && p.VideoStream.IsAvailable
	}, 2*time.Second, 10*time.Millisecond)

	call := client.GetState().Calls["call-1"]
	require.Len(t, call.Captions.Captions, 1)
	assert.Equal(t, "hello", call.Captions.Captions[0].Text)
	assert.True(t, call.Captions.IsActive)
}

func TestStateFeed_DialFailure(t *testing.T) {
	client := statefulclient.New("u1", "Alice")
	feed := NewStateFeed(client, "ws://127.0.0.1:1/state", "join-token")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := feed.Run(ctx)
	assert.Error(t, err)
	assert.False(t, feed.IsConnected())
}
