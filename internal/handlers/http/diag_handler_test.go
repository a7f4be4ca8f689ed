package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callview/internal/core/domain"
	"callview/internal/infrastructure/monitoring"
	"callview/internal/statefulclient"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededClient() *statefulclient.Client {
	client := statefulclient.New("u1", "Alice")
	client.SetCall(&domain.Call{
		ID:     "call-1",
		Status: domain.CallConnected,
		LocalParticipant: domain.LocalParticipant{
			UserID:      "u1",
			DisplayName: "Alice",
		},
		RemoteParticipants: map[domain.UserID]*domain.RemoteParticipant{
			"u2": {
				UserID:      "u2",
				DisplayName: "Bob",
				State:       domain.ParticipantConnected,
				VideoStream: &domain.VideoStream{ID: 1, Kind: domain.StreamKindVideo, IsAvailable: true},
			},
			"u3": {
				UserID:      "u3",
				DisplayName: "Carol",
				State:       domain.ParticipantConnected,
			},
		},
		DominantSpeakers: []domain.UserID{"u2"},
	})
	return client
}

func diagRouter(client *statefulclient.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)

	health := monitoring.NewHealthChecker()
	health.AddCheck("feed", func(ctx context.Context) (bool, error) {
		return true, nil
	}, time.Second)

	handler := NewDiagHandler(client, health, 4, nil)
	router := gin.New()
	handler.SetupRoutes(router)
	return router
}

func TestHealthz_Healthy(t *testing.T) {
	router := diagRouter(seededClient())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body monitoring.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["feed"])
}

func TestHealthz_UnhealthyCheck(t *testing.T) {
	client := seededClient()
	gin.SetMode(gin.TestMode)

	health := monitoring.NewHealthChecker()
	health.AddCheck("feed", func(ctx context.Context) (bool, error) {
		return false, nil
	}, time.Second)

	handler := NewDiagHandler(client, health, 4, nil)
	router := gin.New()
	handler.SetupRoutes(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetState_ListsCalls(t *testing.T) {
	router := diagRouter(seededClient())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/state", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID string   `json:"user_id"`
		Calls  []string `json:"calls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.UserID)
	assert.Equal(t, []string{"call-1"}, body.Calls)
}

func TestGetGallery_KnownCall(t *testing.T) {
	router := diagRouter(seededClient())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/state/calls/call-1/gallery", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		VideoTiles       int      `json:"video_tiles"`
		AudioTiles       int      `json:"audio_tiles"`
		ScreenShare      bool     `json:"screen_share"`
		DominantSpeakers []string `json:"dominant_speakers"`
		Visible          []string `json:"visible"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.VideoTiles)
	assert.Equal(t, 1, body.AudioTiles)
	assert.False(t, body.ScreenShare)
	assert.Equal(t, []string{"u2"}, body.DominantSpeakers)
	assert.Equal(t, []string{"u2"}, body.Visible)
}

func TestGetGallery_UnknownCall(t *testing.T) {
	router := diagRouter(seededClient())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/state/calls/nope/gallery", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetParticipants_LocalFirst(t *testing.T) {
	router := diagRouter(seededClient())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/state/calls/call-1/participants", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Participants []struct {
			UserID  string `json:"UserID"`
			IsLocal bool   `json:"IsLocal"`
		} `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Participants, 3)
	assert.True(t, body.Participants[0].IsLocal)
	assert.Equal(t, "u1", body.Participants[0].UserID)
	assert.Equal(t, "u2", body.Participants[1].UserID)
	assert.Equal(t, "u3", body.Participants[2].UserID)
}
