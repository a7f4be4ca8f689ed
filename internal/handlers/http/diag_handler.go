package http

import (
	"net/http"
	"sort"

	"callview/internal/core/domain"
	"callview/internal/core/gallery"
	"callview/internal/core/ports"
	"callview/internal/core/selectors"
	"callview/internal/infrastructure/monitoring"
	apperrors "callview/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DiagHandler exposes read-only diagnostics over the live snapshot:
// health, the raw state, and the derived gallery for one call.
type DiagHandler struct {
	client     ports.StatefulClient
	health     *monitoring.HealthChecker
	maxVisible int

	gallerySelector *selectors.VideoGallerySelector
	listSelector    *selectors.ParticipantListSelector
}

func NewDiagHandler(client ports.StatefulClient, health *monitoring.HealthChecker, maxVisible int, observer selectors.CacheObserver) *DiagHandler {
	return &DiagHandler{
		client:          client,
		health:          health,
		maxVisible:      maxVisible,
		gallerySelector: selectors.NewVideoGallerySelector(observer),
		listSelector:    selectors.NewParticipantListSelector(observer),
	}
}

func (h *DiagHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	state := router.Group("/state")
	{
		state.GET("", h.GetState)
		state.GET("/calls/:id/gallery", h.GetGallery)
		state.GET("/calls/:id/participants", h.GetParticipants)
	}
}

func (h *DiagHandler) Healthz(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *DiagHandler) GetState(c *gin.Context) {
	state := h.client.GetState()

	callIDs := make([]string, 0, len(state.Calls))
	for id := range state.Calls {
		callIDs = append(callIDs, string(id))
	}
	sort.Strings(callIDs)

	c.JSON(http.StatusOK, gin.H{
		"user_id":      state.UserID,
		"display_name": state.DisplayName,
		"generation":   state.Generation,
		"calls":        callIDs,
		"calls_ended":  len(state.CallsEnded),
		"errors":       state.LatestErrors,
	})
}

func (h *DiagHandler) GetGallery(c *gin.Context) {
	callID := domain.CallID(c.Param("id"))
	state := h.client.GetState()

	view := h.gallerySelector.Select(state, callID)
	if view == nil {
		appErr := apperrors.NewNotFoundError("call")
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
		return
	}

	// Resolve the visible set the same way the gallery component does.
	call := selectors.CallFor(state, callID)
	participants := make([]*domain.RemoteParticipant, 0, len(view.VideoTiles))
	byID := selectors.RemoteParticipantsOf(call)
	for _, tile := range view.VideoTiles {
		if p := byID[tile.UserID]; p != nil {
			participants = append(participants, p)
		}
	}
	visible := gallery.SmartDominantSpeakers(participants, view.DominantSpeakers, nil, h.maxVisible)

	visibleIDs := make([]domain.UserID, 0, len(visible))
	for _, p := range visible {
		visibleIDs = append(visibleIDs, p.UserID)
	}

	c.JSON(http.StatusOK, gin.H{
		"local_tile":        view.LocalTile,
		"video_tiles":       len(view.VideoTiles),
		"audio_tiles":       len(view.AudioTiles),
		"screen_share":      view.ScreenShareTile != nil,
		"dominant_speakers": view.DominantSpeakers,
		"visible":           visibleIDs,
	})
}

func (h *DiagHandler) GetParticipants(c *gin.Context) {
	callID := domain.CallID(c.Param("id"))
	state := h.client.GetState()

	view := h.listSelector.Select(state, callID)
	if view == nil {
		appErr := apperrors.NewNotFoundError("call")
		c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": view.Participants})
}
