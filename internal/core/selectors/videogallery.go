package selectors

import (
	"sort"

	"callview/internal/core/domain"
)

// GalleryTile is the view model for one rendered participant tile.
type GalleryTile struct {
	UserID            domain.UserID
	DisplayName       string
	IsMuted           bool
	IsSpeaking        bool
	IsScreenSharingOn bool
	Stream            *domain.VideoStream
}

// VideoGalleryView feeds the gallery component: the local tile, remote
// tiles split by video availability, the active screen share if any, and
// the dominant speaker ranking used by the reconciliation step.
type VideoGalleryView struct {
	LocalTile        GalleryTile
	VideoTiles       []GalleryTile
	AudioTiles       []GalleryTile
	ScreenShareTile  *GalleryTile
	DominantSpeakers []domain.UserID
}

// VideoGallerySelector derives VideoGalleryView from the snapshot.
// Construct one per consuming component instance; the memo cell is not
// shared.
type VideoGallerySelector struct {
	cell *memoCell[*VideoGalleryView]
}

func NewVideoGallerySelector(observer CacheObserver) *VideoGallerySelector {
	return &VideoGallerySelector{cell: newMemoCell[*VideoGalleryView]("video_gallery", observer)}
}

func (s *VideoGallerySelector) Select(state *domain.CallClientState, callID domain.CallID) *VideoGalleryView {
	call := CallFor(state, callID)
	if call == nil {
		return nil
	}
	participants := RemoteParticipantsOf(call)
	speakers := DominantSpeakersOf(call)
	local := LocalParticipantOf(call)

	deps := []any{participants, speakers, local}
	return s.cell.get(deps, func() *VideoGalleryView {
		return buildGalleryView(local, participants, speakers)
	})
}

func buildGalleryView(local *domain.LocalParticipant, participants map[domain.UserID]*domain.RemoteParticipant, speakers []domain.UserID) *VideoGalleryView {
	view := &VideoGalleryView{
		LocalTile: GalleryTile{
			UserID:            local.UserID,
			DisplayName:       local.DisplayName,
			IsMuted:           local.IsMuted,
			IsScreenSharingOn: local.IsScreenSharingOn,
			Stream:            local.VideoStream,
		},
		DominantSpeakers: speakers,
	}

	ordered := make([]*domain.RemoteParticipant, 0, len(participants))
	for _, p := range participants {
		if p.State == domain.ParticipantDisconnected {
			continue
		}
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].JoinedAt.Equal(ordered[j].JoinedAt) {
			return ordered[i].JoinedAt.Before(ordered[j].JoinedAt)
		}
		return ordered[i].UserID < ordered[j].UserID
	})

	for _, p := range ordered {
		tile := GalleryTile{
			UserID:            p.UserID,
			DisplayName:       p.DisplayName,
			IsMuted:           p.IsMuted,
			IsSpeaking:        p.IsSpeaking,
			IsScreenSharingOn: p.IsScreenSharingOn,
			Stream:            p.VideoStream,
		}
		if p.VideoStream != nil && p.VideoStream.IsAvailable {
			view.VideoTiles = append(view.VideoTiles, tile)
		} else {
			view.AudioTiles = append(view.AudioTiles, tile)
		}
		if view.ScreenShareTile == nil && p.IsScreenSharingOn && p.ScreenShareStream != nil && p.ScreenShareStream.IsAvailable {
			share := tile
			share.Stream = p.ScreenShareStream
			view.ScreenShareTile = &share
		}
	}
	return view
}
