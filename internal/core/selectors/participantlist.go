package selectors

import (
	"sort"

	"callview/internal/core/domain"
)

type ParticipantListItem struct {
	UserID            domain.UserID
	DisplayName       string
	State             domain.ParticipantState
	IsMuted           bool
	IsScreenSharingOn bool
	IsLocal           bool
}

type ParticipantListView struct {
	Participants []ParticipantListItem
	LocalUserID  domain.UserID
}

// ParticipantListSelector derives the roster. Consumer-role participants
// are excluded by copying into a fresh slice; the snapshot's participant
// map is never touched.
type ParticipantListSelector struct {
	cell *memoCell[*ParticipantListView]
}

func NewParticipantListSelector(observer CacheObserver) *ParticipantListSelector {
	return &ParticipantListSelector{cell: newMemoCell[*ParticipantListView]("participant_list", observer)}
}

func (s *ParticipantListSelector) Select(state *domain.CallClientState, callID domain.CallID) *ParticipantListView {
	call := CallFor(state, callID)
	if call == nil {
		return nil
	}
	participants := RemoteParticipantsOf(call)
	local := LocalParticipantOf(call)

	deps := []any{participants, local}
	return s.cell.get(deps, func() *ParticipantListView {
		items := make([]ParticipantListItem, 0, len(participants)+1)
		items = append(items, ParticipantListItem{
			UserID:            local.UserID,
			DisplayName:       local.DisplayName,
			State:             domain.ParticipantConnected,
			IsMuted:           local.IsMuted,
			IsScreenSharingOn: local.IsScreenSharingOn,
			IsLocal:           true,
		})
		for _, p := range participants {
			if p.Role == domain.RoleConsumer || p.State == domain.ParticipantDisconnected {
				continue
			}
			items = append(items, ParticipantListItem{
				UserID:            p.UserID,
				DisplayName:       p.DisplayName,
				State:             p.State,
				IsMuted:           p.IsMuted,
				IsScreenSharingOn: p.IsScreenSharingOn,
			})
		}
		// Local entry first, then a stable name ordering.
		rest := items[1:]
		sort.Slice(rest, func(i, j int) bool {
			if rest[i].DisplayName != rest[j].DisplayName {
				return rest[i].DisplayName < rest[j].DisplayName
			}
			return rest[i].UserID < rest[j].UserID
		})
		return &ParticipantListView{Participants: items, LocalUserID: local.UserID}
	})
}
