package selectors

import (
	"sort"

	"callview/internal/core/domain"
)

// maxNotifications bounds the stack so the UI surface stays fixed.
const maxNotifications = 3

type Notification struct {
	Target  domain.ErrorTarget
	Message string
}

type NotificationStackView struct {
	Notifications []Notification
}

// Fixed category ranking used as the deterministic tie-break; the
// snapshot's error slice carries no timestamps.
var targetRank = map[domain.ErrorTarget]int{
	domain.TargetDevicePermission: 0,
	domain.TargetCallStart:        1,
	domain.TargetCallMute:         2,
	domain.TargetCallUnmute:       3,
	domain.TargetCallCamera:       4,
	domain.TargetCallScreenShare:  5,
	domain.TargetDeviceSelect:     6,
}

type NotificationStackSelector struct {
	cell *memoCell[*NotificationStackView]
}

func NewNotificationStackSelector(observer CacheObserver) *NotificationStackSelector {
	return &NotificationStackSelector{cell: newMemoCell[*NotificationStackView]("notification_stack", observer)}
}

func (s *NotificationStackSelector) Select(state *domain.CallClientState) *NotificationStackView {
	errs := LatestErrorsOf(state)

	deps := []any{errs}
	return s.cell.get(deps, func() *NotificationStackView {
		notifications := make([]Notification, 0, len(errs))
		for _, e := range errs {
			notifications = append(notifications, Notification{Target: e.Target, Message: e.Message})
		}
		sort.SliceStable(notifications, func(i, j int) bool {
			return rankOf(notifications[i].Target) < rankOf(notifications[j].Target)
		})
		if len(notifications) > maxNotifications {
			notifications = notifications[:maxNotifications]
		}
		return &NotificationStackView{Notifications: notifications}
	})
}

func rankOf(target domain.ErrorTarget) int {
	if r, ok := targetRank[target]; ok {
		return r
	}
	return len(targetRank)
}
