package selectors

import "callview/internal/core/domain"

// CallControlsView backs the control bar: toggle states for microphone,
// camera and screen share plus the device lists for the flyout menus.
type CallControlsView struct {
	MicrophoneOn    bool
	CameraOn        bool
	ScreenShareOn   bool
	ControlsEnabled bool
	Cameras         []domain.Device
	Microphones     []domain.Device
	Speakers        []domain.Device
	SelectedCamera  *domain.Device
	SelectedMic     *domain.Device
	SelectedSpeaker *domain.Device
}

type CallControlsSelector struct {
	cell *memoCell[*CallControlsView]
}

func NewCallControlsSelector(observer CacheObserver) *CallControlsSelector {
	return &CallControlsSelector{cell: newMemoCell[*CallControlsView]("call_controls", observer)}
}

func (s *CallControlsSelector) Select(state *domain.CallClientState, callID domain.CallID) *CallControlsView {
	call := CallFor(state, callID)
	if call == nil {
		return nil
	}
	local := LocalParticipantOf(call)
	devices := DeviceManagerOf(state)

	deps := []any{local, devices, call.Status}
	return s.cell.get(deps, func() *CallControlsView {
		view := &CallControlsView{
			MicrophoneOn:    !local.IsMuted,
			CameraOn:        local.VideoStream != nil && local.VideoStream.IsAvailable,
			ScreenShareOn:   local.IsScreenSharingOn,
			ControlsEnabled: call.Status == domain.CallConnected,
		}
		if devices != nil {
			view.Cameras = devices.Cameras
			view.Microphones = devices.Microphones
			view.Speakers = devices.Speakers
			view.SelectedCamera = devices.SelectedCamera
			view.SelectedMic = devices.SelectedMic
			view.SelectedSpeaker = devices.SelectedSpeaker
		}
		return view
	})
}
