package selectors

import "callview/internal/core/domain"

// Base accessors: pure projections into the snapshot. They never
// compute, only pick fields and default missing substructures to nil so
// downstream selectors can treat "no active call" as "nothing to render".

func CallFor(state *domain.CallClientState, callID domain.CallID) *domain.Call {
	if state == nil || state.Calls == nil {
		return nil
	}
	return state.Calls[callID]
}

func EndedCallFor(state *domain.CallClientState, callID domain.CallID) *domain.Call {
	if state == nil || state.CallsEnded == nil {
		return nil
	}
	return state.CallsEnded[callID]
}

func RemoteParticipantsOf(call *domain.Call) map[domain.UserID]*domain.RemoteParticipant {
	if call == nil {
		return nil
	}
	return call.RemoteParticipants
}

func LocalParticipantOf(call *domain.Call) *domain.LocalParticipant {
	if call == nil {
		return nil
	}
	return &call.LocalParticipant
}

func DominantSpeakersOf(call *domain.Call) []domain.UserID {
	if call == nil {
		return nil
	}
	return call.DominantSpeakers
}

func CaptionsOf(call *domain.Call) *domain.CaptionsInfo {
	if call == nil {
		return nil
	}
	return call.Captions
}

func DeviceManagerOf(state *domain.CallClientState) *domain.DeviceManagerState {
	if state == nil {
		return nil
	}
	return state.DeviceManager
}

func LatestErrorsOf(state *domain.CallClientState) []domain.LatestError {
	if state == nil {
		return nil
	}
	return state.LatestErrors
}
