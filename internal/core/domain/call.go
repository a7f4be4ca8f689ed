package domain

import "time"

type CallStatus string

const (
	CallNone          CallStatus = "none"
	CallConnecting    CallStatus = "connecting"
	CallRinging       CallStatus = "ringing"
	CallConnected     CallStatus = "connected"
	CallLocalHold     CallStatus = "local_hold"
	CallRemoteHold    CallStatus = "remote_hold"
	CallInLobby       CallStatus = "in_lobby"
	CallDisconnecting CallStatus = "disconnecting"
	CallDisconnected  CallStatus = "disconnected"
)

// Call is the per-call slice of the snapshot. RemoteParticipants is keyed
// by UserID; reconciliation works on identity, never on position.
type Call struct {
	ID                 CallID
	Status             CallStatus
	LocalParticipant   LocalParticipant
	RemoteParticipants map[UserID]*RemoteParticipant
	DominantSpeakers   []UserID
	Captions           *CaptionsInfo
	StartedAt          time.Time
}

type CaptionsInfo struct {
	IsActive       bool
	SpokenLanguage string
	Captions       []Caption
}

type Caption struct {
	SpeakerID   UserID
	SpeakerName string
	Text        string
	IsFinal     bool
	Timestamp   time.Time
}

type DeviceManagerState struct {
	Cameras          []Device
	Microphones      []Device
	Speakers         []Device
	SelectedCamera   *Device
	SelectedMic      *Device
	SelectedSpeaker  *Device
	DeviceAccessHeld bool
}

type Device struct {
	ID   DeviceID
	Name string
}

// LatestError is one surfaced SDK failure. Target identifies the
// operation category that failed; the snapshot keeps at most one entry
// per target.
type LatestError struct {
	Target  ErrorTarget
	Message string
	Code    int
}

type ErrorTarget string

const (
	TargetCallStart        ErrorTarget = "call.start"
	TargetCallMute         ErrorTarget = "call.mute"
	TargetCallUnmute       ErrorTarget = "call.unmute"
	TargetCallCamera       ErrorTarget = "call.startVideo"
	TargetCallScreenShare  ErrorTarget = "call.startScreenSharing"
	TargetDevicePermission ErrorTarget = "deviceManager.askDevicePermission"
	TargetDeviceSelect     ErrorTarget = "deviceManager.selectDevice"
)

// CallClientState is the immutable snapshot of everything the UI derives
// from. The stateful client replaces the whole value on each mutation
// batch; substructures that did not change keep their old references so
// memoized selectors can skip recomputation.
type CallClientState struct {
	UserID        UserID
	DisplayName   string
	Calls         map[CallID]*Call
	CallsEnded    map[CallID]*Call
	DeviceManager *DeviceManagerState
	LatestErrors  []LatestError
	Generation    uint64
}
