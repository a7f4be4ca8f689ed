package domain

import "time"

type (
	UserID   string
	CallID   string
	DeviceID string
	StreamID int
)

type ParticipantState string

const (
	ParticipantConnecting   ParticipantState = "connecting"
	ParticipantConnected    ParticipantState = "connected"
	ParticipantHold         ParticipantState = "hold"
	ParticipantInLobby      ParticipantState = "in_lobby"
	ParticipantDisconnected ParticipantState = "disconnected"
)

// ParticipantRole distinguishes interactive participants from consumer
// endpoints such as recording bots, which never render a roster entry.
type ParticipantRole string

const (
	RoleOrganizer ParticipantRole = "organizer"
	RolePresenter ParticipantRole = "presenter"
	RoleAttendee  ParticipantRole = "attendee"
	RoleConsumer  ParticipantRole = "consumer"
)

// LocalParticipant is the snapshot's view of the signed-in user within
// one call.
type LocalParticipant struct {
	UserID            UserID
	DisplayName       string
	IsMuted           bool
	IsScreenSharingOn bool
	VideoStream       *VideoStream
	ScreenShareStream *VideoStream
}

// RemoteParticipant is one far-end participant. Entries are replaced
// wholesale on update; substructure pointers stay stable otherwise.
type RemoteParticipant struct {
	UserID            UserID
	DisplayName       string
	State             ParticipantState
	Role              ParticipantRole
	IsMuted           bool
	IsSpeaking        bool
	IsScreenSharingOn bool
	JoinedAt          time.Time
	VideoStream       *VideoStream
	ScreenShareStream *VideoStream
}
