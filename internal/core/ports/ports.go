package ports

import (
	"context"

	"callview/internal/core/domain"
)

// StateChangeHandler receives the new snapshot after each mutation batch.
type StateChangeHandler func(state *domain.CallClientState)

// StatefulClient is the state-owning collaborator. GetState returns the
// latest immutable snapshot; handlers registered with OnStateChange are
// invoked after every mutation batch until unsubscribed.
type StatefulClient interface {
	GetState() *domain.CallClientState
	OnStateChange(handler StateChangeHandler) (unsubscribe func())
}

// ViewHandle is the resource returned by a successful view creation. It
// is exclusively owned by one lifecycle maintainer instance.
type ViewHandle interface {
	UpdateScalingMode(ctx context.Context, mode domain.ScalingMode) error
}

type ViewOptions struct {
	IsMirrored  bool
	ScalingMode domain.ScalingMode
}

// StreamViewFactory creates and disposes rendered views for streams.
// CreateView may return (nil, nil) when the stream disappeared before
// creation completed. DisposeView must be a no-op for views that were
// never created or are already disposed.
type StreamViewFactory interface {
	CreateView(ctx context.Context, callID domain.CallID, userID domain.UserID, stream *domain.VideoStream, opts ViewOptions) (ViewHandle, error)
	DisposeView(ctx context.Context, callID domain.CallID, userID domain.UserID, stream *domain.VideoStream) error
}

// CallController exposes the SDK call actions the handler layer binds to
// UI intents. Implementations live outside this module.
type CallController interface {
	Mute(ctx context.Context, callID domain.CallID) error
	Unmute(ctx context.Context, callID domain.CallID) error
	StartVideo(ctx context.Context, callID domain.CallID) error
	StopVideo(ctx context.Context, callID domain.CallID) error
	StartScreenShare(ctx context.Context, callID domain.CallID) error
	StopScreenShare(ctx context.Context, callID domain.CallID) error
	StartCall(ctx context.Context, participants []domain.UserID) (domain.CallID, error)
	HangUp(ctx context.Context, callID domain.CallID) error
}

// DeviceController exposes device manager actions.
type DeviceController interface {
	SelectCamera(ctx context.Context, device domain.Device) error
	SelectMicrophone(ctx context.Context, device domain.Device) error
	SelectSpeaker(ctx context.Context, device domain.Device) error
	AskDevicePermission(ctx context.Context, audio, video bool) error
}
