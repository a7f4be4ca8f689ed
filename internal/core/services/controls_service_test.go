package services

import (
	"context"
	"testing"

	"callview/internal/core/domain"
	"callview/internal/statefulclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCallController struct {
	actions []string
	err     error
}

func (f *fakeCallController) record(action string) error {
	f.actions = append(f.actions, action)
	return f.err
}

func (f *fakeCallController) Mute(context.Context, domain.CallID) error   { return f.record("mute") }
func (f *fakeCallController) Unmute(context.Context, domain.CallID) error { return f.record("unmute") }
func (f *fakeCallController) StartVideo(context.Context, domain.CallID) error {
	return f.record("start_video")
}
func (f *fakeCallController) StopVideo(context.Context, domain.CallID) error {
	return f.record("stop_video")
}
func (f *fakeCallController) StartScreenShare(context.Context, domain.CallID) error {
	return f.record("start_screen_share")
}
func (f *fakeCallController) StopScreenShare(context.Context, domain.CallID) error {
	return f.record("stop_screen_share")
}
func (f *fakeCallController) StartCall(context.Context, []domain.UserID) (domain.CallID, error) {
	return "call-new", f.record("start_call")
}
func (f *fakeCallController) HangUp(context.Context, domain.CallID) error {
	return f.record("hang_up")
}

type fakeDeviceController struct {
	actions []string
}

func (f *fakeDeviceController) record(action string) error {
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeDeviceController) SelectCamera(context.Context, domain.Device) error {
	return f.record("select_camera")
}
func (f *fakeDeviceController) SelectMicrophone(context.Context, domain.Device) error {
	return f.record("select_microphone")
}
func (f *fakeDeviceController) SelectSpeaker(context.Context, domain.Device) error {
	return f.record("select_speaker")
}
func (f *fakeDeviceController) AskDevicePermission(context.Context, bool, bool) error {
	return f.record("ask_permission")
}

func controlsFixture(t *testing.T, local domain.LocalParticipant) (*ControlsService, *fakeCallController, *fakeDeviceController) {
	t.Helper()
	client := statefulclient.New("u1", "Alice")
	client.SetCall(&domain.Call{
		ID:               "call-1",
		Status:           domain.CallConnected,
		LocalParticipant: local,
	})

	calls := &fakeCallController{}
	devices := &fakeDeviceController{}
	svc := NewControlsService(client, calls, devices, nil)
	return svc, calls, devices
}

func TestHandlersFor_SameIdentityPerCall(t *testing.T) {
	svc, _, _ := controlsFixture(t, domain.LocalParticipant{UserID: "u1"})

	first := svc.HandlersFor("call-1")
	second := svc.HandlersFor("call-1")
	other := svc.HandlersFor("call-2")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)

	svc.Release("call-1")
	assert.NotSame(t, first, svc.HandlersFor("call-1"))
}

func TestToggleMicrophone_FollowsMuteState(t *testing.T) {
	svc, calls, _ := controlsFixture(t, domain.LocalParticipant{UserID: "u1", IsMuted: false})

	handlers := svc.HandlersFor("call-1")
	require.NoError(t, handlers.ToggleMicrophone(context.Background()))
	assert.Equal(t, []string{"mute"}, calls.actions)

	svc, calls, _ = controlsFixture(t, domain.LocalParticipant{UserID: "u1", IsMuted: true})
	handlers = svc.HandlersFor("call-1")
	require.NoError(t, handlers.ToggleMicrophone(context.Background()))
	assert.Equal(t, []string{"unmute"}, calls.actions)
}

func TestToggleCamera_FollowsVideoAvailability(t *testing.T) {
	svc, calls, _ := controlsFixture(t, domain.LocalParticipant{UserID: "u1"})
	handlers := svc.HandlersFor("call-1")
	require.NoError(t, handlers.ToggleCamera(context.Background()))
	assert.Equal(t, []string{"start_video"}, calls.actions)

	svc, calls, _ = controlsFixture(t, domain.LocalParticipant{
		UserID:      "u1",
		VideoStream: &domain.VideoStream{ID: 1, Kind: domain.StreamKindVideo, IsAvailable: true},
	})
	handlers = svc.HandlersFor("call-1")
	require.NoError(t, handlers.ToggleCamera(context.Background()))
	assert.Equal(t, []string{"stop_video"}, calls.actions)
}

func TestToggleScreenShare(t *testing.T) {
	svc, calls, _ := controlsFixture(t, domain.LocalParticipant{UserID: "u1", IsScreenSharingOn: true})
	handlers := svc.HandlersFor("call-1")
	require.NoError(t, handlers.ToggleScreenShare(context.Background()))
	assert.Equal(t, []string{"stop_screen_share"}, calls.actions)
}

func TestToggle_UnknownCall(t *testing.T) {
	svc, calls, _ := controlsFixture(t, domain.LocalParticipant{UserID: "u1"})
	handlers := svc.HandlersFor("no-such-call")

	err := handlers.ToggleMicrophone(context.Background())
	assert.ErrorIs(t, err, domain.ErrCallNotFound)
	assert.Empty(t, calls.actions)
}

func TestDeviceHandlers_Delegate(t *testing.T) {
	svc, _, devices := controlsFixture(t, domain.LocalParticipant{UserID: "u1"})
	handlers := svc.HandlersFor("call-1")

	require.NoError(t, handlers.SelectCamera(context.Background(), domain.Device{ID: "cam-1"}))
	require.NoError(t, handlers.SelectSpeaker(context.Background(), domain.Device{ID: "spk-1"}))
	assert.Equal(t, []string{"select_camera", "select_speaker"}, devices.actions)
}

func TestStartCall_ReturnsNewCallID(t *testing.T) {
	svc, calls, _ := controlsFixture(t, domain.LocalParticipant{UserID: "u1"})

	callID, err := svc.StartCall(context.Background(), []domain.UserID{"bob"})
	require.NoError(t, err)
	assert.Equal(t, domain.CallID("call-new"), callID)
	assert.Equal(t, []string{"start_call"}, calls.actions)
}

func TestStartCall_WrapsError(t *testing.T) {
	svc, calls, _ := controlsFixture(t, domain.LocalParticipant{UserID: "u1"})
	calls.err = domain.ErrCallNotFound

	_, err := svc.StartCall(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrCallNotFound)
}

func TestAskDevicePermission_Delegates(t *testing.T) {
	svc, _, devices := controlsFixture(t, domain.LocalParticipant{UserID: "u1"})

	require.NoError(t, svc.AskDevicePermission(context.Background(), true, true))
	assert.Equal(t, []string{"ask_permission"}, devices.actions)
}

func TestNewControlsService_NilCollaboratorPanics(t *testing.T) {
	client := statefulclient.New("u1", "Alice")

	assert.PanicsWithValue(t, domain.ErrIncompatibleProvider, func() {
		NewControlsService(client, nil, &fakeDeviceController{}, nil)
	})
	assert.PanicsWithValue(t, domain.ErrIncompatibleProvider, func() {
		NewControlsService(nil, &fakeCallController{}, &fakeDeviceController{}, nil)
	})
}
