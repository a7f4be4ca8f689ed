package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"callview/internal/core/domain"
	"callview/internal/core/ports"
	"callview/internal/core/selectors"
)

// CallHandlers binds UI intents for one call to the SDK controllers.
// The same handler set is returned for the same call so consumers can
// compare handlers by identity across render passes.
type CallHandlers struct {
	ToggleMicrophone  func(ctx context.Context) error
	ToggleCamera      func(ctx context.Context) error
	ToggleScreenShare func(ctx context.Context) error
	SelectCamera      func(ctx context.Context, device domain.Device) error
	SelectMicrophone  func(ctx context.Context, device domain.Device) error
	SelectSpeaker     func(ctx context.Context, device domain.Device) error
	HangUp            func(ctx context.Context) error
}

type ControlsService struct {
	client  ports.StatefulClient
	calls   ports.CallController
	devices ports.DeviceController
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[domain.CallID]*CallHandlers
}

// NewControlsService panics on nil collaborators: wiring controllers
// from a different client variant past the type system is a programmer
// error and fails fast.
func NewControlsService(client ports.StatefulClient, calls ports.CallController, devices ports.DeviceController, logger *zap.Logger) *ControlsService {
	if client == nil || calls == nil || devices == nil {
		panic(domain.ErrIncompatibleProvider)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ControlsService{
		client:  client,
		calls:   calls,
		devices: devices,
		logger:  logger,
		cache:   make(map[domain.CallID]*CallHandlers),
	}
}

// HandlersFor returns the memoized handler set for a call.
func (s *ControlsService) HandlersFor(callID domain.CallID) *CallHandlers {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.cache[callID]; ok {
		return h
	}
	h := s.buildHandlers(callID)
	s.cache[callID] = h
	return h
}

// Release drops the cached handler set of an ended call.
func (s *ControlsService) Release(callID domain.CallID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, callID)
}

func (s *ControlsService) buildHandlers(callID domain.CallID) *CallHandlers {
	return &CallHandlers{
		ToggleMicrophone: func(ctx context.Context) error {
			call := selectors.CallFor(s.client.GetState(), callID)
			if call == nil {
				return domain.ErrCallNotFound
			}
			if call.LocalParticipant.IsMuted {
				return s.run(ctx, "unmute", func() error { return s.calls.Unmute(ctx, callID) })
			}
			return s.run(ctx, "mute", func() error { return s.calls.Mute(ctx, callID) })
		},
		ToggleCamera: func(ctx context.Context) error {
			call := selectors.CallFor(s.client.GetState(), callID)
			if call == nil {
				return domain.ErrCallNotFound
			}
			local := call.LocalParticipant
			if local.VideoStream != nil && local.VideoStream.IsAvailable {
				return s.run(ctx, "stop_video", func() error { return s.calls.StopVideo(ctx, callID) })
			}
			return s.run(ctx, "start_video", func() error { return s.calls.StartVideo(ctx, callID) })
		},
		ToggleScreenShare: func(ctx context.Context) error {
			call := selectors.CallFor(s.client.GetState(), callID)
			if call == nil {
				return domain.ErrCallNotFound
			}
			if call.LocalParticipant.IsScreenSharingOn {
				return s.run(ctx, "stop_screen_share", func() error { return s.calls.StopScreenShare(ctx, callID) })
			}
			return s.run(ctx, "start_screen_share", func() error { return s.calls.StartScreenShare(ctx, callID) })
		},
		SelectCamera: func(ctx context.Context, device domain.Device) error {
			return s.run(ctx, "select_camera", func() error { return s.devices.SelectCamera(ctx, device) })
		},
		SelectMicrophone: func(ctx context.Context, device domain.Device) error {
			return s.run(ctx, "select_microphone", func() error { return s.devices.SelectMicrophone(ctx, device) })
		},
		SelectSpeaker: func(ctx context.Context, device domain.Device) error {
			return s.run(ctx, "select_speaker", func() error { return s.devices.SelectSpeaker(ctx, device) })
		},
		HangUp: func(ctx context.Context) error {
			return s.run(ctx, "hang_up", func() error { return s.calls.HangUp(ctx, callID) })
		},
	}
}

// StartCall is not part of the per-call handler set: it creates the call
// the handlers are later bound to.
func (s *ControlsService) StartCall(ctx context.Context, participants []domain.UserID) (domain.CallID, error) {
	callID, err := s.calls.StartCall(ctx, participants)
	if err != nil {
		s.logger.Warn("call action failed", zap.String("action", "start_call"), zap.Error(err))
		return "", fmt.Errorf("start_call: %w", err)
	}
	return callID, nil
}

// AskDevicePermission requests media permissions before any call exists.
func (s *ControlsService) AskDevicePermission(ctx context.Context, audio, video bool) error {
	return s.run(ctx, "ask_device_permission", func() error { return s.devices.AskDevicePermission(ctx, audio, video) })
}

func (s *ControlsService) run(ctx context.Context, action string, fn func() error) error {
	if err := fn(); err != nil {
		s.logger.Warn("call action failed", zap.String("action", action), zap.Error(err))
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}
