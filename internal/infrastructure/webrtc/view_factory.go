package webrtc

import (
	"context"
	"fmt"
	"io"
	"sync"

	"callview/internal/core/domain"
	"callview/internal/core/ports"
	"callview/pkg/retry"
	"callview/pkg/tracing"
	"callview/pkg/utils"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// RenderSink consumes decoded-side RTP for one rendered view. The UI
// edge supplies the concrete sink (canvas, texture, file).
type RenderSink interface {
	WriteRTP(packet *rtp.Packet) error
	SetScalingMode(mode domain.ScalingMode) error
	Close() error
}

// SinkProvider builds the sink a new view renders into.
type SinkProvider func(callID domain.CallID, userID domain.UserID, stream *domain.VideoStream, opts ports.ViewOptions) (RenderSink, error)

type trackKey struct {
	callID domain.CallID
	userID domain.UserID
	kind   domain.StreamKind
}

// trackBinding is a subscribed remote track plus the peer connection it
// arrived on, kept so the factory can request keyframes.
type trackBinding struct {
	track *webrtc.TrackRemote
	pc    *webrtc.PeerConnection
}

type viewPump struct {
	sink RenderSink
	stop chan struct{}
	done chan struct{}
}

// ViewFactory implements ports.StreamViewFactory over pion remote
// tracks. Creating a view starts an RTP pump from the remote track into
// a render sink and requests a keyframe; disposing stops the pump.
type ViewFactory struct {
	sinkFor  SinkProvider
	retryCfg retry.Config
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	tracks map[trackKey]*trackBinding
	pumps  map[trackKey]*viewPump
}

type FactoryOption func(*ViewFactory)

func WithFactoryLogger(logger *zap.Logger) FactoryOption {
	return func(f *ViewFactory) { f.logger = logger.Sugar() }
}

func WithAttachRetry(cfg retry.Config) FactoryOption {
	return func(f *ViewFactory) { f.retryCfg = cfg }
}

func NewViewFactory(sinkFor SinkProvider, opts ...FactoryOption) *ViewFactory {
	f := &ViewFactory{
		sinkFor:  sinkFor,
		retryCfg: retry.DefaultConfig(),
		logger:   zap.NewNop().Sugar(),
		tracks:   make(map[trackKey]*trackBinding),
		pumps:    make(map[trackKey]*viewPump),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RegisterTrack is wired into the peer connection's OnTrack callback.
func (f *ViewFactory) RegisterTrack(callID domain.CallID, userID domain.UserID, kind domain.StreamKind, track *webrtc.TrackRemote, pc *webrtc.PeerConnection) {
	key := trackKey{callID: callID, userID: userID, kind: kind}

	f.mu.Lock()
	f.tracks[key] = &trackBinding{track: track, pc: pc}
	f.mu.Unlock()

	f.logger.Infow("remote track registered",
		"call_id", callID,
		"user_id", userID,
		"kind", kind,
	)
}

// UnregisterTrack drops the binding when the track ends.
func (f *ViewFactory) UnregisterTrack(callID domain.CallID, userID domain.UserID, kind domain.StreamKind) {
	key := trackKey{callID: callID, userID: userID, kind: kind}

	f.mu.Lock()
	delete(f.tracks, key)
	f.mu.Unlock()
}

// CreateView attaches a render sink to the registered remote track.
// Returns (nil, nil) when no track is registered anymore for the stream.
func (f *ViewFactory) CreateView(ctx context.Context, callID domain.CallID, userID domain.UserID, stream *domain.VideoStream, opts ports.ViewOptions) (ports.ViewHandle, error) {
	ctx, span := tracing.TraceViewOperation(ctx, "create", string(userID), string(stream.Kind))
	defer span.End()

	key := trackKey{callID: callID, userID: userID, kind: stream.Kind}

	f.mu.Lock()
	binding, ok := f.tracks[key]
	if !ok {
		f.mu.Unlock()
		return nil, nil
	}
	if _, busy := f.pumps[key]; busy {
		f.mu.Unlock()
		return nil, fmt.Errorf("view already attached for user %s kind %s", userID, stream.Kind)
	}
	f.mu.Unlock()

	sink, err := retry.DoWithResult(ctx, f.retryCfg, func() (RenderSink, error) {
		return f.sinkFor(callID, userID, stream, opts)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("attach sink for user %s: %w", userID, err)
	}

	pump := &viewPump{
		sink: sink,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	f.mu.Lock()
	// Track may have been unregistered while the sink attached.
	if _, ok := f.tracks[key]; !ok {
		f.mu.Unlock()
		sink.Close()
		return nil, nil
	}
	f.pumps[key] = pump
	f.mu.Unlock()

	f.requestKeyframe(binding)
	go f.runPump(key, binding.track, pump)

	element := &domain.RenderElement{
		StreamID: stream.ID,
		SinkID:   utils.NewSinkID(),
	}
	return &viewHandle{factory: f, key: key, sink: sink, binding: binding, element: element}, nil
}

// DisposeView stops the pump and closes the sink. No-op when the view
// was never created or is already gone.
func (f *ViewFactory) DisposeView(ctx context.Context, callID domain.CallID, userID domain.UserID, stream *domain.VideoStream) error {
	_, span := tracing.TraceViewOperation(ctx, "dispose", string(userID), string(stream.Kind))
	defer span.End()

	key := trackKey{callID: callID, userID: userID, kind: stream.Kind}

	f.mu.Lock()
	pump, ok := f.pumps[key]
	if ok {
		delete(f.pumps, key)
	}
	f.mu.Unlock()

	if !ok {
		return nil
	}

	close(pump.stop)
	<-pump.done
	return pump.sink.Close()
}

func (f *ViewFactory) runPump(key trackKey, track *webrtc.TrackRemote, pump *viewPump) {
	defer close(pump.done)

	buf := make([]byte, 1500) // MTU size
	packet := &rtp.Packet{}

	for {
		select {
		case <-pump.stop:
			return
		default:
		}

		n, _, err := track.Read(buf)
		if err != nil {
			if err != io.EOF {
				f.logger.Warnw("track read failed",
					"user_id", key.userID,
					"kind", key.kind,
					"error", err,
				)
			}
			return
		}

		if err := packet.Unmarshal(buf[:n]); err != nil {
			f.logger.Warnw("rtp unmarshal failed", "user_id", key.userID, "error", err)
			continue
		}

		if err := pump.sink.WriteRTP(packet); err != nil {
			f.logger.Warnw("sink write failed",
				"user_id", key.userID,
				"kind", key.kind,
				"error", err,
			)
			return
		}
	}
}

// requestKeyframe asks the sender for a fresh picture so the new view
// does not wait for the next spontaneous keyframe.
func (f *ViewFactory) requestKeyframe(binding *trackBinding) {
	if binding.pc == nil {
		return
	}
	err := binding.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(binding.track.SSRC())},
	})
	if err != nil {
		f.logger.Debugw("pli send failed", "error", err)
	}
}

type viewHandle struct {
	factory *ViewFactory
	key     trackKey
	sink    RenderSink
	binding *trackBinding
	element *domain.RenderElement
}

// Element is the render-element descriptor the caller writes back into
// the snapshot after a successful create.
func (h *viewHandle) Element() *domain.RenderElement {
	return h.element
}

func (h *viewHandle) UpdateScalingMode(ctx context.Context, mode domain.ScalingMode) error {
	_, span := tracing.TraceViewOperation(ctx, "rescale", string(h.key.userID), string(h.key.kind))
	defer span.End()

	if err := h.sink.SetScalingMode(mode); err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("rescale view for user %s: %w", h.key.userID, err)
	}
	return nil
}
