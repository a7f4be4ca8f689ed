package lifecycle

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"callview/internal/core/domain"
	"callview/internal/core/ports"
	"callview/pkg/tracing"
)

// State of a maintainer between render passes.
type State string

const (
	StateIdle     State = "idle"
	StateCreating State = "creating"
	StateActive   State = "active"
)

// Observer receives lifecycle outcomes. Implemented by the monitoring
// collector; a nil observer is valid.
type Observer interface {
	RecordViewCreated(kind domain.StreamKind)
	RecordViewCreateFailed(kind domain.StreamKind)
	RecordViewDisposed(kind domain.StreamKind)
	RecordViewRescaled(kind domain.StreamKind)
	RecordViewCancelled(kind domain.StreamKind)
}

// streamProps are the inputs a view was (or is being) created with.
type streamProps struct {
	isMirrored  bool
	scalingMode domain.ScalingMode
}

// Maintainer owns the rendered view of exactly one (participant,
// stream-kind) pair. Reconcile is called on every render pass with the
// stream descriptor from the current snapshot and decides whether to
// create, rescale in place, or dispose. At most one create call is in
// flight at a time; older in-flight work is invalidated through a
// generation token before any newer work is dispatched.
type Maintainer struct {
	factory ports.StreamViewFactory
	callID  domain.CallID
	userID  domain.UserID
	kind    domain.StreamKind

	// Disposal of screen-share views is owned by the sharing code path,
	// not by the tile; the screen-share wiring sets skipDispose.
	skipDispose bool

	logger   *zap.Logger
	observer Observer

	mu        sync.Mutex
	state     State
	handle    ports.ViewHandle
	stream    *domain.VideoStream
	props     streamProps
	failed    bool
	tokens    TokenSource
	unmounted bool
	inflight  sync.WaitGroup
}

type Option func(*Maintainer)

// WithSkipDispose suppresses dispose calls. Used only for screen-share
// tiles, whose view teardown happens in the sharing control flow.
func WithSkipDispose() Option {
	return func(m *Maintainer) { m.skipDispose = true }
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Maintainer) { m.logger = logger }
}

func WithObserver(observer Observer) Option {
	return func(m *Maintainer) { m.observer = observer }
}

func NewMaintainer(factory ports.StreamViewFactory, callID domain.CallID, userID domain.UserID, kind domain.StreamKind, opts ...Option) *Maintainer {
	m := &Maintainer{
		factory: factory,
		callID:  callID,
		userID:  userID,
		kind:    kind,
		logger:  zap.NewNop(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Maintainer) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconcile drives the state machine for one render pass.
func (m *Maintainer) Reconcile(ctx context.Context, stream *domain.VideoStream) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unmounted {
		return
	}

	if stream == nil || !stream.IsAvailable {
		m.teardownLocked(ctx, stream)
		return
	}

	desired := streamProps{isMirrored: stream.IsMirrored, scalingMode: stream.ScalingMode}

	switch m.state {
	case StateIdle:
		// After a failed create, retry only on a qualifying prop change;
		// render passes alone never re-attempt.
		if stream.RenderElement == nil && !(m.failed && desired == m.props) {
			m.startCreateLocked(ctx, stream, desired)
		}

	case StateCreating:
		// A relevant input changed before the in-flight create resolved;
		// supersede it. Issuing a new token cancels the old task.
		if desired != m.props {
			m.startCreateLocked(ctx, stream, desired)
		}

	case StateActive:
		switch {
		case desired.isMirrored != m.props.isMirrored:
			// Mirroring cannot be updated in place.
			m.teardownLocked(ctx, stream)
		case desired.scalingMode != m.props.scalingMode:
			if m.handle != nil {
				m.startRescaleLocked(ctx, desired.scalingMode)
			} else {
				// No live handle to update; fall back to recreation.
				m.teardownLocked(ctx, stream)
			}
		}
	}
}

// Unmount cancels outstanding work and releases the view. Safe to call
// more than once.
func (m *Maintainer) Unmount(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unmounted {
		return
	}
	m.teardownLocked(ctx, nil)
	m.unmounted = true
}

// Flush blocks until all dispatched async work has finished. Intended
// for tests and for drain-on-shutdown.
func (m *Maintainer) Flush() {
	m.inflight.Wait()
}

func (m *Maintainer) startCreateLocked(ctx context.Context, stream *domain.VideoStream, desired streamProps) {
	token := m.tokens.Next()
	m.state = StateCreating
	m.stream = stream
	m.props = desired
	m.failed = false

	opts := ports.ViewOptions{IsMirrored: desired.isMirrored, ScalingMode: desired.scalingMode}
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		spanCtx, span := tracing.TraceViewOperation(ctx, "create", string(m.userID), string(m.kind))
		defer span.End()

		handle, err := m.factory.CreateView(spanCtx, m.callID, m.userID, stream, opts)

		m.mu.Lock()
		defer m.mu.Unlock()
		if token.Cancelled() {
			// Superseded or unmounted; the result is not ours to commit.
			m.recordCancelled()
			return
		}
		if err != nil {
			tracing.RecordError(spanCtx, err)
			m.logger.Warn("view create failed",
				zap.String("user_id", string(m.userID)),
				zap.String("kind", string(m.kind)),
				zap.Error(err),
			)
			m.recordCreateFailed()
			m.state = StateIdle
			m.failed = true
			return
		}
		if handle == nil {
			// Stream disappeared before creation completed.
			m.recordCreateFailed()
			m.state = StateIdle
			m.failed = true
			return
		}
		m.handle = handle
		m.state = StateActive
		m.recordCreated()
	}()
}

func (m *Maintainer) startRescaleLocked(ctx context.Context, mode domain.ScalingMode) {
	token := m.tokens.Next()
	handle := m.handle
	// Committed optimistically; a failed update is logged and retried
	// only on the next qualifying prop change.
	m.props.scalingMode = mode

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		spanCtx, span := tracing.TraceViewOperation(ctx, "rescale", string(m.userID), string(m.kind))
		defer span.End()

		err := handle.UpdateScalingMode(spanCtx, mode)

		m.mu.Lock()
		defer m.mu.Unlock()
		if token.Cancelled() {
			m.recordCancelled()
			return
		}
		if err != nil {
			tracing.RecordError(spanCtx, err)
			m.logger.Warn("view rescale failed",
				zap.String("user_id", string(m.userID)),
				zap.String("scaling_mode", string(mode)),
				zap.Error(err),
			)
			return
		}
		m.recordRescaled()
	}()
}

// teardownLocked cancels in-flight work and disposes the held view. It
// is the shared cleanup for unavailability, mirror changes, render-pass
// cleanup and unmount, and is a no-op when there is nothing to release.
func (m *Maintainer) teardownLocked(ctx context.Context, stream *domain.VideoStream) {
	m.tokens.Cancel()

	hadView := m.handle != nil
	m.handle = nil
	m.state = StateIdle
	m.failed = false

	// Unmount has no stream descriptor at hand; fall back to the one the
	// view was created from.
	if stream == nil {
		stream = m.stream
	}
	m.stream = nil

	if !hadView || m.skipDispose {
		return
	}

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		spanCtx, span := tracing.TraceViewOperation(ctx, "dispose", string(m.userID), string(m.kind))
		defer span.End()

		if err := m.factory.DisposeView(spanCtx, m.callID, m.userID, stream); err != nil {
			tracing.RecordError(spanCtx, err)
			m.logger.Warn("view dispose failed",
				zap.String("user_id", string(m.userID)),
				zap.String("kind", string(m.kind)),
				zap.Error(err),
			)
			return
		}
		m.recordDisposed()
	}()
}

func (m *Maintainer) recordCreated() {
	if m.observer != nil {
		m.observer.RecordViewCreated(m.kind)
	}
}

func (m *Maintainer) recordCreateFailed() {
	if m.observer != nil {
		m.observer.RecordViewCreateFailed(m.kind)
	}
}

func (m *Maintainer) recordDisposed() {
	if m.observer != nil {
		m.observer.RecordViewDisposed(m.kind)
	}
}

func (m *Maintainer) recordRescaled() {
	if m.observer != nil {
		m.observer.RecordViewRescaled(m.kind)
	}
}

func (m *Maintainer) recordCancelled() {
	if m.observer != nil {
		m.observer.RecordViewCancelled(m.kind)
	}
}
