package domain

// ScalingMode controls how a rendered stream fills its tile.
type ScalingMode string

const (
	ScalingCrop    ScalingMode = "crop"
	ScalingFit     ScalingMode = "fit"
	ScalingStretch ScalingMode = "stretch"
)

type StreamKind string

const (
	StreamKindVideo       StreamKind = "video"
	StreamKindScreenShare StreamKind = "screen_share"
)

// VideoStream describes one media stream of a participant. IsAvailable
// tracks whether the far end is sending; RenderElement is non-nil only
// after a view has been created for the stream.
type VideoStream struct {
	ID            StreamID
	Kind          StreamKind
	IsAvailable   bool
	IsReceiving   bool
	IsMirrored    bool
	ScalingMode   ScalingMode
	RenderElement *RenderElement
}

// RenderElement is the snapshot-side record of an attached view. It is
// written by the stateful client after a successful create and cleared
// on dispose.
type RenderElement struct {
	StreamID StreamID
	SinkID   string
	Width    int
	Height   int
}
