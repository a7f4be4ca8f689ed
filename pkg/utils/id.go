package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// NewSinkID returns the identifier for a render sink attachment.
func NewSinkID() string {
	return fmt.Sprintf("sink_%s", uuid.NewString())
}

// NewFeedSessionID returns the identifier a state feed connection
// presents when dialing.
func NewFeedSessionID() string {
	return fmt.Sprintf("feed_%s", uuid.NewString())
}
