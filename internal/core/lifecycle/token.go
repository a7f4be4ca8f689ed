package lifecycle

import "sync/atomic"

// TokenSource hands out generation-counter cancellation tokens. Issuing
// a new token implicitly invalidates every token issued before it, so a
// stale async result can never commit over a newer one.
type TokenSource struct {
	gen atomic.Uint64
}

// Next invalidates all outstanding tokens and returns a fresh one.
func (s *TokenSource) Next() Token {
	return Token{src: s, gen: s.gen.Add(1)}
}

// Cancel invalidates all outstanding tokens without issuing a new one.
func (s *TokenSource) Cancel() {
	s.gen.Add(1)
}

// Token is checked by async tasks immediately before any state-committing
// side effect.
type Token struct {
	src *TokenSource
	gen uint64
}

// Cancelled reports whether a newer token has been issued since this one.
func (t Token) Cancelled() bool {
	if t.src == nil {
		return true
	}
	return t.src.gen.Load() != t.gen
}
