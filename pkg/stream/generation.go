package stream

// Token identifies the session generation a fetch was issued under.
type Token uint64

// Guard invalidates in-flight fetches across session resets. A response whose
// captured token is no longer current is discarded without touching state.
type Guard struct {
	current Token
}

// Capture returns the current generation.
func (g *Guard) Capture() Token { return g.current }

// IsCurrent reports whether tok still names the active generation.
func (g *Guard) IsCurrent(tok Token) bool { return tok == g.current }

// Advance starts a new generation and returns it.
func (g *Guard) Advance() Token {
	g.current++

	return g.current
}
