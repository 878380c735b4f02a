package match

// Peer carries local notifications to the opponent. Implementations must
// not block: the runner calls them from its event loop.
type Peer interface {
	EmitLocked(round int, ack []byte) error
	EmitLeft() error
}

// OpponentSink receives opponent notifications from a Peer implementation.
type OpponentSink interface {
	OnOpponentLocked(round int, ack []byte)
	OnOpponentLeft()
}

// NopPeer discards all notifications. Useful for solo matches and tests.
type NopPeer struct{}

// EmitLocked implements Peer.
func (NopPeer) EmitLocked(int, []byte) error { return nil }

// EmitLeft implements Peer.
func (NopPeer) EmitLeft() error { return nil }
