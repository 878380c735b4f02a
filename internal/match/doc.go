// Package match runs a single game.Match on its own goroutine and connects
// it to the opponent sync channel.
//
// A Runner serializes everything that can change a match: local commands,
// opponent events and the one-second ticker. Presentation reads snapshots
// and sends commands; the room layer delivers opponent events through the
// OpponentSink methods and receives local locks through a Peer.
package match
