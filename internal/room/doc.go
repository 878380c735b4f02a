// Package room connects two match runners. A Pipe joins two runners in the
// same process; a WSPeer joins a runner to a Relay over a websocket.
package room
