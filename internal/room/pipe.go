package room

import (
	"errors"
	"sync"

	"github.com/lox/dicerush/internal/match"
	"github.com/rs/zerolog"
)

// ErrClosed is returned when emitting on a closed peer.
var ErrClosed = errors.New("room: peer closed")

// ErrBackpressure is returned when a peer's outbound queue is full.
var ErrBackpressure = errors.New("room: outbound queue full")

const pipeQueueSize = 256

// PipeEnd is one side of an in-process connection between two runners.
// Events are delivered to the other end's sink in order, on a dedicated
// goroutine, so emitting never blocks the caller.
type PipeEnd struct {
	logger zerolog.Logger
	other  *PipeEnd

	inbox     chan Message
	closed    chan struct{}
	closeOnce sync.Once
	startOnce sync.Once
}

// NewPipe returns two connected ends.
func NewPipe(logger zerolog.Logger) (*PipeEnd, *PipeEnd) {
	a := newPipeEnd(logger, "a")
	b := newPipeEnd(logger, "b")
	a.other, b.other = b, a
	return a, b
}

func newPipeEnd(logger zerolog.Logger, name string) *PipeEnd {
	return &PipeEnd{
		logger: logger.With().Str("component", "pipe").Str("end", name).Logger(),
		inbox:  make(chan Message, pipeQueueSize),
		closed: make(chan struct{}),
	}
}

// Attach starts delivering events from the other end to sink. Events sent
// before Attach are queued.
func (p *PipeEnd) Attach(sink match.OpponentSink) {
	p.startOnce.Do(func() {
		go p.deliver(sink)
	})
}

func (p *PipeEnd) deliver(sink match.OpponentSink) {
	for {
		select {
		case msg := <-p.inbox:
			switch msg.Type {
			case MessageLocked:
				sink.OnOpponentLocked(msg.Round, msg.Ack)
			case MessageLeft:
				sink.OnOpponentLeft()
			}
		case <-p.closed:
			return
		}
	}
}

// EmitLocked implements match.Peer.
func (p *PipeEnd) EmitLocked(round int, ack []byte) error {
	return p.other.push(lockedMessage(round, append([]byte(nil), ack...)))
}

// EmitLeft implements match.Peer.
func (p *PipeEnd) EmitLeft() error {
	return p.other.push(Message{Type: MessageLeft})
}

func (p *PipeEnd) push(msg Message) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		p.logger.Warn().Str("type", string(msg.Type)).Msg("Pipe queue full, dropping message")
		return ErrBackpressure
	}
}

// Close stops delivery on this end.
func (p *PipeEnd) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	return nil
}
