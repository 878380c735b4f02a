package room

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/dicerush/internal/match"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendQueueSize = 64
)

// WSPeer is a match.Peer that talks to a Relay over a websocket.
// A dropped connection is reported to the sink as the opponent leaving.
type WSPeer struct {
	logger zerolog.Logger
	conn   *websocket.Conn

	send    chan Message
	paired  chan Pairing
	quit    chan struct{}
	group   *errgroup.Group
	cancel  context.CancelFunc
	closing atomic.Bool

	closeOnce sync.Once

	mu       sync.Mutex
	sink     match.OpponentSink
	pending  []Message
	leftSeen bool
}

// Dial connects to the relay at rawURL (ws:// or wss://) as name.
func Dial(ctx context.Context, logger zerolog.Logger, rawURL, name string) (*WSPeer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("name", name)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	return newWSPeer(logger, conn), nil
}

func newWSPeer(logger zerolog.Logger, conn *websocket.Conn) *WSPeer {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &WSPeer{
		logger: logger.With().Str("component", "wspeer").Logger(),
		conn:   conn,
		send:   make(chan Message, sendQueueSize),
		paired: make(chan Pairing, 1),
		quit:   make(chan struct{}),
		group:  group,
		cancel: cancel,
	}
	group.Go(func() error { return p.readPump(ctx) })
	group.Go(func() error { return p.writePump(ctx) })
	return p
}

// WaitPaired blocks until the relay pairs this client with an opponent.
func (p *WSPeer) WaitPaired(ctx context.Context) (Pairing, error) {
	select {
	case pairing, ok := <-p.paired:
		if !ok {
			return Pairing{}, ErrClosed
		}
		return pairing, nil
	case <-ctx.Done():
		return Pairing{}, ctx.Err()
	}
}

// Attach routes opponent events to sink, first replaying any that arrived
// before it was attached.
func (p *WSPeer) Attach(sink match.OpponentSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
	for _, msg := range p.pending {
		p.dispatch(msg)
	}
	p.pending = nil
}

// EmitLocked implements match.Peer.
func (p *WSPeer) EmitLocked(round int, ack []byte) error {
	return p.enqueue(lockedMessage(round, ack))
}

// EmitLeft implements match.Peer.
func (p *WSPeer) EmitLeft() error {
	return p.enqueue(Message{Type: MessageLeft})
}

func (p *WSPeer) enqueue(msg Message) error {
	if p.closing.Load() {
		return ErrClosed
	}
	select {
	case p.send <- msg:
		return nil
	default:
		return ErrBackpressure
	}
}

func (p *WSPeer) readPump(ctx context.Context) error {
	defer close(p.paired)
	defer p.opponentGone()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if p.closing.Load() || ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Warn().Err(err).Msg("Relay connection lost")
			}
			return fmt.Errorf("read: %w", err)
		}
		p.handle(msg)
	}
}

func (p *WSPeer) handle(msg Message) {
	switch msg.Type {
	case MessagePaired:
		p.logger.Info().
			Str("match_id", msg.MatchID).
			Str("you", msg.You).
			Str("opponent", msg.Opponent).
			Msg("Paired")
		select {
		case p.paired <- Pairing{MatchID: msg.MatchID, Seed: msg.Seed, LocalID: msg.You, OpponentID: msg.Opponent}:
		default:
			p.logger.Warn().Msg("Ignoring repeated pairing")
		}
	case MessageLocked, MessageLeft:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.sink == nil {
			p.pending = append(p.pending, msg)
			return
		}
		p.dispatch(msg)
	default:
		p.logger.Debug().Str("type", string(msg.Type)).Msg("Ignoring unknown message")
	}
}

// dispatch must be called with mu held.
func (p *WSPeer) dispatch(msg Message) {
	switch msg.Type {
	case MessageLocked:
		p.sink.OnOpponentLocked(msg.Round, msg.Ack)
	case MessageLeft:
		if p.leftSeen {
			return
		}
		p.leftSeen = true
		p.sink.OnOpponentLeft()
	}
}

// opponentGone reports a lost connection as the opponent leaving.
func (p *WSPeer) opponentGone() {
	if p.closing.Load() {
		return
	}
	p.handle(Message{Type: MessageLeft})
}

func (p *WSPeer) writePump(ctx context.Context) (err error) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer func() {
		if err != nil && !p.closing.Load() {
			p.logger.Warn().Err(err).Msg("Relay write failed")
			// stop the read pump so the loss is reported now, not at pongWait
			_ = p.conn.Close()
		}
	}()

	for {
		select {
		case msg := <-p.send:
			if err := p.write(msg); err != nil {
				return err
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-p.quit:
			p.drain()
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = p.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// unblocks the read pump
			return p.conn.Close()
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *WSPeer) write(msg Message) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}

// drain flushes queued messages so a final "left" reaches the relay.
func (p *WSPeer) drain() {
	for {
		select {
		case msg := <-p.send:
			if err := p.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Close flushes pending messages, closes the connection and waits for the
// pumps to exit.
func (p *WSPeer) Close() error {
	p.closeOnce.Do(func() {
		p.closing.Store(true)
		close(p.quit)
		if err := p.group.Wait(); err != nil {
			p.logger.Debug().Err(err).Msg("Relay connection ended with error")
		}
		p.cancel()
		_ = p.conn.Close()
	})
	return nil
}
