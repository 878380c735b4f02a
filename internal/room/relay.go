package room

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lox/dicerush/internal/dice"
	"github.com/lox/dicerush/internal/matchid"
	"github.com/rs/zerolog"
)

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithSeedSource replaces the crypto seed source. Used by tests.
func WithSeedSource(fn func() (int64, error)) RelayOption {
	return func(r *Relay) { r.newSeed = fn }
}

// WithIDSource replaces the match ID generator.
func WithIDSource(fn func() (string, error)) RelayOption {
	return func(r *Relay) { r.newID = fn }
}

// Relay pairs websocket clients two at a time and forwards lock and leave
// messages between the members of each pair. It never sees bet content,
// only sealed acks.
type Relay struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	router   *gin.Engine
	newSeed  func() (int64, error)
	newID    func() (string, error)

	mu      sync.Mutex
	waiting *relayClient
	clients map[*relayClient]struct{}
	matches int
}

type relayClient struct {
	name     string
	conn     *websocket.Conn
	send     chan Message
	done     chan struct{}
	once     sync.Once
	opponent *relayClient
	matchID  string
}

// NewRelay creates a relay and its gin router.
func NewRelay(logger zerolog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		logger: logger.With().Str("component", "relay").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		newSeed: dice.NewSeed,
		newID:   matchid.New,
		clients: make(map[*relayClient]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", r.handleHealth)
	router.GET("/ws", r.handleWebSocket)
	r.router = router
	return r
}

// Handler returns the relay's HTTP handler.
func (r *Relay) Handler() http.Handler {
	return r.router
}

// Serve listens on addr until ctx is cancelled.
func (r *Relay) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info().Str("addr", addr).Msg("Relay listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.logger.Info().Msg("Shutting down relay")
		r.closeAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("relay shutdown: %w", err)
		}
		return nil
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	Waiting bool   `json:"waiting"`
	Matches int    `json:"matches"`
}

func (r *Relay) handleHealth(c *gin.Context) {
	r.mu.Lock()
	resp := healthResponse{
		Status:  "ok",
		Clients: len(r.clients),
		Waiting: r.waiting != nil,
		Matches: r.matches,
	}
	r.mu.Unlock()
	c.JSON(http.StatusOK, resp)
}

func (r *Relay) handleWebSocket(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to upgrade to websocket")
		return
	}

	cl := &relayClient{
		name: name,
		conn: conn,
		send: make(chan Message, sendQueueSize),
		done: make(chan struct{}),
	}
	go r.writePump(cl)

	if err := r.join(cl); err != nil {
		r.logger.Error().Err(err).Msg("Failed to pair client")
		r.drop(cl)
		return
	}
	r.readPump(cl)
}

// join queues cl or pairs it with the waiting client.
func (r *Relay) join(cl *relayClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[cl] = struct{}{}
	if r.waiting == nil {
		r.waiting = cl
		r.logger.Debug().Str("name", cl.name).Msg("Client waiting for opponent")
		return nil
	}

	first := r.waiting
	r.waiting = nil

	id, err := r.newID()
	if err != nil {
		r.waiting = first
		return err
	}
	seed, err := r.newSeed()
	if err != nil {
		r.waiting = first
		return err
	}
	if cl.name == first.name {
		cl.name += "-2"
	}

	first.opponent, cl.opponent = cl, first
	first.matchID, cl.matchID = id, id
	r.matches++

	r.logger.Info().
		Str("match_id", id).
		Str("first", first.name).
		Str("second", cl.name).
		Msg("Paired clients")

	first.push(Message{Type: MessagePaired, MatchID: id, Seed: seed, You: first.name, Opponent: cl.name})
	cl.push(Message{Type: MessagePaired, MatchID: id, Seed: seed, You: cl.name, Opponent: first.name})
	return nil
}

func (r *Relay) readPump(cl *relayClient) {
	defer r.drop(cl)

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				r.logger.Debug().Err(err).Str("name", cl.name).Msg("Client connection lost")
			}
			return
		}

		switch msg.Type {
		case MessageLocked:
			r.forward(cl, lockedMessage(msg.Round, msg.Ack))
		case MessageLeft:
			r.mu.Lock()
			id := cl.matchID
			r.mu.Unlock()
			r.logger.Info().Str("name", cl.name).Str("match_id", id).Msg("Client left")
			return
		default:
			r.logger.Debug().Str("type", string(msg.Type)).Msg("Ignoring unknown message")
		}
	}
}

func (r *Relay) forward(from *relayClient, msg Message) {
	r.mu.Lock()
	to := from.opponent
	r.mu.Unlock()

	if to == nil {
		r.logger.Debug().Str("name", from.name).Msg("Dropping lock before pairing")
		return
	}
	to.push(msg)
}

// drop removes cl and tells its opponent, if any, that it left.
func (r *Relay) drop(cl *relayClient) {
	r.mu.Lock()
	delete(r.clients, cl)
	if r.waiting == cl {
		r.waiting = nil
	}
	opp := cl.opponent
	if opp != nil {
		opp.opponent = nil
		cl.opponent = nil
	}
	r.mu.Unlock()

	if opp != nil {
		opp.push(Message{Type: MessageLeft})
	}
	cl.close()
}

func (r *Relay) closeAll() {
	r.mu.Lock()
	clients := make([]*relayClient, 0, len(r.clients))
	for cl := range r.clients {
		clients = append(clients, cl)
	}
	r.mu.Unlock()

	for _, cl := range clients {
		cl.close()
	}
}

func (r *Relay) writePump(cl *relayClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(msg); err != nil {
				r.logger.Debug().Err(err).Str("name", cl.name).Msg("Failed to write message")
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cl.done:
			flushQueued(cl)
			_ = cl.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flushQueued writes whatever is still queued for cl, so a final "left"
// reaches the client before the close frame.
func flushQueued(cl *relayClient) {
	for {
		select {
		case msg := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *relayClient) push(msg Message) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		c.close()
	}
}

func (c *relayClient) close() {
	c.once.Do(func() {
		close(c.done)
	})
}
