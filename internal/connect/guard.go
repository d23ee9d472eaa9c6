package connect

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Ready states reported to the health endpoint.
const (
	StateDisconnected  = 0
	StateConnected     = 1
	StateConnecting    = 2
	StateDisconnecting = 3
)

// ErrUnavailable is returned once the reconnect policy is exhausted.
var ErrUnavailable = errors.New("database unavailable")

var (
	errNoClient     = errors.New("no database client")
	errReconnecting = errors.New("reconnect already in progress")
	errCoolingDown  = errors.New("last reconnect failed recently")
)

// ReconnectPolicy bounds how hard a Guard tries to restore a lost connection.
type ReconnectPolicy struct {
	MaxAttempts   int
	Delay         time.Duration
	PingTimeout   time.Duration
	CheckInterval time.Duration
	// Cooldown is how long callers fail fast after a reconnect cycle gave up.
	Cooldown time.Duration
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts:   3,
		Delay:         10 * time.Second,
		PingTimeout:   2 * time.Second,
		CheckInterval: 5 * time.Second,
		Cooldown:      10 * time.Second,
	}
}

// Run calls attempt up to MaxAttempts times, sleeping Delay between tries.
// The returned error wraps ErrUnavailable and the last attempt's failure.
func (p ReconnectPolicy) Run(ctx context.Context, attempt func(context.Context) error, onFailure func(n int, err error)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for n := 1; n <= attempts; n++ {
		if n > 1 && p.Delay > 0 {
			t := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-t.C:
			}
		}
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if onFailure != nil {
			onFailure(n, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%w after %d attempt(s): %w", ErrUnavailable, attempts, lastErr)
}

// Dialer opens a fresh, verified client.
type Dialer func(ctx context.Context) (*mongo.Client, error)

// Guard hands out a ready MongoDB client, reconnecting with its policy when
// the current one stops answering pings.
type Guard struct {
	client   atomic.Pointer[mongo.Client]
	state    atomic.Int32
	lastOK   atomic.Int64
	failedAt atomic.Int64

	dial   Dialer
	policy ReconnectPolicy
	sem    chan struct{}

	// OnReconnectAttempt is called after every failed reconnect attempt.
	OnReconnectAttempt func(n int, err error)

	ping       func(ctx context.Context, c *mongo.Client) error
	disconnect func(ctx context.Context, c *mongo.Client) error
	now        func() time.Time
}

// NewGuard wraps client (which may be nil when the first connect failed).
func NewGuard(client *mongo.Client, dial Dialer, policy ReconnectPolicy) *Guard {
	g := &Guard{
		dial:   dial,
		policy: policy,
		sem:    make(chan struct{}, 1),
		ping: func(ctx context.Context, c *mongo.Client) error {
			return c.Ping(ctx, readpref.Primary())
		},
		disconnect: MongoDBDisconnect,
		now:        time.Now,
	}
	if client != nil {
		g.client.Store(client)
		g.state.Store(StateConnected)
		g.lastOK.Store(g.now().UnixNano())
	}
	return g
}

// Client returns a client that answered a ping within CheckInterval,
// reconnecting first if needed. Only one caller runs the reconnect policy;
// the others fail fast instead of queueing behind it, and so does everyone
// during the cooldown that follows a failed cycle.
func (g *Guard) Client(ctx context.Context) (*mongo.Client, error) {
	c := g.client.Load()
	if c != nil && g.fresh() {
		return c, nil
	}
	if g.coolingDown() {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, errCoolingDown)
	}

	select {
	case g.sem <- struct{}{}:
	default:
		// Someone is only re-verifying a connection nobody reported broken.
		if c != nil && g.state.Load() == StateConnected {
			return c, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, errReconnecting)
	}
	defer func() { <-g.sem }()

	// Another caller may have reconnected while we waited.
	if c := g.client.Load(); c != nil && g.fresh() {
		return c, nil
	}

	if c := g.client.Load(); c != nil {
		if err := g.probe(ctx, c); err == nil {
			g.markUp()
			return c, nil
		}
	}

	g.state.Store(StateConnecting)
	err := g.policy.Run(ctx, g.reconnect, func(n int, err error) {
		log.Warn().Err(err).Int("attempt", n).Msg("mongodb reconnect attempt failed")
		if g.OnReconnectAttempt != nil {
			g.OnReconnectAttempt(n, err)
		}
	})
	if err != nil {
		g.state.Store(StateDisconnected)
		g.failedAt.Store(g.now().UnixNano())
		return nil, err
	}
	return g.client.Load(), nil
}

// MarkDown forces the next Client call to verify the connection.
func (g *Guard) MarkDown() {
	g.lastOK.Store(0)
	g.state.CompareAndSwap(StateConnected, StateDisconnected)
}

// Ping probes the current client without reconnecting.
func (g *Guard) Ping(ctx context.Context) (time.Duration, error) {
	c := g.client.Load()
	if c == nil {
		g.state.Store(StateDisconnected)
		return 0, errNoClient
	}
	start := g.now()
	if err := g.probe(ctx, c); err != nil {
		g.state.Store(StateDisconnected)
		return 0, err
	}
	g.markUp()
	return g.now().Sub(start), nil
}

func (g *Guard) ReadyState() int {
	return int(g.state.Load())
}

// Close disconnects the current client.
func (g *Guard) Close(ctx context.Context) error {
	c := g.client.Swap(nil)
	if c == nil {
		return nil
	}
	g.state.Store(StateDisconnecting)
	err := g.disconnect(ctx, c)
	g.state.Store(StateDisconnected)
	return err
}

func (g *Guard) reconnect(ctx context.Context) error {
	if g.dial == nil {
		return errNoClient
	}
	c, err := g.dial(ctx)
	if err != nil {
		return err
	}
	if old := g.client.Swap(c); old != nil && old != c {
		go func() { _ = g.disconnect(context.Background(), old) }()
	}
	g.markUp()
	log.Info().Msg("mongodb connection restored")
	return nil
}

func (g *Guard) probe(ctx context.Context, c *mongo.Client) error {
	timeout := g.policy.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.ping(ctx, c)
}

func (g *Guard) markUp() {
	g.state.Store(StateConnected)
	g.lastOK.Store(g.now().UnixNano())
	g.failedAt.Store(0)
}

func (g *Guard) coolingDown() bool {
	failed := g.failedAt.Load()
	if failed == 0 || g.policy.Cooldown <= 0 {
		return false
	}
	return g.now().Sub(time.Unix(0, failed)) < g.policy.Cooldown
}

func (g *Guard) fresh() bool {
	last := g.lastOK.Load()
	if last == 0 || g.state.Load() != StateConnected {
		return false
	}
	return g.now().Sub(time.Unix(0, last)) < g.policy.CheckInterval
}
