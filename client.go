// Package stratumclient is a client library for the Stratum mining
// protocol: subscribe, authorize, receive mining jobs, and submit
// nonces over a persistent TCP connection to a pool. It exposes a
// synchronous façade over an isolated I/O goroutine that owns the
// socket, the line framer, and all protocol state exclusively.
package stratumclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"stratumclient/internal/rpcframe"
	"stratumclient/internal/transport"
	"stratumclient/job"
	"stratumclient/stratum"
)

// DefaultTimeout is the façade's default per-call deadline.
const DefaultTimeout = 10 * time.Second

// ConnectionParams is the immutable identity of one pool connection.
type ConnectionParams struct {
	Hostname   string
	Port       int
	WorkerName string
	Password   string

	// UserAgent is sent as mining.subscribe's single param. Defaults to
	// "stratumclient" when empty.
	UserAgent string

	// Proxy, when set, routes the TCP dial through it (e.g. a Tor
	// SOCKS5 dialer) instead of dialing the pool directly.
	Proxy proxy.Dialer

	// Logger receives structured log entries for this connection. A
	// disabled default logger is used when nil.
	Logger *logrus.Entry

	// Timeout overrides DefaultTimeout for every façade call on this
	// connection, including Connect itself.
	Timeout time.Duration
}

func (p ConnectionParams) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

func (p ConnectionParams) userAgent() string {
	if p.UserAgent != "" {
		return p.UserAgent
	}
	return "stratumclient"
}

// Client is the synchronous façade over one Stratum connection.
// BuildCurrentJob, Jobs, SuggestDifficulty and Close may be called from
// any goroutine: the pump goroutine below always drains notifications
// independently of any in-flight call, and the mirror is mutex-guarded
// accordingly. Submit is single-call-in-flight: two Submit calls must
// not overlap, since both would read the same response channel.
type Client struct {
	params ConnectionParams
	log    *logrus.Entry

	cmds      chan command
	events    chan event // read exclusively by pump
	responses chan event // eventSent/eventResponse/eventLocalReject, read by awaitResponse

	mu          sync.Mutex
	mirror      *stratum.State
	closed      bool
	terminalErr *Error

	done         chan struct{}
	terminalOnce sync.Once

	firstJobReady chan struct{}
	firstJobOnce  sync.Once

	jobs chan job.Job

	closeOnce sync.Once
}

// Connect dials the pool, subscribes, authorizes, and waits for the
// first mining.notify. On any failure the connection is closed and a
// single *Error is returned.
func Connect(ctx context.Context, params ConnectionParams) (*Client, error) {
	log := params.Logger
	if log == nil {
		disabled := logrus.New()
		disabled.SetOutput(io.Discard)
		log = logrus.NewEntry(disabled)
	}
	log = log.WithField("component", "client").WithFields(logrus.Fields{
		"hostname": params.Hostname,
		"port":     params.Port,
	})

	var opts []transport.Option
	opts = append(opts, transport.WithLogger(log))
	if params.Proxy != nil {
		opts = append(opts, transport.WithProxy(params.Proxy))
	}

	conn, err := transport.Dial(ctx, params.Hostname, params.Port, opts...)
	if err != nil {
		return nil, newErr(ErrTransport, "connect", err)
	}

	cmds := make(chan command, 16)
	events := make(chan event, 16)

	ioCtx, cancel := context.WithCancel(context.Background())
	sess := &ioSession{
		conn:   conn,
		framer: rpcframe.New(),
		state:  stratum.NewState(log),
		log:    log,
		cmds:   cmds,
		events: events,
		cancel: cancel,
	}
	go sess.run(ioCtx)

	c := &Client{
		params:        params,
		log:           log,
		cmds:          cmds,
		events:        events,
		responses:     make(chan event, 16),
		mirror:        stratum.NewState(log),
		jobs:          make(chan job.Job, 1),
		done:          make(chan struct{}),
		firstJobReady: make(chan struct{}),
	}
	go c.pump()

	if err := c.handshake(ctx, params); err != nil {
		c.teardown()
		return nil, err
	}

	return c, nil
}

func (c *Client) handshake(ctx context.Context, params ConnectionParams) error {
	subResult, err := c.call(ctx, "subscribe", stratum.MethodSubscribe,
		stratum.SubscribeParams(params.userAgent()))
	if err != nil {
		return err
	}
	sub, err := stratum.ParseSubscribeResult(subResult)
	if err != nil {
		return newErr(ErrProtocolShape, "subscribe", err)
	}
	c.mu.Lock()
	c.mirror.ApplySubscribeResult(sub)
	c.mu.Unlock()

	if _, err := c.call(ctx, "authorize", stratum.MethodAuthorize,
		stratum.AuthorizeParams(params.WorkerName, params.Password)); err != nil {
		return err
	}

	return c.waitForFirstJob(ctx, params.timeout())
}

// waitForFirstJob blocks until the pump has applied the first
// mining.notify, a fatal/reconnect event closed the connection, or the
// deadline elapses. It never reads c.events itself: the pump is the
// channel's sole reader, independent of whether this or any other call
// is in flight.
func (c *Client) waitForFirstJob(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-c.firstJobReady:
		return nil
	case <-c.done:
		return c.terminalError("connect")
	case <-deadline.C:
		return newErr(ErrTimeout, "connect", fmt.Errorf("timed out waiting for first mining.notify"))
	case <-ctx.Done():
		return newErr(ErrTimeout, "connect", ctx.Err())
	}
}

// pump is the single goroutine that ever reads c.events. It runs for
// the lifetime of the connection, independent of whether a caller is
// blocked in a synchronous call: notifications are applied to the
// mirror and jobs are pushed continuously, and eventSent/eventResponse/
// eventLocalReject are forwarded to awaitResponse's rendezvous channel.
// Without this goroutine, Jobs() would only ever deliver while some
// other call happened to be draining c.events, and the I/O goroutine
// would eventually block forever trying to send into a full, undrained
// events channel.
func (c *Client) pump() {
	for ev := range c.events {
		switch ev.kind {
		case eventSent, eventResponse, eventLocalReject:
			select {
			case c.responses <- ev:
			case <-c.done:
			}
		case eventNotifyJob:
			c.applyNotify(ev.notify)
		case eventSetDifficulty:
			c.mu.Lock()
			c.mirror.ApplySetDifficulty(ev.difficulty)
			c.mu.Unlock()
		case eventSetExtranonce:
			c.mu.Lock()
			c.mirror.ApplySetExtranonce(ev.setExtranonce)
			c.mu.Unlock()
		case eventReconnect:
			c.setTerminal(newErr(ErrTransport, "reconnect", fmt.Errorf("pool requested client.reconnect")))
		case eventFatal:
			c.setTerminal(ev.fatal)
		}
	}
	c.setTerminal(newErr(ErrTransport, "closed", fmt.Errorf("connection closed")))
	close(c.responses)
}

// applyNotify updates the mirror and captures the build params under
// one lock, so a concurrent BuildCurrentJob never observes a job_id
// paired with the next notification's extranonce2 counter; the job is
// then built and pushed outside the lock.
func (c *Client) applyNotify(n stratum.JobNotification) {
	c.mu.Lock()
	c.mirror.ApplyNotify(n)
	params := job.BuildParams{
		JobID:           n.JobID,
		PrevHash:        n.PrevHash,
		Coinb1:          n.Coinb1,
		Coinb2:          n.Coinb2,
		MerkleBranch:    n.MerkleBranch,
		BlockVersion:    n.BlockVersion,
		NBits:           n.NBits,
		NTime:           n.NTime,
		Extranonce1:     c.mirror.Extranonce.Extranonce1,
		Extranonce2:     c.mirror.NextExtranonce2(),
		Extranonce2Size: c.mirror.Extranonce.Extranonce2Size,
		Difficulty:      c.mirror.Difficulty.Difficulty,
	}
	c.mu.Unlock()

	built, err := job.Build(params)
	if err != nil {
		c.log.WithError(err).Warn("failed to build job from notification")
	} else {
		c.pushJob(built)
	}
	c.firstJobOnce.Do(func() { close(c.firstJobReady) })
}

// pushJob delivers built to Jobs(), replacing whatever stale job is
// currently buffered if the consumer has fallen behind.
func (c *Client) pushJob(built job.Job) {
	select {
	case c.jobs <- built:
	default:
		select {
		case <-c.jobs:
		default:
		}
		select {
		case c.jobs <- built:
		default:
		}
	}
}

func (c *Client) setTerminal(err *Error) {
	c.terminalOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.terminalErr = err
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Client) terminalError(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminalErr != nil {
		return c.terminalErr
	}
	return newErr(ErrTransport, op, fmt.Errorf("connection closed"))
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// call sends a request and blocks for its matching response via the
// pump's response rendezvous channel.
func (c *Client) call(ctx context.Context, op string, method stratum.Method, params interface{}) (json.RawMessage, error) {
	if c.isClosed() {
		return nil, newErr(ErrTransport, op, fmt.Errorf("connection already closed"))
	}

	select {
	case c.cmds <- command{kind: cmdSend, method: method, params: params}:
	case <-ctx.Done():
		return nil, newErr(ErrTimeout, op, ctx.Err())
	}

	return c.awaitResponse(ctx, op, method)
}

// awaitResponse is the sole reader of c.responses (only the pump writes
// to it), and is safe to call from one caller at a time (the protocol
// is single-call-in-flight; concurrent calls of the same method are not
// supported, matching c.call's historical contract).
func (c *Client) awaitResponse(ctx context.Context, op string, method stratum.Method) (json.RawMessage, error) {
	timeout := c.params.timeout()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var id int64 = -1
	for {
		select {
		case ev, ok := <-c.responses:
			if !ok {
				return nil, c.terminalError(op)
			}
			switch ev.kind {
			case eventSent:
				if ev.method == method && id == -1 {
					id = ev.id
				}
			case eventLocalReject:
				if id == -1 {
					return nil, ev.localErr
				}
			case eventResponse:
				if id == -1 || ev.id != id {
					continue // stale or unrelated, ignore
				}
				if ev.isError {
					return nil, newRPCErr(op, ev.errPay)
				}
				return ev.result, nil
			}
		case <-c.done:
			return nil, c.terminalError(op)
		case <-deadline.C:
			if id != -1 {
				select {
				case c.cmds <- command{kind: cmdCancel, id: id}:
				default:
				}
			}
			return nil, newErr(ErrTimeout, op, fmt.Errorf("timed out waiting for response"))
		case <-ctx.Done():
			return nil, newErr(ErrTimeout, op, ctx.Err())
		}
	}
}

// BuildCurrentJob applies extranonce2 to the current notification and
// protocol state and returns the built Job. It performs no network I/O
// and is pure with respect to the live connection.
func (c *Client) BuildCurrentJob(extranonce2 uint64) (job.Job, error) {
	c.mu.Lock()
	if !c.mirror.HasCurrentJob() {
		c.mu.Unlock()
		return job.Job{}, newErr(ErrLocalReject, "build_job", fmt.Errorf("no job received yet"))
	}
	n := c.mirror.Current
	params := job.BuildParams{
		JobID:           n.JobID,
		PrevHash:        n.PrevHash,
		Coinb1:          n.Coinb1,
		Coinb2:          n.Coinb2,
		MerkleBranch:    n.MerkleBranch,
		BlockVersion:    n.BlockVersion,
		NBits:           n.NBits,
		NTime:           n.NTime,
		Extranonce1:     c.mirror.Extranonce.Extranonce1,
		Extranonce2:     extranonce2,
		Extranonce2Size: c.mirror.Extranonce.Extranonce2Size,
		Difficulty:      c.mirror.Difficulty.Difficulty,
	}
	c.mu.Unlock()
	return job.Build(params)
}

// Jobs returns a channel of built jobs, updated every time a
// mining.notify is applied using an auto-incrementing extranonce2. A
// dedicated background goroutine keeps this channel fed regardless of
// whether the caller ever issues another synchronous call; only the
// most recent job is retained if the consumer falls behind.
func (c *Client) Jobs() <-chan job.Job {
	return c.jobs
}

// Submit sends a mining.submit for result. The local-reject decision —
// empty result, or a job_id absent from the job table — is made by the
// I/O goroutine against its own authoritative state, never against this
// façade's mirror, so an evicted job_id can never reach the wire even
// if a clean_jobs notification is still sitting undrained.
func (c *Client) Submit(ctx context.Context, result stratum.JobResult) (bool, error) {
	if c.isClosed() {
		return false, newErr(ErrTransport, "submit", fmt.Errorf("connection already closed"))
	}

	select {
	case c.cmds <- command{kind: cmdSubmit, result: result}:
	case <-ctx.Done():
		return false, newErr(ErrTimeout, "submit", ctx.Err())
	}

	res, err := c.awaitResponse(ctx, "submit", stratum.MethodSubmit)
	if err != nil {
		return false, err
	}

	var ok bool
	if err := json.Unmarshal(res, &ok); err != nil {
		c.teardown()
		return false, newErr(ErrProtocolShape, "submit", err)
	}
	return ok, nil
}

// SuggestDifficulty sends mining.suggest_difficulty and returns as soon
// as the send is enqueued; the pool's result, if any, is never tracked.
func (c *Client) SuggestDifficulty(d float64) error {
	if c.isClosed() {
		return newErr(ErrTransport, "suggest_difficulty", fmt.Errorf("connection already closed"))
	}
	select {
	case c.cmds <- command{kind: cmdSend, method: stratum.MethodSuggestDifficulty, params: stratum.SuggestDifficultyParams(d)}:
		return nil
	default:
		return newErr(ErrTransport, "suggest_difficulty", fmt.Errorf("command queue full"))
	}
}

// Close shuts down the I/O goroutine and the socket. The Client is
// unusable after this call.
func (c *Client) Close() error {
	c.teardown()
	return nil
}

func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		select {
		case c.cmds <- command{kind: cmdClose}:
		default:
		}
		c.setTerminal(newErr(ErrTransport, "close", fmt.Errorf("client closed")))
	})
}
