// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	signcrypto "github.com/reown-com/sign-go/crypto"
	"github.com/reown-com/sign-go/internal/logger"
	"github.com/reown-com/sign-go/internal/metrics"
)

// Config holds the transport's connection parameters.
type Config struct {
	URL            string
	ProjectID      string
	RequestTimeout time.Duration
	BackoffMillis  []int64
}

// TopicSource supplies the set of topics to resubscribe to on
// (re)connect. Satisfied by storage.Store.GetAllTopics.
type TopicSource interface {
	GetAllTopics(ctx context.Context) ([]string, error)
}

// InboundMessage is an envelope delivered on a subscribed topic,
// surfaced to the caller still wrapped in its relay request id so the
// caller can Ack it once it has been durably handled.
type InboundMessage struct {
	ID          uint64
	Topic       string
	Message     string
	Tag         int
	PublishedAt int64
}

// Transport owns the single persistent connection to the relay: it
// multiplexes outbound JSON-RPC requests over a priority and a normal
// lane, correlates responses by id, delivers inbound subscription
// events, and reconnects with capped backoff across drops. A nil
// TopicSource is valid; Transport simply resubscribes to nothing.
type Transport struct {
	cfg      Config
	clientID *signcrypto.ClientIDKey
	topics   TopicSource
	log      logger.Logger

	queue   *priorityQueue
	idSeq   uint64
	inbound chan InboundMessage
	ackCh   chan uint64
	onlineCh chan struct{}
	sf       singleflight.Group

	mu    sync.Mutex
	state string
}

// NewTransport constructs a Transport. Call Start to begin connecting.
func NewTransport(cfg Config, clientID *signcrypto.ClientIDKey, topics TopicSource, log logger.Logger) *Transport {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if len(cfg.BackoffMillis) == 0 {
		cfg.BackoffMillis = defaultBackoffMillis
	}
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Transport{
		cfg:      cfg,
		clientID: clientID,
		topics:   topics,
		log:      log,
		queue:    newPriorityQueue(),
		idSeq:    MinRPCID - 1,
		inbound:  make(chan InboundMessage, 64),
		ackCh:    make(chan uint64, 64),
		onlineCh: make(chan struct{}, 1),
		state:    "idle",
	}
}

func (t *Transport) nextID() uint64 {
	return atomic.AddUint64(&t.idSeq, 1)
}

// Inbound returns the channel of delivered subscription events.
func (t *Transport) Inbound() <-chan InboundMessage {
	return t.inbound
}

// Ack acknowledges delivery of the subscription request with the given
// relay-assigned id, letting the relay stop redelivering it.
func (t *Transport) Ack(id uint64) {
	select {
	case t.ackCh <- id:
	default:
		// ack channel full; the caller will see the message redelivered
		// and ack again, so dropping here is safe.
	}
}

// Online nudges the transport to attempt a connection immediately,
// from Idle or mid-backoff. At most one nudge is buffered; a nudge sent
// while connecting or connected stays buffered and ends the next
// backoff wait early.
func (t *Transport) Online() {
	select {
	case t.onlineCh <- struct{}{}:
	default:
	}
}

func (t *Transport) setState(s string) {
	t.mu.Lock()
	prev := t.state
	t.state = s
	t.mu.Unlock()
	if prev != "" {
		metrics.RelayConnectionState.WithLabelValues(prev).Set(0)
	}
	metrics.RelayConnectionState.WithLabelValues(s).Set(1)
	t.log.Debug("relay state transition", logger.String("from", prev), logger.String("to", s))
}

// State returns the transport's current connection state label.
func (t *Transport) State() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Request enqueues method/params on the normal lane and waits for the
// matching response, or for ctx to be done.
func (t *Transport) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return t.doRequest(ctx, t.queue.normal, method, params)
}

// RequestPriority enqueues method/params on the priority lane, served
// ahead of any pending normal-lane request. Used for any request that
// must not wait behind ordinary publish traffic; the (re)connect
// batch-subscribe handshake is written directly by subscribeAll and
// does not go through either lane.
func (t *Transport) RequestPriority(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return t.doRequest(ctx, t.queue.priority, method, params)
}

func (t *Transport) doRequest(ctx context.Context, lane chan *pendingRequest, method string, params interface{}) (json.RawMessage, error) {
	if t.State() == "poisoned" {
		return nil, newError(KindInvalidAuth, "transport is poisoned: relay rejected authentication")
	}

	// Multiple callers issuing requests while the transport is idle or
	// backing off all want the same thing — a connection attempt now —
	// so collapse their nudges into a single Online() call.
	if state := t.State(); state == "idle" || state == "backoff" {
		t.sf.Do("online", func() (interface{}, error) {
			t.Online()
			return nil, nil
		})
	}

	req := &pendingRequest{method: method, params: params, reply: make(chan requestResult, 1)}
	select {
	case lane <- req:
	case <-ctx.Done():
		return nil, newError(KindCleanup, "request cancelled before it was queued")
	}
	select {
	case res := <-req.reply:
		return res.result, res.err
	case <-ctx.Done():
		return nil, newError(KindCleanup, "request cancelled while in flight")
	}
}

// Start runs the connect/serve/backoff loop until ctx is cancelled or
// the relay terminally rejects authentication.
func (t *Transport) Start(ctx context.Context) {
	t.Online()

	var backoff backoffState
	t.setState("idle")

	for {
		select {
		case <-ctx.Done():
			t.queue.drainWithError(newError(KindCleanup, "transport stopped"))
			return
		case <-t.onlineCh:
		}

		err := t.connectAndServe(ctx)
		if err == nil {
			// ctx was cancelled mid-connection; connectAndServe only
			// returns nil on clean shutdown.
			t.queue.drainWithError(newError(KindCleanup, "transport stopped"))
			return
		}

		var relayErr *Error
		if errors.As(err, &relayErr) && relayErr.Kind == KindInvalidAuth {
			t.setState("poisoned")
			metrics.RelayAuthFailures.Inc()
			t.queue.drainWithError(relayErr)
			<-ctx.Done()
			return
		}

		if t.State() == "connected" {
			// the connection was established before it dropped, so the
			// failed-attempt count starts over.
			backoff = backoffState{}
		}
		t.log.Warn("relay connection lost", logger.Error(err))
		metrics.RelayReconnects.Inc()
		t.setState("backoff")
		d := backoff.duration(t.cfg.BackoffMillis)
		select {
		case <-ctx.Done():
			t.queue.drainWithError(newError(KindCleanup, "transport stopped"))
			return
		case <-t.onlineCh:
			// a host request nudge preempts the backoff sleep so the
			// retry happens immediately instead of waiting out d.
		case <-time.After(d):
		}
		backoff = backoff.next(t.cfg.BackoffMillis)
		select {
		case t.onlineCh <- struct{}{}:
		default:
		}
	}
}

// connectAndServe dials the relay, performs the subscribe handshake,
// then serves requests and inbound frames until the connection drops
// or ctx is cancelled. A nil return means ctx was cancelled; any
// non-nil return is a *Error describing why the connection ended.
func (t *Transport) connectAndServe(ctx context.Context) error {
	conn, frames, readErrCh, err := t.dialAndSubscribe(ctx)
	if err != nil {
		return err
	}

	t.setState("connected")
	return t.serve(ctx, conn, frames, readErrCh)
}

// dialAndSubscribe dials the relay and performs the initial
// irn_batchSubscribe handshake, returning the live connection and its
// read-side channels. Used both for the initial connect and for the
// single reconnect-and-retry a request timeout triggers while Connected.
func (t *Transport) dialAndSubscribe(ctx context.Context) (*websocket.Conn, <-chan []byte, <-chan error, error) {
	t.setState("connecting")

	auth, err := buildAuthToken(t.clientID, t.cfg.URL, t.cfg.ProjectID)
	if err != nil {
		metrics.RelayConnectAttempts.WithLabelValues("failure").Inc()
		return nil, nil, nil, newError(KindInternal, err.Error())
	}
	dialURL, err := connectURL(t.cfg.URL, t.cfg.ProjectID, auth)
	if err != nil {
		metrics.RelayConnectAttempts.WithLabelValues("failure").Inc()
		return nil, nil, nil, newError(KindInternal, err.Error())
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, dialURL, nil)
	cancel()
	if err != nil {
		metrics.RelayConnectAttempts.WithLabelValues("failure").Inc()
		if resp != nil && resp.StatusCode == 401 {
			return nil, nil, nil, newError(KindInvalidAuth, "relay rejected auth token")
		}
		return nil, nil, nil, newError(KindOffline, fmt.Sprintf("dial relay: %v", err))
	}
	metrics.RelayConnectAttempts.WithLabelValues("success").Inc()

	conn.SetCloseHandler(func(code int, text string) error {
		if code == 3000 {
			t.log.Error("relay closed connection: invalid auth", logger.Int("code", code))
		}
		return nil
	})

	frames := make(chan []byte, 64)
	readErrCh := make(chan error, 1)
	go t.readPump(conn, frames, readErrCh)

	t.setState("subscribing")
	if err := t.subscribeAll(ctx, conn, frames); err != nil {
		conn.Close()
		return nil, nil, nil, err
	}

	return conn, frames, readErrCh, nil
}

func (t *Transport) readPump(conn *websocket.Conn, frames chan<- []byte, errCh chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, 3000) {
				errCh <- newError(KindInvalidAuth, "relay closed connection: invalid auth")
				return
			}
			errCh <- newError(KindOffline, fmt.Sprintf("read relay message: %v", err))
			return
		}
		select {
		case frames <- data:
		case <-time.After(t.cfg.RequestTimeout):
			// a stalled consumer should not wedge the reader forever; the
			// frame is dropped and will be redelivered by the relay.
		}
	}
}

// subscribeAll performs the initial irn_batchSubscribe handshake for
// every topic currently known to storage, bounded by RequestTimeout.
func (t *Transport) subscribeAll(ctx context.Context, conn *websocket.Conn, frames <-chan []byte) error {
	var topicList []string
	if t.topics != nil {
		list, err := t.topics.GetAllTopics(ctx)
		if err != nil {
			return newError(KindInternal, fmt.Sprintf("load topics for resubscribe: %v", err))
		}
		topicList = list
	}
	if len(topicList) == 0 {
		return nil
	}

	id := t.nextID()
	raw, err := encodeRequest(id, "irn_batchSubscribe", BatchSubscribeParams{Topics: topicList})
	if err != nil {
		return newError(KindInternal, err.Error())
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return newError(KindOffline, fmt.Sprintf("write batch subscribe: %v", err))
	}

	deadline := time.NewTimer(t.cfg.RequestTimeout)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return newError(KindOffline, "timed out waiting for batch subscribe response")
		case data := <-frames:
			p, err := decodePayload(data)
			if err != nil {
				continue
			}
			if p.response != nil && p.response.ID == id {
				if p.response.Error != nil {
					return newError(KindInternal, fmt.Sprintf("batch subscribe rejected: %s", p.response.Error.Message))
				}
				return nil
			}
			// any other frame arriving before the handshake response
			// (e.g. an interleaved subscription push) is discarded
			// without being acknowledged.
		}
	}
}

// serve drains the priority/normal request lanes and the inbound frame
// channel until the connection drops or ctx is cancelled. Every
// outbound request carries a RequestTimeout deadline; a request that
// times out while Connected closes the connection, reconnects once,
// and resends that single request, matching the "close and retry
// once, otherwise Backoff" behavior mandated for the Connected state.
func (t *Transport) serve(ctx context.Context, conn *websocket.Conn, frames <-chan []byte, readErrCh <-chan error) error {
	defer func() { conn.Close() }()

	pending := make(map[uint64]*pendingRequest)
	timers := make(map[uint64]*time.Timer)
	sentAt := make(map[uint64]time.Time)
	timeoutCh := make(chan uint64, 16)
	done := ctx.Done()

	queueCh := make(chan *pendingRequest)
	stopQueue := make(chan struct{})
	defer close(stopQueue)
	go func() {
		for {
			req, ok := t.queue.recv(stopQueue)
			if !ok {
				return
			}
			select {
			case queueCh <- req:
			case <-stopQueue:
				req.reply <- requestResult{err: newError(KindCleanup, "connection closed")}
				return
			}
		}
	}()

	stopTimer := func(id uint64) {
		if tm, ok := timers[id]; ok {
			tm.Stop()
			delete(timers, id)
		}
	}
	armTimer := func(id uint64) {
		timers[id] = time.AfterFunc(t.cfg.RequestTimeout, func() {
			select {
			case timeoutCh <- id:
			case <-stopQueue:
			}
		})
	}
	failAllPending := func(err error) {
		for id, req := range pending {
			req.reply <- requestResult{err: err}
			delete(pending, id)
			stopTimer(id)
		}
	}
	defer func() {
		for id := range timers {
			stopTimer(id)
		}
	}()

	for {
		select {
		case <-done:
			failAllPending(newError(KindCleanup, "connection closed"))
			return nil

		case err := <-readErrCh:
			failAllPending(newError(KindOffline, "connection closed"))
			return err

		case req := <-queueCh:
			id := t.nextID()
			raw, err := encodeRequest(id, req.method, req.params)
			if err != nil {
				req.reply <- requestResult{err: newError(KindInternal, err.Error())}
				continue
			}
			start := time.Now()
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				req.reply <- requestResult{err: newError(KindOffline, fmt.Sprintf("write request: %v", err))}
				metrics.RelayRequestDuration.WithLabelValues(req.method, "error").Observe(time.Since(start).Seconds())
				return newError(KindOffline, fmt.Sprintf("write request: %v", err))
			}
			pending[id] = req
			sentAt[id] = start
			armTimer(id)

		case id := <-t.ackCh:
			raw, err := encodeSuccess(id, true)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return newError(KindOffline, fmt.Sprintf("write ack: %v", err))
			}

		case id := <-timeoutCh:
			req, ok := pending[id]
			if !ok {
				continue
			}
			delete(pending, id)
			delete(timers, id)
			delete(sentAt, id)
			metrics.RelayRequestDuration.WithLabelValues(req.method, "timeout").Observe(t.cfg.RequestTimeout.Seconds())

			if req.retried {
				t.log.Warn("retried request timed out again, closing connection", logger.String("method", req.method))
				req.reply <- requestResult{err: newError(KindOffline, "request timed out after retry")}
				failAllPending(newError(KindOffline, "connection closed"))
				return newError(KindOffline, "request timed out after retry")
			}

			t.log.Warn("request timed out in Connected, closing and retrying once", logger.String("method", req.method))
			req.retried = true
			conn.Close()

			newConn, newFrames, newReadErrCh, derr := t.dialAndSubscribe(ctx)
			if derr != nil {
				req.reply <- requestResult{err: derr}
				failAllPending(newError(KindOffline, "connection closed"))
				return derr
			}
			conn = newConn
			frames = newFrames
			readErrCh = newReadErrCh
			t.setState("connected")

			retryID := t.nextID()
			raw, err := encodeRequest(retryID, req.method, req.params)
			if err != nil {
				req.reply <- requestResult{err: newError(KindInternal, err.Error())}
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				req.reply <- requestResult{err: newError(KindOffline, fmt.Sprintf("write retried request: %v", err))}
				return newError(KindOffline, fmt.Sprintf("write retried request: %v", err))
			}
			pending[retryID] = req
			sentAt[retryID] = time.Now()
			armTimer(retryID)

		case data := <-frames:
			p, err := decodePayload(data)
			if err != nil {
				t.log.Warn("discarding malformed relay frame", logger.Error(err))
				continue
			}
			if p.response != nil {
				req, ok := pending[p.response.ID]
				if !ok {
					continue
				}
				delete(pending, p.response.ID)
				stopTimer(p.response.ID)
				elapsed := time.Since(sentAt[p.response.ID]).Seconds()
				delete(sentAt, p.response.ID)
				if p.response.Error != nil {
					req.reply <- requestResult{err: newError(KindInternal, p.response.Error.Message)}
					metrics.RelayRequestDuration.WithLabelValues(req.method, "error").Observe(elapsed)
					continue
				}
				req.reply <- requestResult{result: p.response.Result}
				metrics.RelayRequestDuration.WithLabelValues(req.method, "ok").Observe(elapsed)
				continue
			}
			if p.request != nil && p.request.Method == "irn_subscription" {
				var params SubscriptionParams
				if err := json.Unmarshal(p.request.Params, &params); err != nil {
					t.log.Warn("discarding malformed subscription push", logger.Error(err))
					continue
				}
				msg := InboundMessage{
					ID:          p.request.ID,
					Topic:       params.Data.Topic,
					Message:     params.Data.Message,
					Tag:         params.Data.Tag,
					PublishedAt: params.Data.PublishedAt,
				}
				select {
				case t.inbound <- msg:
				case <-done:
					return nil
				}
			}
		}
	}
}
