package confirm

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	EventRequest      = "fwdaskCustomDataRequest"
	EventResponse     = "fwdaskCustomDataResponse"
	EventNotification = "fwdaskCustomDataNotification"
	// EventCancel withdraws a request that is no longer waiting for an answer.
	EventCancel = "fwdaskCustomDataCancel"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	sendQueueSize       = 64
)

// Message is the envelope of every frame exchanged with operator consoles.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type RequestPayload struct {
	ID          string             `json:"id"`
	Message     string             `json:"message"`
	Fingerprint string             `json:"fingerprint"`
	Flow        *flow.Flow         `json:"flow"`
	Consensus   *evaluator.Opinion `json:"consensus,omitempty"`
}

type NotificationPayload struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

type ResponsePayload struct {
	ID       string `json:"id"`
	Response string `json:"response"`
}

type wsOptions struct {
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       logger.Logger
}

type WebSocketOption func(opts *wsOptions)

func WriteTimeoutWebSocketOption(timeout time.Duration) WebSocketOption {
	return func(opts *wsOptions) {
		opts.writeTimeout = timeout
	}
}

func PingIntervalWebSocketOption(interval time.Duration) WebSocketOption {
	return func(opts *wsOptions) {
		opts.pingInterval = interval
	}
}

func LoggerWebSocketOption(logger logger.Logger) WebSocketOption {
	return func(opts *wsOptions) {
		opts.logger = logger
	}
}

type pendingPrompt struct {
	id      string
	created time.Time
	frames  [][]byte
	answer  chan Answer
}

// WebSocketConfirmer serves operator consoles over WebSocket and forwards
// each question to all of them. The first response for a question wins.
// Questions asked while no console is connected wait and are replayed to
// the next console that connects.
type WebSocketConfirmer struct {
	upgrader  websocket.Upgrader
	mu        sync.Mutex
	operators map[*operator]struct{}
	pending   map[string]*pendingPrompt
	closed    chan struct{}
	closeOnce sync.Once
	options   wsOptions
}

func NewWebSocketConfirmer(opts ...WebSocketOption) *WebSocketConfirmer {
	options := wsOptions{
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = logger.Default().WithFields(map[string]any{
			"kind": "confirm",
		})
	}

	return &WebSocketConfirmer{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		operators: make(map[*operator]struct{}),
		pending:   make(map[string]*pendingPrompt),
		closed:    make(chan struct{}),
		options:   options,
	}
}

func (c *WebSocketConfirmer) Ask(ctx context.Context, f *flow.Flow, consensus *evaluator.Opinion) (Answer, error) {
	fp, err := f.Fingerprint()
	if err != nil {
		return Drop, err
	}

	p := &pendingPrompt{
		id:      uuid.NewString(),
		created: time.Now(),
		answer:  make(chan Answer, 1),
	}
	if consensus != nil {
		p.frames = append(p.frames, encode(EventNotification, NotificationPayload{
			ID:      p.id,
			Message: Notification(consensus),
		}))
	}
	p.frames = append(p.frames, encode(EventRequest, RequestPayload{
		ID:          p.id,
		Message:     Prompt(f, fp),
		Fingerprint: fp,
		Flow:        f,
		Consensus:   consensus,
	}))

	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		return Drop, ErrClosed
	default:
	}
	c.pending[p.id] = p
	for op := range c.operators {
		op.send(p.frames...)
	}
	c.mu.Unlock()

	c.options.logger.Debugf("prompt %s for %s", p.id, fp)

	select {
	case a := <-p.answer:
		return a, nil
	case <-ctx.Done():
		c.withdraw(p.id)
		return Drop, ctx.Err()
	case <-c.closed:
		return Drop, ErrClosed
	}
}

// Pending returns the number of questions waiting for an answer.
func (c *WebSocketConfirmer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Operators returns the number of connected consoles.
func (c *WebSocketConfirmer) Operators() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.operators)
}

func (c *WebSocketConfirmer) withdraw(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[id]; !ok {
		return
	}
	delete(c.pending, id)
	frame := encode(EventCancel, NotificationPayload{ID: id, Message: "request withdrawn"})
	for op := range c.operators {
		op.send(frame)
	}
}

func (c *WebSocketConfirmer) resolve(id string, answer Answer) bool {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	p.answer <- answer
	return true
}

// ServeHTTP upgrades the request and attaches a new operator console.
func (c *WebSocketConfirmer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.options.logger.Error(err)
		return
	}

	log := c.options.logger.WithFields(map[string]any{
		"operator": r.RemoteAddr,
	})
	op := newOperator(conn, c.options.writeTimeout, c.options.pingInterval, log)

	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		conn.Close()
		return
	default:
	}
	c.operators[op] = struct{}{}
	for _, p := range c.sortedPending() {
		op.send(p.frames...)
	}
	n := len(c.operators)
	c.mu.Unlock()

	metrics.GetGauge(metrics.MetricOperatorsGauge, nil).Set(float64(n))
	log.Infof("operator connected")

	go op.writeLoop()
	c.readLoop(op)

	c.mu.Lock()
	delete(c.operators, op)
	n = len(c.operators)
	c.mu.Unlock()
	op.close()

	metrics.GetGauge(metrics.MetricOperatorsGauge, nil).Set(float64(n))
	log.Infof("operator disconnected")
}

func (c *WebSocketConfirmer) readLoop(op *operator) {
	for {
		_, data, err := op.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				op.log.Error(err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			op.log.Warnf("invalid message: %v", err)
			continue
		}
		if msg.Event != EventResponse {
			op.log.Debugf("ignore event %s", msg.Event)
			continue
		}

		var resp ResponsePayload
		if err := json.Unmarshal(msg.Payload, &resp); err != nil {
			op.log.Warnf("invalid response: %v", err)
			continue
		}
		if !c.resolve(resp.ID, ParseResponse(resp.Response)) {
			op.log.Debugf("response for unknown prompt %s", resp.ID)
		}
	}
}

// sortedPending must be called with c.mu held.
func (c *WebSocketConfirmer) sortedPending() []*pendingPrompt {
	prompts := make([]*pendingPrompt, 0, len(c.pending))
	for _, p := range c.pending {
		prompts = append(prompts, p)
	}
	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].created.Before(prompts[j].created)
	})
	return prompts
}

// Close disconnects every console and fails the questions still waiting.
func (c *WebSocketConfirmer) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		close(c.closed)
		for op := range c.operators {
			op.close()
		}
		c.pending = make(map[string]*pendingPrompt)
	})
	return nil
}

func encode(event string, payload any) []byte {
	p, _ := json.Marshal(payload)
	b, _ := json.Marshal(&Message{
		Event:   event,
		Payload: p,
	})
	return b
}

type operator struct {
	conn         *websocket.Conn
	queue        chan []byte
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
	pingInterval time.Duration
	log          logger.Logger
}

func newOperator(conn *websocket.Conn, writeTimeout, pingInterval time.Duration, log logger.Logger) *operator {
	return &operator{
		conn:         conn,
		queue:        make(chan []byte, sendQueueSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		log:          log,
	}
}

// send queues frames without blocking. A console that cannot keep up is disconnected.
func (op *operator) send(frames ...[]byte) {
	for _, frame := range frames {
		select {
		case op.queue <- frame:
		case <-op.done:
			return
		default:
			op.log.Warnf("send queue full, disconnecting")
			op.close()
			return
		}
	}
}

func (op *operator) writeLoop() {
	ticker := time.NewTicker(op.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-op.queue:
			op.conn.SetWriteDeadline(time.Now().Add(op.writeTimeout))
			if err := op.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				op.log.Error(err)
				op.close()
				return
			}
		case <-ticker.C:
			if err := op.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(op.writeTimeout)); err != nil {
				op.close()
				return
			}
		case <-op.done:
			return
		}
	}
}

func (op *operator) close() {
	op.once.Do(func() {
		close(op.done)
		op.conn.Close()
	})
}
