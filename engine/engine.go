// Package engine decides whether a newly seen flow is forwarded or dropped.
//
// A flow is filtered by ether-type, looked up in the decision cache, judged by
// the evaluators, and finally confirmed by a human operator. The confirmed
// verdict is recorded and cached so the same flow is never asked about twice.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fwdask/fwdask/cache"
	"github.com/fwdask/fwdask/confirm"
	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/metrics"
	"github.com/fwdask/fwdask/recorder"
	"github.com/fwdask/fwdask/store"
	"github.com/google/gopacket/layers"
	"golang.org/x/sync/singleflight"
)

var (
	ErrConfirmationFailed = errors.New("engine: confirmation failed")
	ErrEngineClosed       = errors.New("engine: closed")
)

var (
	DefaultExemptEthTypes = []int{int(layers.EthernetTypeARP)}
)

type options struct {
	evaluators     []evaluator.Evaluator
	store          store.Store
	confirmer      confirm.Confirmer
	cache          *cache.DecisionCache[Decision]
	exemptEthTypes []int
	confirmTimeout time.Duration
	recorders      []recorder.Recorder
	logger         logger.Logger
}

type Option func(opts *options)

// EvaluatorsOption sets the evaluators in the order they are consulted.
func EvaluatorsOption(evaluators ...evaluator.Evaluator) Option {
	return func(opts *options) {
		opts.evaluators = evaluators
	}
}

func StoreOption(s store.Store) Option {
	return func(opts *options) {
		opts.store = s
	}
}

func ConfirmerOption(c confirm.Confirmer) Option {
	return func(opts *options) {
		opts.confirmer = c
	}
}

func CacheOption(c *cache.DecisionCache[Decision]) Option {
	return func(opts *options) {
		opts.cache = c
	}
}

// ExemptEthTypesOption replaces the ether-types that bypass the engine.
func ExemptEthTypesOption(ethTypes ...int) Option {
	return func(opts *options) {
		opts.exemptEthTypes = ethTypes
	}
}

// ConfirmTimeoutOption bounds how long a confirmation may take. Zero waits indefinitely.
func ConfirmTimeoutOption(timeout time.Duration) Option {
	return func(opts *options) {
		opts.confirmTimeout = timeout
	}
}

func RecordersOption(recorders ...recorder.Recorder) Option {
	return func(opts *options) {
		opts.recorders = recorders
	}
}

func LoggerOption(logger logger.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

type namedEvaluator struct {
	name string
	evaluator.Evaluator
}

type Engine struct {
	evaluators    []namedEvaluator
	store         store.Store
	confirmer     confirm.Confirmer
	confirmerName string
	cache         *cache.DecisionCache[Decision]
	exempt        map[int]struct{}
	recorders     []recorder.Recorder
	group         singleflight.Group
	ctx           context.Context
	cancel        context.CancelFunc
	closeOnce     sync.Once
	options       options
	logger        logger.Logger
}

// New creates an engine. Without a store the flows are kept in memory,
// and without a confirmer the consensus is followed automatically.
func New(opts ...Option) *Engine {
	options := options{
		exemptEthTypes: DefaultExemptEthTypes,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.logger == nil {
		options.logger = logger.Default().WithFields(map[string]any{
			"kind": "engine",
		})
	}
	if options.store == nil {
		options.store = store.NewMemoryStore()
	}
	if options.confirmer == nil {
		options.confirmer = confirm.NewAutoConfirmer()
	}
	if options.cache == nil {
		options.cache = cache.NewDecisionCache[Decision]()
	}

	e := &Engine{
		store:         options.store,
		confirmer:     options.confirmer,
		confirmerName: nameOf(options.confirmer),
		cache:         options.cache,
		exempt:        make(map[int]struct{}),
		recorders:     append([]recorder.Recorder(nil), options.recorders...),
		options:       options,
		logger:        options.logger,
	}
	for i, ev := range options.evaluators {
		if ev == nil {
			continue
		}
		name := nameOf(ev)
		if _, ok := ev.(interface{ Name() string }); !ok {
			name += "#" + strconv.Itoa(i)
		}
		e.evaluators = append(e.evaluators, namedEvaluator{name: name, Evaluator: ev})
	}
	for _, t := range options.exemptEthTypes {
		e.exempt[t] = struct{}{}
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	return e
}

// IsExempt reports whether the flow bypasses evaluation and confirmation.
// Exempt flows are forwarded.
func (e *Engine) IsExempt(f *flow.Flow) bool {
	_, ok := e.exempt[f.EthType]
	return ok
}

// PreviousDecision returns the cached decision for the flow, if any.
func (e *Engine) PreviousDecision(f *flow.Flow) (Decision, bool, error) {
	fp, err := flow.Fingerprint(f)
	if err != nil {
		return Decision{}, false, err
	}
	d, ok := e.Lookup(fp)
	return d, ok, nil
}

func (e *Engine) Lookup(fingerprint string) (Decision, bool) {
	return e.cache.Lookup(fingerprint)
}

// Decisions returns a snapshot of all cached decisions keyed by fingerprint.
func (e *Engine) Decisions() map[string]Decision {
	return e.cache.Items()
}

// Evaluators returns the evaluator names in consultation order.
func (e *Engine) Evaluators() []string {
	names := make([]string, 0, len(e.evaluators))
	for _, ev := range e.evaluators {
		names = append(names, ev.name)
	}
	return names
}

// Reader returns the flow-record store as seen by the evaluators.
func (e *Engine) Reader() store.Reader {
	return e.store
}

// Decide returns the verdict for f. A flow seen before gets its cached
// decision without any side effect. Otherwise the evaluators are consulted
// and the operator is asked; concurrent calls for the same flow share one
// confirmation. A caller may stop waiting through ctx, the confirmation
// itself only ends with its own timeout or Close.
func (e *Engine) Decide(ctx context.Context, f *flow.Flow) (Decision, error) {
	if e.ctx.Err() != nil {
		return Decision{}, ErrEngineClosed
	}

	if e.IsExempt(f) {
		return Decision{
			Verdict:   Forward,
			DecidedAt: time.Now(),
		}, nil
	}

	fp, err := flow.Fingerprint(f)
	if err != nil {
		return Decision{}, err
	}

	if d, ok := e.cache.Lookup(fp); ok {
		metrics.GetCounter(metrics.MetricCacheHitsCounter, nil).Inc()
		return d, nil
	}

	ch := e.group.DoChan(fp, func() (any, error) {
		return e.decide(fp, f)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return Decision{}, r.Err
		}
		return r.Val.(Decision), nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

func (e *Engine) decide(fp string, f *flow.Flow) (Decision, error) {
	if d, ok := e.cache.Lookup(fp); ok {
		return d, nil
	}

	gauge := metrics.GetGauge(metrics.MetricDecisionsInFlightGauge, nil)
	gauge.Inc()
	defer gauge.Dec()

	log := e.logger.WithFields(map[string]any{
		"fingerprint": fp,
	})
	start := time.Now()

	opinions := e.evaluate(f, log)
	var consensus *evaluator.Opinion
	if o, ok := evaluator.Aggregate(opinions); ok {
		consensus = &o
		log.Debugf("consensus: %s", o)
	} else {
		log.Debugf("no consensus")
	}

	answer, err := e.confirm(f, consensus)
	if err != nil {
		metrics.GetCounter(metrics.MetricConfirmErrorsCounter, metrics.Labels{
			"confirmer": e.confirmerName,
		}).Inc()
		log.Error(err)
		return Decision{}, fmt.Errorf("%w: %w", ErrConfirmationFailed, err)
	}
	if e.ctx.Err() != nil {
		return Decision{}, ErrEngineClosed
	}

	d := Decision{
		Verdict:     Drop,
		Fingerprint: fp,
		DecidedAt:   time.Now(),
	}
	if answer == confirm.Forward {
		d.Verdict = Forward
	}

	if err := e.store.Insert(e.ctx, f); err != nil {
		if !errors.Is(err, store.ErrStoreWriteFailed) {
			err = fmt.Errorf("%w: %w", store.ErrStoreWriteFailed, err)
		}
		d.StoreErr = err
		metrics.GetCounter(metrics.MetricStoreErrorsCounter, metrics.Labels{
			"store": nameOf(e.store),
		}).Inc()
		log.Warn(err)
	}

	e.cache.Put(fp, d)
	metrics.GetCounter(metrics.MetricDecisionsCounter, metrics.Labels{
		"verdict": d.Verdict.String(),
	}).Inc()
	log.Infof("%s: %s", d.Verdict, strings.ReplaceAll(strings.TrimSpace(f.String()), "\n", ", "))

	e.record(f, d, consensus, opinions, time.Since(start), log)

	return d, nil
}

func (e *Engine) evaluate(f *flow.Flow, log logger.Logger) []evaluator.Opinion {
	opinions := make([]evaluator.Opinion, 0, len(e.evaluators))
	for _, ev := range e.evaluators {
		start := time.Now()
		o := ev.Opine(e.ctx, f, e.store)
		metrics.GetObserver(metrics.MetricEvaluatorDurationObserver, metrics.Labels{
			"evaluator": ev.name,
		}).Observe(time.Since(start).Seconds())

		if _, err := evaluator.NewOpinion(o.WantsFlow, o.Confidence); err != nil {
			log.Warnf("evaluator %s: %v, opinion ignored", ev.name, err)
			continue
		}
		if log.IsLevelEnabled(logger.DebugLevel) {
			log.Debugf("evaluator %s: %s", ev.name, o)
		}
		opinions = append(opinions, o)
	}
	return opinions
}

func (e *Engine) confirm(f *flow.Flow, consensus *evaluator.Opinion) (confirm.Answer, error) {
	ctx := e.ctx
	if e.options.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.options.confirmTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		metrics.GetObserver(metrics.MetricConfirmDurationObserver, metrics.Labels{
			"confirmer": e.confirmerName,
		}).Observe(time.Since(start).Seconds())
	}()

	return e.confirmer.Ask(ctx, f, consensus)
}

func (e *Engine) record(f *flow.Flow, d Decision, consensus *evaluator.Opinion, opinions []evaluator.Opinion, duration time.Duration, log logger.Logger) {
	if len(e.recorders) == 0 {
		return
	}

	rec := recorder.NewDecisionRecord(d.Fingerprint, d.Verdict.String(), f)
	rec.Consensus = consensus
	rec.Opinions = opinions
	rec.Duration = duration
	rec.Time = d.DecidedAt
	if d.StoreErr != nil {
		rec.StoreErr = d.StoreErr.Error()
	}

	for _, r := range e.recorders {
		if err := rec.Record(e.ctx, r); err != nil {
			log.Warnf("record: %v", err)
		}
	}
}

// Close stops the engine. Pending confirmations are cancelled and later
// calls to Decide fail with ErrEngineClosed.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.cancel()
	})
	return nil
}

func nameOf(v any) string {
	if n, ok := v.(interface{ Name() string }); ok {
		return n.Name()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}
