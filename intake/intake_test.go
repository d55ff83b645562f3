package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwdask/fwdask/confirm"
	"github.com/fwdask/fwdask/engine"
	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/logger"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deciderFunc func(ctx context.Context, f *flow.Flow) (engine.Decision, error)

func (fn deciderFunc) Decide(ctx context.Context, f *flow.Flow) (engine.Decision, error) {
	return fn(ctx, f)
}

func TestHandle(t *testing.T) {
	d := deciderFunc(func(ctx context.Context, f *flow.Flow) (engine.Decision, error) {
		assert.Equal(t, "10.0.0.1", f.NetSource)
		return engine.Decision{Verdict: engine.Forward, Fingerprint: "ab"}, nil
	})

	r := Handle(context.Background(), d, []byte(`{"ethType":2048,"srcMac":"00:00:00:00:00:01","srcIp":"10.0.0.1"}`))
	assert.Equal(t, Reply{Fingerprint: "ab", Verdict: engine.Forward}, r)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fingerprint":"ab","verdict":"forward"}`, string(b))
}

func TestHandleErrors(t *testing.T) {
	d := deciderFunc(func(ctx context.Context, f *flow.Flow) (engine.Decision, error) {
		return engine.Decision{}, engine.ErrConfirmationFailed
	})

	r := Handle(context.Background(), d, []byte(`not json`))
	assert.Equal(t, engine.Undetermined, r.Verdict)
	assert.Contains(t, r.Error, ErrInvalidFlow.Error())

	r = Handle(context.Background(), d, []byte(`{"ethType":2048}`))
	assert.Equal(t, engine.Undetermined, r.Verdict)
	assert.Equal(t, engine.ErrConfirmationFailed.Error(), r.Error)
}

func TestNATSHandleRateLimited(t *testing.T) {
	d := deciderFunc(func(ctx context.Context, f *flow.Flow) (engine.Decision, error) {
		return engine.Decision{Verdict: engine.Drop}, nil
	})
	s := NewNATSSubscriber("nats://127.0.0.1:4222", d,
		RateNATSOption(0.001, 1),
		TimeoutNATSOption(time.Second),
		LoggerNATSOption(logger.Nop()),
	)
	defer s.Close()

	r := s.handle([]byte(`{"ethType":2048}`))
	assert.Equal(t, engine.Drop, r.Verdict)

	r = s.handle([]byte(`{"ethType":2048}`))
	assert.Equal(t, engine.Undetermined, r.Verdict)
	assert.Equal(t, ErrRateLimited.Error(), r.Error)
}

func TestNATSSubscriberUnreachable(t *testing.T) {
	s := NewNATSSubscriber("nats://127.0.0.1:1", nil, LoggerNATSOption(logger.Nop()))
	assert.Error(t, s.Start())
	assert.NoError(t, s.Close())
}

func TestNATSSubscriberClose(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	d := deciderFunc(func(ctx context.Context, f *flow.Flow) (engine.Decision, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-ctx.Done()
		return engine.Decision{}, ctx.Err()
	})
	s := NewNATSSubscriber("nats://127.0.0.1:4222", d, LoggerNATSOption(logger.Nop()))

	s.onMessage(&nats.Msg{Data: []byte(`{"ethType":2048}`)})
	<-started

	done := make(chan struct{})
	go func() {
		assert.NoError(t, s.Close())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not cancel the pending request")
	}

	s.onMessage(&nats.Msg{Data: []byte(`{"ethType":2048}`)})
	assert.Equal(t, int32(1), calls.Load())
	assert.NoError(t, s.Close())
}

func TestNATSSubscriberCloseConcurrent(t *testing.T) {
	d := deciderFunc(func(ctx context.Context, f *flow.Flow) (engine.Decision, error) {
		return engine.Decision{Verdict: engine.Drop}, nil
	})
	s := NewNATSSubscriber("nats://127.0.0.1:4222", d, LoggerNATSOption(logger.Nop()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.onMessage(&nats.Msg{Data: []byte(`{"ethType":2048}`)})
			}
		}()
	}
	assert.NoError(t, s.Close())
	wg.Wait()
}

func writeCapture(t *testing.T, frames ...[]byte) *bytes.Buffer {
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, frame := range frames {
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}, frame))
	}
	return &buf
}

func TestReplay(t *testing.T) {
	var asked atomic.Int32
	e := engine.New(
		engine.EvaluatorsOption(evaluator.Constant(evaluator.Opinion{WantsFlow: true, Confidence: 90})),
		engine.ConfirmerOption(confirmFunc(func(ctx context.Context, f *flow.Flow, consensus *evaluator.Opinion) (confirm.Answer, error) {
			asked.Add(1)
			if f.NetDestination == "10.0.0.3" {
				return confirm.Drop, nil
			}
			return confirm.Forward, nil
		})),
		engine.LoggerOption(logger.Nop()),
	)
	defer e.Close()

	capture := writeCapture(t,
		tcpFrame(t, "10.0.0.1", "10.0.0.2", 40000, 80),
		tcpFrame(t, "10.0.0.1", "10.0.0.2", 40000, 80),
		tcpFrame(t, "10.0.0.1", "10.0.0.3", 40001, 443),
		arpFrame(t),
		tcpFrame(t, "10.0.0.1", "10.0.0.2", 40000, 80),
	)

	r := NewReplayer(e, WorkersReplayOption(2), LoggerReplayOption(logger.Nop()))
	stats, err := r.Replay(context.Background(), capture)
	require.NoError(t, err)

	assert.EqualValues(t, 5, stats.Packets)
	assert.EqualValues(t, 0, stats.Skipped)
	assert.EqualValues(t, 4, stats.Forward)
	assert.EqualValues(t, 1, stats.Drop)
	assert.EqualValues(t, 0, stats.Failed)
	assert.EqualValues(t, 2, asked.Load())
	assert.Len(t, e.Decisions(), 2)
}

func TestReplayFailures(t *testing.T) {
	d := deciderFunc(func(ctx context.Context, f *flow.Flow) (engine.Decision, error) {
		return engine.Decision{}, errors.New("operator unreachable")
	})
	capture := writeCapture(t,
		tcpFrame(t, "10.0.0.1", "10.0.0.2", 40000, 80),
		[]byte{0x00},
	)

	r := NewReplayer(d, RateReplayOption(1000, 10), LoggerReplayOption(logger.Nop()))
	stats, err := r.Replay(context.Background(), capture)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Packets)
	assert.EqualValues(t, 1, stats.Skipped)
	assert.EqualValues(t, 1, stats.Failed)
}

func TestReplayInvalidCapture(t *testing.T) {
	r := NewReplayer(nil)
	_, err := r.Replay(context.Background(), bytes.NewReader([]byte("not a pcap file")))
	assert.Error(t, err)
}

type confirmFunc func(ctx context.Context, f *flow.Flow, consensus *evaluator.Opinion) (confirm.Answer, error)

func (fn confirmFunc) Ask(ctx context.Context, f *flow.Flow, consensus *evaluator.Opinion) (confirm.Answer, error) {
	return fn(ctx, f, consensus)
}
