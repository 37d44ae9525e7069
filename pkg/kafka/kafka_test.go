package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []kafka.Message
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type handlerFunc struct {
	topic string
	fn    func(context.Context, []byte) error
}

func (h handlerFunc) Topic() string { return h.topic }
func (h handlerFunc) Handle(ctx context.Context, data []byte) error { return h.fn(ctx, data) }

func newTestConsumer(t *testing.T, reader *fakeReader, dlq *fakeWriter, opts ...ConsumerOption) *Consumer {
	t.Helper()
	base := []ConsumerOption{
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
		WithConsumerRegisterer(prometheus.NewRegistry()),
	}
	c, err := NewConsumer(append(base, opts...)...)
	require.NoError(t, err)
	c.newReader = func(string) messageReader { return reader }
	if dlq != nil {
		c.cfg.DLQTopic = "requests.dlq"
		c.dlq = dlq
	}
	return c
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	reg := prometheus.NewRegistry()
	p := newProducer(w, "gzip", reg)

	err := p.Publish(context.Background(), "results", []byte("id-1"), map[string]int{"a": 1})
	require.NoError(t, err)

	msgs := w.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "results", msgs[0].Topic)
	assert.Equal(t, []byte("id-1"), msgs[0].Key)
	assert.JSONEq(t, `{"a":1}`, string(msgs[0].Value))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.messages.WithLabelValues("results", "gzip", "ok")))
}

func TestProducerPublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "gzip", prometheus.NewRegistry())

	err := p.PublishBatch(context.Background(), "results", []Message{{Value: "a"}, {Value: "b", Headers: map[string]string{"k": "v"}}})
	require.Error(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(p.metrics.messages.WithLabelValues("results", "gzip", "error")))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(WithProducerRegisterer(prometheus.NewRegistry()))
	assert.Error(t, err)
}

func TestConsumerProcessSuccessCommits(t *testing.T) {
	reader := newFakeReader()
	c := newTestConsumer(t, reader, nil)
	var got []byte
	c.RegisterHandler(handlerFunc{topic: "requests", fn: func(_ context.Context, b []byte) error {
		got = b
		return nil
	}})
	c.readers["requests"] = reader

	c.process(&message{topic: "requests", km: kafka.Message{Value: []byte("hello")}})
	assert.Equal(t, []byte("hello"), got)
	assert.Equal(t, 1, reader.commits())
}

func TestConsumerRetriesThenDLQ(t *testing.T) {
	reader := newFakeReader()
	dlq := &fakeWriter{}
	c := newTestConsumer(t, reader, dlq)
	var calls int32
	c.RegisterHandler(handlerFunc{topic: "requests", fn: func(context.Context, []byte) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("transient")
	}})
	c.readers["requests"] = reader

	c.process(&message{topic: "requests", km: kafka.Message{Value: []byte("x"), Partition: 2, Offset: 7}})

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	msgs := dlq.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "requests.dlq", msgs[0].Topic)
	headers := map[string]string{}
	for _, h := range msgs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "requests", headers["source_topic"])
	assert.Equal(t, "7", headers["source_offset"])
	assert.Equal(t, "transient", headers["error"])
	assert.Equal(t, 1, reader.commits())
}

func TestConsumerPermanentErrorSkipsRetry(t *testing.T) {
	reader := newFakeReader()
	dlq := &fakeWriter{}
	c := newTestConsumer(t, reader, dlq)
	var calls int32
	c.RegisterHandler(handlerFunc{topic: "requests", fn: func(context.Context, []byte) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(errors.New("bad payload"))
	}})
	c.readers["requests"] = reader

	c.process(&message{topic: "requests", km: kafka.Message{Value: []byte("x")}})
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Len(t, dlq.written(), 1)
}

func TestConsumerHandlerPanicIsContained(t *testing.T) {
	reader := newFakeReader()
	c := newTestConsumer(t, reader, nil)
	c.RegisterHandler(handlerFunc{topic: "requests", fn: func(context.Context, []byte) error {
		panic("boom")
	}})
	c.readers["requests"] = reader

	assert.NotPanics(t, func() {
		c.process(&message{topic: "requests", km: kafka.Message{Value: []byte("x")}})
	})
	assert.Equal(t, 0, reader.commits())
}

func TestConsumerStartStop(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Value: []byte("1"), Headers: []kafka.Header{{Key: "trace_id", Value: []byte("t-1")}}},
		kafka.Message{Value: []byte("2")},
		kafka.Message{Value: []byte("3")},
	)
	c := newTestConsumer(t, reader, nil, WithConsumerWorkers(2))
	c.WithConsumerHook(NewHookChain(TraceHook{}, LoggingHook{}))

	var handled int32
	var trace atomic.Value
	c.RegisterHandler(handlerFunc{topic: "requests", fn: func(ctx context.Context, b []byte) error {
		if id := TraceIDFrom(ctx); id != "" {
			trace.Store(id)
		}
		atomic.AddInt32(&handled, 1)
		return nil
	}})
	require.NoError(t, c.Start())

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&handled) == 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, 3, reader.commits())
	assert.Equal(t, "t-1", trace.Load())
}

func TestConsumerStartWithoutHandlers(t *testing.T) {
	c := newTestConsumer(t, newFakeReader(), nil)
	assert.Error(t, c.Start())
}

func TestHookChainRecoversPanics(t *testing.T) {
	chain := NewHookChain(HookFuncs{Before: func(ctx context.Context, _ string, km kafka.Message, d []byte) (context.Context, kafka.Message, []byte, error) {
		panic("hook")
	}})
	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}
