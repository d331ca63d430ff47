package status

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(evt Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recorder) codes() []Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Code, len(r.events))
	for i, e := range r.events {
		out[i] = e.Code
	}
	return out
}

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	other := b.Subscribe("r2")

	b.Publish(Event{RunID: "r1", Code: Running, Message: "loop 1"})

	select {
	case got := <-ch:
		require.Equal(t, Running, got.Code)
		require.Equal(t, "loop 1", got.Message)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	require.Len(t, other, 0)

	b.Unsubscribe("r1", ch)
	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
	b.Unsubscribe("r2", other)
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	for i := 0; i < 20; i++ {
		b.Publish(Event{RunID: "r1", Code: Running})
	}
	require.Len(t, ch, cap(ch))
	b.Unsubscribe("r1", ch)
}

func TestBrokerSubscribeBuffered(t *testing.T) {
	b := NewBroker()
	ch := b.SubscribeBuffered(AllRuns, 64)
	for i := 0; i < 20; i++ {
		b.Publish(Event{RunID: "r1", Code: Running})
	}
	require.Len(t, ch, 20)
	b.Unsubscribe(AllRuns, ch)
}

func TestBrokerAllRuns(t *testing.T) {
	b := NewBroker()
	all := b.Subscribe(AllRuns)
	b.Publish(Event{RunID: "r1", Code: Running})
	b.Publish(Event{RunID: "r2", Code: Finished})

	require.Len(t, all, 2)
	require.Equal(t, "r1", (<-all).RunID)
	require.Equal(t, "r2", (<-all).RunID)
	b.Unsubscribe(AllRuns, all)
}

func TestReporterTagsRun(t *testing.T) {
	rec := &recorder{}
	r := NewReporter(rec, "run-7")
	r.Send(Finished, "ils", "done", 12.5)

	require.Len(t, rec.events, 1)
	require.Equal(t, "run-7", rec.events[0].RunID)
	require.Equal(t, "ils", rec.events[0].Stage)
	require.Equal(t, 12.5, rec.events[0].Fitness)
	require.False(t, rec.events[0].At.IsZero())

	var nilReporter *Reporter
	require.NotPanics(t, func() { nilReporter.Send(Running, "", "", 0) })
	require.Nil(t, NewReporter(nil, "x"))
}

func TestThrottledDropsExcessRunning(t *testing.T) {
	rec := &recorder{}
	th := NewThrottled(rec, 0.001, 2)
	for i := 0; i < 5; i++ {
		th.Publish(Event{Code: Running})
	}
	th.Publish(Event{Code: Exception})
	th.Publish(Event{Code: Finished})

	require.Equal(t, []Code{Running, Running, Exception, Finished}, rec.codes())
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b}.Publish(Event{Code: Abort})
	require.Equal(t, []Code{Abort}, a.codes())
	require.Equal(t, []Code{Abort}, b.codes())
}

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	s := LogSink{Logger: zerolog.New(&buf)}
	s.Publish(Event{RunID: "r1", Code: Exception, Stage: "savings", Message: "skipped"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "r1", line["run"])
	require.Equal(t, "savings", line["stage"])
	require.Equal(t, "skipped", line["message"])
}

func TestRedisSinkPublishesToSubscribers(t *testing.T) {
	mr := miniredis.RunT(t)
	sink, err := NewRedisSink("redis://"+mr.Addr(), zerolog.Nop())
	require.NoError(t, err)
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := sink.Subscribe(ctx, "r1")
	require.NoError(t, err)

	sink.Publish(Event{RunID: "r1", Code: Finished, Message: "done", Fitness: 3})

	select {
	case got := <-ch:
		require.Equal(t, Finished, got.Code)
		require.Equal(t, "done", got.Message)
		require.Equal(t, 3.0, got.Fitness)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}
}

func TestRedisSinkRejectsBadURL(t *testing.T) {
	_, err := NewRedisSink("not a url", zerolog.Nop())
	require.Error(t, err)
}
