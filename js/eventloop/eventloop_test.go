package eventloop

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/grafana/sobek"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// Every task spawns a goroutine; none of them may outlive the tests, not
// even when Run bails out before their completions are delivered.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLoop(t *testing.T) (*sobek.Runtime, *EventLoop) {
	t.Helper()
	rt := sobek.New()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return rt, New(rt, logger, 0)
}

func TestResolve(t *testing.T) {
	t.Parallel()
	rt, loop := newTestLoop(t)

	promise := loop.NewTask(func() Outcome {
		return Resolve(StringValue([]byte("resolved")))
	})
	require.NoError(t, rt.Set("promise", promise))
	_, err := rt.RunString(`
		var result;
		promise.then(
			res => { result = res },
			err => { throw "unexpected rejection: " + err },
		)
	`)
	require.NoError(t, err)

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, "resolved", rt.Get("result").String())
	assert.Zero(t, loop.pendingCount())
}

func TestReject(t *testing.T) {
	t.Parallel()
	rt, loop := newTestLoop(t)

	promise := loop.NewTask(func() Outcome {
		return Reject(StringValue([]byte("rejected")))
	})
	require.NoError(t, rt.Set("promise", promise))
	_, err := rt.RunString(`
		var reason;
		promise.then(
			res => { throw "unexpected resolution: " + res },
			err => { reason = err },
		)
	`)
	require.NoError(t, err)

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, "rejected", rt.Get("reason").String())
	assert.Zero(t, loop.pendingCount())
}

// Settlements happen in completion order, not creation order, and the
// continuations of one settlement run to completion (microtasks included)
// before the next message is dequeued.
func TestSettlementOrder(t *testing.T) {
	t.Parallel()
	rt, loop := newTestLoop(t)

	gateA := make(chan struct{})
	gateB := make(chan struct{})
	promiseA := loop.NewTask(func() Outcome {
		<-gateA
		return Resolve(NumberValue(1))
	})
	promiseB := loop.NewTask(func() Outcome {
		<-gateB
		return Resolve(NumberValue(2))
	})
	require.NoError(t, rt.Set("pA", promiseA))
	require.NoError(t, rt.Set("pB", promiseB))
	_, err := rt.RunString(`
		const order = [];
		pA.then(() => { order.push("a") });
		pB.then(() => {
			order.push("b");
			Promise.resolve().then(() => order.push("b-microtask"));
		});
	`)
	require.NoError(t, err)

	// B completes first even though A was created first.
	close(gateB)
	require.Eventually(t, func() bool { return len(loop.completions) == 1 },
		time.Second, time.Millisecond)
	close(gateA)

	require.NoError(t, loop.Run(context.Background()))

	v, err := rt.RunString(`JSON.stringify(order)`)
	require.NoError(t, err)
	assert.Equal(t, `["b","b-microtask","a"]`, v.String())
}

// Tasks created from within a settlement continuation keep the loop alive.
func TestTaskChaining(t *testing.T) {
	t.Parallel()
	rt, loop := newTestLoop(t)

	first := loop.NewTask(func() Outcome {
		return Resolve(NumberValue(1))
	})
	require.NoError(t, rt.Set("first", first))
	require.NoError(t, rt.Set("nextTask", func() *sobek.Promise {
		return loop.NewTask(func() Outcome {
			return Resolve(NumberValue(2))
		})
	}))
	_, err := rt.RunString(`
		const seen = [];
		first.then(n => {
			seen.push(n);
			return nextTask();
		}).then(n => { seen.push(n) });
	`)
	require.NoError(t, err)

	require.NoError(t, loop.Run(context.Background()))

	v, err := rt.RunString(`JSON.stringify(seen)`)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, v.String())
	assert.Zero(t, loop.pendingCount())
}

func TestTaskPanicBecomesRejection(t *testing.T) {
	t.Parallel()
	rt, loop := newTestLoop(t)

	promise := loop.NewTask(func() Outcome {
		panic("boom")
	})
	require.NoError(t, rt.Set("promise", promise))
	_, err := rt.RunString(`
		var reason;
		promise.catch(err => { reason = err });
	`)
	require.NoError(t, err)

	require.NoError(t, loop.Run(context.Background()))
	assert.Contains(t, rt.Get("reason").String(), "task panicked")
	assert.Contains(t, rt.Get("reason").String(), "boom")
}

func TestRunWithoutTasks(t *testing.T) {
	t.Parallel()
	_, loop := newTestLoop(t)
	require.NoError(t, loop.Run(context.Background()))
}

func TestRunContextCanceled(t *testing.T) {
	t.Parallel()
	rt := sobek.New()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	// A single-slot queue so that completions arriving after Run has bailed
	// out cannot all fit in the channel buffer.
	loop := New(rt, logger, 1)

	gate := make(chan struct{})
	for i := 0; i < 3; i++ {
		loop.NewTask(func() Outcome {
			<-gate
			return Resolve(Undefined())
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, loop.Run(ctx), context.DeadlineExceeded)

	// The tasks finish only after Run has stopped consuming; their
	// goroutines must drop the undeliverable completions and exit
	// (verified by the goleak TestMain).
	close(gate)
}
