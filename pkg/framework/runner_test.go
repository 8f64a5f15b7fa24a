package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunnerStopsOthers(t *testing.T) {
	errStop := errors.New("stopped")
	r := NewRunner().Go(
		NamedRun("blocker", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		RunFunc(func(ctx context.Context) error {
			return errStop
		}),
	)
	err := r.Wait()
	require.Error(t, err)
	aggr, ok := err.(*AggregatedError)
	require.True(t, ok)
	require.Equal(t, []error{errStop}, aggr.Errors)
}

func TestRunnerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	cancel()
	require.NoError(t, r.Wait())
}

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	closed := 0
	closer := closerFunc(func() error {
		closed++
		close(unblock)
		return nil
	})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-unblock
		return errors.New("read on closed port")
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, closed)

	closed = 0
	unblock = make(chan struct{})
	err = RunWithContextCloser(context.Background(), closer, func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, closed)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errA := errors.New("a")
	errs.Add(errA)
	require.EqualError(t, errs.Aggregate(), "a")
	errs.Add(nil, errors.New("b"))
	err := errs.Aggregate()
	require.EqualError(t, err, "2 errors: a; b")
	require.True(t, errors.Is(err, errA))
}
