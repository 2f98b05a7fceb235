package api

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRoutine_StepsAwaitsAndResult(t *testing.T) {
	w := stubWidget{id: "w"}
	var got Value
	r := NewRoutine(func(y *Yielder) error {
		if err := y.Step(w); err != nil {
			return err
		}
		v, err := y.Await(context.Background(), func(ctx context.Context) (Value, error) {
			return 42.0, nil
		})
		got = v
		return err
	})

	var kinds []CheckpointKind
	for cp, err := range r {
		require.NoError(t, err)
		kinds = append(kinds, cp.Kind)
		if cp.Kind == CheckpointAwait {
			<-cp.Pending.Done()
		}
	}
	require.Equal(t, []CheckpointKind{CheckpointStep, CheckpointAwait}, kinds)
	require.Equal(t, 42.0, got)
}

func TestNewRoutine_ErrorIsFinalElement(t *testing.T) {
	boom := errors.New("boom")
	r := NewRoutine(func(y *Yielder) error {
		if err := y.Step(stubWidget{id: "w"}); err != nil {
			return err
		}
		return boom
	})

	var errs []error
	for _, err := range r {
		errs = append(errs, err)
	}
	require.Equal(t, []error{nil, boom}, errs)
}

func TestYielder_HaltsWhenConsumerStops(t *testing.T) {
	var after error
	var halted bool
	r := NewRoutine(func(y *Yielder) error {
		_ = y.Step(stubWidget{id: "a"})
		after = y.Step(stubWidget{id: "b"})
		halted = y.Halted()
		return after
	})

	next, stop := iter.Pull2(r)
	_, _, ok := next()
	require.True(t, ok)
	stop()

	require.ErrorIs(t, after, ErrHalted)
	require.True(t, halted)
}

func TestYielder_DelegateForwardsInOrder(t *testing.T) {
	inner := NewRoutine(func(y *Yielder) error {
		if err := y.Step(stubWidget{id: "b"}); err != nil {
			return err
		}
		return y.Step(stubWidget{id: "c"})
	})
	outer := NewRoutine(func(y *Yielder) error {
		if err := y.Step(stubWidget{id: "a"}); err != nil {
			return err
		}
		if err := y.Delegate(inner); err != nil {
			return err
		}
		return y.Step(stubWidget{id: "d"})
	})

	var ids []string
	for cp, err := range outer {
		require.NoError(t, err)
		ids = append(ids, cp.Widget.ID())
	}
	require.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestYielder_DelegateStopsOnInnerError(t *testing.T) {
	boom := errors.New("boom")
	outer := NewRoutine(func(y *Yielder) error {
		if err := y.Delegate(NewRoutine(func(*Yielder) error { return boom })); err != nil {
			return err
		}
		return y.Step(stubWidget{id: "never"})
	})
	require.ErrorIs(t, Drain(context.Background(), outer), boom)
}

func TestDrain_HonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := NewRoutine(func(y *Yielder) error {
		_, err := y.Await(context.Background(), func(ctx context.Context) (Value, error) {
			<-block
			return nil, nil
		})
		return err
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, Drain(ctx, r), context.DeadlineExceeded)
	require.NoError(t, Drain(context.Background(), EmptyRoutine()))
}

func TestPending_SettlesOnce(t *testing.T) {
	p := StartPending(context.Background(), func(ctx context.Context) (Value, error) {
		return "ok", nil
	})
	v, err := p.Result()
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.True(t, p.Settled())

	boom := errors.New("boom")
	r := Resolved(nil, boom)
	require.True(t, r.Settled())
	_, err = r.Result()
	require.ErrorIs(t, err, boom)
}

func TestCheckpointKind_String(t *testing.T) {
	require.Equal(t, "step", CheckpointStep.String())
	require.Equal(t, "await", CheckpointAwait.String())
	require.Equal(t, "unknown", CheckpointKind(0).String())
}
