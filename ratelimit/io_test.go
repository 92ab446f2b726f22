package ratelimit_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-async/fake"
	"github.com/momentics/hioload-async/ratelimit"
	"github.com/momentics/hioload-async/task"
)

// A short read must gate on the bytes actually returned, not on the
// requested maximum: charging 3 tokens against a 100/s bucket delays the
// completion by 30ms, not by the 640ms a full buffer would cost.
func TestLimitedReaderChargesActualBytes(t *testing.T) {
	l, fs := newLimiter(t, time.Second, 100, 100)
	r := ratelimit.NewLimitedReader(fake.NewReader([]byte("abc")), l)

	tk := task.New()
	tk.Start()
	buf := make([]byte, 64)
	r.Read(tk, buf, 1, nil)

	require.False(t, tk.IsFinished(), "unprimed bank cannot grant yet")
	fs.Advance(30 * time.Millisecond)
	require.True(t, tk.IsFinished())
	res := tk.Result()
	require.NoError(t, res.Err)
	require.Equal(t, 3, res.Int())
	require.Equal(t, []byte("abc"), buf[:3])
	require.Equal(t, 0, tk.LiveSubtasks())
}

func TestLimitedReaderForwardsInnerFailure(t *testing.T) {
	l, _ := newLimiter(t, time.Second, 100, 100)
	r := ratelimit.NewLimitedReader(fake.NewReader(), l) // empty script: EOF

	tk := task.New()
	tk.Start()
	r.Read(tk, make([]byte, 16), 1, nil)

	require.True(t, tk.IsFinished())
	require.ErrorIs(t, tk.Result().Err, io.EOF)
	require.Equal(t, 0, l.Queued(), "failed reads must not be charged")
}

func TestLimitedWriterChargesAcceptedBytes(t *testing.T) {
	l, fs := newLimiter(t, time.Second, 100, 100)
	sink := fake.NewWriter(4)
	w := ratelimit.NewLimitedWriter(sink, l)

	tk := task.New()
	tk.Start()
	w.Write(tk, []byte("0123456789"), nil)

	require.False(t, tk.IsFinished())
	fs.Advance(40 * time.Millisecond) // 4 tokens, the accepted count
	require.True(t, tk.IsFinished())
	require.NoError(t, tk.Result().Err)
	require.Equal(t, 4, tk.Result().Int())
	require.Equal(t, []byte("0123"), sink.Written())
}

func TestLimitedWriterForwardsGateFailure(t *testing.T) {
	errBoom := errors.New("boom")
	l, fs := newLimiter(t, time.Second, 10, 10)
	fs.FailFireAt(errBoom)
	w := ratelimit.NewLimitedWriter(fake.NewWriter(0), l)

	tk := task.New()
	tk.Start()
	w.Write(tk, []byte("payload"), nil)

	require.True(t, tk.IsFinished())
	require.ErrorIs(t, tk.Result().Err, errBoom)
}

// Cancelling the caller while a decorated write is in flight must settle its
// task exactly once, whichever side wins the race.
func TestCancelRacingLimitedWrite(t *testing.T) {
	l, fs := newLimiter(t, time.Second, 1000, 1000)
	require.NoError(t, l.GateSync(0, nil).Err)
	fs.Advance(time.Second) // bank a full burst so grants land inline
	w := ratelimit.NewLimitedWriter(fake.NewWriter(0), l)

	for i := 0; i < 200; i++ {
		tk := task.New()
		tk.Start()
		done := make(chan struct{})
		go func() {
			tk.Cancel()
			close(done)
		}()
		w.Write(tk, []byte("x"), nil)
		<-done
		res := tk.Wait()
		if res.Err != nil {
			require.True(t, res.IsCancelled(), "iteration %d: %v", i, res.Err)
		}
	}
	require.Equal(t, 0, l.Queued())
}
