//go:build linux

package loop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK))
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0], p[1]
}

func TestReadableDispatch(t *testing.T) {
	lp, err := New()
	require.NoError(t, err)
	defer lp.Close()

	r, w := newPipe(t)

	var got []byte
	require.NoError(t, lp.Register(r, Readable, func(m Mask) error {
		assert.True(t, m&Readable != 0)
		buf := make([]byte, 16)
		n, err := unix.Read(r, buf)
		if err != nil {
			return err
		}
		got = append(got, buf[:n]...)
		lp.Stop(nil)
		return nil
	}))

	_, err = unix.Write(w, []byte("ping"))
	require.NoError(t, err)

	require.NoError(t, lp.Run())
	assert.Equal(t, []byte("ping"), got)
}

func TestHandlerErrorTerminatesRun(t *testing.T) {
	lp, err := New()
	require.NoError(t, err)
	defer lp.Close()

	r, w := newPipe(t)
	boom := errors.New("boom")

	require.NoError(t, lp.Register(r, Readable, func(Mask) error {
		return boom
	}))

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	assert.ErrorIs(t, lp.Run(), boom)
}

func TestDeregisterAllEndsRun(t *testing.T) {
	lp, err := New()
	require.NoError(t, err)
	defer lp.Close()

	r, w := newPipe(t)
	require.NoError(t, lp.Register(r, Readable, func(Mask) error {
		return lp.Deregister(r)
	}))

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	// The handler deregisters the last fd; Run returns cleanly.
	assert.NoError(t, lp.Run())
}

func TestModifyMask(t *testing.T) {
	lp, err := New()
	require.NoError(t, err)
	defer lp.Close()

	r, w := newPipe(t)

	writableSeen := false
	require.NoError(t, lp.Register(w, 0, func(m Mask) error {
		writableSeen = m&Writable != 0
		lp.Stop(nil)
		return nil
	}))
	_ = r

	// No interest yet; enable writability and expect a dispatch.
	require.NoError(t, lp.Modify(w, Writable))
	require.NoError(t, lp.Run())
	assert.True(t, writableSeen)
}

func TestOnTurnRunsAfterDispatch(t *testing.T) {
	lp, err := New()
	require.NoError(t, err)
	defer lp.Close()

	r, w := newPipe(t)
	turns := 0
	lp.OnTurn(func() { turns++ })

	require.NoError(t, lp.Register(r, Readable, func(Mask) error {
		buf := make([]byte, 4)
		_, _ = unix.Read(r, buf)
		lp.Stop(nil)
		return nil
	}))

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	require.NoError(t, lp.Run())
	// One turn before the first wait, one after the dispatch batch.
	assert.GreaterOrEqual(t, turns, 2)
}

func TestHupReported(t *testing.T) {
	lp, err := New()
	require.NoError(t, err)
	defer lp.Close()

	r, w := newPipe(t)

	var seen Mask
	require.NoError(t, lp.Register(r, Readable, func(m Mask) error {
		seen = m
		lp.Stop(nil)
		return nil
	}))

	require.NoError(t, unix.Close(w))

	require.NoError(t, lp.Run())
	assert.True(t, seen&Hup != 0)
}
