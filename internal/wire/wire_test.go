//go:build linux

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/rillwm/rill/internal/fixed"
)

// roundTrip serializes one message with the formatter and frames it back
// through an InBuffer.
func roundTrip(t *testing.T, objectID uint32, opcode uint16, build func(*Formatter)) (Header, []byte) {
	t.Helper()

	var out OutBuffer
	f := NewFormatter(&out, objectID, opcode)
	if build != nil {
		build(f)
	}
	require.NoError(t, f.End())

	var in InBuffer
	in.Append(out.Bytes())
	h, payload, err := in.Next()
	require.NoError(t, err)
	return h, payload
}

func TestHeaderFraming(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		h, payload := roundTrip(t, 42, 7, func(f *Formatter) {
			f.PutUint(1)
		})
		assert.Equal(t, uint32(42), h.ObjectID)
		assert.Equal(t, uint16(7), h.Opcode)
		assert.Equal(t, uint16(12), h.Size)
		assert.Len(t, payload, 4)
	})

	t.Run("ShortHeader", func(t *testing.T) {
		var in InBuffer
		in.Append([]byte{1, 0, 0})
		_, _, err := in.Next()
		assert.ErrorIs(t, err, ErrShortBuffer)
	})

	t.Run("IncompleteBody", func(t *testing.T) {
		var out OutBuffer
		f := NewFormatter(&out, 1, 0)
		f.PutUint(9)
		require.NoError(t, f.End())

		var in InBuffer
		in.Append(out.Bytes()[:10])
		_, _, err := in.Next()
		assert.ErrorIs(t, err, ErrShortBuffer)

		// The remainder completes the message.
		in.Append(out.Bytes()[10:])
		h, _, err := in.Next()
		require.NoError(t, err)
		assert.Equal(t, uint32(1), h.ObjectID)
	})

	t.Run("SizeBelowHeader", func(t *testing.T) {
		_, err := ParseHeader([]byte{1, 0, 0, 0, 0, 0, 4, 0})
		assert.Error(t, err)
	})

	t.Run("UnalignedSize", func(t *testing.T) {
		_, err := ParseHeader([]byte{1, 0, 0, 0, 0, 0, 10, 0})
		assert.Error(t, err)
	})
}

func TestArgRoundTrip(t *testing.T) {
	t.Run("Words", func(t *testing.T) {
		_, payload := roundTrip(t, 1, 0, func(f *Formatter) {
			f.PutUint(0xdeadbeef)
			f.PutInt(-17)
			f.PutFixed(fixed.FromFloat(2.5))
		})

		args, err := ParseArgs([]ArgKind{Uint, Int, FixedArg}, payload, &FdQueue{})
		require.NoError(t, err)
		assert.Equal(t, uint32(0xdeadbeef), args[0].U)
		assert.Equal(t, int32(-17), args[1].I)
		assert.Equal(t, 2.5, args[2].F.Float())
	})

	t.Run("Strings", func(t *testing.T) {
		for _, s := range []string{"a", "abc", "abcd", "text/plain;charset=utf-8"} {
			_, payload := roundTrip(t, 1, 0, func(f *Formatter) {
				f.PutString(s)
			})
			require.Equal(t, 0, len(payload)%4)

			args, err := ParseArgs([]ArgKind{String}, payload, &FdQueue{})
			require.NoError(t, err)
			assert.Equal(t, s, args[0].S)
		}
	})

	t.Run("OptionalStringAbsent", func(t *testing.T) {
		_, payload := roundTrip(t, 1, 0, func(f *Formatter) {
			f.PutOptString(nil)
		})
		args, err := ParseArgs([]ArgKind{OptString}, payload, &FdQueue{})
		require.NoError(t, err)
		assert.True(t, args[0].SNil)
	})

	t.Run("Array", func(t *testing.T) {
		data := []byte{1, 2, 3, 4, 5}
		_, payload := roundTrip(t, 1, 0, func(f *Formatter) {
			f.PutArray(data)
		})
		args, err := ParseArgs([]ArgKind{Array}, payload, &FdQueue{})
		require.NoError(t, err)
		assert.Equal(t, data, args[0].Bytes)
	})

	t.Run("StringOverrunsPayload", func(t *testing.T) {
		var out OutBuffer
		f := NewFormatter(&out, 1, 0)
		f.PutUint(1000) // declared length far beyond the payload
		require.NoError(t, f.End())

		var in InBuffer
		in.Append(out.Bytes())
		_, payload, err := in.Next()
		require.NoError(t, err)

		_, err = ParseArgs([]ArgKind{String}, payload, &FdQueue{})
		assert.Error(t, err)
	})

	t.Run("PayloadUnderrunsSignature", func(t *testing.T) {
		_, payload := roundTrip(t, 1, 0, func(f *Formatter) {
			f.PutUint(1)
		})
		_, err := ParseArgs([]ArgKind{Uint, Uint}, payload, &FdQueue{})
		assert.Error(t, err)
	})

	t.Run("TrailingBytesRefused", func(t *testing.T) {
		_, payload := roundTrip(t, 1, 0, func(f *Formatter) {
			f.PutUint(1)
			f.PutUint(2)
		})
		_, err := ParseArgs([]ArgKind{Uint}, payload, &FdQueue{})
		assert.Error(t, err)
	})

	t.Run("MissingFd", func(t *testing.T) {
		_, err := ParseArgs([]ArgKind{Fd}, nil, &FdQueue{})
		assert.ErrorIs(t, err, ErrNoFd)
	})
}

// TestFdIdentity checks that a descriptor travels the queue by identity:
// the popped fd refers to the same file as the pushed one.
func TestFdIdentity(t *testing.T) {
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC))
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	var q FdQueue
	q.Push(p[0])

	args, err := ParseArgs([]ArgKind{Fd}, nil, &q)
	require.NoError(t, err)
	assert.Equal(t, p[0], args[0].FD)

	var before, after unix.Stat_t
	require.NoError(t, unix.Fstat(p[0], &before))
	require.NoError(t, unix.Fstat(args[0].FD, &after))
	assert.Equal(t, before.Ino, after.Ino)
}

func TestFdQueueOrder(t *testing.T) {
	var q FdQueue
	q.Push(10)
	q.Push(11)
	q.Push(12)

	fds := q.Take(2)
	assert.Equal(t, []int{10, 11}, fds)

	q.Unshift(fds)
	fd, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 10, fd)
	assert.Equal(t, 2, q.Len())
}

func TestFormatterRollback(t *testing.T) {
	var out OutBuffer

	f := NewFormatter(&out, 1, 0)
	f.PutArray(make([]byte, MaxMessageSize))
	assert.Error(t, f.End())
	assert.Equal(t, 0, out.Len())

	// The buffer is still usable after a rollback.
	f = NewFormatter(&out, 1, 0)
	f.PutUint(1)
	require.NoError(t, f.End())
	assert.Equal(t, 12, out.Len())
}
