package stream

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func payload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

func TestResized_ChunkArithmetic(t *testing.T) {
	cases := []struct {
		name   string
		length int
		chunk  int
		want   []int // expected chunk sizes, in order
	}{
		{"empty", 0, 4, nil},
		{"shorter than chunk", 3, 10, []int{3}},
		{"exact single", 10, 10, []int{10}},
		{"exact multiple", 12, 4, []int{4, 4, 4}},
		{"remainder", 10, 4, []int{4, 4, 2}},
		{"chunk of one", 3, 1, []int{1, 1, 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := payload(tc.length)
			r := NewResized(bytes.NewReader(src), int64(tc.length), tc.chunk)
			require.Equal(t, int64(tc.length), r.Len())

			var sizes []int
			var joined []byte
			for {
				chunk, err := r.Next()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				sizes = append(sizes, len(chunk))
				joined = append(joined, chunk...)
			}
			require.Equal(t, tc.want, sizes)
			require.Equal(t, src, joined, "concatenated chunks must reproduce the source")
			require.Equal(t, int64(0), r.Remaining())

			// Exhausted adapter keeps returning EOF.
			_, err := r.Next()
			require.Equal(t, io.EOF, err)
		})
	}
}

func TestResized_ShortSourceIsAnError(t *testing.T) {
	r := NewResized(strings.NewReader("abc"), 10, 4)

	_, err := r.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "declared 10")
}

func TestResized_WriteTo(t *testing.T) {
	src := payload(2500)
	r := NewResized(bytes.NewReader(src), int64(len(src)), 1000)

	var out bytes.Buffer
	n, err := r.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(2500), n)
	require.Equal(t, src, out.Bytes())
}

func TestResized_NonPositiveChunkPanics(t *testing.T) {
	require.Panics(t, func() { NewResized(strings.NewReader(""), 0, 0) })
}
