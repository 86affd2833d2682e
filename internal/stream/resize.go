// Package stream adapts a byte stream of known total length into fixed-size
// chunks, decoupling the producer's natural chunking from a consumer's
// required chunking (object-storage segments, bounded upload buffers).
package stream

import (
	"fmt"
	"io"
)

// Resized yields the source's L bytes as ceil(L/c) chunks of size c, the last
// chunk carrying the remainder. It is a single forward pass over the source,
// mirroring the source's own single-pass nature; it is not restartable.
type Resized struct {
	src    io.Reader
	length int64
	chunk  int
	offset int64
	buf    []byte // unread tail of the current chunk, for Read
}

// NewResized wraps src, whose total length in bytes must be known up front.
// chunk must be positive.
func NewResized(src io.Reader, length int64, chunk int) *Resized {
	if chunk <= 0 {
		panic(fmt.Sprintf("stream: non-positive chunk size %d", chunk))
	}
	if length < 0 {
		length = 0
	}
	return &Resized{src: src, length: length, chunk: chunk}
}

// Len returns the total length of the stream in bytes.
func (r *Resized) Len() int64 { return r.length }

// ChunkSize returns the configured chunk size.
func (r *Resized) ChunkSize() int { return r.chunk }

// Remaining returns how many bytes have not been yielded yet.
func (r *Resized) Remaining() int64 { return r.length - r.offset }

// Next returns the next chunk, or io.EOF once all declared bytes have been
// yielded. A source that runs dry before the declared length is an error.
func (r *Resized) Next() ([]byte, error) {
	remaining := r.length - r.offset
	if remaining <= 0 {
		return nil, io.EOF
	}
	n := int64(r.chunk)
	if remaining < n {
		n = remaining
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("stream: source ended at byte %d of declared %d", r.offset, r.length)
		}
		return nil, err
	}
	r.offset += n
	return buf, nil
}

// Read implements io.Reader for consumers that want a plain stream. Reads are
// still served chunk by chunk underneath, so they never exceed the chunk size.
func (r *Resized) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		chunk, err := r.Next()
		if err != nil {
			return 0, err
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// Close closes the source stream if it is closable.
func (r *Resized) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// WriteTo drains the remaining chunks into w. It implements io.WriterTo so the
// adapter can feed io.Copy-style consumers without extra buffering logic.
func (r *Resized) WriteTo(w io.Writer) (int64, error) {
	var written int64
	if len(r.buf) > 0 {
		n, err := w.Write(r.buf)
		written += int64(n)
		r.buf = r.buf[n:]
		if err != nil {
			return written, err
		}
	}
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
}
