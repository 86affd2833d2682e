package util

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// SHA256Copy copies r into w while hashing, and returns:
//   - the hex-encoded SHA-256 digest
//   - the number of bytes copied
//
// Used to checksum image payloads without a second pass over the stream.
func SHA256Copy(w io.Writer, r io.Reader) (sum string, size int64, err error) {
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(w, h), r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// HashReader wraps r so the SHA-256 of everything read through it is
// available afterwards. Archive targets use it to attach a digest to uploads
// they cannot re-read.
type HashReader struct {
	r io.Reader
	h interface {
		io.Writer
		Sum([]byte) []byte
	}
	n int64
}

func NewHashReader(r io.Reader) *HashReader {
	return &HashReader{r: r, h: sha256.New()}
}

func (hr *HashReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		_, _ = hr.h.Write(p[:n])
		hr.n += int64(n)
	}
	return n, err
}

// Sum returns the hex digest of the bytes read so far.
func (hr *HashReader) Sum() string { return hex.EncodeToString(hr.h.Sum(nil)) }

// Size returns the number of bytes read so far.
func (hr *HashReader) Size() int64 { return hr.n }
