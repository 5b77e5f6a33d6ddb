package template

import (
	"bytes"
	"errors"
	"io"
)

// ChunkSize is the read buffer size and the longest key a token may hold.
const ChunkSize = 100

// Delimiter opens and closes a token.
const Delimiter = '%'

// ErrUnterminatedToken is returned when the input ends inside a token or a
// token outgrows ChunkSize. Output written so far is left as is.
var ErrUnterminatedToken = errors.New("template: unterminated token")

// Resolver returns the replacement text for a token key.
type Resolver func(key string) string

// Render copies r to w, replacing every %key% with resolve(key). "%%"
// resolves the empty key. Memory use is bounded by ChunkSize regardless of
// the template size.
func Render(w io.Writer, r io.Reader, resolve Resolver) error {
	buf := make([]byte, ChunkSize)
	key := make([]byte, 0, ChunkSize)
	inToken := false

	for {
		n, readErr := r.Read(buf)
		chunk := buf[:n]

		for len(chunk) > 0 {
			i := bytes.IndexByte(chunk, Delimiter)

			if !inToken {
				if i < 0 {
					if _, err := w.Write(chunk); err != nil {
						return err
					}
					break
				}
				if i > 0 {
					if _, err := w.Write(chunk[:i]); err != nil {
						return err
					}
				}
				chunk = chunk[i+1:]
				key = key[:0]
				inToken = true
				continue
			}

			part := chunk
			if i >= 0 {
				part = chunk[:i]
			}
			if len(key)+len(part) > ChunkSize {
				return ErrUnterminatedToken
			}
			key = append(key, part...)
			if i < 0 {
				break
			}

			if _, err := io.WriteString(w, resolve(string(key))); err != nil {
				return err
			}
			chunk = chunk[i+1:]
			inToken = false
		}

		if readErr == io.EOF {
			if inToken {
				return ErrUnterminatedToken
			}
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
