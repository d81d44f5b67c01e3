// Package encryption implements the at-rest format for submission documents.
//
// A container is a fixed header followed by a sequence of sealed chunks:
//
//	magic "BKSE" | version | chunk size (uint32 BE) | salt[32]
//	chunk 0 | chunk 1 | ... | final chunk
//
// Each container gets its own ChaCha20-Poly1305 subkey, derived with HKDF-SHA256
// from the process key and the random salt, so two containers never share key
// material even for identical plaintext. Every chunk is sealed with the header as
// additional data and a nonce made of the chunk counter and a final-chunk flag,
// which makes reordering, truncation and appended data detectable.
package encryption

import (
	"bufio"
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	headerMagic   = "BKSE"
	formatVersion = 1
	saltSize      = 32

	// HeaderSize is the length of the container header in bytes.
	HeaderSize = len(headerMagic) + 1 + 4 + saltSize

	// KeySize is the required length of the process-wide document key.
	KeySize = chacha20poly1305.KeySize

	// DefaultChunkSize is the plaintext size sealed per chunk.
	DefaultChunkSize = 64 * 1024

	maxChunkSize = 16 << 20
	hkdfInfo     = "book-submission-api document container v1"
)

var (
	// ErrKeyMissing is returned when no document key has been configured.
	ErrKeyMissing = errors.New("document encryption key is not configured")
	// ErrInvalidKey is returned for a key of the wrong size or encoding.
	ErrInvalidKey = errors.New("invalid document encryption key")
	// ErrIntegrity is returned when a container is truncated, malformed or tampered with.
	ErrIntegrity = errors.New("document container failed integrity check")

	errWriteAfterClose = errors.New("encryption: write after close")
)

// Codec encrypts and decrypts document streams with a single process-wide key.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	key       []byte
	chunkSize int
}

// NewCodec returns a codec for the given 32 byte key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, ErrKeyMissing
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Codec{key: k, chunkSize: DefaultChunkSize}, nil
}

// WithChunkSize returns a copy of c that seals plaintext in chunks of n bytes.
// Containers written with any chunk size can be read by any codec holding the same key.
func (c *Codec) WithChunkSize(n int) *Codec {
	if n <= 0 || n > maxChunkSize {
		n = DefaultChunkSize
	}
	return &Codec{key: c.key, chunkSize: n}
}

// ParseKey decodes a key given as 64 hex characters or standard base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrKeyMissing
	}
	if len(s) == hex.EncodedLen(KeySize) {
		if key, err := hex.DecodeString(s); err == nil {
			return key, nil
		}
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: expected hex or base64", ErrInvalidKey)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}
	return key, nil
}

// GenerateKey returns a new random key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *Codec) ready() error {
	if c == nil || len(c.key) == 0 {
		return ErrKeyMissing
	}
	return nil
}

func (c *Codec) aead(salt []byte) (cipher.AEAD, error) {
	subkey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, c.key, salt, []byte(hkdfInfo)), subkey); err != nil {
		return nil, fmt.Errorf("derive container key: %w", err)
	}
	return chacha20poly1305.New(subkey)
}

func encodeHeader(chunkSize int, salt []byte) []byte {
	h := make([]byte, HeaderSize)
	copy(h, headerMagic)
	h[len(headerMagic)] = formatVersion
	binary.BigEndian.PutUint32(h[len(headerMagic)+1:], uint32(chunkSize))
	copy(h[len(headerMagic)+5:], salt)
	return h
}

func parseHeader(h []byte) (chunkSize int, salt []byte, err error) {
	if string(h[:len(headerMagic)]) != headerMagic {
		return 0, nil, fmt.Errorf("%w: unknown container format", ErrIntegrity)
	}
	if h[len(headerMagic)] != formatVersion {
		return 0, nil, fmt.Errorf("%w: unsupported container version %d", ErrIntegrity, h[len(headerMagic)])
	}
	size := binary.BigEndian.Uint32(h[len(headerMagic)+1:])
	if size == 0 || size > maxChunkSize {
		return 0, nil, fmt.Errorf("%w: invalid chunk size", ErrIntegrity)
	}
	return int(size), h[len(headerMagic)+5:], nil
}

func chunkNonce(counter uint64, final bool) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce, counter)
	if final {
		nonce[len(nonce)-1] = 1
	}
	return nonce
}

type encrypter struct {
	dst       io.Writer
	aead      cipher.AEAD
	header    []byte
	chunkSize int
	buf       []byte
	out       []byte
	counter   uint64
	closed    bool
	err       error
}

// NewEncrypter writes a container header to dst and returns a writer that seals
// everything written to it. Close must be called to emit the final chunk; a
// container that was never closed fails to decrypt.
func (c *Codec) NewEncrypter(dst io.Writer) (io.WriteCloser, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate container salt: %w", err)
	}
	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}
	header := encodeHeader(c.chunkSize, salt)
	if _, err := dst.Write(header); err != nil {
		return nil, err
	}
	return &encrypter{
		dst:       dst,
		aead:      aead,
		header:    header,
		chunkSize: c.chunkSize,
		buf:       make([]byte, 0, c.chunkSize),
	}, nil
}

func (e *encrypter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if e.closed {
		return 0, errWriteAfterClose
	}
	n := 0
	for len(p) > 0 {
		if len(e.buf) == e.chunkSize {
			// More input follows, so the buffered chunk is not the last one.
			if err := e.seal(false); err != nil {
				e.err = err
				return n, err
			}
		}
		k := copy(e.buf[len(e.buf):e.chunkSize], p)
		e.buf = e.buf[:len(e.buf)+k]
		p = p[k:]
		n += k
	}
	return n, nil
}

func (e *encrypter) seal(final bool) error {
	e.out = e.aead.Seal(e.out[:0], chunkNonce(e.counter, final), e.buf, e.header)
	e.counter++
	clear(e.buf)
	e.buf = e.buf[:0]
	_, err := e.dst.Write(e.out)
	return err
}

func (e *encrypter) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	if e.err != nil {
		return e.err
	}
	e.err = e.seal(true)
	return e.err
}

// Encrypt reads src to EOF and writes a complete container to dst. It returns
// the number of plaintext bytes consumed. Cancellation is checked between chunks;
// on error dst holds an incomplete container that will never decrypt.
func (c *Codec) Encrypt(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	w, err := c.NewEncrypter(dst)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, c.chunkSize)
	defer clear(buf)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return total, rerr
		}
	}
	return total, w.Close()
}

type decrypter struct {
	src     *bufio.Reader
	aead    cipher.AEAD
	header  []byte
	frame   []byte
	plain   []byte
	counter uint64
	done    bool
	err     error
}

// NewDecrypter reads and validates the container header from src and returns a
// reader of the plaintext. A chunk's plaintext is released only after that chunk
// authenticates; any corruption surfaces as ErrIntegrity from Read.
func (c *Codec) NewDecrypter(src io.Reader) (io.Reader, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(src, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrIntegrity)
		}
		return nil, err
	}
	chunkSize, salt, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}
	return &decrypter{
		src:    bufio.NewReader(src),
		aead:   aead,
		header: header,
		frame:  make([]byte, chunkSize+aead.Overhead()),
	}, nil
}

func (d *decrypter) Read(p []byte) (int, error) {
	for len(d.plain) == 0 {
		if d.err != nil {
			return 0, d.err
		}
		if d.done {
			d.err = io.EOF
			continue
		}
		d.err = d.next()
	}
	n := copy(p, d.plain)
	d.plain = d.plain[n:]
	return n, nil
}

func (d *decrypter) next() error {
	n, err := io.ReadFull(d.src, d.frame)
	switch {
	case err == io.EOF:
		return fmt.Errorf("%w: missing final chunk", ErrIntegrity)
	case err == io.ErrUnexpectedEOF:
	case err != nil:
		return err
	}

	final := n < len(d.frame)
	if !final {
		if _, perr := d.src.Peek(1); perr == io.EOF {
			final = true
		} else if perr != nil {
			return perr
		}
	}
	if n < d.aead.Overhead() {
		return fmt.Errorf("%w: truncated chunk", ErrIntegrity)
	}

	plain, err := d.aead.Open(d.frame[:0], chunkNonce(d.counter, final), d.frame[:n], d.header)
	if err != nil {
		return fmt.Errorf("%w: chunk %d failed authentication", ErrIntegrity, d.counter)
	}
	d.counter++
	d.done = final
	d.plain = plain
	return nil
}

// Decrypt writes the plaintext of the container read from src to dst and returns
// the number of plaintext bytes written.
func (c *Codec) Decrypt(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	r, err := c.NewDecrypter(src)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, c.chunkSize)
	defer clear(buf)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
