package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

const (
	// Length is the length of a hex encoded SHA-1 digest
	Length = 2 * sha1.Size

	// ChunkSize is the size of the buffer used while hashing and spooling
	ChunkSize = 64 * 1024

	spoolPattern = "dcrate-blob-*"
)

// ErrContentChanged is returned if the content read during an upload does
// not match the digest computed beforehand.
var ErrContentChanged = errors.New("content does not match its digest")

// Of returns the digest of the given content
func Of(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Valid reports whether d is a 40 character lowercase hex SHA-1 digest
func Valid(d string) bool {
	if len(d) != Length {
		return false
	}
	for i := 0; i < len(d); i++ {
		c := d[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Source
// --------------------------------------------------------------------------

// Source is content whose digest and size are known and which can be read
// multiple times (once per upload attempt).
type Source struct {
	content io.ReadSeeker
	digest  string
	size    int64
	spool   *os.File // non-nil if the content was spooled
}

// NewSource hashes the content in a single pass. Non seekable content is
// spooled to a temporary file in spoolDir (os.TempDir() if empty).
// The caller must Close the source.
func NewSource(r io.Reader, spoolDir string) (*Source, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return newSeekableSource(rs)
	}
	return newSpooledSource(r, spoolDir)
}

func newSeekableSource(rs io.ReadSeeker) (*Source, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "determining content offset")
	}

	h := sha1.New()
	size, err := io.CopyBuffer(h, rs, make([]byte, ChunkSize))
	if err != nil {
		return nil, errors.Wrap(err, "hashing content")
	}

	return &Source{
		content: io.NewSectionReader(readerAt{rs}, start, size),
		digest:  hex.EncodeToString(h.Sum(nil)),
		size:    size,
	}, nil
}

func newSpooledSource(r io.Reader, spoolDir string) (*Source, error) {
	f, err := os.CreateTemp(spoolDir, spoolPattern)
	if err != nil {
		return nil, errors.Wrap(err, "creating spool file")
	}

	h := sha1.New()
	size, err := io.CopyBuffer(io.MultiWriter(f, h), r, make([]byte, ChunkSize))
	if err != nil {
		removeSpool(f)
		return nil, errors.Wrap(err, "spooling content")
	}

	return &Source{
		content: f,
		digest:  hex.EncodeToString(h.Sum(nil)),
		size:    size,
		spool:   f,
	}, nil
}

// Digest returns the hex encoded SHA-1 digest of the content
func (s *Source) Digest() string {
	return s.digest
}

// Size returns the content length in bytes
func (s *Source) Size() int64 {
	return s.size
}

// Open rewinds the content and returns a reader that verifies the digest
// while the content is read.
func (s *Source) Open() (*VerifyingReader, error) {
	if _, err := s.content.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "rewinding content")
	}
	return &VerifyingReader{r: s.content, expected: s.digest, h: sha1.New()}, nil
}

// Close removes the spool file, if any
func (s *Source) Close() error {
	if s.spool == nil {
		return nil
	}
	err := removeSpool(s.spool)
	s.spool = nil
	return err
}

// --------------------------------------------------------------------------
// VerifyingReader
// --------------------------------------------------------------------------

// VerifyingReader hashes everything read through it and compares the result
// with the expected digest once the underlying reader is exhausted. Err may be
// called concurrently with Read (net/http reads request bodies in its own
// goroutine).
type VerifyingReader struct {
	r        io.Reader
	expected string
	h        hash.Hash

	mu  sync.Mutex
	err error
}

func (v *VerifyingReader) Read(p []byte) (int, error) {
	if err := v.Err(); err != nil {
		return 0, err
	}
	n, err := v.r.Read(p)
	v.h.Write(p[:n])
	if err == io.EOF && hex.EncodeToString(v.h.Sum(nil)) != v.expected {
		v.mu.Lock()
		v.err = ErrContentChanged
		v.mu.Unlock()
		return n, ErrContentChanged
	}
	return n, err
}

// Err returns ErrContentChanged if a mismatch was detected
func (v *VerifyingReader) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// readerAt adapts a ReadSeeker to io.ReaderAt (not safe for concurrent use,
// a Source is only read by one upload attempt at a time)
type readerAt struct {
	rs io.ReadSeeker
}

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(r.rs, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

func removeSpool(f *os.File) error {
	closeErr := f.Close()
	if err := os.Remove(f.Name()); err != nil {
		return err
	}
	return closeErr
}
