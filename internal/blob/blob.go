// Package blob implements the content-addressed byte store backing audio
// and image payloads. Payloads are staged to a temp file while their
// sha256 is computed, then atomically renamed to <first2>/<sha256> under
// the store's directory,
// so partial writes never become visible and identical content always
// produces the same key.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"sonar/internal/sonarerr"
)

// Info describes a stored blob as returned by Put and Stat.
type Info struct {
	Key    string // sha256 hex digest; also the on-disk leaf name
	Size   int64
	SHA256 string
}

// Store is a filesystem-backed content-addressed blob store rooted at Dir.
type Store struct {
	Dir string // <data_dir>/blobs
}

// New prepares a Store rooted at dir, creating the staging directory.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "staging"), 0o755); err != nil {
		return nil, sonarerr.IoError(err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) finalPath(sha string) string {
	return filepath.Join(s.Dir, sha[:2], sha)
}

func (s *Store) stagingPath() string {
	return filepath.Join(s.Dir, "staging", uuid.NewString())
}

// Put streams r to a staging file while hashing it, then atomically moves
// it into place. If a blob with the resulting sha256 already exists, the
// staging file is discarded and the existing blob's Info is returned
// (dedup): Put is idempotent on content.
func (s *Store) Put(r io.Reader) (Info, error) {
	stagePath := s.stagingPath()
	f, err := os.OpenFile(stagePath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return Info{}, sonarerr.IoError(err)
	}
	defer os.Remove(stagePath) // no-op once renamed away

	h := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, h))
	closeErr := f.Close()
	if err != nil {
		return Info{}, sonarerr.IoError(err)
	}
	if closeErr != nil {
		return Info{}, sonarerr.IoError(closeErr)
	}

	sha := hex.EncodeToString(h.Sum(nil))
	final := s.finalPath(sha)

	if fi, statErr := os.Stat(final); statErr == nil {
		return Info{Key: sha, Size: fi.Size(), SHA256: sha}, nil
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return Info{}, sonarerr.IoError(err)
	}
	if err := os.Rename(stagePath, final); err != nil {
		// Lost the race against a concurrent identical Put: the file that
		// won is byte-identical by construction (same sha256), so treat
		// it as success rather than an error.
		if fi, statErr := os.Stat(final); statErr == nil {
			return Info{Key: sha, Size: fi.Size(), SHA256: sha}, nil
		}
		return Info{}, sonarerr.IoError(err)
	}

	return Info{Key: sha, Size: size, SHA256: sha}, nil
}

// Get opens a stream of the blob identified by key. Caller must Close it.
func (s *Store) Get(key string) (io.ReadCloser, error) {
	if len(key) < 2 {
		return nil, sonarerr.InvalidArgument("key", "malformed blob key")
	}
	f, err := os.Open(s.finalPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sonarerr.NotFound("blob", key)
		}
		return nil, sonarerr.IoError(err)
	}
	return f, nil
}

// GetRange opens a stream starting at offset, bounded to length bytes (0
// means "to the end"). Used by the Audio Service to honor HTTP Range
// requests with constant memory footprint.
func (s *Store) GetRange(key string, offset, length int64) (io.ReadCloser, error) {
	f, err := os.Open(s.finalPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sonarerr.NotFound("blob", key)
		}
		return nil, sonarerr.IoError(err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, sonarerr.IoError(err)
		}
	}
	if length <= 0 {
		return f, nil
	}
	return &limitedReadCloser{r: io.LimitReader(f, length), c: f}, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }

// Stat reports the on-disk size of a stored blob and returns its key as
// the sha256; the content is not read or re-hashed (Verify does that).
func (s *Store) Stat(key string) (Info, error) {
	fi, err := os.Stat(s.finalPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, sonarerr.NotFound("blob", key)
		}
		return Info{}, sonarerr.IoError(err)
	}
	return Info{Key: key, Size: fi.Size(), SHA256: key}, nil
}

// Delete removes the blob file for key. Callers (the Image/Audio services,
// never the blob store itself) are responsible for first verifying no
// catalog row still references it.
func (s *Store) Delete(key string) error {
	if err := os.Remove(s.finalPath(key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return sonarerr.IoError(err)
	}
	return nil
}

// Verify re-hashes the on-disk content of key and confirms it still
// matches, surfacing sonarerr.HashMismatch on divergence (e.g. disk
// corruption).
func (s *Store) Verify(key string) error {
	f, err := s.Get(key)
	if err != nil {
		return err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sonarerr.IoError(err)
	}
	if hex.EncodeToString(h.Sum(nil)) != key {
		return sonarerr.HashMismatch()
	}
	return nil
}

// Keys lists every blob key currently on disk, for the garbage collector.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, sonarerr.IoError(err)
	}
	for _, shard := range entries {
		if !shard.IsDir() || shard.Name() == "staging" {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.Dir, shard.Name()))
		if err != nil {
			return nil, sonarerr.IoError(err)
		}
		for _, f := range files {
			if !f.IsDir() {
				keys = append(keys, f.Name())
			}
		}
	}
	return keys, nil
}

// GC removes every on-disk blob whose key is not present in referenced. It
// returns the keys it deleted. Orphan blobs accumulate from cancelled
// imports and from imports whose catalog transaction never committed; this
// sweep is the documented way they're reclaimed (spec §4.10, §9).
func (s *Store) GC(referenced map[string]bool) ([]string, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, k := range keys {
		if referenced[k] {
			continue
		}
		if err := s.Delete(k); err != nil {
			return removed, fmt.Errorf("gc: removing orphan blob: %w", err)
		}
		removed = append(removed, k)
	}
	return removed, nil
}
