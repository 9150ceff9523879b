// Package session persists authenticated portal cookie state across
// process invocations. Each session is one file under the store
// directory, named by an opaque random identifier; the file's mtime is
// the session's last write and drives the expiry check.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// sessions older than this (measured from last persisted write, not
// last read) are treated as absent and deleted on sight
const Lifetime = 24 * time.Hour

const filePrefix = "TURMOB_"

var ErrNotFound = fmt.Errorf("session not found")

type Store struct {
	dir string
	// overridable for tests
	now func() time.Time
}

func NewStore(dir string) (Store, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return Store{}, fmt.Errorf("failed to create session directory: %w", err)
	}
	return Store{dir: dir, now: time.Now}, nil
}

// session ids end up as file names, strip anything that could walk the
// filesystem before touching disk
func sanitizeId(id string) string {
	var out strings.Builder
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out.WriteRune(c)
		}
	}
	return out.String()
}

func (s Store) path(id string) string {
	return filepath.Join(s.dir, filePrefix+sanitizeId(id))
}

// Save writes cookie state under a fresh random identifier and returns
// the identifier.
func (s Store) Save(state []byte) (string, error) {
	nonce := make([]byte, 16)
	_, err := rand.Read(nonce)
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	id := hex.EncodeToString(nonce)

	err = s.write(id, state)
	if err != nil {
		return "", err
	}
	return id, nil
}

// write-to-temp-then-rename so a concurrent Load never observes a
// partially written state
func (s Store) write(id string, state []byte) error {
	tmp, err := os.CreateTemp(s.dir, filePrefix+"tmp_")
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	_, err = tmp.Write(state)
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path(id))
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Load returns the cookie state stored under id. Expired sessions are
// deleted and reported as ErrNotFound; loading does not refresh the
// expiry clock.
func (s Store) Load(id string) ([]byte, error) {
	path := s.path(id)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat session: %w", err)
	}

	if s.now().Sub(info.ModTime()) >= Lifetime {
		os.Remove(path)
		return nil, ErrNotFound
	}

	state, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return state, nil
}

// Invalidate removes the stored state, an absent session is not an error.
func (s Store) Invalidate(id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
