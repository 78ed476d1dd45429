package project

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cuemby/edo/internal/node"
	"lukechampine.com/blake3"
)

// lockHasher accumulates the same blake3 digest the original's
// calculate_digest builds over its sorted need_resolution map.
type lockHasher struct {
	h *blake3.Hasher
}

func newLockHasher() *lockHasher { return &lockHasher{h: blake3.New(32, nil)} }

func (l *lockHasher) writeString(s string) { l.h.Write([]byte(s)) }
func (l *lockHasher) writeBytes(b []byte)  { l.h.Write(b) }
func (l *lockHasher) sum() string          { return hex.EncodeToString(l.h.Sum(nil)) }

// Lock is the on-disk resolution cache: a digest of the project's
// dependency declarations plus, if that digest still matches, the
// resolved node for every address that needed resolution.
type Lock struct {
	Digest  string               `json:"digest"`
	Content map[string]node.Wire `json:"refs"`
}

func lockPath(dir string) string { return filepath.Join(dir, "edo.lock.json") }

func readLock(dir string) (*Lock, error) {
	data, err := os.ReadFile(lockPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var l Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func writeLock(dir string, l *Lock) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(lockPath(dir), data, 0o644)
}
