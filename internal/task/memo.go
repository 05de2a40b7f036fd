// Package task caches the results of pure pipeline steps keyed by a hash of
// their inputs.
package task

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// InputHash digests a task name and its inputs. Each part is length
// prefixed, so ("ab", "c") and ("a", "bc") hash differently.
func InputHash(task string, inputs ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, s := range append([]string{task}, inputs...) {
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Memo memoizes a single task. Entries expire after ttl; errors are never
// cached. Safe for concurrent use.
type Memo[V any] struct {
	name  string
	cache *expirable.LRU[string, V]
}

// NewMemo creates a memo holding at most size entries. A zero ttl keeps
// entries until evicted by size.
func NewMemo[V any](name string, size int, ttl time.Duration) *Memo[V] {
	return &Memo[V]{
		name:  name,
		cache: expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Do returns the cached value for inputs, calling fn on a miss.
func (m *Memo[V]) Do(fn func() (V, error), inputs ...string) (V, error) {
	key := InputHash(m.name, inputs...)
	if v, ok := m.cache.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return v, err
	}
	m.cache.Add(key, v)
	return v, nil
}

// Len reports the number of live entries.
func (m *Memo[V]) Len() int {
	return m.cache.Len()
}
