// MIT License
//
// Copyright (c) 2020 codingfinest
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package bolt

import (
	"errors"
	"sort"
	"sync"
)

type entityKind int

const (
	nodeKind entityKind = iota
	relationshipKind
)

type wrapperKey struct {
	kind entityKind
	id   Identity
}

//wrapper is what a Transaction notifies when it ends.
type wrapper interface {
	key() wrapperKey
	onCommit()
	onRollback()
}

type persistable interface {
	wrapper
	base() *entity
	getStatement() string
	setStatement() string
	refresh(value any) error
	evict()
}

//entity is the state shared by node and relationship wrappers: the last fetched property
//snapshot plus the stale and deleted flags.
type entity struct {
	db      *Database
	id      Identity
	mu      sync.RWMutex
	props   map[string]any
	stale   bool
	deleted bool
}

func (e *entity) ID() Identity {
	return e.id
}

// IsStale reports whether the snapshot may not reflect the database after a rollback.
func (e *entity) IsStale() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stale
}

func (e *entity) IsDeleted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.deleted
}

func (e *entity) base() *entity {
	return e
}

func (e *entity) snapshot() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyProperties(e.props)
}

func (e *entity) property(key string) any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.props[key]
}

func (e *entity) propertyKeys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.props))
	for key := range e.props {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (e *entity) checkUsable() error {
	if e.IsDeleted() {
		return ErrDeleted
	}
	return nil
}

func (e *entity) markDeleted() {
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
}

//Re-fetches a stale wrapper. A wrapper whose entity no longer exists is marked deleted and
//evicted from its cache.
func ensureFresh(tx *Transaction, w persistable) error {
	e := w.base()
	if err := e.checkUsable(); err != nil {
		return err
	}
	if !e.IsStale() {
		return nil
	}
	if tx == nil {
		return ErrStale
	}

	record, err := tx.single(w.getStatement(), map[string]any{"id": int64(e.id)})
	if errors.Is(err, ErrNotFound) {
		e.markDeleted()
		w.evict()
		return err
	}
	if err != nil {
		return err
	}
	return w.refresh(record.Values[0])
}
