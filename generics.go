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
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

//Identity is the database-assigned id of a node or relationship.
type Identity int64

func (id Identity) String() string {
	return strconv.FormatInt(int64(id), 10)
}

//wrapperCache keeps at most one wrapper per Identity. getOrCreate holds the mutex across
//lookup and insert, so concurrent callers always observe the same instance.
type wrapperCache[W any] struct {
	mu    sync.Mutex
	cache *lru.Cache[Identity, W]
}

func newWrapperCache[W any](size int) (*wrapperCache[W], error) {
	cache, err := lru.New[Identity, W](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create wrapper cache of size %d: %w", size, err)
	}
	return &wrapperCache[W]{cache: cache}, nil
}

func (c *wrapperCache[W]) getOrCreate(id Identity, create func() W) W {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wrapper, ok := c.cache.Get(id); ok {
		return wrapper
	}
	wrapper := create()
	c.cache.Add(id, wrapper)
	return wrapper
}

func (c *wrapperCache[W]) get(id Identity) (W, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(id)
}

func (c *wrapperCache[W]) remove(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(id)
}

func (c *wrapperCache[W]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

func (c *wrapperCache[W]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
