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
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
	"golang.org/x/sync/errgroup"
)

// PrefetchIterator pages through a query on a background goroutine while the caller consumes
// records from a bounded buffer. The background fetch owns the transaction until the iterator
// is exhausted or Close returns; Transaction.Close waits for it as well.
//
// A wait longer than the configured result timeout ends iteration early and marks the
// query context as timeout violated; no error is reported for it. The background fetch is
// told to stop but may still be finishing a round trip, so call Close before using the
// transaction again.
type PrefetchIterator struct {
	records      chan *neo4j.Record
	done         chan struct{}
	group        errgroup.Group
	queryContext *QueryContext
	timeout      time.Duration
	record       *neo4j.Record
	err          error
	finished     bool
	closeOnce    sync.Once
}

// Prefetch starts fetching q in the background.
func (t *Transaction) Prefetch(q Query) *PrefetchIterator {
	it := &PrefetchIterator{
		records:      make(chan *neo4j.Record, q.FetchSize()),
		done:         make(chan struct{}),
		queryContext: q.Context(),
		timeout:      t.db.config.ResultTimeout,
	}

	pages := t.Records(q)
	pages.stop = it.done
	t.prefetches = append(t.prefetches, it)

	it.group.Go(func() error {
		defer close(it.records)
		for pages.Next() {
			select {
			case it.records <- pages.Record():
			case <-it.done:
				return nil
			}
		}
		return pages.Err()
	})
	return it
}

func (it *PrefetchIterator) Next() bool {
	select {
	case <-it.done:
		it.finished = true
	default:
	}
	if it.finished {
		it.record = nil
		return false
	}

	timer := time.NewTimer(it.timeout)
	defer timer.Stop()

	select {
	case record, ok := <-it.records:
		if !ok {
			it.finished = true
			it.record = nil
			it.err = it.group.Wait()
			return false
		}
		it.record = record
		return true
	case <-timer.C:
		it.finished = true
		it.record = nil
		it.queryContext.markTimeoutViolated()
		it.stop()
		return false
	}
}

func (it *PrefetchIterator) Record() *neo4j.Record {
	return it.record
}

// Err returns the error the background fetch ended with.
func (it *PrefetchIterator) Err() error {
	return it.err
}

// Close stops the background fetch, ends iteration and waits until the fetch no longer uses
// the transaction. A fetch blocked on the network is waited for until its round trip returns.
func (it *PrefetchIterator) Close() error {
	it.stop()
	return it.group.Wait()
}

func (it *PrefetchIterator) stop() {
	it.closeOnce.Do(func() {
		close(it.done)
	})
}
