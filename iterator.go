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

import "github.com/neo4j/neo4j-go-driver/v4/neo4j"

// RecordSource is a sequence of records; RecordIterator and PrefetchIterator implement it.
type RecordSource interface {
	Next() bool
	Record() *neo4j.Record
	Err() error
}

// RecordIterator fetches a query page by page. A page is requested only after the previous
// one came back full, so a result whose size is an exact multiple of the fetch size costs
// one extra, empty round trip.
type RecordIterator struct {
	tx         *Transaction
	query      Query
	stream     *RecordStream
	record     *neo4j.Record
	pageCount  int
	roundTrips int
	done       bool
	err        error

	// closed by a prefetching owner to stop before the next round trip
	stop <-chan struct{}
}

// Records iterates q from its current page.
func (t *Transaction) Records(q Query) *RecordIterator {
	return &RecordIterator{tx: t, query: q}
}

func (it *RecordIterator) Next() bool {
	for {
		if it.done || it.err != nil {
			it.record = nil
			return false
		}

		if it.stream == nil {
			if it.stopped() {
				it.done = true
				continue
			}
			stream, err := it.tx.Run(Statement(it.query, true), it.query.Parameters())
			if err != nil {
				it.err = err
				continue
			}
			it.stream = stream
			it.pageCount = 0
			it.roundTrips++
		}

		if it.stream.Next() {
			it.record = it.stream.Record()
			it.pageCount++
			return true
		}
		if err := it.stream.Err(); err != nil {
			it.err = err
			continue
		}

		if it.pageCount < it.query.FetchSize() {
			it.done = true
			continue
		}
		it.query.NextPage()
		it.stream = nil
	}
}

func (it *RecordIterator) stopped() bool {
	if it.stop == nil {
		return false
	}
	select {
	case <-it.stop:
		return true
	default:
		return false
	}
}

func (it *RecordIterator) Record() *neo4j.Record {
	return it.record
}

func (it *RecordIterator) Err() error {
	return it.err
}

// RoundTrips is the number of statements issued so far.
func (it *RecordIterator) RoundTrips() int {
	return it.roundTrips
}

// NodeIterator resolves the first column of each record to a cached Node.
type NodeIterator struct {
	db     *Database
	source RecordSource
	node   *Node
	err    error
}

func (t *Transaction) Nodes(source RecordSource) *NodeIterator {
	return &NodeIterator{db: t.db, source: source}
}

func (it *NodeIterator) Next() bool {
	if it.err != nil || !it.source.Next() {
		it.node = nil
		return false
	}
	node, err := it.db.nodeFor(it.source.Record().Values[0])
	if err != nil {
		it.err = err
		it.node = nil
		return false
	}
	it.node = node
	return true
}

func (it *NodeIterator) Node() *Node {
	return it.node
}

func (it *NodeIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.source.Err()
}

// RelationshipIterator resolves the first column of each record to a cached Relationship.
type RelationshipIterator struct {
	db           *Database
	source       RecordSource
	relationship *Relationship
	err          error
}

func (t *Transaction) Relationships(source RecordSource) *RelationshipIterator {
	return &RelationshipIterator{db: t.db, source: source}
}

func (it *RelationshipIterator) Next() bool {
	if it.err != nil || !it.source.Next() {
		it.relationship = nil
		return false
	}
	rel, err := it.db.relationshipFor(it.source.Record().Values[0])
	if err != nil {
		it.err = err
		it.relationship = nil
		return false
	}
	it.relationship = rel
	return true
}

func (it *RelationshipIterator) Relationship() *Relationship {
	return it.relationship
}

func (it *RelationshipIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.source.Err()
}
