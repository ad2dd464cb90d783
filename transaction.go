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
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

// Transaction is one unit of work on one connection. It is not safe for concurrent use.
// Call Success before Close to commit; without it Close rolls back.
type Transaction struct {
	id       int64
	db       *Database
	conn     Connection
	executer *cypherExecuter
	modified []wrapper
	seen     map[wrapperKey]bool
	success  bool
	failed   bool
	closed   bool

	prefetches []*PrefetchIterator
}

func newTransaction(db *Database, id int64, conn Connection) *Transaction {
	return &Transaction{
		id:       id,
		db:       db,
		conn:     conn,
		executer: newCypherExecuter(conn, db.config, db.logger, id),
		seen:     map[wrapperKey]bool{},
	}
}

// ID is unique and increasing within the owning Database, for log correlation.
func (t *Transaction) ID() int64 {
	return t.id
}

// Success marks the transaction to be committed on Close.
func (t *Transaction) Success() {
	t.success = true
}

func (t *Transaction) IsClosed() bool {
	return t.closed || t.failed
}

// Run executes statement. Statements run in submission order.
func (t *Transaction) Run(statement string, params map[string]any) (*RecordStream, error) {
	if t.IsClosed() {
		return nil, ErrTransactionClosed
	}
	cursor, err := t.executer.exec(statement, params)
	if err != nil {
		t.fail(err)
		return nil, err
	}
	return &RecordStream{cursor: cursor, tx: t}, nil
}

//A transient failure ends the transaction; the caller is expected to retry from scratch.
func (t *Transaction) fail(err error) {
	if errors.Is(err, ErrRetryRequested) {
		t.failed = true
	}
}

func (t *Transaction) single(statement string, params map[string]any) (*neo4j.Record, error) {
	stream, err := t.Run(statement, params)
	if err != nil {
		return nil, err
	}
	return stream.Single()
}

func (t *Transaction) exec(statement string, params map[string]any) error {
	stream, err := t.Run(statement, params)
	if err != nil {
		return err
	}
	_, err = stream.Collect()
	return err
}

func (t *Transaction) register(w wrapper) {
	if key := w.key(); !t.seen[key] {
		t.seen[key] = true
		t.modified = append(t.modified, w)
	}
}

// Close waits for running prefetches to stop, then commits when Success was called and rolls
// back otherwise. Modified wrappers drop their relationship caches on commit and become stale
// on rollback. The connection is always released.
func (t *Transaction) Close() (err error) {
	if t.closed {
		return nil
	}
	for _, it := range t.prefetches {
		it.Close()
	}
	t.prefetches = nil
	t.closed = true

	committed := false
	defer func() {
		if closeErr := t.conn.Close(); closeErr != nil && err == nil {
			err = translateError(closeErr)
		}
		for _, w := range t.modified {
			if committed {
				w.onCommit()
			} else {
				w.onRollback()
			}
		}
		t.db.logger.Debug("transaction closed", "tx", t.id, "committed", committed, "modified", len(t.modified))
	}()

	if t.success && !t.failed {
		if err = translateError(t.conn.Commit()); err == nil {
			committed = true
		}
		return err
	}

	if rollbackErr := t.conn.Rollback(); rollbackErr != nil && !t.failed {
		return translateError(rollbackErr)
	}
	return nil
}

// CreateNode creates a node with labels (plus the tenant label) and properties.
func (t *Transaction) CreateNode(labels []string, properties map[string]any) (*Node, error) {
	if properties == nil {
		properties = map[string]any{}
	}
	record, err := t.single(t.db.nodeStatements().getCreate(labels), map[string]any{"properties": properties})
	if err != nil {
		return nil, err
	}
	node, err := t.db.nodeFor(record.Values[0])
	if err != nil {
		return nil, err
	}
	t.register(node)
	return node, nil
}

// CreateRelationship creates a relationship of relType from start to end.
func (t *Transaction) CreateRelationship(start, end *Node, relType string, properties map[string]any) (*Relationship, error) {
	if err := start.checkUsable(); err != nil {
		return nil, err
	}
	if err := end.checkUsable(); err != nil {
		return nil, err
	}
	if properties == nil {
		properties = map[string]any{}
	}

	parameters := map[string]any{
		"start":      int64(start.id),
		"end":        int64(end.id),
		"properties": properties,
	}

	record, err := t.single(t.db.relationshipStatements().getCreate(relType), parameters)
	if err != nil {
		return nil, err
	}
	rel, err := t.db.relationshipFor(record.Values[0])
	if err != nil {
		return nil, err
	}
	t.register(rel)
	t.register(start)
	t.register(end)
	return rel, nil
}

// GetNodeByID returns the cached wrapper for id, fetching it when absent or stale.
func (t *Transaction) GetNodeByID(id Identity) (*Node, error) {
	if node, ok := t.db.nodes.get(id); ok {
		if err := ensureFresh(t, node); err != nil {
			return nil, err
		}
		return node, nil
	}
	record, err := t.single(t.db.nodeStatements().getByID(), map[string]any{"id": int64(id)})
	if err != nil {
		return nil, wrapNotFound(err, "node", id)
	}
	return t.db.nodeFor(record.Values[0])
}

func (t *Transaction) GetRelationshipByID(id Identity) (*Relationship, error) {
	if rel, ok := t.db.relationships.get(id); ok {
		if err := ensureFresh(t, rel); err != nil {
			return nil, err
		}
		return rel, nil
	}
	record, err := t.single(t.db.relationshipStatements().getByID(), map[string]any{"id": int64(id)})
	if err != nil {
		return nil, wrapNotFound(err, "relationship", id)
	}
	return t.db.relationshipFor(record.Values[0])
}

func wrapNotFound(err error, kind string, id Identity) error {
	if errors.Is(err, ErrNotFound) {
		return newError(ErrNotFound, "", fmt.Sprintf("%s %s does not exist", kind, id), err)
	}
	return err
}
