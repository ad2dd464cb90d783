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

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

// Node wraps a remote node. Obtain nodes through a Transaction so that at most one wrapper
// exists per Identity.
type Node struct {
	entity
	labels []string

	// relationship identities per direction and type, dropped on commit
	relationships map[string][]Identity
}

func newNode(db *Database, node neo4j.Node) *Node {
	return &Node{
		entity: entity{
			db:    db,
			id:    Identity(node.Id),
			props: copyProperties(node.Props),
		},
		labels: append([]string{}, node.Labels...),
	}
}

func asNode(value any) (neo4j.Node, error) {
	switch v := value.(type) {
	case neo4j.Node:
		return v, nil
	case *neo4j.Node:
		if v != nil {
			return *v, nil
		}
	}
	return neo4j.Node{}, fmt.Errorf("%w: expected node, got %T", ErrDataFormat, value)
}

func (n *Node) Labels() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]string{}, n.labels...)
}

func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels() {
		if l == label {
			return true
		}
	}
	return false
}

// Get returns the cached value of key. A stale node is re-fetched through tx first.
func (n *Node) Get(tx *Transaction, key string) (any, error) {
	if err := ensureFresh(tx, n); err != nil {
		return nil, err
	}
	return n.property(key), nil
}

func (n *Node) Properties(tx *Transaction) (map[string]any, error) {
	if err := ensureFresh(tx, n); err != nil {
		return nil, err
	}
	return n.snapshot(), nil
}

func (n *Node) Keys(tx *Transaction) ([]string, error) {
	if err := ensureFresh(tx, n); err != nil {
		return nil, err
	}
	return n.propertyKeys(), nil
}

// Set writes value unless the cached snapshot already holds an equal value.
func (n *Node) Set(tx *Transaction, key string, value any) error {
	return saveProperties(tx, n, map[string]any{key: value})
}

// SetAll writes the keys of properties that differ from the snapshot in a single statement.
func (n *Node) SetAll(tx *Transaction, properties map[string]any) error {
	return saveProperties(tx, n, properties)
}

// Remove sets key to null on the server without consulting the snapshot.
func (n *Node) Remove(tx *Transaction, key string) error {
	return writeProperties(tx, n, map[string]any{key: nil})
}

// Delete removes the node. With cascade, its relationships are detached first and their
// wrappers are deleted along with it.
func (n *Node) Delete(tx *Transaction, cascade bool) error {
	if err := n.checkUsable(); err != nil {
		return err
	}
	if tx == nil {
		return ErrTransactionClosed
	}

	var detached []*Relationship
	if cascade {
		attached, err := n.attachedRelationships(tx)
		if err != nil {
			return err
		}
		detached = attached
	}

	if err := tx.exec(n.db.nodeStatements().getDelete(cascade), map[string]any{"id": int64(n.id)}); err != nil {
		return err
	}
	n.markDeleted()
	tx.register(n)

	for _, r := range detached {
		r.markDeleted()
		tx.register(r)
		n.db.registerEndpoints(tx, r.start, r.end)
	}
	return nil
}

//Loads every relationship touching n, so a detaching delete can retire their wrappers and the
//relationship caches of the other endpoints.
func (n *Node) attachedRelationships(tx *Transaction) ([]*Relationship, error) {
	stream, err := tx.Run(n.db.nodeStatements().getRelationships(Both, ""), map[string]any{"id": int64(n.id)})
	if err != nil {
		return nil, err
	}
	records, err := stream.Collect()
	if err != nil {
		return nil, err
	}
	relationships := make([]*Relationship, 0, len(records))
	for _, record := range records {
		r, err := n.db.relationshipFor(record.Values[0])
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, r)
	}
	return relationships, nil
}

// Relationships returns the node's relationships in direction with relType (any type when
// empty). Results are cached on the node until a transaction that modified it commits.
func (n *Node) Relationships(tx *Transaction, direction Direction, relType string) ([]*Relationship, error) {
	if err := ensureFresh(tx, n); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionClosed
	}

	cacheKey := direction.String() + "/" + relType

	n.mu.RLock()
	ids, cached := n.relationships[cacheKey]
	n.mu.RUnlock()

	if cached {
		relationships := make([]*Relationship, 0, len(ids))
		for _, id := range ids {
			r, err := n.db.resolveRelationship(tx, id)
			if err != nil {
				return nil, err
			}
			relationships = append(relationships, r)
		}
		return relationships, nil
	}

	stream, err := tx.Run(n.db.nodeStatements().getRelationships(direction, relType), map[string]any{"id": int64(n.id)})
	if err != nil {
		return nil, err
	}
	records, err := stream.Collect()
	if err != nil {
		return nil, err
	}

	relationships := make([]*Relationship, 0, len(records))
	ids = make([]Identity, 0, len(records))
	for _, record := range records {
		r, err := n.db.relationshipFor(record.Values[0])
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, r)
		ids = append(ids, r.id)
	}

	n.mu.Lock()
	if n.relationships == nil {
		n.relationships = map[string][]Identity{}
	}
	n.relationships[cacheKey] = ids
	n.mu.Unlock()

	return relationships, nil
}

func (n *Node) key() wrapperKey {
	return wrapperKey{nodeKind, n.id}
}

func (n *Node) getStatement() string {
	return n.db.nodeStatements().getByID()
}

func (n *Node) setStatement() string {
	return n.db.nodeStatements().getSet()
}

func (n *Node) refresh(value any) error {
	node, err := asNode(value)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.labels = append([]string{}, node.Labels...)
	n.props = copyProperties(node.Props)
	n.stale = false
	n.mu.Unlock()
	return nil
}

func (n *Node) evict() {
	n.db.nodes.remove(n.id)
}

func (n *Node) onCommit() {
	n.mu.Lock()
	n.relationships = nil
	deleted := n.deleted
	n.mu.Unlock()

	if deleted {
		n.evict()
	}
}

func (n *Node) onRollback() {
	n.mu.Lock()
	n.relationships = nil
	n.deleted = false
	n.stale = true
	n.mu.Unlock()
}
