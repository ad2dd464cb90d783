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

// Relationship wraps a remote relationship. Endpoints are held by Identity and resolved
// through the node cache on demand.
type Relationship struct {
	entity
	relType string
	start   Identity
	end     Identity
}

func newRelationship(db *Database, rel neo4j.Relationship) *Relationship {
	return &Relationship{
		entity: entity{
			db:    db,
			id:    Identity(rel.Id),
			props: copyProperties(rel.Props),
		},
		relType: rel.Type,
		start:   Identity(rel.StartId),
		end:     Identity(rel.EndId),
	}
}

func asRelationship(value any) (neo4j.Relationship, error) {
	switch v := value.(type) {
	case neo4j.Relationship:
		return v, nil
	case *neo4j.Relationship:
		if v != nil {
			return *v, nil
		}
	}
	return neo4j.Relationship{}, fmt.Errorf("%w: expected relationship, got %T", ErrDataFormat, value)
}

func (r *Relationship) Type() string {
	return r.relType
}

func (r *Relationship) StartNodeID() Identity {
	return r.start
}

func (r *Relationship) EndNodeID() Identity {
	return r.end
}

func (r *Relationship) StartNode(tx *Transaction) (*Node, error) {
	return r.db.resolveNode(tx, r.start)
}

func (r *Relationship) EndNode(tx *Transaction) (*Node, error) {
	return r.db.resolveNode(tx, r.end)
}

// OtherNode returns the endpoint that is not node. ErrNotEndpoint is returned when node is nil
// or neither endpoint.
func (r *Relationship) OtherNode(tx *Transaction, node *Node) (*Node, error) {
	switch {
	case node == nil:
		return nil, ErrNotEndpoint
	case node.id == r.start:
		return r.EndNode(tx)
	case node.id == r.end:
		return r.StartNode(tx)
	}
	return nil, fmt.Errorf("%w: node %d, relationship %d", ErrNotEndpoint, node.id, r.id)
}

func (r *Relationship) Get(tx *Transaction, key string) (any, error) {
	if err := ensureFresh(tx, r); err != nil {
		return nil, err
	}
	return r.property(key), nil
}

func (r *Relationship) Properties(tx *Transaction) (map[string]any, error) {
	if err := ensureFresh(tx, r); err != nil {
		return nil, err
	}
	return r.snapshot(), nil
}

func (r *Relationship) Set(tx *Transaction, key string, value any) error {
	return saveProperties(tx, r, map[string]any{key: value})
}

func (r *Relationship) SetAll(tx *Transaction, properties map[string]any) error {
	return saveProperties(tx, r, properties)
}

func (r *Relationship) Remove(tx *Transaction, key string) error {
	return writeProperties(tx, r, map[string]any{key: nil})
}

func (r *Relationship) Delete(tx *Transaction) error {
	if err := r.checkUsable(); err != nil {
		return err
	}
	if tx == nil {
		return ErrTransactionClosed
	}
	if err := tx.exec(r.db.relationshipStatements().getDelete(), map[string]any{"id": int64(r.id)}); err != nil {
		return err
	}
	r.markDeleted()
	tx.register(r)
	r.db.registerEndpoints(tx, r.start, r.end)
	return nil
}

func (r *Relationship) key() wrapperKey {
	return wrapperKey{relationshipKind, r.id}
}

func (r *Relationship) getStatement() string {
	return r.db.relationshipStatements().getByID()
}

func (r *Relationship) setStatement() string {
	return r.db.relationshipStatements().getSet()
}

func (r *Relationship) refresh(value any) error {
	rel, err := asRelationship(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.props = copyProperties(rel.Props)
	r.stale = false
	r.mu.Unlock()
	return nil
}

func (r *Relationship) evict() {
	r.db.relationships.remove(r.id)
}

func (r *Relationship) onCommit() {
	if r.IsDeleted() {
		r.evict()
	}
}

func (r *Relationship) onRollback() {
	r.mu.Lock()
	r.deleted = false
	r.stale = true
	r.mu.Unlock()
}
