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
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

type fakeNode struct {
	labels []string
	props  map[string]any
}

type fakeRelationship struct {
	relType string
	start   int64
	end     int64
	props   map[string]any
}

//fakeStore is the committed state of the fake server.
type fakeStore struct {
	nodes         map[int64]*fakeNode
	relationships map[int64]*fakeRelationship
	nextID        int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{nodes: map[int64]*fakeNode{}, relationships: map[int64]*fakeRelationship{}}
}

func (s *fakeStore) clone() *fakeStore {
	c := &fakeStore{nodes: map[int64]*fakeNode{}, relationships: map[int64]*fakeRelationship{}, nextID: s.nextID}
	for id, n := range s.nodes {
		c.nodes[id] = &fakeNode{labels: append([]string{}, n.labels...), props: copyProperties(n.props)}
	}
	for id, r := range s.relationships {
		c.relationships[id] = &fakeRelationship{relType: r.relType, start: r.start, end: r.end, props: copyProperties(r.props)}
	}
	return c
}

func (s *fakeStore) node(id int64) neo4j.Node {
	n := s.nodes[id]
	return neo4j.Node{Id: id, Labels: append([]string{}, n.labels...), Props: copyProperties(n.props)}
}

func (s *fakeStore) relationship(id int64) neo4j.Relationship {
	r := s.relationships[id]
	return neo4j.Relationship{Id: id, StartId: r.start, EndId: r.end, Type: r.relType, Props: copyProperties(r.props)}
}

//fakeScript intercepts a statement before the built-in handlers. Returning handled=false
//falls through to them.
type fakeScript func(statement string, params map[string]any) (records []*neo4j.Record, handled bool, err error)

type fakeConnector struct {
	mu         sync.Mutex
	tenant     string
	store      *fakeStore
	script     fakeScript
	statements []string
	commitErr  error
	connects   int
	commits    int
	rollbacks  int
	closes     int
}

func newFakeConnector(tenant string) *fakeConnector {
	return &fakeConnector{tenant: tenant, store: newFakeStore()}
}

func (c *fakeConnector) Connect(time.Duration) (Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	return &fakeConnection{connector: c, working: c.store.clone()}, nil
}

func (c *fakeConnector) Close() error {
	return nil
}

func (c *fakeConnector) executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.statements...)
}

func (c *fakeConnector) count(statement string) int {
	n := 0
	for _, s := range c.executed() {
		if s == statement {
			n++
		}
	}
	return n
}

func (c *fakeConnector) countPrefix(prefix string) int {
	n := 0
	for _, s := range c.executed() {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func (c *fakeConnector) resetStatements() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = nil
}

//seedNode writes a node straight into the committed store.
func (c *fakeConnector) seedNode(labels []string, props map[string]any) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.store.nextID
	c.store.nextID++
	c.store.nodes[id] = &fakeNode{labels: labels, props: copyProperties(props)}
	return id
}

func (c *fakeConnector) seedRelationship(start, end int64, relType string, props map[string]any) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.store.nextID
	c.store.nextID++
	c.store.relationships[id] = &fakeRelationship{relType: relType, start: start, end: end, props: copyProperties(props)}
	return id
}

func (c *fakeConnector) committedProperty(id int64, key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.store.nodes[id]; ok {
		return n.props[key]
	}
	return nil
}

type fakeConnection struct {
	connector *fakeConnector
	working   *fakeStore
}

func (c *fakeConnection) Run(statement string, params map[string]any) (Cursor, error) {
	c.connector.mu.Lock()
	c.connector.statements = append(c.connector.statements, statement)
	script := c.connector.script
	tenant := c.connector.tenant
	c.connector.mu.Unlock()

	if script != nil {
		records, handled, err := script(statement, params)
		if handled {
			var late lateError
			if errors.As(err, &late) {
				return &fakeCursor{records: records, err: late.err}, nil
			}
			if err != nil {
				return nil, err
			}
			return &fakeCursor{records: records}, nil
		}
	}

	records, err := c.handle(statement, params, tenant)
	if err != nil {
		return nil, err
	}
	return &fakeCursor{records: records}, nil
}

func (c *fakeConnection) handle(statement string, params map[string]any, tenant string) ([]*neo4j.Record, error) {
	nodes := newNodeCypherBuilder(tenant)
	rels := newRelationshipCypherBuilder(tenant)
	s := c.working

	id, _ := params["id"].(int64)

	switch statement {
	case pingStatement:
		return []*neo4j.Record{record("ping", int64(1))}, nil

	case nodes.getByID():
		if _, ok := s.nodes[id]; !ok {
			return nil, nil
		}
		return []*neo4j.Record{record("n", s.node(id))}, nil

	case nodes.getSet():
		n, ok := s.nodes[id]
		if !ok {
			return nil, nil
		}
		applyProperties(n.props, params["properties"])
		return []*neo4j.Record{record("n", s.node(id))}, nil

	case nodes.getDelete(false):
		if _, ok := s.nodes[id]; !ok {
			return nil, nil
		}
		for _, r := range s.relationships {
			if r.start == id || r.end == id {
				return nil, &neo4j.Neo4jError{Code: "Neo.ClientError.Schema.ConstraintValidationFailed", Msg: "node still has relationships"}
			}
		}
		delete(s.nodes, id)
		return nil, nil

	case nodes.getDelete(true):
		for rid, r := range s.relationships {
			if r.start == id || r.end == id {
				delete(s.relationships, rid)
			}
		}
		delete(s.nodes, id)
		return nil, nil

	case rels.getByID():
		if _, ok := s.relationships[id]; !ok {
			return nil, nil
		}
		return []*neo4j.Record{record("r", s.relationship(id))}, nil

	case rels.getSet():
		r, ok := s.relationships[id]
		if !ok {
			return nil, nil
		}
		applyProperties(r.props, params["properties"])
		return []*neo4j.Record{record("r", s.relationship(id))}, nil

	case rels.getDelete():
		delete(s.relationships, id)
		return nil, nil
	}

	switch {
	case strings.HasPrefix(statement, "CREATE (n"):
		inner := strings.TrimPrefix(statement, "CREATE (n")
		inner = inner[:strings.Index(inner, ")")]
		var labels []string
		for _, label := range strings.Split(inner, ":") {
			if label != "" {
				labels = append(labels, label)
			}
		}
		nid := s.nextID
		s.nextID++
		s.nodes[nid] = &fakeNode{labels: labels, props: map[string]any{}}
		applyProperties(s.nodes[nid].props, params["properties"])
		return []*neo4j.Record{record("n", s.node(nid))}, nil

	case strings.Contains(statement, "CREATE (s)-[r:"):
		relType := statement[strings.Index(statement, "[r:")+3:]
		relType = relType[:strings.Index(relType, "]")]
		start, _ := params["start"].(int64)
		end, _ := params["end"].(int64)
		if _, ok := s.nodes[start]; !ok {
			return nil, nil
		}
		if _, ok := s.nodes[end]; !ok {
			return nil, nil
		}
		rid := s.nextID
		s.nextID++
		s.relationships[rid] = &fakeRelationship{relType: relType, start: start, end: end, props: map[string]any{}}
		applyProperties(s.relationships[rid].props, params["properties"])
		return []*neo4j.Record{record("r", s.relationship(rid))}, nil

	case strings.HasSuffix(statement, "WHERE ID(n) = $id RETURN r"):
		return c.relationshipsOf(id, statement), nil
	}

	return nil, fmt.Errorf("fake connection: unexpected statement %q", statement)
}

func (c *fakeConnection) relationshipsOf(id int64, statement string) []*neo4j.Record {
	direction := Both
	switch {
	case strings.Contains(statement, ")<-[r"):
		direction = Incoming
	case strings.Contains(statement, "]->(m"):
		direction = Outgoing
	}
	relType := statement[strings.Index(statement, "[r")+2:]
	relType = strings.TrimPrefix(relType[:strings.Index(relType, "]")], ":")

	var records []*neo4j.Record
	for rid := int64(0); rid < c.working.nextID; rid++ {
		r, ok := c.working.relationships[rid]
		if !ok || (relType != "" && r.relType != relType) {
			continue
		}
		matches := (direction != Incoming && r.start == id) || (direction != Outgoing && r.end == id)
		if matches {
			records = append(records, record("r", c.working.relationship(rid)))
		}
	}
	return records
}

func (c *fakeConnection) Commit() error {
	c.connector.mu.Lock()
	defer c.connector.mu.Unlock()
	if c.connector.commitErr != nil {
		return c.connector.commitErr
	}
	c.connector.commits++
	c.connector.store = c.working
	return nil
}

func (c *fakeConnection) Rollback() error {
	c.connector.mu.Lock()
	defer c.connector.mu.Unlock()
	c.connector.rollbacks++
	return nil
}

func (c *fakeConnection) Close() error {
	c.connector.mu.Lock()
	defer c.connector.mu.Unlock()
	c.connector.closes++
	return nil
}

func applyProperties(props map[string]any, value any) {
	updates, _ := value.(map[string]any)
	for key, v := range updates {
		if v == nil {
			delete(props, key)
			continue
		}
		props[key] = v
	}
}

//fakeCursor yields records and then err, the way a driver result reports failures late.
type fakeCursor struct {
	records []*neo4j.Record
	index   int
	current *neo4j.Record
	err     error
}

func (c *fakeCursor) Next() bool {
	if c.index >= len(c.records) {
		c.current = nil
		return false
	}
	c.current = c.records[c.index]
	c.index++
	return true
}

func (c *fakeCursor) Record() *neo4j.Record {
	return c.current
}

func (c *fakeCursor) Err() error {
	return c.err
}

func record(key string, value any) *neo4j.Record {
	return &neo4j.Record{Keys: []string{key}, Values: []any{value}}
}

//pageOf answers a paged statement from a result of total integer records.
func pageOf(statement string, total int) []*neo4j.Record {
	var skip, limit int
	suffix := statement[strings.LastIndex(statement, " SKIP "):]
	if _, err := fmt.Sscanf(suffix, " SKIP %d LIMIT %d", &skip, &limit); err != nil {
		panic(err)
	}
	var records []*neo4j.Record
	for i := skip; i < total && i < skip+limit; i++ {
		records = append(records, record("value", int64(i)))
	}
	return records
}

var errScripted = errors.New("scripted failure")

//lateError makes a script fail while the cursor is consumed instead of on Run.
type lateError struct {
	err error
}

func (e lateError) Error() string {
	return e.err.Error()
}

func newTestDatabase(t *testing.T, connector *fakeConnector, configure ...func(*Config)) *Database {
	t.Helper()
	config := DefaultConfig()
	config.Tenant = connector.tenant
	for _, c := range configure {
		c(config)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := New(connector, config, logger)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	return db
}
