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
	"log/slog"
	"sync/atomic"
	"time"
)

// Database owns the connector, the wrapper caches and the transaction id sequence. Caches
// live as long as the Database; ClearCaches and Shutdown end that explicitly.
type Database struct {
	config        *Config
	connector     Connector
	logger        *slog.Logger
	nodes         *wrapperCache[*Node]
	relationships *wrapperCache[*Relationship]
	lastTxID      atomic.Int64
}

// New creates a Database on connector. A nil config uses DefaultConfig, a nil logger
// uses slog.Default().
func New(connector Connector, config *Config, logger *slog.Logger) (*Database, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	nodes, err := newWrapperCache[*Node](config.NodeCacheSize)
	if err != nil {
		return nil, err
	}
	relationships, err := newWrapperCache[*Relationship](config.RelationshipCacheSize)
	if err != nil {
		return nil, err
	}

	return &Database{
		config:        config,
		connector:     connector,
		logger:        logger,
		nodes:         nodes,
		relationships: relationships,
	}, nil
}

// Open connects to config.URI with the neo4j driver.
func Open(config *Config, logger *slog.Logger) (*Database, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	connector, err := NewNeo4jConnector(config)
	if err != nil {
		return nil, err
	}
	return New(connector, config, logger)
}

type transactionOptions struct {
	timeout time.Duration
}

type TransactionOption func(*transactionOptions)

// WithTimeout bounds the lifetime of the remote transaction.
func WithTimeout(timeout time.Duration) TransactionOption {
	return func(o *transactionOptions) {
		o.timeout = timeout
	}
}

func (d *Database) BeginTransaction(options ...TransactionOption) (*Transaction, error) {
	opts := transactionOptions{timeout: d.config.TransactionTimeout}
	for _, option := range options {
		option(&opts)
	}

	conn, err := d.connector.Connect(opts.timeout)
	if err != nil {
		return nil, translateError(err)
	}

	id := d.lastTxID.Add(1)
	d.logger.Debug("transaction started", "tx", id, "timeout", opts.timeout)
	return newTransaction(d, id, conn), nil
}

// Ping runs a keep-alive statement in its own transaction.
func (d *Database) Ping() error {
	tx, err := d.BeginTransaction()
	if err != nil {
		return err
	}
	if err := tx.exec(pingStatement, nil); err != nil {
		tx.Close()
		return err
	}
	tx.Success()
	return tx.Close()
}

func (d *Database) Config() *Config {
	return d.config
}

func (d *Database) Tenant() string {
	return d.config.Tenant
}

// ClearCaches drops every cached wrapper. Wrappers held by callers stay usable but are no
// longer shared with later lookups.
func (d *Database) ClearCaches() {
	d.nodes.clear()
	d.relationships.clear()
}

func (d *Database) Shutdown() error {
	d.ClearCaches()
	return d.connector.Close()
}

// CypherQuery starts a node query using the configured tenant and fetch size.
func (d *Database) CypherQuery(queryContext *QueryContext) *CypherQuery {
	return NewCypherQuery(d.config.Tenant, d.config.FetchSize, queryContext)
}

func (d *Database) RelationshipQuery(queryContext *QueryContext) *CypherQuery {
	return NewRelationshipQuery(d.config.Tenant, d.config.FetchSize, queryContext)
}

func (d *Database) FulltextQuery(index, term string, queryContext *QueryContext) *FulltextQuery {
	return NewFulltextQuery(d.config.Tenant, index, term, d.config.FetchSize, queryContext)
}

func (d *Database) SimpleQuery(statement string, params map[string]any, queryContext *QueryContext) *SimpleQuery {
	return NewSimpleQuery(statement, params, d.config.FetchSize, queryContext)
}

func (d *Database) nodeStatements() nodeCypherBuilder {
	return newNodeCypherBuilder(d.config.Tenant)
}

func (d *Database) relationshipStatements() relationshipCypherBuilder {
	return newRelationshipCypherBuilder(d.config.Tenant)
}

//Returns the single wrapper for a node value received from the server. A stale wrapper is
//refreshed from the received snapshot.
func (d *Database) nodeFor(value any) (*Node, error) {
	n, err := asNode(value)
	if err != nil {
		return nil, err
	}
	node := d.nodes.getOrCreate(Identity(n.Id), func() *Node {
		return newNode(d, n)
	})
	if node.IsStale() {
		if err := node.refresh(n); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (d *Database) relationshipFor(value any) (*Relationship, error) {
	r, err := asRelationship(value)
	if err != nil {
		return nil, err
	}
	rel := d.relationships.getOrCreate(Identity(r.Id), func() *Relationship {
		return newRelationship(d, r)
	})
	if rel.IsStale() {
		if err := rel.refresh(r); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

func (d *Database) resolveNode(tx *Transaction, id Identity) (*Node, error) {
	if tx == nil {
		if node, ok := d.nodes.get(id); ok && !node.IsStale() {
			if err := node.checkUsable(); err != nil {
				return nil, err
			}
			return node, nil
		}
		return nil, ErrTransactionClosed
	}
	return tx.GetNodeByID(id)
}

func (d *Database) resolveRelationship(tx *Transaction, id Identity) (*Relationship, error) {
	if tx == nil {
		if rel, ok := d.relationships.get(id); ok && !rel.IsStale() {
			if err := rel.checkUsable(); err != nil {
				return nil, err
			}
			return rel, nil
		}
		return nil, ErrTransactionClosed
	}
	return tx.GetRelationshipByID(id)
}

//Registers cached endpoint nodes with tx so their relationship caches are reset when it ends.
func (d *Database) registerEndpoints(tx *Transaction, ids ...Identity) {
	for _, id := range ids {
		if node, ok := d.nodes.get(id); ok {
			tx.register(node)
		}
	}
}
