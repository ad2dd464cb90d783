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
	"time"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

//Cursor is a lazily consumed sequence of records. neo4j.Result satisfies it.
type Cursor interface {
	Next() bool
	Record() *neo4j.Record
	Err() error
}

//Connection is one exclusive remote transaction.
type Connection interface {
	Run(statement string, params map[string]any) (Cursor, error)
	Commit() error
	Rollback() error
	Close() error
}

//Connector hands out one Connection per Transaction.
type Connector interface {
	Connect(timeout time.Duration) (Connection, error)
	Close() error
}

// Neo4jConnector opens connections through a neo4j.Driver.
type Neo4jConnector struct {
	driver   neo4j.Driver
	database string
}

// NewNeo4jConnector creates a driver for config.URI with basic auth.
func NewNeo4jConnector(config *Config) (*Neo4jConnector, error) {
	driver, err := neo4j.NewDriver(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""), func(c *neo4j.Config) {
		if config.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = config.MaxConnectionPoolSize
		}
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &Neo4jConnector{driver: driver, database: config.Database}, nil
}

func (c *Neo4jConnector) Connect(timeout time.Duration) (Connection, error) {
	session := c.driver.NewSession(neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})

	var configurers []func(*neo4j.TransactionConfig)
	if timeout > 0 {
		configurers = append(configurers, neo4j.WithTxTimeout(timeout))
	}

	tx, err := session.BeginTransaction(configurers...)
	if err != nil {
		session.Close()
		return nil, translateError(err)
	}
	return &neo4jConnection{session: session, tx: tx}, nil
}

func (c *Neo4jConnector) VerifyConnectivity() error {
	return translateError(c.driver.VerifyConnectivity())
}

func (c *Neo4jConnector) Close() error {
	return c.driver.Close()
}

type neo4jConnection struct {
	session neo4j.Session
	tx      neo4j.Transaction
}

func (c *neo4jConnection) Run(statement string, params map[string]any) (Cursor, error) {
	result, err := c.tx.Run(statement, params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *neo4jConnection) Commit() error {
	return c.tx.Commit()
}

func (c *neo4jConnection) Rollback() error {
	return c.tx.Rollback()
}

func (c *neo4jConnection) Close() error {
	txErr := c.tx.Close()
	if err := c.session.Close(); err != nil {
		return err
	}
	return txErr
}
