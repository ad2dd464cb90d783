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
	"log/slog"
	"time"
)

const pingStatement = "RETURN 1 AS ping"

type cypherExecuter struct {
	connection Connection
	config     *Config
	logger     *slog.Logger
	txID       int64
}

//Creates a new instance of a `cypherExecuter` bound to one connection
func newCypherExecuter(connection Connection, config *Config, logger *slog.Logger, txID int64) *cypherExecuter {
	return &cypherExecuter{connection, config, logger, txID}
}

//Executes a given cql statement using the provided params, timing and optionally logging it.
func (c *cypherExecuter) exec(cql string, params map[string]any) (Cursor, error) {
	start := time.Now()
	cursor, err := c.connection.Run(cql, params)
	c.logStatement(cql, params, time.Since(start))

	if err != nil {
		return nil, translateError(err)
	}
	return cursor, nil
}

func (c *cypherExecuter) logStatement(cql string, params map[string]any, elapsed time.Duration) {
	if !c.config.LogQueries {
		return
	}
	if cql == pingStatement && !c.config.LogPingQueries {
		return
	}

	c.logger.Info(fmt.Sprintf("%dms %s", elapsed.Milliseconds(), cql), "tx", c.txID)
	if len(params) > 0 {
		c.logger.Info("Parameters: "+formatParameters(params, c.config), "tx", c.txID)
	}
}
