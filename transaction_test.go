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
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
	. "github.com/onsi/gomega"
)

func TestCommittedWriteIsVisibleLater(t *testing.T) {
	g := NewWithT(t)

	connector := newFakeConnector("")
	id := connector.seedNode([]string{"Person"}, map[string]any{"x": int64(0)})
	db := newTestDatabase(t, connector)

	tx, err := db.BeginTransaction()
	g.Expect(err).NotTo(HaveOccurred())
	node, err := tx.GetNodeByID(Identity(id))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(node.Set(tx, "x", 1)).To(Succeed())
	tx.Success()
	g.Expect(tx.Close()).To(Succeed())

	g.Expect(node.IsStale()).To(BeFalse())
	g.Expect(connector.committedProperty(id, "x")).To(Equal(1))
	g.Expect(connector.commits).To(Equal(1))

	tx, _ = db.BeginTransaction()
	defer tx.Close()
	again, err := tx.GetNodeByID(Identity(id))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(again).To(BeIdenticalTo(node))

	x, err := again.Get(tx, "x")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(x).To(Equal(1))
}

func TestRollbackMarksModifiedWrappersStale(t *testing.T) {
	g := NewWithT(t)

	connector := newFakeConnector("")
	id := connector.seedNode([]string{"Person"}, map[string]any{"x": int64(1)})
	untouchedID := connector.seedNode([]string{"Person"}, nil)
	db := newTestDatabase(t, connector)

	tx, _ := db.BeginTransaction()
	node, _ := tx.GetNodeByID(Identity(id))
	untouched, _ := tx.GetNodeByID(Identity(untouchedID))
	g.Expect(node.Set(tx, "x", 2)).To(Succeed())

	x, _ := node.Get(tx, "x")
	g.Expect(x).To(Equal(2))

	g.Expect(tx.Close()).To(Succeed())
	g.Expect(connector.rollbacks).To(Equal(1))
	g.Expect(connector.commits).To(Equal(0))

	g.Expect(node.IsStale()).To(BeTrue())
	g.Expect(untouched.IsStale()).To(BeFalse())

	tx, _ = db.BeginTransaction()
	defer tx.Close()
	x, err := node.Get(tx, "x")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(x).To(Equal(int64(1)))
	g.Expect(node.IsStale()).To(BeFalse())
}

func TestRolledBackCreateDisappears(t *testing.T) {
	g := NewWithT(t)

	connector := newFakeConnector("Acme")
	db := newTestDatabase(t, connector)

	tx, _ := db.BeginTransaction()
	node, err := tx.CreateNode([]string{"Person"}, map[string]any{"name": "ada"})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(node.Labels()).To(Equal([]string{"Person", "Acme"}))
	g.Expect(tx.Close()).To(Succeed())

	tx, _ = db.BeginTransaction()
	defer tx.Close()
	_, err = node.Get(tx, "name")
	g.Expect(err).To(MatchError(ErrNotFound))
	g.Expect(node.IsDeleted()).To(BeTrue())

	_, cached := db.nodes.get(node.ID())
	g.Expect(cached).To(BeFalse())
}

func TestCommitFailureStillReleasesConnection(t *testing.T) {
	g := NewWithT(t)

	connector := newFakeConnector("")
	id := connector.seedNode([]string{"Person"}, nil)
	connector.commitErr = &neo4j.Neo4jError{Code: "Neo.ClientError.Schema.ConstraintValidationFailed", Msg: "duplicate"}
	db := newTestDatabase(t, connector)

	tx, _ := db.BeginTransaction()
	node, _ := tx.GetNodeByID(Identity(id))
	g.Expect(node.Set(tx, "email", "a@b.c")).To(Succeed())
	tx.Success()

	g.Expect(tx.Close()).To(MatchError(ErrConstraintViolation))
	g.Expect(connector.closes).To(Equal(1))
	g.Expect(node.IsStale()).To(BeTrue())
	g.Expect(tx.IsClosed()).To(BeTrue())

	g.Expect(tx.Close()).To(Succeed())
	g.Expect(connector.closes).To(Equal(1))
}

func TestTransientFailureEndsTransaction(t *testing.T) {
	g := NewWithT(t)

	connector := newFakeConnector("")
	connector.script = func(statement string, params map[string]any) ([]*neo4j.Record, bool, error) {
		if statement == "MATCH (n) RETURN n" {
			return nil, true, &neo4j.Neo4jError{Code: "Neo.TransientError.Transaction.DeadlockDetected", Msg: "deadlock"}
		}
		return nil, false, nil
	}
	db := newTestDatabase(t, connector)

	tx, _ := db.BeginTransaction()
	_, err := tx.Run("MATCH (n) RETURN n", nil)
	g.Expect(err).To(MatchError(ErrRetryRequested))
	g.Expect(tx.IsClosed()).To(BeTrue())

	_, err = tx.Run("RETURN 1", nil)
	g.Expect(err).To(MatchError(ErrTransactionClosed))

	tx.Success()
	g.Expect(tx.Close()).To(Succeed())
	g.Expect(connector.commits).To(Equal(0))
	g.Expect(connector.rollbacks).To(Equal(1))
	g.Expect(connector.closes).To(Equal(1))
}

func TestTransientFailureWhileStreaming(t *testing.T) {
	g := NewWithT(t)

	connector := newFakeConnector("")
	connector.script = func(statement string, params map[string]any) ([]*neo4j.Record, bool, error) {
		return []*neo4j.Record{record("n", int64(1))}, true,
			lateError{&neo4j.Neo4jError{Code: "Neo.TransientError.General.DatabaseUnavailable", Msg: "restarting"}}
	}
	db := newTestDatabase(t, connector)

	tx, _ := db.BeginTransaction()
	defer tx.Close()

	stream, err := tx.Run("MATCH (n) RETURN n", nil)
	g.Expect(err).NotTo(HaveOccurred())

	records, err := stream.Collect()
	g.Expect(records).To(HaveLen(1))
	g.Expect(err).To(MatchError(ErrRetryRequested))
	g.Expect(tx.IsClosed()).To(BeTrue())
}

func TestTransactionIDsIncrease(t *testing.T) {
	g := NewWithT(t)

	db := newTestDatabase(t, newFakeConnector(""))

	first, _ := db.BeginTransaction()
	second, _ := db.BeginTransaction()
	defer first.Close()
	defer second.Close()

	g.Expect(second.ID()).To(BeNumerically(">", first.ID()))
}

func TestPing(t *testing.T) {
	g := NewWithT(t)

	connector := newFakeConnector("")
	db := newTestDatabase(t, connector)

	g.Expect(db.Ping()).To(Succeed())
	g.Expect(connector.executed()).To(Equal([]string{pingStatement}))
	g.Expect(connector.commits).To(Equal(1))
	g.Expect(db.Shutdown()).To(Succeed())
}

func TestStatementLoggingRedactsSensitiveValues(t *testing.T) {
	g := NewWithT(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	config := DefaultConfig()
	config.LogQueries = true
	config.SensitiveKeys = []string{"password", "token"}

	db, err := New(newFakeConnector(""), config, logger)
	g.Expect(err).NotTo(HaveOccurred())

	tx, _ := db.BeginTransaction()
	_, err = tx.CreateNode([]string{"User"}, map[string]any{"name": "ada", "password": "hunter2"})
	g.Expect(err).NotTo(HaveOccurred())
	tx.Close()

	g.Expect(db.Ping()).To(Succeed())

	output := buf.String()
	g.Expect(output).To(ContainSubstring("CREATE (n:User) SET n += $properties RETURN n"))
	g.Expect(output).To(ContainSubstring("Parameters: {properties: {name: ada, password: SENSITIVE VALUE REMOVED}}"))
	g.Expect(output).NotTo(ContainSubstring("hunter2"))
	g.Expect(output).NotTo(ContainSubstring(pingStatement))

	buf.Reset()
	config.LogPingQueries = true
	g.Expect(db.Ping()).To(Succeed())
	g.Expect(buf.String()).To(ContainSubstring(pingStatement))
}

func TestFormatParameters(t *testing.T) {
	g := NewWithT(t)

	config := DefaultConfig()
	formatted := formatParameters(map[string]any{
		"b":        int64(2),
		"a":        "x",
		"password": "secret",
		"nested":   map[string]any{"Password": "inner"},
	}, config)

	g.Expect(formatted).To(Equal("{a: x, b: 2, nested: {Password: SENSITIVE VALUE REMOVED}, password: SENSITIVE VALUE REMOVED}"))
	g.Expect(strings.Contains(formatted, "secret")).To(BeFalse())
}
