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
	"sort"
	"strings"
)

const versionStatement = "CALL dbms.components() YIELD versions RETURN versions[0] AS version"

// ReconcileReport counts the DDL statements a reconcile pass issued.
type ReconcileReport struct {
	Created int
	Dropped int
	Failed  int
}

// IndexManager brings the remote index catalog in line with a desired list of indexes.
type IndexManager struct {
	db      *Database
	dialect IndexDialect
	logger  *slog.Logger
}

func NewIndexManager(db *Database, dialect IndexDialect) *IndexManager {
	return &IndexManager{db: db, dialect: dialect, logger: db.logger}
}

// DetectDialect asks the server for its version and returns the matching dialect.
func (d *Database) DetectDialect() (IndexDialect, error) {
	tx, err := d.BeginTransaction()
	if err != nil {
		return nil, err
	}
	defer tx.Close()

	record, err := tx.single(versionStatement, nil)
	if err != nil {
		return nil, err
	}
	version, _ := record.Values[0].(string)
	tx.Success()
	return DialectFor(version), nil
}

// Reconcile creates missing indexes and drops those not in desired, each statement in its
// own transaction. Indexes in a FAILED state are dropped first and then treated as missing.
// Individual failures are logged and counted; only a failed catalog read aborts the pass.
func (m *IndexManager) Reconcile(desired []IndexConfig) (ReconcileReport, error) {
	var report ReconcileReport

	existing, err := m.discover()
	if err != nil {
		return report, err
	}

	for _, identifier := range sortedIdentifiers(existing) {
		index := existing[identifier]
		if !strings.EqualFold(index.State, "FAILED") {
			continue
		}
		m.logger.Warn("index is in FAILED state and will be dropped, the indexed data may not be indexable", "index", index.Name)
		m.drop(index, &report)
		delete(existing, identifier)
	}

	handled := map[string]bool{}
	for _, config := range desired {
		identifier := m.dialect.Identifier(config)
		if handled[identifier] {
			continue
		}
		handled[identifier] = true

		if _, exists := existing[identifier]; exists {
			delete(existing, identifier)
			continue
		}

		statement := m.dialect.CreateStatement(config)
		if statement == "" {
			continue
		}
		if err := m.execute(statement); err != nil {
			m.logger.Warn("unable to create index", "type", config.Type, "property", config.Property, "kind", config.Kind.String(), "error", err)
			report.Failed++
			continue
		}
		report.Created++
	}

	for _, identifier := range sortedIdentifiers(existing) {
		m.drop(existing[identifier], &report)
	}

	m.logger.Info("index reconciliation finished", "created", report.Created, "dropped", report.Dropped, "failed", report.Failed)
	return report, nil
}

// Existing lists the managed indexes currently in the catalog, ordered by identifier.
func (m *IndexManager) Existing() ([]ExistingIndex, error) {
	existing, err := m.discover()
	if err != nil {
		return nil, err
	}
	indexes := make([]ExistingIndex, 0, len(existing))
	for _, identifier := range sortedIdentifiers(existing) {
		indexes = append(indexes, existing[identifier])
	}
	return indexes, nil
}

func (m *IndexManager) discover() (map[string]ExistingIndex, error) {
	tx, err := m.db.BeginTransaction()
	if err != nil {
		return nil, err
	}
	defer tx.Close()

	stream, err := tx.Run(m.dialect.CatalogStatement(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read index catalog: %w", err)
	}

	existing := map[string]ExistingIndex{}
	for stream.Next() {
		if index, ok := m.dialect.Existing(stream.Record()); ok {
			existing[index.Identifier] = index
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index catalog: %w", err)
	}

	tx.Success()
	return existing, nil
}

func (m *IndexManager) drop(index ExistingIndex, report *ReconcileReport) {
	statement := m.dialect.DropStatement(index)
	if statement == "" {
		return
	}
	if err := m.execute(statement); err != nil {
		m.logger.Warn("unable to drop index", "index", index.Name, "error", err)
		report.Failed++
		return
	}
	report.Dropped++
}

func (m *IndexManager) execute(statement string) error {
	tx, err := m.db.BeginTransaction()
	if err != nil {
		return err
	}
	if err := tx.exec(statement, nil); err != nil {
		tx.Close()
		return err
	}
	tx.Success()
	return tx.Close()
}

func sortedIdentifiers(indexes map[string]ExistingIndex) []string {
	identifiers := make([]string, 0, len(indexes))
	for identifier := range indexes {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}
