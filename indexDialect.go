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
	"sort"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

type IndexKind int

const (
	PlainIndex IndexKind = iota
	TextIndex
	FulltextIndex
)

func (k IndexKind) String() string {
	switch k {
	case TextIndex:
		return "text"
	case FulltextIndex:
		return "fulltext"
	default:
		return "plain"
	}
}

func ParseIndexKind(value string) (IndexKind, error) {
	switch strings.ToLower(value) {
	case "", "plain", "range", "btree":
		return PlainIndex, nil
	case "text":
		return TextIndex, nil
	case "fulltext":
		return FulltextIndex, nil
	}
	return PlainIndex, fmt.Errorf("unknown index kind %q", value)
}

// IndexConfig is one desired index on a node label.
type IndexConfig struct {
	Type     string
	Property string
	Kind     IndexKind
}

// ExistingIndex is a catalog row normalized by a dialect.
type ExistingIndex struct {
	Identifier string
	Name       string
	State      string
}

// IndexDialect renders catalog and DDL statements for one server generation. An empty
// create or drop statement means the dialect cannot perform the change.
type IndexDialect interface {
	CatalogStatement() string
	Existing(record *neo4j.Record) (ExistingIndex, bool)
	Identifier(config IndexConfig) string
	CreateStatement(config IndexConfig) string
	DropStatement(index ExistingIndex) string
}

// DialectFor picks the dialect for a server version such as "4.4.12". Unparseable versions get
// the newest dialect.
func DialectFor(version string) IndexDialect {
	parts := strings.SplitN(strings.TrimSpace(version), ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return schemaDialect{}
	}
	if major < 4 {
		return legacyDialect{}
	}
	minor := 0
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	return schemaDialect{major: major, minor: minor}
}

//legacyDialect only reads the catalog of pre-4.0 servers; it never changes it.
type legacyDialect struct{}

func (legacyDialect) CatalogStatement() string {
	return "CALL db.indexes() YIELD description, state RETURN description, state"
}

func (legacyDialect) Existing(record *neo4j.Record) (ExistingIndex, bool) {
	description, _ := recordString(record, "description")
	if description == "" {
		return ExistingIndex{}, false
	}
	state, _ := recordString(record, "state")
	return ExistingIndex{Identifier: description, Name: description, State: state}, true
}

func (legacyDialect) Identifier(config IndexConfig) string {
	return fmt.Sprintf("INDEX ON :%s(%s)", config.Type, config.Property)
}

func (legacyDialect) CreateStatement(IndexConfig) string {
	return ""
}

func (legacyDialect) DropStatement(ExistingIndex) string {
	return ""
}

//schemaDialect covers 4.0 and later. The zero value renders for the newest servers.
type schemaDialect struct {
	major, minor int
}

func (d schemaDialect) atLeast(major, minor int) bool {
	if d.major == 0 {
		return true
	}
	return d.major > major || (d.major == major && d.minor >= minor)
}

func (d schemaDialect) CatalogStatement() string {
	switch {
	case !d.atLeast(4, 2):
		return "CALL db.indexes() YIELD name, type, labelsOrTypes, properties, state, uniqueness " +
			"RETURN name, type, labelsOrTypes, properties, state, uniqueness"
	case !d.atLeast(5, 0):
		return "SHOW INDEXES YIELD name, type, labelsOrTypes, properties, state, uniqueness " +
			"RETURN name, type, labelsOrTypes, properties, state, uniqueness"
	}
	return "SHOW INDEXES YIELD name, type, labelsOrTypes, properties, state, owningConstraint " +
		"RETURN name, type, labelsOrTypes, properties, state, owningConstraint"
}

//Token lookup indexes, constraint-backed indexes and kinds this package does not manage are
//left alone.
func (schemaDialect) Existing(record *neo4j.Record) (ExistingIndex, bool) {
	if owner, ok := record.Get("owningConstraint"); ok && owner != nil {
		return ExistingIndex{}, false
	}
	if uniqueness, _ := recordString(record, "uniqueness"); strings.EqualFold(uniqueness, "UNIQUE") {
		return ExistingIndex{}, false
	}

	name, _ := recordString(record, "name")
	indexType, _ := recordString(record, "type")

	var kind IndexKind
	switch strings.ToUpper(indexType) {
	case "RANGE", "BTREE":
		kind = PlainIndex
	case "TEXT":
		kind = TextIndex
	case "FULLTEXT":
		kind = FulltextIndex
	default:
		return ExistingIndex{}, false
	}

	labels := recordStrings(record, "labelsOrTypes")
	properties := recordStrings(record, "properties")
	if name == "" || len(labels) == 0 || len(properties) == 0 {
		return ExistingIndex{}, false
	}
	sort.Strings(labels)
	sort.Strings(properties)

	state, _ := recordString(record, "state")
	return ExistingIndex{
		Identifier: schemaIdentifier(kind, strings.Join(labels, ","), strings.Join(properties, ",")),
		Name:       name,
		State:      state,
	}, true
}

func (schemaDialect) Identifier(config IndexConfig) string {
	return schemaIdentifier(config.Kind, config.Type, config.Property)
}

func schemaIdentifier(kind IndexKind, labels, properties string) string {
	return kind.String() + ":" + labels + ":" + properties
}

func indexName(config IndexConfig) string {
	return config.Type + "_" + config.Property + "_" + config.Kind.String()
}

func (d schemaDialect) CreateStatement(config IndexConfig) string {
	name := quoteIdentifier(indexName(config))
	label := quoteIdentifier(config.Type)
	property := quoteIdentifier(config.Property)

	ifNotExists := ""
	if d.atLeast(4, 1) {
		ifNotExists = " IF NOT EXISTS"
	}

	switch config.Kind {
	case TextIndex:
		if !d.atLeast(4, 4) {
			return ""
		}
		return fmt.Sprintf("CREATE TEXT INDEX %s%s FOR (n:%s) ON (n.%s)", name, ifNotExists, label, property)
	case FulltextIndex:
		if !d.atLeast(4, 3) {
			return ""
		}
		return fmt.Sprintf("CREATE FULLTEXT INDEX %s%s FOR (n:%s) ON EACH [n.%s]", name, ifNotExists, label, property)
	default:
		return fmt.Sprintf("CREATE INDEX %s%s FOR (n:%s) ON (n.%s)", name, ifNotExists, label, property)
	}
}

func (d schemaDialect) DropStatement(index ExistingIndex) string {
	statement := "DROP INDEX `" + strings.ReplaceAll(index.Name, "`", "``") + "`"
	if d.atLeast(4, 1) {
		statement += " IF EXISTS"
	}
	return statement
}

func recordString(record *neo4j.Record, key string) (string, bool) {
	value, ok := record.Get(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

func recordStrings(record *neo4j.Record, key string) []string {
	value, ok := record.Get(key)
	if !ok {
		return nil
	}
	var values []string
	switch v := value.(type) {
	case []string:
		values = append(values, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	}
	return values
}
