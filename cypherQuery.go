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
	"strconv"
	"strings"
)

const (
	sourceIdentifier = "n"
	firstIdentifier  = 'o'
	lastIdentifier   = 'z'
)

type ListMode int

const (
	AnyElement ListMode = iota
	AllElements
)

// SortSpec orders results by a property of n.
type SortSpec struct {
	Key        string
	Descending bool
}

// CypherQuery builds a parameterized MATCH statement. Predicates are appended in call order
// and combined with And, Or, Not, AndNot and groups exactly as called; there is no
// precedence handling beyond what Cypher itself applies to the emitted text.
type CypherQuery struct {
	paging
	tenant        string
	relationships bool
	typeLabels    []string
	indexLabels   []string
	sourceLabel   string
	targetLabel   string
	buffer        strings.Builder
	parameters    map[string]any
	count         int
	parts         []graphPart
	partsByLink   map[string]string
	sort          []SortSpec
}

func NewCypherQuery(tenant string, fetchSize int, queryContext *QueryContext) *CypherQuery {
	return &CypherQuery{
		paging:      newPaging(fetchSize, queryContext),
		tenant:      tenant,
		parameters:  map[string]any{},
		partsByLink: map[string]string{},
	}
}

// NewRelationshipQuery matches relationships bound to n between a source s and a target t.
// Type labels become alternative relationship types; graph parts are not rendered.
func NewRelationshipQuery(tenant string, fetchSize int, queryContext *QueryContext) *CypherQuery {
	q := NewCypherQuery(tenant, fetchSize, queryContext)
	q.relationships = true
	return q
}

func (q *CypherQuery) changed() {
	q.memo.reset()
}

func (q *CypherQuery) AddTypeLabel(label string) {
	for _, existing := range q.typeLabels {
		if existing == label {
			return
		}
	}
	q.typeLabels = append(q.typeLabels, label)
	q.changed()
}

// AddIndexLabel adds a label every matched node must carry in addition to its type.
func (q *CypherQuery) AddIndexLabel(label string) {
	for _, existing := range q.indexLabels {
		if existing == label {
			return
		}
	}
	q.indexLabels = append(q.indexLabels, label)
	q.changed()
}

func (q *CypherQuery) SetSourceLabel(label string) {
	q.sourceLabel = label
	q.changed()
}

func (q *CypherQuery) SetTargetLabel(label string) {
	q.targetLabel = label
	q.changed()
}

func (q *CypherQuery) append(text string) {
	q.buffer.WriteString(text)
	q.changed()
}

func (q *CypherQuery) And()        { q.append(" AND ") }
func (q *CypherQuery) Or()         { q.append(" OR ") }
func (q *CypherQuery) Not()        { q.append("NOT ") }
func (q *CypherQuery) AndNot()     { q.append(" AND NOT ") }
func (q *CypherQuery) BeginGroup() { q.append("(") }
func (q *CypherQuery) EndGroup()   { q.append(")") }

func (q *CypherQuery) nextParameter(value any) string {
	name := "param" + strconv.Itoa(q.count)
	q.count++
	q.parameters[name] = value
	return "$" + name
}

// AddSimpleParameter appends identifier.key operator $param. A nil value with = or <>
// becomes an IS NULL or IS NOT NULL check. With caseInsensitive, string values and the
// property access are both lowercased.
func (q *CypherQuery) AddSimpleParameter(identifier, key, operator string, value any, caseInsensitive bool) {
	access := identifier + "." + quoteIdentifier(key)

	if value == nil {
		switch operator {
		case "=":
			q.append(access + " IS NULL")
			return
		case "<>":
			q.append(access + " IS NOT NULL")
			return
		}
	}

	if s, isString := value.(string); isString && caseInsensitive {
		access = "toLower(" + access + ")"
		value = strings.ToLower(s)
	}

	q.append(access + " " + operator + " " + q.nextParameter(value))
}

// AddListParameter matches when any (or all) of values is contained in the list
// property identifier.key.
func (q *CypherQuery) AddListParameter(identifier, key string, values []any, mode ListMode) {
	function := "ANY"
	if mode == AllElements {
		function = "ALL"
	}
	q.append(function + "(x IN " + q.nextParameter(values) + " WHERE x IN " + identifier + "." + quoteIdentifier(key) + ")")
}

// AddRangeParameter appends a two-sided range on identifier.key. A nil bound is open.
func (q *CypherQuery) AddRangeParameter(identifier, key string, from, to any, includeFrom, includeTo bool) {
	access := identifier + "." + quoteIdentifier(key)

	var conditions []string
	if from != nil {
		operator := ">"
		if includeFrom {
			operator = ">="
		}
		conditions = append(conditions, access+" "+operator+" "+q.nextParameter(from))
	}
	if to != nil {
		operator := "<"
		if includeTo {
			operator = "<="
		}
		conditions = append(conditions, access+" "+operator+" "+q.nextParameter(to))
	}

	if len(conditions) == 0 {
		q.append(access + " IS NOT NULL")
		return
	}
	q.append("(" + strings.Join(conditions, " AND ") + ")")
}

// AddNullObjectParameter checks that no relationship of relType exists from n in direction,
// or with exists, that at least one does.
func (q *CypherQuery) AddNullObjectParameter(direction Direction, relType string, exists bool) {
	pattern := "(" + sourceIdentifier + ")" + relationshipPattern(direction, "", relType) + "()"
	if exists {
		q.append(pattern)
		return
	}
	q.append("NOT " + pattern)
}

// AddGraphQueryPart adds a hop from n and returns the identifier bound to the other node.
// Optional hops with the same link identifier share one identifier.
func (q *CypherQuery) AddGraphQueryPart(part GraphQueryPart) string {
	link := part.LinkIdentifier()
	if part.Occurrence == Optional {
		if identifier, exists := q.partsByLink[link]; exists {
			return identifier
		}
	}

	identifier := q.nextIdentifier()
	q.parts = append(q.parts, graphPart{part, identifier})
	if part.Occurrence == Optional {
		q.partsByLink[link] = identifier
	}
	q.changed()
	return identifier
}

//Identifiers run o..z and continue as n12, n13, ... once the alphabet is used up.
func (q *CypherQuery) nextIdentifier() string {
	index := len(q.parts)
	if letter := firstIdentifier + rune(index); letter <= lastIdentifier {
		return string(letter)
	}
	return sourceIdentifier + strconv.Itoa(index)
}

func (q *CypherQuery) Sort(specs ...SortSpec) {
	q.sort = append([]SortSpec{}, specs...)
	q.changed()
}

func (q *CypherQuery) AddSort(spec SortSpec) {
	q.sort = append(q.sort, spec)
	q.changed()
}

func (q *CypherQuery) Parameters() map[string]any {
	return q.parameters
}

func (q *CypherQuery) TypeLabels() []string {
	return append([]string{}, q.typeLabels...)
}

func (q *CypherQuery) Hash() uint64 {
	return q.memo.get(q)
}

func (q *CypherQuery) sealed() {}

func (q *CypherQuery) statement(paged bool) string {
	var buf strings.Builder

	if q.relationships {
		q.writeRelationshipMatch(&buf)
		q.writeWhere(&buf)
		q.writeReturn(&buf, paged)
		return buf.String()
	}

	switch len(q.typeLabels) {
	case 0:
		q.writeNodeMatch(&buf, "")
		q.writeWhere(&buf)
		q.writeReturn(&buf, paged)
	case 1:
		q.writeNodeMatch(&buf, q.typeLabels[0])
		q.writeWhere(&buf)
		q.writeReturn(&buf, paged)
	default:
		buf.WriteString("CALL { ")
		for i, label := range q.typeLabels {
			if i > 0 {
				buf.WriteString(" UNION ")
			}
			q.writeNodeMatch(&buf, label)
			q.writeWhere(&buf)
			buf.WriteString(" RETURN " + sourceIdentifier)
		}
		buf.WriteString(" }")
		q.writeReturn(&buf, paged)
	}
	return buf.String()
}

func (q *CypherQuery) writeNodeMatch(buf *strings.Builder, typeLabel string) {
	labels := append([]string{typeLabel}, q.indexLabels...)
	labels = append(labels, q.tenant)

	buf.WriteString("MATCH (" + sourceIdentifier + labelString(labels...) + ")")

	variables := []string{sourceIdentifier}
	for _, part := range q.parts {
		if part.Occurrence != Required {
			continue
		}
		fmt.Fprintf(buf, " WITH %s MATCH %s", strings.Join(variables, ", "), part.pattern(sourceIdentifier, part.identifier, q.tenant))
		variables = append(variables, part.identifier)
	}
	for _, part := range q.parts {
		if part.Occurrence == Optional {
			buf.WriteString(" OPTIONAL MATCH " + part.pattern(sourceIdentifier, part.identifier, q.tenant))
		}
	}
}

func (q *CypherQuery) writeRelationshipMatch(buf *strings.Builder) {
	relTypes := ""
	if len(q.typeLabels) > 0 {
		quoted := make([]string, len(q.typeLabels))
		for i, label := range q.typeLabels {
			quoted[i] = quoteIdentifier(label)
		}
		relTypes = ":" + strings.Join(quoted, "|")
	}
	buf.WriteString("MATCH (s" + labelString(q.sourceLabel, q.tenant) + ")-[" + sourceIdentifier + relTypes + "]->(t" + labelString(q.targetLabel, q.tenant) + ")")
}

//WHERE after OPTIONAL MATCH would filter the optional pattern instead of the rows, so
//optional parts get a WITH projection first.
func (q *CypherQuery) writeWhere(buf *strings.Builder) {
	if q.buffer.Len() == 0 {
		return
	}
	if q.hasOptionalParts() && !q.relationships {
		buf.WriteString(" WITH " + strings.Join(q.variables(), ", "))
	}
	buf.WriteString(" WHERE " + q.buffer.String())
}

func (q *CypherQuery) writeReturn(buf *strings.Builder, paged bool) {
	buf.WriteString(" RETURN ")
	if len(q.parts) > 0 && !q.relationships {
		buf.WriteString("DISTINCT ")
	}
	buf.WriteString(sourceIdentifier)

	for i, spec := range q.sort {
		fmt.Fprintf(buf, ", %s.%s AS sortKey%d", sourceIdentifier, quoteIdentifier(spec.Key), i)
	}
	if len(q.sort) > 0 {
		buf.WriteString(" ORDER BY ")
		for i, spec := range q.sort {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(buf, "sortKey%d", i)
			if spec.Descending {
				buf.WriteString(" DESC")
			}
		}
	}

	if paged {
		buf.WriteString(q.pagingSuffix())
	}
}

func (q *CypherQuery) hasOptionalParts() bool {
	for _, part := range q.parts {
		if part.Occurrence == Optional {
			return true
		}
	}
	return false
}

func (q *CypherQuery) variables() []string {
	variables := []string{sourceIdentifier}
	for _, part := range q.parts {
		variables = append(variables, part.identifier)
	}
	return variables
}
