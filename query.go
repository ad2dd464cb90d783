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
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Query is implemented by *CypherQuery, *SimpleQuery and *FulltextQuery. Statement text for
// any of them is produced by Statement.
type Query interface {
	Parameters() map[string]any
	Context() *QueryContext
	FetchSize() int
	FetchPage() int
	NextPage()
	Hash() uint64
	sealed()
}

// QueryContext carries per-operation query settings and the timeout flag of a prefetch.
type QueryContext struct {
	// FetchSizeOverride replaces the query's own fetch size when positive.
	FetchSizeOverride int

	skip            int
	timeoutViolated atomic.Bool
}

func NewQueryContext() *QueryContext {
	return &QueryContext{}
}

// Skip is the number of records the caller drops from the first page to reach the
// requested offset.
func (c *QueryContext) Skip() int {
	return c.skip
}

// TimeoutViolated reports whether a prefetching iterator gave up waiting, so the results
// seen may be incomplete.
func (c *QueryContext) TimeoutViolated() bool {
	return c.timeoutViolated.Load()
}

func (c *QueryContext) markTimeoutViolated() {
	c.timeoutViolated.Store(true)
}

type paging struct {
	fetchSize    int
	fetchPage    int
	queryContext *QueryContext
	memo         *memo
}

func newPaging(fetchSize int, queryContext *QueryContext) paging {
	if queryContext == nil {
		queryContext = NewQueryContext()
	}
	if fetchSize <= 0 {
		fetchSize = defaultFetchSize
	}
	return paging{fetchSize: fetchSize, queryContext: queryContext, memo: &memo{}}
}

func (p *paging) Context() *QueryContext {
	return p.queryContext
}

func (p *paging) FetchSize() int {
	if p.queryContext.FetchSizeOverride > 0 {
		return p.queryContext.FetchSizeOverride
	}
	return p.fetchSize
}

func (p *paging) FetchPage() int {
	return p.fetchPage
}

func (p *paging) NextPage() {
	p.fetchPage++
	p.memo.reset()
}

// SetOffset positions the query on the page containing offset. The remainder is recorded on
// the context for the caller to skip.
func (p *paging) SetOffset(offset int) {
	size := p.FetchSize()
	p.fetchPage = offset / size
	p.queryContext.skip = offset % size
	p.memo.reset()
}

func (p *paging) pagingSuffix() string {
	size := p.FetchSize()
	return fmt.Sprintf(" SKIP %d LIMIT %d", p.fetchPage*size, size)
}

type memo struct {
	valid bool
	hash  uint64
}

func (m *memo) reset() {
	m.valid = false
}

func (m *memo) get(q Query) uint64 {
	if !m.valid {
		m.hash = hashQuery(q)
		m.valid = true
	}
	return m.hash
}

// Statement renders q. With paged, SKIP and LIMIT for the current page are appended.
func Statement(q Query, paged bool) string {
	switch q := q.(type) {
	case *CypherQuery:
		return q.statement(paged)
	case *SimpleQuery:
		return q.statement(paged)
	case *FulltextQuery:
		return q.statement(paged)
	default:
		panic(fmt.Sprintf("unsupported query type %T", q))
	}
}

// EqualQueries reports whether a and b render the same paged statement with equal parameters.
func EqualQueries(a, b Query) bool {
	if Statement(a, true) != Statement(b, true) {
		return false
	}
	return valuesEqual(a.Parameters(), b.Parameters())
}

func hashQuery(q Query) uint64 {
	h := xxhash.New()
	h.WriteString(Statement(q, true))

	params := q.Parameters()
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(h, "\x00%s=%v", key, canonicalValue(params[key]))
	}
	return h.Sum64()
}

//Normalizes values that valuesEqual treats as equal so they hash alike.
func canonicalValue(value any) any {
	if n, ok := asInt64(value); ok {
		return n
	}
	if f, ok := asFloat64(value); ok {
		return f
	}
	if value == nil {
		return nil
	}
	v := reflect.ValueOf(value)
	if isSequence(v) {
		items := make([]any, v.Len())
		for i := range items {
			items[i] = canonicalValue(v.Index(i).Interface())
		}
		return items
	}
	return value
}

// SimpleQuery is a caller-written statement with its parameters.
type SimpleQuery struct {
	paging
	text       string
	parameters map[string]any
}

func NewSimpleQuery(statement string, params map[string]any, fetchSize int, queryContext *QueryContext) *SimpleQuery {
	return &SimpleQuery{
		paging:     newPaging(fetchSize, queryContext),
		text:       statement,
		parameters: copyProperties(params),
	}
}

func (q *SimpleQuery) statement(paged bool) string {
	if paged {
		return q.text + q.pagingSuffix()
	}
	return q.text
}

func (q *SimpleQuery) Parameters() map[string]any {
	return q.parameters
}

func (q *SimpleQuery) Hash() uint64 {
	return q.memo.get(q)
}

func (q *SimpleQuery) sealed() {}

// FulltextQuery searches a fulltext index, best score first.
type FulltextQuery struct {
	paging
	tenant string
	index  string
	term   string
}

func NewFulltextQuery(tenant, index, term string, fetchSize int, queryContext *QueryContext) *FulltextQuery {
	return &FulltextQuery{
		paging: newPaging(fetchSize, queryContext),
		tenant: tenant,
		index:  index,
		term:   term,
	}
}

func (q *FulltextQuery) statement(paged bool) string {
	statement := "CALL db.index.fulltext.queryNodes($indexName, $searchValue) YIELD node AS n, score"
	if q.tenant != "" {
		statement += " WHERE n" + tenantLabel(q.tenant)
	}
	statement += " RETURN n, score ORDER BY score DESC"
	if paged {
		statement += q.pagingSuffix()
	}
	return statement
}

func (q *FulltextQuery) Parameters() map[string]any {
	return map[string]any{
		"indexName":   q.index,
		"searchValue": q.term,
	}
}

func (q *FulltextQuery) Hash() uint64 {
	return q.memo.get(q)
}

func (q *FulltextQuery) sealed() {}
