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
	"regexp"
	"strings"
)

type nodeCypherBuilder struct {
	tenant string
}

func newNodeCypherBuilder(tenant string) nodeCypherBuilder {
	return nodeCypherBuilder{tenant}
}

func (nqb nodeCypherBuilder) getMatch() string {
	return `MATCH (n` + tenantLabel(nqb.tenant) + `) WHERE ID(n) = $id`
}

func (nqb nodeCypherBuilder) getByID() string {
	return nqb.getMatch() + ` RETURN n`
}

func (nqb nodeCypherBuilder) getSet() string {
	return nqb.getMatch() + ` SET n += $properties RETURN n`
}

func (nqb nodeCypherBuilder) getDelete(cascade bool) string {
	if cascade {
		return nqb.getMatch() + ` DETACH DELETE n`
	}
	return nqb.getMatch() + ` DELETE n`
}

func (nqb nodeCypherBuilder) getCreate(labels []string) string {
	return `CREATE (n` + labelString(append(append([]string{}, labels...), nqb.tenant)...) + `) SET n += $properties RETURN n`
}

func (nqb nodeCypherBuilder) getRelationships(direction Direction, relType string) string {
	other := tenantLabel(nqb.tenant)
	return `MATCH (n` + other + `)` + relationshipPattern(direction, "r", relType) + `(m` + other + `) WHERE ID(n) = $id RETURN r`
}

//Renders labels as ":A:B", skipping empty ones.
func labelString(labels ...string) string {
	var b strings.Builder
	for _, label := range labels {
		if label != "" {
			b.WriteString(":")
			b.WriteString(quoteIdentifier(label))
		}
	}
	return b.String()
}

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

//quoteIdentifier backtick-quotes a label, type or property key unless it is a plain identifier.
func quoteIdentifier(name string) string {
	if plainIdentifier.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func tenantLabel(tenant string) string {
	return labelString(tenant)
}
