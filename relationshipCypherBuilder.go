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

type relationshipCypherBuilder struct {
	tenant string
}

func newRelationshipCypherBuilder(tenant string) relationshipCypherBuilder {
	return relationshipCypherBuilder{tenant}
}

func (rqb relationshipCypherBuilder) getMatch() string {
	endpoint := tenantLabel(rqb.tenant)
	return `MATCH (s` + endpoint + `)-[r]->(e` + endpoint + `) WHERE ID(r) = $id`
}

func (rqb relationshipCypherBuilder) getByID() string {
	return rqb.getMatch() + ` RETURN r`
}

func (rqb relationshipCypherBuilder) getSet() string {
	return rqb.getMatch() + ` SET r += $properties RETURN r`
}

func (rqb relationshipCypherBuilder) getDelete() string {
	return rqb.getMatch() + ` DELETE r`
}

func (rqb relationshipCypherBuilder) getCreate(relType string) string {
	endpoint := tenantLabel(rqb.tenant)
	return `MATCH (s` + endpoint + `), (e` + endpoint + `) WHERE ID(s) = $start AND ID(e) = $end ` +
		`CREATE (s)-[r:` + quoteIdentifier(relType) + `]->(e) SET r += $properties RETURN r`
}
