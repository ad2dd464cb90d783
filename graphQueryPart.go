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

import "fmt"

type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "OUTGOING"
	case Incoming:
		return "INCOMING"
	default:
		return "BOTH"
	}
}

type Occurrence int

const (
	Required Occurrence = iota
	Optional
)

// GraphQueryPart describes one hop from the query's source node n to another node.
type GraphQueryPart struct {
	Direction        Direction
	RelationshipType string
	OtherLabel       string
	Occurrence       Occurrence
}

// LinkIdentifier is the structural key of the hop. Optional hops sharing it share a variable.
func (p GraphQueryPart) LinkIdentifier() string {
	return fmt.Sprintf("%s/%s/%s", p.Direction, p.RelationshipType, p.OtherLabel)
}

func (p GraphQueryPart) pattern(from, to, tenant string) string {
	return `(` + from + `)` + relationshipPattern(p.Direction, "", p.RelationshipType) + `(` + to + labelString(p.OtherLabel, tenant) + `)`
}

//Renders the relationship segment of a pattern, e.g. -[r:KNOWS]->.
func relationshipPattern(direction Direction, identifier, relType string) string {
	inner := identifier
	if relType != "" {
		inner += ":" + quoteIdentifier(relType)
	}
	switch direction {
	case Outgoing:
		return `-[` + inner + `]->`
	case Incoming:
		return `<-[` + inner + `]-`
	default:
		return `-[` + inner + `]-`
	}
}

type graphPart struct {
	GraphQueryPart
	identifier string
}
