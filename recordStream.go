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

import "github.com/neo4j/neo4j-go-driver/v4/neo4j"

// RecordStream iterates the records of one statement. Wire errors are translated when the
// cursor is exhausted and are returned by Err.
type RecordStream struct {
	cursor Cursor
	tx     *Transaction
	record *neo4j.Record
	err    error
	done   bool
}

func (s *RecordStream) Next() bool {
	if s.done {
		return false
	}
	if s.cursor.Next() {
		s.record = s.cursor.Record()
		return true
	}

	s.done = true
	s.record = nil
	if err := s.cursor.Err(); err != nil {
		s.err = translateError(err)
		s.tx.fail(s.err)
	}
	return false
}

func (s *RecordStream) Record() *neo4j.Record {
	return s.record
}

func (s *RecordStream) Err() error {
	return s.err
}

func (s *RecordStream) Collect() ([]*neo4j.Record, error) {
	var records []*neo4j.Record
	for s.Next() {
		records = append(records, s.record)
	}
	return records, s.err
}

// Single returns the first record, or an ErrNotFound error when there is none.
func (s *RecordStream) Single() (*neo4j.Record, error) {
	records, err := s.Collect()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0].Values) == 0 {
		return nil, newError(ErrNotFound, "", "expected a single record", nil)
	}
	return records[0], nil
}
