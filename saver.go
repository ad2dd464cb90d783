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

//Diffs properties against the wrapper's snapshot and writes only the changed keys. Nothing is
//sent when no key differs.
func saveProperties(tx *Transaction, w persistable, properties map[string]any) error {
	if err := ensureFresh(tx, w); err != nil {
		return err
	}

	delta := diffProperties(properties, w.base().snapshot())
	if len(delta) == 0 {
		return nil
	}
	return writeProperties(tx, w, delta)
}

//Writes properties unconditionally, replaces the snapshot with the returned entity and
//registers the wrapper as modified. Nil values remove the property.
func writeProperties(tx *Transaction, w persistable, properties map[string]any) error {
	if err := w.base().checkUsable(); err != nil {
		return err
	}
	if tx == nil {
		return ErrTransactionClosed
	}

	parameters := map[string]any{
		"id":         int64(w.base().id),
		"properties": properties,
	}

	record, err := tx.single(w.setStatement(), parameters)
	if err != nil {
		return err
	}
	if err := w.refresh(record.Values[0]); err != nil {
		return err
	}

	tx.register(w)
	return nil
}
