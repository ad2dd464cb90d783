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
	"testing"

	. "github.com/onsi/gomega"
)

func TestValuesEqual(t *testing.T) {
	g := NewWithT(t)

	g.Expect(valuesEqual(1, int64(1))).To(BeTrue())
	g.Expect(valuesEqual(int32(7), uint8(7))).To(BeTrue())
	g.Expect(valuesEqual(float32(1.5), 1.5)).To(BeTrue())
	g.Expect(valuesEqual(1, 1.0)).To(BeFalse())
	g.Expect(valuesEqual("a", "a")).To(BeTrue())
	g.Expect(valuesEqual("a", "b")).To(BeFalse())
	g.Expect(valuesEqual(nil, nil)).To(BeTrue())
	g.Expect(valuesEqual(nil, 0)).To(BeFalse())

	g.Expect(valuesEqual([]any{int64(1), "x"}, []int64{1})).To(BeFalse())
	g.Expect(valuesEqual([]any{int64(1), int64(2)}, []int{1, 2})).To(BeTrue())
	g.Expect(valuesEqual([2]string{"a", "b"}, []any{"a", "b"})).To(BeTrue())

	g.Expect(valuesEqual(map[string]any{"k": 1}, map[string]any{"k": int64(1)})).To(BeTrue())
	g.Expect(valuesEqual(map[string]any{"k": 1}, map[string]any{"j": 1})).To(BeFalse())
}

func TestDiffProperties(t *testing.T) {
	g := NewWithT(t)

	stored := map[string]any{"name": "ada", "age": int64(36), "tags": []any{"a"}}

	delta := diffProperties(map[string]any{
		"name":    "ada",
		"age":     36,
		"tags":    []string{"a", "b"},
		"missing": nil,
		"city":    "london",
	}, stored)

	g.Expect(delta).To(Equal(map[string]any{
		"tags": []string{"a", "b"},
		"city": "london",
	}))

	g.Expect(diffProperties(map[string]any{"name": nil}, stored)).To(Equal(map[string]any{"name": nil}))
	g.Expect(diffProperties(map[string]any{}, stored)).To(BeEmpty())
}
