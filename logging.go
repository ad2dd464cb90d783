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
	"strings"
)

const redactedValue = "SENSITIVE VALUE REMOVED"

//Renders a parameter map with sorted keys. Values of sensitive keys are replaced, also inside
//nested maps such as the properties of a SET statement.
func formatParameters(params map[string]any, config *Config) string {
	var b strings.Builder
	writeParameters(&b, params, config)
	return b.String()
}

func writeParameters(b *strings.Builder, params map[string]any, config *Config) {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b.WriteString("{")
	for i, key := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(key)
		b.WriteString(": ")

		switch value := params[key].(type) {
		case map[string]any:
			writeParameters(b, value, config)
		default:
			if config.isSensitive(key) {
				b.WriteString(redactedValue)
			} else {
				fmt.Fprintf(b, "%v", value)
			}
		}
	}
	b.WriteString("}")
}
