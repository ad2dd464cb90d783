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
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestDefaultConfig(t *testing.T) {
	g := NewWithT(t)

	config := DefaultConfig()
	g.Expect(config.Validate()).To(Succeed())
	g.Expect(config.FetchSize).To(Equal(100))
	g.Expect(config.ResultTimeout).To(Equal(60 * time.Second))
	g.Expect(config.isSensitive("Password")).To(BeTrue())
	g.Expect(config.isSensitive("name")).To(BeFalse())
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "bolt.yaml")
	g.Expect(os.WriteFile(path, []byte(`
uri: neo4j://db:7687
username: neo4j
tenant: acme
fetch_size: 25
log_queries: true
result_timeout: 5s
sensitive_keys: [password, token]
`), 0o600)).To(Succeed())

	t.Setenv("BOLT_FETCH_SIZE", "50")
	t.Setenv("BOLT_PASSWORD", "secret")
	t.Setenv("BOLT_TRANSACTION_TIMEOUT", "30s")

	config, err := LoadConfig(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(config.URI).To(Equal("neo4j://db:7687"))
	g.Expect(config.Username).To(Equal("neo4j"))
	g.Expect(config.Password).To(Equal("secret"))
	g.Expect(config.Tenant).To(Equal("acme"))
	g.Expect(config.FetchSize).To(Equal(50))
	g.Expect(config.LogQueries).To(BeTrue())
	g.Expect(config.ResultTimeout).To(Equal(5 * time.Second))
	g.Expect(config.TransactionTimeout).To(Equal(30 * time.Second))
	g.Expect(config.NodeCacheSize).To(Equal(defaultNodeCacheSize))
	g.Expect(config.isSensitive("TOKEN")).To(BeTrue())
}

func TestLoadConfigErrors(t *testing.T) {
	g := NewWithT(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	g.Expect(err).To(MatchError(ContainSubstring("failed to read config file")))

	t.Setenv("BOLT_FETCH_SIZE", "many")
	_, err = LoadConfig("")
	g.Expect(err).To(MatchError(ContainSubstring("invalid BOLT_FETCH_SIZE")))
}

func TestValidate(t *testing.T) {
	g := NewWithT(t)

	config := DefaultConfig()
	config.FetchSize = 0
	config.Tenant = "not a label"
	err := config.Validate()
	g.Expect(err).To(MatchError(ContainSubstring("fetch_size must be positive")))
	g.Expect(err).To(MatchError(ContainSubstring(`tenant "not a label" is not a valid label`)))

	config = DefaultConfig()
	config.Tenant = "Tenant_1"
	g.Expect(config.Validate()).To(Succeed())
}
