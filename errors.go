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
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

// Error kinds surfaced by this package. Use errors.Is to test for them.
var (
	ErrRetryRequested      = errors.New("retry requested")
	ErrNotFound            = errors.New("not found")
	ErrNetworkUnavailable  = errors.New("network unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrDataFormat          = errors.New("data format error")
	ErrDeleted             = errors.New("entity has been deleted")
	ErrStale               = errors.New("entity is stale and no transaction was given to refresh it")
	ErrTransactionClosed   = errors.New("transaction is closed")
	ErrNotEndpoint         = errors.New("node is not an endpoint of the relationship")
)

const (
	transientErrorPrefix           = "Neo.TransientError."
	codeServiceUnavailable         = "Neo.ClientError.General.ServiceUnavailable"
	codeConstraintValidationFailed = "Neo.ClientError.Schema.ConstraintValidationFailed"
	codeUnknownDatabaseError       = "Neo.DatabaseError.General.UnknownError"
)

//Error is a translated remote failure. Kind is one of the Err* values above.
type Error struct {
	Kind    error
	Code    string
	Message string
	cause   error
}

func newError(kind error, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v: %s (%s)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.cause
}

//Translates wire errors into the fixed taxonomy. Unrecognized errors are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var translated *Error
	if errors.As(err, &translated) {
		return err
	}

	var neo4jErr *neo4j.Neo4jError
	if errors.As(err, &neo4jErr) {
		switch {
		case strings.HasPrefix(neo4jErr.Code, transientErrorPrefix):
			return newError(ErrRetryRequested, neo4jErr.Code, neo4jErr.Msg, err)
		case neo4jErr.Code == codeServiceUnavailable:
			return newError(ErrNetworkUnavailable, neo4jErr.Code, neo4jErr.Msg, err)
		case neo4jErr.Code == codeConstraintValidationFailed:
			return newError(ErrConstraintViolation, neo4jErr.Code, neo4jErr.Msg, err)
		case neo4jErr.Code == codeUnknownDatabaseError:
			return newError(ErrDataFormat, neo4jErr.Code, neo4jErr.Msg, err)
		}
		return err
	}

	if neo4j.IsConnectivityError(err) {
		return newError(ErrNetworkUnavailable, "", err.Error(), err)
	}

	return err
}
