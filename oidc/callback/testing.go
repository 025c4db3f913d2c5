// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/henrjk/connect-js/oidc"
)

// testSuccessFn is a test SuccessResponseFunc
func testSuccessFn(state string, w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("login successful"))
}

// testFailFn is a test ErrorResponseFunc
func testFailFn(state string, r *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
	if e != nil {
		w.WriteHeader(http.StatusInternalServerError)
		j, _ := json.Marshal(&AuthenErrorResponse{
			Error:       "internal-callback-error",
			Description: e.Error(),
		})
		_, _ = w.Write(j)
		return
	}
	if r != nil {
		w.WriteHeader(http.StatusUnauthorized)
		j, _ := json.Marshal(r)
		_, _ = w.Write(j)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	j, _ := json.Marshal(&AuthenErrorResponse{
		Error: "unknown-callback-error",
	})
	_, _ = w.Write(j)
}

// testSink records delivered messages.
type testSink struct {
	mu       sync.Mutex
	messages []oidc.Message
}

func (s *testSink) Deliver(m oidc.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

func (s *testSink) Messages() []oidc.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]oidc.Message(nil), s.messages...)
}
