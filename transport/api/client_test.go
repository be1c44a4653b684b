// Copyright 2025 AK Software GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"aeromedia/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "key_test123.secret456"

func TestValidToken(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"key_abc.def", true},
		{testToken, true},
		{"key_abcdef", false},
		{"abc.def", false},
		{"", false},
	}
	for _, c := range cases {
		got := New("http://example.invalid/api", c.token).ValidToken()
		assert.Equal(t, c.want, got, "token %q", c.token)
	}
}

func TestConnectHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":"healthy","tenant_id":"tenant-7"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testToken)
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.Connected())
	assert.Equal(t, "tenant-7", c.TenantID())
	assert.Equal(t, "verbunden (tenant tenant-7)", c.ConnectionStatus())

	c.Disconnect()
	assert.False(t, c.Connected())
	assert.Equal(t, "nicht verbunden", c.ConnectionStatus())
}

func TestConnectUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"unauthorized"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testToken)
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, c.Connected())
}

func TestConnectServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, testToken)
	err := c.Connect(context.Background())
	var se *transport.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "health", se.Op)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestConnectBadToken(t *testing.T) {
	c := New("http://example.invalid/api", "not-a-token")
	assert.ErrorIs(t, c.Connect(context.Background()), ErrInvalidToken)

	c = New("", "")
	assert.ErrorIs(t, c.Connect(context.Background()), ErrMissingCredentials)
}

func TestShareLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get-share-link/order-42", r.URL.Path)
		_, _ = w.Write([]byte(`{"share_url":"https://share.example/x"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", testToken)
	c.SetOrderID("order-42")
	link, err := c.ShareLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://share.example/x", link)
}

func TestShareLinkFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", testToken)
	c.SetOrderID("order-42")
	link, err := c.ShareLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/content/order-42", link)
}

func TestShareLinkNoOrder(t *testing.T) {
	c := New("http://example.invalid/api", testToken)
	_, err := c.ShareLink(context.Background())
	assert.ErrorIs(t, err, ErrNoOrder)
}
