// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package wsapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	internalws "github.com/tomtom215/aisentry/internal/websocket"
)

func TestHandler_ServeHTTP_UpgradesAndRegisters(t *testing.T) {
	hub := internalws.NewHub()
	go hub.Run()

	h := NewHandler(hub, DefaultConfig())
	srv := httptest.NewServer(h)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandler_ServeHTTP_NilHubReturns503(t *testing.T) {
	h := NewHandler(nil, DefaultConfig())
	srv := httptest.NewServer(h)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 503, resp.StatusCode)
}

func TestCheckOriginFunc(t *testing.T) {
	h := NewHandler(internalws.NewHub(), Config{AllowedOrigins: []string{"https://allowed.example"}})
	check := h.checkOriginFunc([]string{"https://allowed.example"})

	req := httptest.NewRequest("GET", "/", nil)
	require.True(t, check(req), "missing Origin header should not be rejected (non-browser clients)")

	req.Header.Set("Origin", "https://allowed.example")
	require.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	require.False(t, check(req))
}
