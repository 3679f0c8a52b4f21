package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func decodeRequest(t *testing.T, r *http.Request) rpcRequest {
	t.Helper()
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	return req
}

func TestEnsureInitializedRunsExactlyOnce(t *testing.T) {
	var initCalls int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		switch req.Method {
		case "initialize":
			atomic.AddInt64(&initCalls, 1)
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"serverName":"demo","protocolVersion":"2025-11-25"}}`, req.ID)
		case "notifications/initialized":
			w.WriteHeader(http.StatusOK)
		default:
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{}}`, req.ID)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "", 5)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.EnsureInitialized(context.Background(), "test", "1.0"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt64(&initCalls) != 1 {
		t.Fatalf("expected exactly 1 initialize call, got %d", initCalls)
	}
}

func TestListToolsFollowsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		var params map[string]any
		if req.Params != nil {
			b, _ := json.Marshal(req.Params)
			json.Unmarshal(b, &params)
		}
		cursor, _ := params["cursor"].(string)

		switch cursor {
		case "":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"tools":[{"name":"a"}],"nextCursor":"page2"}}`, req.ID)
		case "page2":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"tools":[{"name":"b"}]}}`, req.ID)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "", 5)
	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tools) != 2 || tools[0].Name != "a" || tools[1].Name != "b" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
}

func TestListToolsDetectsCursorCycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"tools":[],"nextCursor":"loop"}}`, req.ID)
	}))
	defer srv.Close()

	client := New(srv.URL, "", 5)
	_, err := client.ListTools(context.Background())
	if err == nil {
		t.Fatalf("expected cursor cycle to be detected")
	}
}

func TestHeadersIncludeSessionIdAfterFirstResponse(t *testing.T) {
	var sawSessionHeader bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		if req.Method == "ping" && r.Header.Get("MCP-Session-Id") != "" {
			sawSessionHeader = true
		}
		w.Header().Set("MCP-Session-Id", "sess-123")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{}}`, req.ID)
	}))
	defer srv.Close()

	client := New(srv.URL, "", 5)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("first ping failed: %v", err)
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("second ping failed: %v", err)
	}
	if !sawSessionHeader {
		t.Fatalf("expected MCP-Session-Id header to be sent on the second request")
	}
}

func TestCallToolPropagatesJSONRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"code":-1,"message":"boom"}}`, req.ID)
	}))
	defer srv.Close()

	client := New(srv.URL, "", 5)
	_, err := client.CallTool(context.Background(), "demo", map[string]any{})
	if err == nil {
		t.Fatalf("expected JSON-RPC error to propagate")
	}
}

func TestMissingServerURLIsConfigurationError(t *testing.T) {
	client := New("", "", 5)
	if _, err := client.EnsureInitialized(context.Background(), "t", "1"); err == nil {
		t.Fatalf("expected configuration error for missing server URL")
	}
}
