package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// rpcHandler answers every request with the output of fn, echoing the
// request id back.
func rpcHandler(t *testing.T, fn func(req Request, params json.RawMessage) (result any, rpcErr *ServerError)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
			return
		}
		req, params := decodeRequest(t, b)
		result, rpcErr := fn(req, params)
		resp := map[string]any{"jsonrpc": Version, "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	})
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func expectKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expect *Error, got %T %v", err, err)
	}
	if e.Kind != kind {
		t.Fatalf("expect %s, got %s: %v", kind, e.Kind, err)
	}
	return e
}

type height struct {
	Height uint64 `json:"height"`
}

func TestCallStatus(t *testing.T) {
	var gotParams string
	c := newTestClient(t, rpcHandler(t, func(req Request, params json.RawMessage) (any, *ServerError) {
		if req.Method != "status" {
			t.Errorf("unexpected method %s", req.Method)
		}
		gotParams = string(params)
		return map[string]any{"height": 100}, nil
	}))

	r, err := Call[NoParams, height](context.Background(), c, "status", NoParams{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Height != 100 {
		t.Fatalf("expect height 100, got %d", r.Height)
	}
	if gotParams != "[]" {
		t.Fatalf("expect params [], got %s", gotParams)
	}
}

func TestCallServerError(t *testing.T) {
	c := newTestClient(t, rpcHandler(t, func(Request, json.RawMessage) (any, *ServerError) {
		return nil, &ServerError{Code: -32601, Message: "method not found", Data: json.RawMessage(`"nope"`)}
	}))

	_, err := Call[NoParams, height](context.Background(), c, "nope", NoParams{})
	e := expectKind(t, err, KindServer)
	if e.Code != -32601 || e.Message != "method not found" {
		t.Fatalf("unexpected error %+v", e)
	}
	if string(e.Data) != `"nope"` {
		t.Fatalf("expect data to be kept, got %s", e.Data)
	}
	if !IsServerError(err) {
		t.Fatal("expect IsServerError")
	}
}

// echoID answers with body after replacing $id with the request id.
func echoID(t *testing.T, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
			return
		}
		req, _ := decodeRequest(t, b)
		id, _ := json.Marshal(req.ID)
		w.Write([]byte(strings.ReplaceAll(body, "$id", string(id))))
	})
}

func TestCallParseErrors(t *testing.T) {
	cases := map[string]string{
		"not json":       `<html>502</html>`,
		"no variant":     `{"jsonrpc":"2.0","id":$id}`,
		"wrong shape":    `{"jsonrpc":"2.0","id":$id,"result":{"height":"tall"}}`,
		"missing field":  `{"jsonrpc":"2.0","id":$id,"result":{}}`,
		"id mismatch":    `{"jsonrpc":"2.0","id":"someone-else","result":{"height":1}}`,
		"result is null": `{"jsonrpc":"2.0","id":$id,"result":null}`,
		"no id":          `{"jsonrpc":"2.0","result":{"height":1}}`,
		"null id":        `{"jsonrpc":"2.0","id":null,"result":{"height":1}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, echoID(t, body))
			r, err := Call[NoParams, height](context.Background(), c, "block", NoParams{})
			e := expectKind(t, err, KindParse)
			if e.Code != CodeParseError {
				t.Fatalf("expect code %d, got %d", CodeParseError, e.Code)
			}
			var ce *CodecError
			if !errors.As(err, &ce) {
				t.Fatalf("expect codec error cause, got %v", e.Err)
			}
			if r != (height{}) {
				t.Fatalf("expect zero result, got %+v", r)
			}
		})
	}
}

func TestCallErrorWithoutID(t *testing.T) {
	for _, body := range []string{
		`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`,
		`{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error"}}`,
	} {
		c := newTestClient(t, echoID(t, body))
		_, err := Call[NoParams, height](context.Background(), c, "block", NoParams{})
		e := expectKind(t, err, KindServer)
		if e.Code != -32700 {
			t.Fatalf("expect server code -32700, got %d", e.Code)
		}
	}
}

func TestCallConnectFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := NewClient(srv.URL, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	_, err = Call[NoParams, height](context.Background(), c, "status", NoParams{})
	e := expectKind(t, err, KindInternal)
	if e.Code != CodeInternalError {
		t.Fatalf("expect code %d, got %d", CodeInternalError, e.Code)
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Kind != TransportConnectFailed {
		t.Fatalf("expect connect failure, got %v", err)
	}
}

func TestCallBadStatus(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"Server error","name":"INTERNAL_ERROR"}}`))
		}))
		_, err := Call[NoParams, height](context.Background(), c, "status", NoParams{})
		e := expectKind(t, err, KindServer)
		if e.Name != "INTERNAL_ERROR" {
			t.Fatalf("expect name INTERNAL_ERROR, got %q", e.Name)
		}
	})
	t.Run("no envelope", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`bad gateway`))
		}))
		_, err := Call[NoParams, height](context.Background(), c, "status", NoParams{})
		expectKind(t, err, KindInternal)
		var te *TransportError
		if !errors.As(err, &te) || te.Kind != TransportStatus || te.StatusCode != http.StatusBadGateway {
			t.Fatalf("expect status error, got %v", err)
		}
	})
}

func TestCallCanceled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.RawCall(ctx, "status", nil)
	expectKind(t, err, KindInternal)
	if !IsTimeout(err) {
		t.Fatalf("expect timeout, got %v", err)
	}
}

func TestCallConcurrent(t *testing.T) {
	c := newTestClient(t, rpcHandler(t, func(req Request, params json.RawMessage) (any, *ServerError) {
		var p [1]uint64
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &ServerError{Code: -32602, Message: err.Error()}
		}
		// later requests answer first
		time.Sleep(time.Duration(20-p[0]) * 5 * time.Millisecond)
		return height{Height: p[0]}, nil
	}))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := uint64(0); i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := Call[[1]uint64, height](context.Background(), c, "block", [1]uint64{i})
			if err != nil {
				errs <- err
				return
			}
			if r.Height != i {
				errs <- fmt.Errorf("call %d got result %d", i, r.Height)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestCallResult(t *testing.T) {
	c := newTestClient(t, rpcHandler(t, func(req Request, params json.RawMessage) (any, *ServerError) {
		return map[string]any{"height": 12}, nil
	}))
	var r height
	if err := c.CallResult(context.Background(), "block", &r, map[string]string{"finality": "final"}); err != nil {
		t.Fatal(err)
	}
	if r.Height != 12 {
		t.Fatalf("expect 12, got %d", r.Height)
	}

	if err := c.CallResult(context.Background(), "block", r, nil); err == nil {
		t.Fatal("expect error for non-pointer result")
	}
	var np *height
	if err := c.CallResult(context.Background(), "block", np, nil); err == nil {
		t.Fatal("expect error for nil pointer result")
	}
}

func TestCallResultLeavesResultOnFailure(t *testing.T) {
	c := newTestClient(t, rpcHandler(t, func(req Request, params json.RawMessage) (any, *ServerError) {
		return map[string]any{"account_id": "alice"}, nil
	}))
	r := stake{AccountID: "before", Stake: "before"}
	err := c.CallResult(context.Background(), "validator", &r, nil)
	expectKind(t, err, KindParse)
	expectMissing(t, err, "stake")
	if r.AccountID != "before" || r.Stake != "before" {
		t.Fatalf("result written on failure: %+v", r)
	}

	var list []stake
	c = newTestClient(t, rpcHandler(t, func(req Request, params json.RawMessage) (any, *ServerError) {
		return []map[string]any{{"account_id": "a", "stake": "1"}, {"account_id": "b"}}, nil
	}))
	err = c.CallResult(context.Background(), "validators", &list, nil)
	expectMissing(t, err, "[1].stake")
	if list != nil {
		t.Fatalf("result written on failure: %+v", list)
	}
}

func TestRawCallInvalidParams(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	_, err := c.RawCall(context.Background(), "status", func() {})
	expectKind(t, err, KindInternal)
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Kind != CodecInvalid {
		t.Fatalf("expect invalid params, got %v", err)
	}
}
