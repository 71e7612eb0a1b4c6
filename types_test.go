package nearrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/sebamiro/nearrpc"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestBlockID(t *testing.T) {
	if got := marshal(t, nearrpc.BlockHeight(17)); got != `17` {
		t.Fatalf("height marshaled as %s", got)
	}
	if got := marshal(t, nearrpc.BlockHash("Hash")); got != `"Hash"` {
		t.Fatalf("hash marshaled as %s", got)
	}

	var id nearrpc.BlockID
	if err := json.Unmarshal([]byte(`"Hash"`), &id); err != nil {
		t.Fatal(err)
	}
	if id != nearrpc.BlockHash("Hash") {
		t.Fatalf("unexpected %+v", id)
	}
	if err := json.Unmarshal([]byte(`42`), &id); err != nil {
		t.Fatal(err)
	}
	if id != nearrpc.BlockHeight(42) {
		t.Fatalf("unexpected %+v", id)
	}
	if err := json.Unmarshal([]byte(`true`), &id); err == nil {
		t.Fatal("expect error for bool block id")
	}

	if id := nearrpc.ParseBlockID("120"); id != nearrpc.BlockHeight(120) || id.String() != "120" {
		t.Fatalf("unexpected %+v", id)
	}
	if id := nearrpc.ParseBlockID("Hash"); id != nearrpc.BlockHash("Hash") || id.String() != "Hash" {
		t.Fatalf("unexpected %+v", id)
	}
}

func TestBlockReference(t *testing.T) {
	cases := []struct {
		ref  nearrpc.BlockReference
		want string
	}{
		{nearrpc.BlockRefFinality(nearrpc.FinalityFinal), `{"finality":"final"}`},
		{nearrpc.BlockRefFinality(nearrpc.FinalityNearFinal), `{"finality":"near-final"}`},
		{nearrpc.BlockRefID(nearrpc.BlockHeight(1)), `{"block_id":1}`},
		{nearrpc.BlockRefID(nearrpc.BlockHash("Hash")), `{"block_id":"Hash"}`},
		{nearrpc.BlockRefSyncCheckpoint(nearrpc.SyncCheckpointGenesis), `{"sync_checkpoint":"genesis"}`},
	}
	for _, c := range cases {
		if got := marshal(t, c.ref); got != c.want {
			t.Fatalf("got %s, want %s", got, c.want)
		}
	}
}

func TestChunkID(t *testing.T) {
	if got := marshal(t, nearrpc.ChunkHash("Chunk")); got != `"Chunk"` {
		t.Fatalf("hash chunk id marshaled as %s", got)
	}
	if got := marshal(t, nearrpc.ChunkInBlock(nearrpc.BlockHash("Block"), 3)); got != `["Block",3]` {
		t.Fatalf("block chunk id marshaled as %s", got)
	}
	if _, err := json.Marshal(nearrpc.ChunkID{}); err == nil {
		t.Fatal("expect error for empty chunk id")
	}
}

func TestQueryRequest(t *testing.T) {
	ref := nearrpc.BlockRefID(nearrpc.BlockHeight(9))
	got := marshal(t, nearrpc.ViewState(ref, "alice.near", []byte("k")))
	want := `{"block_id":9,"request_type":"view_state","account_id":"alice.near","prefix_base64":"aw=="}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	got = marshal(t, nearrpc.CallFunction(nearrpc.BlockRefFinality(nearrpc.FinalityFinal), "c.near", "get", []byte("{}")))
	want = `{"finality":"final","request_type":"call_function","account_id":"c.near","method_name":"get","args_base64":"e30="}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestQueryResponseDecode(t *testing.T) {
	body := `{"amount":"100","locked":"0","code_hash":"11111111111111111111111111111111","storage_usage":182,"storage_paid_at":0,"block_height":17,"block_hash":"Hash"}`
	var resp nearrpc.QueryResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.BlockHeight != 17 || resp.BlockHash != "Hash" {
		t.Fatalf("unexpected header %+v", resp)
	}
	var acc nearrpc.AccountView
	if err := resp.Decode(&acc); err != nil {
		t.Fatal(err)
	}
	if acc.Amount != "100" || acc.StorageUsage != 182 {
		t.Fatalf("unexpected account %+v", acc)
	}
	if got := marshal(t, resp); got != body {
		t.Fatalf("expect raw body back, got %s", got)
	}

	var empty nearrpc.QueryResponse
	if err := empty.Decode(&acc); err == nil {
		t.Fatal("expect error decoding empty response")
	}
}

func TestFinalExecutionOutcomeStatus(t *testing.T) {
	ok := nearrpc.FinalExecutionOutcomeView{Status: json.RawMessage(`{"SuccessValue":"Im9rIg=="}`)}
	v, isSuccess := ok.SuccessValue()
	if !isSuccess || string(v) != `"ok"` {
		t.Fatalf("unexpected success value %q %v", v, isSuccess)
	}
	if _, failed := ok.Failure(); failed {
		t.Fatal("success reported as failure")
	}

	failed := nearrpc.FinalExecutionOutcomeView{Status: json.RawMessage(`{"Failure":{"ActionError":{"index":0}}}`)}
	if _, isSuccess := failed.SuccessValue(); isSuccess {
		t.Fatal("failure reported as success")
	}
	f, isFailure := failed.Failure()
	if !isFailure || string(f) != `{"ActionError":{"index":0}}` {
		t.Fatalf("unexpected failure %s", f)
	}

	pending := nearrpc.FinalExecutionOutcomeView{Status: json.RawMessage(`"Started"`)}
	if _, isSuccess := pending.SuccessValue(); isSuccess {
		t.Fatal("pending reported as success")
	}
	if _, isFailure := pending.Failure(); isFailure {
		t.Fatal("pending reported as failure")
	}
}
