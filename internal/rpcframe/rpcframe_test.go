package rpcframe

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFeedNotification(t *testing.T) {
	f := New()
	frames, err := f.Feed([]byte(`{"id":null,"method":"mining.notify","params":[1,2]}` + "\n"))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Kind != KindNotification || frames[0].Method != "mining.notify" {
		t.Errorf("frame = %+v", frames[0])
	}
}

func TestFeedSuccessResponse(t *testing.T) {
	f := New()
	id, line, err := f.EncodeRequest("mining.subscribe", []interface{}{"agent"})
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	if id != 0 {
		t.Fatalf("first id = %d, want 0", id)
	}
	if !strings.HasSuffix(string(line), "\n") {
		t.Fatal("encoded line must end with newline")
	}

	resp := `{"id":0,"error":null,"result":[[],"nonce1",4]}` + "\n"
	frames, err := f.Feed([]byte(resp))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 || frames[0].Kind != KindSuccess {
		t.Fatalf("frames = %+v", frames)
	}
	if frames[0].Method != "mining.subscribe" {
		t.Errorf("method = %q, want mining.subscribe", frames[0].Method)
	}
	var result []json.RawMessage
	if err := json.Unmarshal(frames[0].Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("result has %d elements, want 3", len(result))
	}
}

func TestFeedErrorResponse(t *testing.T) {
	f := New()
	if _, _, err := f.EncodeRequest("mining.authorize", []interface{}{"w", "p"}); err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	frames, err := f.Feed([]byte(`{"id":0,"error":[21,"unauthorized",null],"result":null}` + "\n"))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 || frames[0].Kind != KindError {
		t.Fatalf("frames = %+v", frames)
	}
	if string(frames[0].Error) != `[21,"unauthorized",null]` {
		t.Errorf("error payload = %s", frames[0].Error)
	}
}

func TestFeedDroppedUnknownID(t *testing.T) {
	f := New()
	frames, err := f.Feed([]byte(`{"id":99,"error":null,"result":true}` + "\n"))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 || frames[0].Kind != KindDropped {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestFeedMultipleFramesOneCall(t *testing.T) {
	f := New()
	data := `{"id":null,"method":"mining.set_difficulty","params":[2]}` + "\n" +
		`{"id":null,"method":"mining.notify","params":[]}` + "\n"
	frames, err := f.Feed([]byte(data))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Method != "mining.set_difficulty" || frames[1].Method != "mining.notify" {
		t.Errorf("frames out of order: %+v", frames)
	}
}

func TestFeedPartialLineBuffered(t *testing.T) {
	f := New()
	frames, err := f.Feed([]byte(`{"id":null,"method":"mining`))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames from a partial line, got %d", len(frames))
	}

	frames, err = f.Feed([]byte(`.notify","params":[]}` + "\n"))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 || frames[0].Method != "mining.notify" {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestFeedOversizedLineIsFramingError(t *testing.T) {
	f := New()
	huge := strings.Repeat("a", MaxLineSize+1)
	_, err := f.Feed([]byte(huge))
	if err == nil {
		t.Fatal("expected framing error for oversized line")
	}
}

func TestFeedMalformedJSON(t *testing.T) {
	f := New()
	_, err := f.Feed([]byte(`{not json}` + "\n"))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestCancelPendingRemovesEntry(t *testing.T) {
	f := New()
	id, _, _ := f.EncodeRequest("mining.submit", nil)
	if f.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", f.PendingCount())
	}
	f.CancelPending(id)
	if f.PendingCount() != 0 {
		t.Fatalf("PendingCount after cancel = %d, want 0", f.PendingCount())
	}

	frames, err := f.Feed([]byte(`{"id":0,"error":null,"result":true}` + "\n"))
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 || frames[0].Kind != KindDropped {
		t.Fatalf("response for cancelled id should be dropped, got %+v", frames)
	}
}
