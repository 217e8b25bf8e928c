package domain

import (
	"encoding/json"
	"testing"
)

func TestIDAllocatorSequence(t *testing.T) {
	a := NewIDAllocator()
	first, second := a.Next(), a.Next()
	if first.String() != "temp-1" || second.String() != "temp-2" {
		t.Fatalf("unexpected ids: %s %s", first, second)
	}
	if !first.IsPending() || first.IsCommitted() {
		t.Fatalf("allocated id must be pending")
	}
}

func TestIDJSONRoundTripKeepsVariant(t *testing.T) {
	payload, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{A: Committed("srv-9"), B: Pending("temp-3")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"a":"srv-9","b":"temp-3"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}

	var out struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.A != Committed("srv-9") || out.B != Pending("temp-3") {
		t.Fatalf("unexpected ids: %+v", out)
	}
}

func TestKeyString(t *testing.T) {
	k := CardsKey(Committed("l1"), Committed("b1"))
	if got := k.String(); got != "cards:board=b1:list=l1" {
		t.Fatalf("unexpected key string %q", got)
	}
	if CardsKey(Committed("l1"), Committed("b1")) != k {
		t.Fatalf("keys must compare equal")
	}
	if !CardsKey(Pending("temp-1"), Committed("b1")).HasPendingScope() {
		t.Fatalf("expected pending scope")
	}
}
