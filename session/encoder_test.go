package session

import "testing"

func TestEncodeDecode(t *testing.T) {
	in := &Session{
		UserID:      123,
		Role:        "admin",
		AuthDate:    1700000000,
		PayloadHash: [32]byte{1, 2, 3},
		CreatedAt:   1700000001,
		ExpiresAt:   1700003601,
	}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != CurrentSchemaVersion {
		t.Fatalf("expected version byte %d, got %d", CurrentSchemaVersion, data[0])
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID != in.UserID || out.Role != in.Role || out.AuthDate != in.AuthDate ||
		out.PayloadHash != in.PayloadHash || out.CreatedAt != in.CreatedAt || out.ExpiresAt != in.ExpiresAt {
		t.Fatalf("mismatch: %+v vs %+v", out, in)
	}
}

func TestDecodeRejectsTrailingAndTruncated(t *testing.T) {
	data, err := Encode(&Session{UserID: 1, CreatedAt: 1, ExpiresAt: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(append(data, 0)); err == nil {
		t.Fatal("expected trailing byte rejected")
	}
	if _, err := Decode(data[:len(data)-1]); err == nil {
		t.Fatal("expected truncated record rejected")
	}
	if _, err := Decode([]byte{9}); err == nil {
		t.Fatal("expected unknown version rejected")
	}
}
