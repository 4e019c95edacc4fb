package jwt

import (
	"testing"
	"time"
)

// FuzzParseSession feeds arbitrary strings to the parser. Invalid input must
// be rejected with an error, never a panic.
func FuzzParseSession(f *testing.F) {
	mgr, err := NewManager(Config{
		TTL:           5 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    testHSKey,
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		f.Fatal(err)
	}
	valid, err := mgr.CreateSession(42, "sid", "user")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid.Token)
	f.Add("")
	f.Add("a.b.c")
	f.Add(valid.Token + "x")

	f.Fuzz(func(t *testing.T, token string) {
		claims, err := mgr.ParseSession(token)
		if err == nil && (claims.UID <= 0 || claims.SID == "") {
			t.Fatalf("accepted token without binding: %+v", claims)
		}
	})
}
