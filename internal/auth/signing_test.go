package auth

import (
	"context"
	"testing"
)

func TestSignDeterministic(t *testing.T) {
	body := []byte(`{"event":"survey-completed"}`)
	a := Sign("s3cret", "v1:", body)
	b := Sign("s3cret", "v1:", body)
	if a != b {
		t.Fatalf("same input signed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	variants := map[string]string{
		"secret": Sign("other", "v1:", body),
		"prefix": Sign("s3cret", "v2:", body),
		"body":   Sign("s3cret", "v1:", []byte(`{"event":"survey-started"}`)),
	}
	for what, sig := range variants {
		if sig == a {
			t.Fatalf("changing the %s did not change the digest", what)
		}
	}
}

func TestSignKnownVector(t *testing.T) {
	// RFC 4231 test case 2: key "Jefe", data "what do ya want for nothing?".
	got := Sign("Jefe", "what do ya ", []byte("want for nothing?"))
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestSignerDefaults(t *testing.T) {
	var s Signer
	if s.Enabled() {
		t.Fatalf("zero signer should be disabled")
	}
	s = Signer{Secret: "k"}
	name, _ := s.Signature([]byte("x"))
	if name != "X-Signature-SHA256" {
		t.Fatalf("default header %q", name)
	}
}

func TestBasic(t *testing.T) {
	got := Basic{Username: "Aladdin", Password: "open sesame"}.Authorization(context.Background())
	if got != "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ==" {
		t.Fatalf("basic header %q", got)
	}
}
