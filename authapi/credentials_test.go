package authapi

import (
	"strings"
	"testing"
)

func TestPasswordDigestRoundTrip(t *testing.T) {
	digest, err := hashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected digest format %q", digest)
	}

	ok, err := verifyPassword("correct horse", digest)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = verifyPassword("wrong horse", digest)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyPasswordRejectsMalformedDigest(t *testing.T) {
	for _, d := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA",
	} {
		if _, err := verifyPassword("pw", d); err == nil {
			t.Fatalf("digest %q should be rejected", d)
		}
	}
}

func TestHashPasswordSaltsEachDigest(t *testing.T) {
	a, err := hashPassword("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := hashPassword("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatalf("digests of the same password must differ")
	}
}
