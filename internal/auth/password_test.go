package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Registration and login always go through Hash then Verify, so most
// tests here check the pair.

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(bcrypt.MinCost)
}

func TestHash_StoresBcryptNotPlaintext(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("inkwell-secret")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "inkwell-secret" || strings.Contains(hash, "inkwell-secret") {
		t.Fatalf("Hash() leaked the plaintext: %q", hash)
	}
	if cost, err := bcrypt.Cost([]byte(hash)); err != nil || cost != bcrypt.MinCost {
		t.Errorf("bcrypt.Cost(hash) = %d, %v; want %d", cost, err, bcrypt.MinCost)
	}
}

func TestHash_IsSalted(t *testing.T) {
	ps := newTestPasswordService()

	a, _ := ps.Hash("shared-password")
	b, _ := ps.Hash("shared-password")
	if a == b {
		t.Error("two users with the same password got the same hash")
	}
}

func TestHash_LengthLimit(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("x", MaxPasswordBytes)); err != nil {
		t.Fatalf("Hash() at the limit: %v", err)
	}
	_, err := ps.Hash(strings.Repeat("x", MaxPasswordBytes+1))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Hash() over the limit error = %v, want ErrPasswordTooLong", err)
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name         string
		hash         string
		password     string
		wantErr      bool
		wantMismatch bool
	}{
		{name: "correct password", hash: hash, password: "correct-horse-battery-staple"},
		{name: "wrong password", hash: hash, password: "Correct-horse-battery-staple", wantErr: true, wantMismatch: true},
		{name: "empty password", hash: hash, password: "", wantErr: true, wantMismatch: true},
		{name: "corrupt hash", hash: "not-a-bcrypt-hash", password: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrPasswordMismatch); got != tt.wantMismatch {
				t.Errorf("errors.Is(err, ErrPasswordMismatch) = %v, want %v", got, tt.wantMismatch)
			}
		})
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	for _, pw := range []string{"hello123", "p@$$w0rd!#%", "пароль-密码", "  spaces count  ", " "} {
		hash, err := ps.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", pw, err)
		}
		if err := ps.Verify(hash, pw); err != nil {
			t.Errorf("Verify(%q) error = %v", pw, err)
		}
	}
}

func TestVerifyDummy(t *testing.T) {
	ps := newTestPasswordService()
	ps.VerifyDummy("anything")
	ps.VerifyDummy("again")

	if cost, err := bcrypt.Cost(ps.dummyHash); err != nil || cost != ps.cost {
		t.Errorf("dummy hash cost = %d, %v; want %d", cost, err, ps.cost)
	}
}
