// Password storage for accounts.
//
// WHY BCRYPT?
// Account passwords are stored only as bcrypt hashes. bcrypt is slow on
// purpose and salts every hash, so a leaked users table can't be reversed
// with a lookup table and each guess costs the attacker real CPU time.
//
// The stored string carries everything needed to check a login later:
//
//	$2a$12$<22-char salt><31-char hash>
//	    ^^ cost: 2^12 rounds
//
// so users.password_hash is a single TEXT column.
package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is bcrypt's input limit. Longer passwords would be cut
// silently, so Hash refuses them and the registration form checks it first.
const MaxPasswordBytes = 72

// defaultCost is the production work factor (about a quarter of a second
// per hash on current hardware). Tests use the minimum, 4.
const defaultCost = 12

var (
	// ErrPasswordMismatch means the password is wrong, as opposed to the
	// stored hash being unreadable.
	ErrPasswordMismatch = errors.New("auth: invalid password")
	ErrPasswordTooLong  = fmt.Errorf("password must be %d bytes or fewer", MaxPasswordBytes)
)

// PasswordService hashes passwords at registration and checks them at
// login. The cost is a field so tests can run at bcrypt's minimum.
type PasswordService struct {
	cost int

	// dummyHash backs VerifyDummy. It is built on first use at the same
	// cost as real hashes.
	dummyOnce sync.Once
	dummyHash []byte
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest uses the given cost (normally bcrypt.MinCost).
// Never use it outside tests.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash to store in users.password_hash.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash, ErrPasswordMismatch when
// it doesn't, and a wrapped error when hash isn't a bcrypt hash at all.
// The comparison inside bcrypt is constant-time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
}

// VerifyDummy burns one bcrypt comparison and throws the result away.
// Login calls it for unknown usernames so that "no such user" takes as long
// as "wrong password".
func (p *PasswordService) VerifyDummy(plaintext string) {
	p.dummyOnce.Do(func() {
		p.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("inkwell-dummy-password"), p.cost)
	})
	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(plaintext))
}
