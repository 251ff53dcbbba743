package secrets

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

// Password holds the secrets password in memory that memguard keeps locked,
// encrypted at rest, and excluded from core dumps and swap.
type Password struct {
	buf *memguard.LockedBuffer
}

// NewPassword moves plaintext into locked memory. An empty plaintext yields
// a valid holder that reports IsEmpty.
func NewPassword(plaintext string) *Password {
	if plaintext == "" {
		return &Password{}
	}
	return &Password{buf: memguard.NewBufferFromBytes([]byte(plaintext))}
}

// Reveal returns a plaintext copy. The copy lives in regular memory, so
// callers should keep its lifetime short.
func (p *Password) Reveal() string {
	if p == nil || p.buf == nil {
		return ""
	}
	return string(p.buf.Bytes())
}

// Equal compares the held password against other in constant time.
func (p *Password) Equal(other string) bool {
	if p == nil || p.buf == nil {
		return other == ""
	}
	return subtle.ConstantTimeCompare(p.buf.Bytes(), []byte(other)) == 1
}

// IsEmpty reports whether no password is held.
func (p *Password) IsEmpty() bool {
	return p == nil || p.buf == nil || len(p.buf.Bytes()) == 0
}

// Destroy wipes the held password. The holder must not be reused.
func (p *Password) Destroy() {
	if p == nil || p.buf == nil {
		return
	}
	p.buf.Destroy()
	p.buf = nil
}

// Protect installs the interrupt handler that wipes locked memory before the
// process dies. Call once from main.
func Protect() {
	memguard.CatchInterrupt()
}

// Purge wipes all locked memory. Deferred from main so secrets do not
// outlive the process.
func Purge() {
	memguard.Purge()
}
