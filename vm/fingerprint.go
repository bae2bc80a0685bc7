package vm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Fingerprint is the content hash of a Code. Two compilations of the same
// tree produce the same fingerprint, so callers may key in-memory caches
// of compiled units by it.
type Fingerprint [32]byte

// String returns the hex encoding of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex digits, enough to tell units apart in logs.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireCode is the canonical form hashed for a fingerprint. Constants are
// reduced to their kind and repr, which is unambiguous for every value a
// constant table can hold.
type wireCode struct {
	Names  []string    `cbor:"1,keyasint"`
	Consts []wireConst `cbor:"2,keyasint"`
	Code   []byte      `cbor:"3,keyasint"`
}

type wireConst struct {
	Kind Kind   `cbor:"1,keyasint"`
	Repr string `cbor:"2,keyasint"`
}

// MarshalCBOR encodes the Code in canonical CBOR.
func (c *Code) MarshalCBOR() ([]byte, error) {
	w := wireCode{
		Names:  c.names,
		Consts: make([]wireConst, len(c.consts)),
		Code:   c.code,
	}
	for i, v := range c.consts {
		w.Consts[i] = wireConst{Kind: v.Kind(), Repr: Repr(v)}
	}
	return cborEncMode.Marshal(w)
}

// Fingerprint hashes the canonical encoding of the Code.
func (c *Code) Fingerprint() Fingerprint {
	data, err := c.MarshalCBOR()
	if err != nil {
		panic(fmt.Sprintf("vm: encode code: %v", err))
	}
	return sha256.Sum256(data)
}
