package mixfs

import (
	"encoding/base64"
	"fmt"
	"sync"
)

// Sizes of the Westwood key material
const (
	// KeyBlobSize is the size of the obfuscated key stored in encrypted MIX headers
	KeyBlobSize = 80

	// BlowfishKeySize is the size of the Blowfish key recovered from a key blob
	BlowfishKeySize = 56
)

// publicKeyString is the DER-encoded modulus of the fixed public key that
// wraps every MIX Blowfish key. The exponent is the constant 65537.
const publicKeyString = "AihRvNoIbTn85FZRYNZRcT+i6KpU+maCsEqr3Q5q+LDB5tH7Tz2qQ38V"

const publicExponent = 0x10001

// publicKey is the decoded modulus/exponent pair plus its Barrett reducer.
type publicKey struct {
	modulus  bignum
	exponent bignum
	bits     int // bit length of the modulus minus one
	red      *reducer
}

var (
	pubKeyOnce sync.Once
	pubKey     *publicKey
	pubKeyErr  error
)

// loadPublicKey decodes the embedded key on first use. The result is shared
// and never modified afterwards.
func loadPublicKey() (*publicKey, error) {
	pubKeyOnce.Do(func() {
		pubKey, pubKeyErr = decodePublicKey(publicKeyString)
	})
	return pubKey, pubKeyErr
}

// decodePublicKey parses a base64 DER INTEGER holding a big-endian modulus.
func decodePublicKey(s string) (*publicKey, error) {
	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &CryptoError{Operation: "init", Message: "public key is not valid base64", Err: err}
	}

	if len(der) < 2 || der[0] != 0x02 {
		return nil, NewCryptoError("init", "public key is not a DER integer")
	}

	pos := 1
	n := int(der[pos])
	pos++
	if n&0x80 != 0 {
		octets := n & 0x7F
		if octets == 0 || octets > 2 || pos+octets > len(der) {
			return nil, NewCryptoError("init", "public key length field is malformed")
		}
		n = 0
		for i := 0; i < octets; i++ {
			n = n<<8 | int(der[pos])
			pos++
		}
	}
	if n == 0 || pos+n > len(der) || n > bignumWords*4 {
		return nil, NewCryptoError("init", fmt.Sprintf("public key length %d does not fit", n))
	}

	// DER is big-endian; the bignum is little-endian.
	body := der[pos : pos+n]
	le := make([]byte, n)
	for i := range body {
		le[i] = body[n-1-i]
	}

	pk := &publicKey{}
	pk.modulus.setBytesLE(le)
	pk.exponent.setUint32(publicExponent)

	modBits := bitLen(pk.modulus[:])
	if modBits <= 8 {
		return nil, NewCryptoError("init", fmt.Sprintf("modulus bit length %d is too small", modBits))
	}
	pk.bits = modBits - 1
	if pk.chunkSize() == 0 {
		return nil, NewCryptoError("init", "modulus yields a zero chunk size")
	}
	pk.red = newReducer(&pk.modulus)

	return pk, nil
}

// chunkSize is the number of plaintext bytes each ciphertext chunk decodes
// to. Ciphertext chunks are one byte longer.
func (pk *publicKey) chunkSize() int {
	return (pk.bits - 1) / 8
}

// decode runs the public transform over every whole input chunk and returns
// the concatenated plaintext.
func (pk *publicKey) decode(src []byte) []byte {
	a := pk.chunkSize()
	out := make([]byte, 0, len(src)/(a+1)*a)

	var m, c bignum
	for len(src) >= a+1 {
		m.setBytesLE(src[:a+1])
		pk.red.expMod(&c, &m, &pk.exponent)

		chunk := make([]byte, a)
		c.putBytesLE(chunk)
		out = append(out, chunk...)

		src = src[a+1:]
	}
	return out
}

// UnwrapKey recovers the 56-byte Blowfish key from an 80-byte key blob taken
// from an encrypted MIX header. The transform is deterministic and has no
// failure mode for well-formed input; errors report a broken embedded key or
// a wrongly sized blob.
func UnwrapKey(blob []byte) ([]byte, error) {
	if err := ValidateBuffer(blob, "blob", KeyBlobSize); err != nil {
		return nil, err
	}
	if len(blob) != KeyBlobSize {
		return nil, &ValidationError{
			Field:   "blob",
			Value:   len(blob),
			Message: fmt.Sprintf("key blob must be %d bytes, got %d", KeyBlobSize, len(blob)),
		}
	}

	pk, err := loadPublicKey()
	if err != nil {
		return nil, err
	}

	plain := pk.decode(blob)
	if len(plain) < BlowfishKeySize {
		return nil, NewCryptoError("unwrap", fmt.Sprintf("decoded %d bytes, need %d", len(plain), BlowfishKeySize))
	}

	return plain[:BlowfishKeySize], nil
}
