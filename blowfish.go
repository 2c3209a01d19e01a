package mixfs

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

// Blowfish key limits
const (
	MinKeySize = 1
	MaxKeySize = 56

	// CipherBlockSize is the Blowfish block size in bytes
	CipherBlockSize = blowfish.BlockSize
)

// CipherKey is an expanded Blowfish key schedule: the 18 round subkeys and
// the four S-boxes derived from the raw key. It is immutable once built, so a
// single CipherKey may be shared freely.
//
// MIX headers store each 8-byte block as two big-endian 32-bit words. The
// block methods take those words as host integers; the stream methods read
// and write them in the on-disk byte order.
type CipherKey struct {
	c *blowfish.Cipher
}

// NewCipherKey expands key (1 to 56 bytes) into a CipherKey. Identical key
// bytes always produce an identical schedule.
func NewCipherKey(key []byte) (*CipherKey, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	c, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to expand blowfish key: %w", err)
	}

	return &CipherKey{c: c}, nil
}

// EncipherBlock runs the 16-round Feistel network forward over one block.
func (k *CipherKey) EncipherBlock(l, r uint32) (uint32, uint32) {
	var b [CipherBlockSize]byte
	putBlock(b[:], l, r)
	k.c.Encrypt(b[:], b[:])
	return getBlock(b[:])
}

// DecipherBlock is the exact inverse of EncipherBlock.
func (k *CipherKey) DecipherBlock(l, r uint32) (uint32, uint32) {
	var b [CipherBlockSize]byte
	putBlock(b[:], l, r)
	k.c.Decrypt(b[:], b[:])
	return getBlock(b[:])
}

// EncipherStream encrypts buf in place, whole blocks only. A trailing partial
// block is left untouched.
func (k *CipherKey) EncipherStream(buf []byte) {
	for i := 0; i+CipherBlockSize <= len(buf); i += CipherBlockSize {
		blk := buf[i : i+CipherBlockSize]
		k.c.Encrypt(blk, blk)
	}
}

// DecipherStream decrypts buf in place, whole blocks only. A trailing partial
// block is left untouched.
func (k *CipherKey) DecipherStream(buf []byte) {
	for i := 0; i+CipherBlockSize <= len(buf); i += CipherBlockSize {
		blk := buf[i : i+CipherBlockSize]
		k.c.Decrypt(blk, blk)
	}
}

// EncipherStream expands key and encrypts buf in place.
func EncipherStream(buf, key []byte) error {
	if err := ValidateBuffer(buf, "buf", 0); err != nil {
		return err
	}
	k, err := NewCipherKey(key)
	if err != nil {
		return err
	}
	k.EncipherStream(buf)
	return nil
}

// DecipherStream expands key and decrypts buf in place.
func DecipherStream(buf, key []byte) error {
	if err := ValidateBuffer(buf, "buf", 0); err != nil {
		return err
	}
	k, err := NewCipherKey(key)
	if err != nil {
		return err
	}
	k.DecipherStream(buf)
	return nil
}

func putBlock(b []byte, l, r uint32) {
	binary.BigEndian.PutUint32(b[0:4], l)
	binary.BigEndian.PutUint32(b[4:8], r)
}

func getBlock(b []byte) (uint32, uint32) {
	return binary.BigEndian.Uint32(b[0:4]), binary.BigEndian.Uint32(b[4:8])
}
