package mixfs

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"testing"
)

func TestCipherKey_KnownVectors(t *testing.T) {
	// Eric Young's reference vectors
	tests := []struct {
		key    string
		plain  string
		cipher string
	}{
		{"0000000000000000", "0000000000000000", "4EF997456198DD78"},
		{"FFFFFFFFFFFFFFFF", "FFFFFFFFFFFFFFFF", "51866FD5B85ECB8A"},
		{"3000000000000000", "1000000000000001", "7D856F9A613063F2"},
		{"0123456789ABCDEF", "1111111111111111", "61F9C3802281B096"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			key, _ := hex.DecodeString(tt.key)
			plain, _ := hex.DecodeString(tt.plain)
			want, _ := hex.DecodeString(tt.cipher)

			k, err := NewCipherKey(key)
			if err != nil {
				t.Fatalf("NewCipherKey failed: %v", err)
			}

			buf := append([]byte(nil), plain...)
			k.EncipherStream(buf)
			if !bytes.Equal(buf, want) {
				t.Errorf("EncipherStream = %X, want %X", buf, want)
			}

			l, r := getBlock(plain)
			cl, cr := k.EncipherBlock(l, r)
			wl, wr := getBlock(want)
			if cl != wl || cr != wr {
				t.Errorf("EncipherBlock = %08X %08X, want %08X %08X", cl, cr, wl, wr)
			}

			if dl, dr := k.DecipherBlock(cl, cr); dl != l || dr != r {
				t.Errorf("DecipherBlock = %08X %08X, want %08X %08X", dl, dr, l, r)
			}
		})
	}
}

func TestCipherKey_StreamRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, keyLen := range []int{1, 7, 8, 16, 55, 56} {
		key := make([]byte, keyLen)
		rng.Read(key)

		k, err := NewCipherKey(key)
		if err != nil {
			t.Fatalf("NewCipherKey(%d bytes) failed: %v", keyLen, err)
		}

		for _, blocks := range []int{0, 1, 2, 17} {
			orig := make([]byte, blocks*CipherBlockSize)
			rng.Read(orig)

			buf := append([]byte(nil), orig...)
			k.EncipherStream(buf)
			if blocks > 0 && bytes.Equal(buf, orig) {
				t.Errorf("key %d bytes, %d blocks: ciphertext equals plaintext", keyLen, blocks)
			}
			k.DecipherStream(buf)
			if !bytes.Equal(buf, orig) {
				t.Errorf("key %d bytes, %d blocks: round trip mismatch", keyLen, blocks)
			}
		}
	}
}

func TestCipherKey_PartialBlockUntouched(t *testing.T) {
	k, err := NewCipherKey([]byte("westwood"))
	if err != nil {
		t.Fatalf("NewCipherKey failed: %v", err)
	}

	buf := []byte("0123456789abc") // one block plus five bytes
	k.EncipherStream(buf)

	if string(buf[8:]) != "89abc" {
		t.Errorf("tail = %q, want untouched %q", buf[8:], "89abc")
	}
	if string(buf[:8]) == "01234567" {
		t.Error("whole block was not enciphered")
	}

	short := []byte("abc")
	k.DecipherStream(short)
	if string(short) != "abc" {
		t.Errorf("short buffer changed to %q", short)
	}
}

func TestCipherKey_Deterministic(t *testing.T) {
	a, _ := NewCipherKey([]byte("same key"))
	b, _ := NewCipherKey([]byte("same key"))

	l1, r1 := a.EncipherBlock(0x01234567, 0x89ABCDEF)
	l2, r2 := b.EncipherBlock(0x01234567, 0x89ABCDEF)
	if l1 != l2 || r1 != r2 {
		t.Error("identical keys produced different schedules")
	}
}

func TestNewCipherKey_InvalidSize(t *testing.T) {
	for _, n := range []int{0, 57, 100} {
		_, err := NewCipherKey(make([]byte, n))
		if err == nil {
			t.Errorf("NewCipherKey(%d bytes) should fail", n)
			continue
		}
		if !IsValidationError(err) {
			t.Errorf("NewCipherKey(%d bytes) error = %T, want ValidationError", n, err)
		}
	}
}

func TestStreamFunctions(t *testing.T) {
	key := []byte("stream key")
	orig := []byte("sixteen byte msg")

	buf := append([]byte(nil), orig...)
	if err := EncipherStream(buf, key); err != nil {
		t.Fatalf("EncipherStream failed: %v", err)
	}
	if err := DecipherStream(buf, key); err != nil {
		t.Fatalf("DecipherStream failed: %v", err)
	}
	if !bytes.Equal(buf, orig) {
		t.Errorf("round trip = %q, want %q", buf, orig)
	}

	if err := EncipherStream(buf, nil); err == nil {
		t.Error("EncipherStream with empty key should fail")
	}
	if err := DecipherStream(nil, key); !errors.Is(err, ErrNilBuffer) {
		t.Errorf("DecipherStream(nil) error = %v, want ErrNilBuffer", err)
	}
	if err := EncipherStream(nil, key); !IsValidationError(err) {
		t.Errorf("EncipherStream(nil) error = %T, want ValidationError", err)
	}
}
