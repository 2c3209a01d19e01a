package mixfs

// Fixed-width unsigned integers for the key unwrap. Values are arrays of
// 32-bit words, least significant word first. Arithmetic wraps modulo
// 2^(32*len) like the hardware it mirrors; negation is two's complement.

const bignumWords = 64

// bignum holds up to 2048 bits.
type bignum [bignumWords]uint32

// wideBignum holds the full product of two bignums.
type wideBignum [2 * bignumWords]uint32

func (a *bignum) setUint32(v uint32) {
	*a = bignum{}
	a[0] = v
}

// setBytesLE loads little-endian bytes. Bytes beyond the capacity are ignored.
func (a *bignum) setBytesLE(b []byte) {
	*a = bignum{}
	for i, c := range b {
		if i/4 >= bignumWords {
			break
		}
		a[i/4] |= uint32(c) << (8 * uint(i%4))
	}
}

// putBytesLE writes the low len(dst) bytes of a into dst, little-endian.
func (a *bignum) putBytesLE(dst []byte) {
	for i := range dst {
		if i/4 >= bignumWords {
			dst[i] = 0
			continue
		}
		dst[i] = byte(a[i/4] >> (8 * uint(i%4)))
	}
}

// wordLen returns the index of the highest nonzero word plus one.
func wordLen(x []uint32) int {
	for i := len(x) - 1; i >= 0; i-- {
		if x[i] != 0 {
			return i + 1
		}
	}
	return 0
}

// bitLen returns the position of the highest set bit plus one.
func bitLen(x []uint32) int {
	n := wordLen(x)
	if n == 0 {
		return 0
	}
	top := x[n-1]
	bits := 0
	for top != 0 {
		bits++
		top >>= 1
	}
	return (n-1)*32 + bits
}

// testBit reports bit i of x.
func testBit(x []uint32, i int) bool {
	if i < 0 || i/32 >= len(x) {
		return false
	}
	return x[i/32]>>(uint(i)%32)&1 == 1
}

// cmpWords compares x and y as unsigned integers. Missing high words count as
// zero, so the slices may differ in length.
func cmpWords(x, y []uint32) int {
	n := len(x)
	if len(y) > n {
		n = len(y)
	}
	for i := n - 1; i >= 0; i-- {
		var a, b uint32
		if i < len(x) {
			a = x[i]
		}
		if i < len(y) {
			b = y[i]
		}
		switch {
		case a > b:
			return 1
		case a < b:
			return -1
		}
	}
	return 0
}

// subWords sets z = x - y over len(z) words and returns the final borrow.
// Missing words of x or y count as zero. z may alias x.
func subWords(z, x, y []uint32) uint32 {
	var borrow uint64
	for i := range z {
		var a, b uint64
		if i < len(x) {
			a = uint64(x[i])
		}
		if i < len(y) {
			b = uint64(y[i])
		}
		d := a - b - borrow
		z[i] = uint32(d)
		borrow = (d >> 32) & 1
	}
	return uint32(borrow)
}

// addWords sets z = x + y over len(z) words and returns the final carry.
// z may alias x.
func addWords(z, x, y []uint32) uint32 {
	var carry uint64
	for i := range z {
		var a, b uint64
		if i < len(x) {
			a = uint64(x[i])
		}
		if i < len(y) {
			b = uint64(y[i])
		}
		s := a + b + carry
		z[i] = uint32(s)
		carry = s >> 32
	}
	return uint32(carry)
}

// incWords adds one in place and returns the carry out of the top word.
func incWords(x []uint32) uint32 {
	for i := range x {
		x[i]++
		if x[i] != 0 {
			return 0
		}
	}
	return 1
}

// decWords subtracts one in place and returns the borrow out of the top word.
func decWords(x []uint32) uint32 {
	for i := range x {
		x[i]--
		if x[i] != 0xFFFFFFFF {
			return 0
		}
	}
	return 1
}

// negWords replaces x with its two's complement.
func negWords(x []uint32) {
	for i := range x {
		x[i] = ^x[i]
	}
	incWords(x)
}

// shlWords shifts x left by n bits in place; bits shifted past the top are lost.
func shlWords(x []uint32, n int) {
	if n <= 0 {
		return
	}
	words, bits := n/32, uint(n%32)
	for i := len(x) - 1; i >= 0; i-- {
		src := i - words
		var v uint32
		if src >= 0 {
			v = x[src] << bits
			if bits != 0 && src-1 >= 0 {
				v |= x[src-1] >> (32 - bits)
			}
		}
		x[i] = v
	}
}

// shrWords shifts x right by n bits in place.
func shrWords(x []uint32, n int) {
	if n <= 0 {
		return
	}
	words, bits := n/32, uint(n%32)
	for i := range x {
		src := i + words
		var v uint32
		if src < len(x) {
			v = x[src] >> bits
			if bits != 0 && src+1 < len(x) {
				v |= x[src+1] << (32 - bits)
			}
		}
		x[i] = v
	}
}

// mulWords sets z = x * y. z must hold len(x)+len(y) words and must not alias
// x or y.
func mulWords(z, x, y []uint32) {
	for i := range z {
		z[i] = 0
	}
	nx, ny := wordLen(x), wordLen(y)
	for i := 0; i < nx; i++ {
		xi := uint64(x[i])
		if xi == 0 {
			continue
		}
		var carry uint64
		for j := 0; j < ny; j++ {
			t := xi*uint64(y[j]) + uint64(z[i+j]) + carry
			z[i+j] = uint32(t)
			carry = t >> 32
		}
		for j := i + ny; carry != 0 && j < len(z); j++ {
			t := uint64(z[j]) + carry
			z[j] = uint32(t)
			carry = t >> 32
		}
	}
}

// reducer computes remainders modulo a fixed modulus with Barrett's method:
// the reciprocal mu = floor(2^(64k) / m) is found once, after which each
// reduction costs two multiplications and at most two subtractions.
type reducer struct {
	m  []uint32 // modulus, k words
	k  int
	mu []uint32 // k+2 words
}

func newReducer(m *bignum) *reducer {
	k := wordLen(m[:])
	r := &reducer{
		m: make([]uint32, k),
		k: k,
	}
	copy(r.m, m[:k])
	r.mu = reciprocal(r.m, k)
	return r
}

// reciprocal returns floor(2^(64k) / m) by restoring binary long division.
// The dividend has a single set bit, so only the remainder needs storage.
func reciprocal(m []uint32, k int) []uint32 {
	q := make([]uint32, 2*k+1)
	rem := make([]uint32, k+1)
	for i := 64 * k; i >= 0; i-- {
		shlWords(rem, 1)
		if i == 64*k {
			rem[0] |= 1
		}
		if cmpWords(rem, m) >= 0 {
			subWords(rem, rem, m)
			q[i/32] |= 1 << (uint(i) % 32)
		}
	}
	// m >= 2^(32(k-1)) bounds the quotient by 2^(32(k+1)).
	return q[:k+2]
}

// reduce sets z = x mod m. x must be below 2^(64k), that is at most 2k
// significant words.
func (r *reducer) reduce(z *bignum, x []uint32) {
	k := r.k

	// q1 = floor(x / b^(k-1))
	q1 := make([]uint32, k+1)
	for i := range q1 {
		if j := i + k - 1; j < len(x) {
			q1[i] = x[j]
		}
	}

	// q3 = floor(q1 * mu / b^(k+1))
	q2 := make([]uint32, len(q1)+len(r.mu))
	mulWords(q2, q1, r.mu)
	q3 := q2[k+1:]

	// rem = (x - q3*m) mod b^(k+1)
	qm := make([]uint32, len(q3)+k)
	mulWords(qm, q3, r.m)
	lo := x
	if len(lo) > k+1 {
		lo = lo[:k+1]
	}
	rem := make([]uint32, k+1)
	subWords(rem, lo, qm[:k+1])

	for cmpWords(rem, r.m) >= 0 {
		subWords(rem, rem, r.m)
	}

	*z = bignum{}
	copy(z[:], rem[:k])
}

// mulMod sets z = x * y mod m. x and y must already be reduced.
func (r *reducer) mulMod(z, x, y *bignum) {
	var prod wideBignum
	mulWords(prod[:], x[:], y[:])
	r.reduce(z, prod[:])
}

// expMod sets z = base^exp mod m by left-to-right square-and-multiply.
func (r *reducer) expMod(z, base, exp *bignum) {
	var b bignum
	r.reduce(&b, base[:])

	n := bitLen(exp[:])
	if n == 0 {
		z.setUint32(1)
		r.reduce(z, z[:])
		return
	}

	acc := b
	for i := n - 2; i >= 0; i-- {
		r.mulMod(&acc, &acc, &acc)
		if testBit(exp[:], i) {
			r.mulMod(&acc, &acc, &b)
		}
	}
	*z = acc
}
