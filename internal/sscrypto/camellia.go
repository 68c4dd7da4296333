package sscrypto

// Camellia (RFC 3713) is not carried by any dependency in the module's
// retrieval pack or the wider x/crypto tree (AES, ChaCha20-IETF, Blowfish
// and RC4 come from crypto/* or golang.org/x/crypto/*; the original
// ChaCha20 and Salsa20 are hand-rolled in chacha_salsa_legacy.go). This is a from-scratch cipher.Block
// implementation of the RFC algorithm, used only by the
// camellia-{128,192,256}-cfb Shadowsocks methods (see DESIGN.md).

import (
	"encoding/binary"
	"errors"
)

var errInvalidCamelliaKeySize = errors.New("sscrypto: invalid camellia key size")

const (
	camelliaSigma1 = 0xA09E667F3BCC908B
	camelliaSigma2 = 0xB67AE8584CAA73B2
	camelliaSigma3 = 0xC6EF372FE94F82BE
	camelliaSigma4 = 0x54FF53A5F1D36F1C
	camelliaSigma5 = 0x10E527FADE682D1D
	camelliaSigma6 = 0xB05688C2B3E6C1FD
)

var camelliaSBOX1 = [256]byte{
	0x70, 0x82, 0x2c, 0xec, 0xb3, 0x27, 0xc0, 0xe5, 0xe4, 0x85, 0x57, 0x35, 0xea, 0x0c, 0xae, 0x41,
	0x23, 0xef, 0x6b, 0x93, 0x45, 0x19, 0xa5, 0x21, 0xed, 0x0e, 0x4f, 0x4e, 0x1d, 0x65, 0x92, 0xbd,
	0x86, 0xb8, 0xaf, 0x8f, 0x7c, 0xeb, 0x1f, 0xce, 0x3e, 0x30, 0xdc, 0x5f, 0x5e, 0xc5, 0x0b, 0x1a,
	0xa6, 0xe1, 0x39, 0xca, 0xd5, 0x47, 0x5d, 0x3d, 0xd9, 0x01, 0x5a, 0xd6, 0x51, 0x56, 0x6c, 0x4d,
	0x8b, 0x0d, 0x9a, 0x66, 0xfb, 0xcc, 0xb0, 0x2d, 0x74, 0x12, 0x2b, 0x20, 0xf0, 0xb1, 0x84, 0x99,
	0xdf, 0x4c, 0xcb, 0xc2, 0x34, 0x7e, 0x76, 0x05, 0x6d, 0xb7, 0xa9, 0x31, 0xd1, 0x17, 0x04, 0xd7,
	0x14, 0x58, 0x3a, 0x61, 0xde, 0x1b, 0x11, 0x1c, 0x32, 0x0f, 0x9c, 0x16, 0x53, 0x18, 0xf2, 0x22,
	0xfe, 0x44, 0xcf, 0xb2, 0xc3, 0xb5, 0x7a, 0x91, 0x24, 0x08, 0xe8, 0xa8, 0x60, 0xfc, 0x69, 0x50,
	0xaa, 0xd0, 0xa0, 0x7d, 0xa1, 0x89, 0x62, 0x97, 0x54, 0x5b, 0x1e, 0x95, 0xe0, 0xff, 0x64, 0xd2,
	0x10, 0xc4, 0x00, 0x48, 0xa3, 0xf7, 0x75, 0xdb, 0x8a, 0x03, 0xe6, 0xda, 0x09, 0x3f, 0xdd, 0x94,
	0x87, 0x5c, 0x83, 0x02, 0xcd, 0x4a, 0x90, 0x33, 0x73, 0x67, 0xf6, 0xf3, 0x9d, 0x7f, 0xbf, 0xe2,
	0x52, 0x9b, 0xd8, 0x26, 0xc8, 0x37, 0xc6, 0x3b, 0x81, 0x96, 0x6f, 0x4b, 0x13, 0xbe, 0x63, 0x2e,
	0xe9, 0x79, 0xa7, 0x8c, 0x9f, 0x6e, 0xbc, 0x8e, 0x29, 0xf5, 0xf9, 0xb6, 0x2f, 0xfd, 0xb4, 0x59,
	0x78, 0x98, 0x06, 0x6a, 0xe7, 0x46, 0x71, 0xba, 0xd4, 0x25, 0xab, 0x42, 0x88, 0xa2, 0x8d, 0xfa,
	0x72, 0x07, 0xb9, 0x55, 0xf8, 0xee, 0xac, 0x0a, 0x36, 0x49, 0x2a, 0x68, 0x3c, 0x38, 0xf1, 0xa4,
	0x40, 0x28, 0xd3, 0x7b, 0xbb, 0xc9, 0x43, 0xc1, 0x15, 0xe3, 0xad, 0xf4, 0x77, 0xc7, 0x80, 0x9e,
}

func rotl8(x byte, n uint) byte { return x<<n | x>>(8-n) }

func camelliaSBOX2(x byte) byte { return rotl8(camelliaSBOX1[x], 1) }
func camelliaSBOX3(x byte) byte { return rotl8(camelliaSBOX1[x], 7) }
func camelliaSBOX4(x byte) byte { return camelliaSBOX1[rotl8(x, 1)] }

func rotl32(x uint32, n uint) uint32 { return x<<n | x>>(32-n) }

// rotl128 rotates the 128-bit value hi||lo left by n (0 < n < 128, n != 64).
func rotl128(hi, lo uint64, n uint) (uint64, uint64) {
	if n >= 64 {
		hi, lo = lo, hi
		n -= 64
	}
	if n == 0 {
		return hi, lo
	}
	return hi<<n | lo>>(64-n), lo<<n | hi>>(64-n)
}

// camelliaF is the round function: key-XOR, the four s-boxes, then the
// byte-diffusion P layer (RFC 3713 section 2.4).
func camelliaF(x, k uint64) uint64 {
	x ^= k
	var t [8]byte
	binary.BigEndian.PutUint64(t[:], x)

	t[0] = camelliaSBOX1[t[0]]
	t[1] = camelliaSBOX2(t[1])
	t[2] = camelliaSBOX3(t[2])
	t[3] = camelliaSBOX4(t[3])
	t[4] = camelliaSBOX2(t[4])
	t[5] = camelliaSBOX3(t[5])
	t[6] = camelliaSBOX4(t[6])
	t[7] = camelliaSBOX1[t[7]]

	y0 := t[0] ^ t[2] ^ t[3] ^ t[5] ^ t[6] ^ t[7]
	y1 := t[0] ^ t[1] ^ t[3] ^ t[4] ^ t[6] ^ t[7]
	y2 := t[0] ^ t[1] ^ t[2] ^ t[4] ^ t[5] ^ t[7]
	y3 := t[1] ^ t[2] ^ t[3] ^ t[4] ^ t[5] ^ t[6]
	y4 := t[0] ^ t[1] ^ t[5] ^ t[6] ^ t[7]
	y5 := t[1] ^ t[2] ^ t[4] ^ t[6] ^ t[7]
	y6 := t[2] ^ t[3] ^ t[4] ^ t[5] ^ t[7]
	y7 := t[0] ^ t[3] ^ t[4] ^ t[5] ^ t[6]

	out := [8]byte{y0, y1, y2, y3, y4, y5, y6, y7}
	return binary.BigEndian.Uint64(out[:])
}

func camelliaFL(x, ke uint64) uint64 {
	xh, xl := uint32(x>>32), uint32(x)
	kh, kl := uint32(ke>>32), uint32(ke)
	xl ^= rotl32(xh&kh, 1)
	xh ^= xl | kl
	return uint64(xh)<<32 | uint64(xl)
}

func camelliaFLInv(y, ke uint64) uint64 {
	yh, yl := uint32(y>>32), uint32(y)
	kh, kl := uint32(ke>>32), uint32(ke)
	yh ^= yl | kl
	yl ^= rotl32(yh&kh, 1)
	return uint64(yh)<<32 | uint64(yl)
}

// camelliaCipher is a cipher.Block for 128/192/256-bit Camellia keys. The
// decryption schedule is the encryption schedule reversed, precomputed once.
type camelliaCipher struct {
	ekw [4]uint64
	ek  []uint64 // 18 (128-bit) or 24 (192/256-bit) round keys
	eke []uint64 // 4 or 6 FL/FLINV keys
	dkw [4]uint64
	dk  []uint64
	dke []uint64
}

func newCamelliaCipher(key []byte) (*camelliaCipher, error) {
	var klHi, klLo, krHi, krLo uint64
	switch len(key) {
	case 16:
	case 24:
		krHi = binary.BigEndian.Uint64(key[16:24])
		krLo = ^krHi
	case 32:
		krHi = binary.BigEndian.Uint64(key[16:24])
		krLo = binary.BigEndian.Uint64(key[24:32])
	default:
		return nil, errInvalidCamelliaKeySize
	}
	klHi = binary.BigEndian.Uint64(key[0:8])
	klLo = binary.BigEndian.Uint64(key[8:16])

	d1 := klHi ^ krHi
	d2 := klLo ^ krLo
	d2 ^= camelliaF(d1, camelliaSigma1)
	d1 ^= camelliaF(d2, camelliaSigma2)
	d1 ^= klHi
	d2 ^= klLo
	d2 ^= camelliaF(d1, camelliaSigma3)
	d1 ^= camelliaF(d2, camelliaSigma4)
	kaHi, kaLo := d1, d2

	d1 = kaHi ^ krHi
	d2 = kaLo ^ krLo
	d2 ^= camelliaF(d1, camelliaSigma5)
	d1 ^= camelliaF(d2, camelliaSigma6)
	kbHi, kbLo := d1, d2

	c := &camelliaCipher{}
	if len(key) == 16 {
		c.schedule128(klHi, klLo, kaHi, kaLo)
	} else {
		c.schedule256(klHi, klLo, krHi, krLo, kaHi, kaLo, kbHi, kbLo)
	}

	c.dkw = [4]uint64{c.ekw[2], c.ekw[3], c.ekw[0], c.ekw[1]}
	c.dk = make([]uint64, len(c.ek))
	for i, v := range c.ek {
		c.dk[len(c.ek)-1-i] = v
	}
	c.dke = make([]uint64, len(c.eke))
	for i, v := range c.eke {
		c.dke[len(c.eke)-1-i] = v
	}
	return c, nil
}

// schedule128 fills the 18-round subkey table (RFC 3713 section 2.4.1).
func (c *camelliaCipher) schedule128(klHi, klLo, kaHi, kaLo uint64) {
	k := make([]uint64, 18)
	ke := make([]uint64, 4)

	c.ekw[0], c.ekw[1] = klHi, klLo
	k[0], k[1] = kaHi, kaLo
	k[2], k[3] = rotl128(klHi, klLo, 15)
	k[4], k[5] = rotl128(kaHi, kaLo, 15)
	ke[0], ke[1] = rotl128(kaHi, kaLo, 30)
	k[6], k[7] = rotl128(klHi, klLo, 45)
	k[8], _ = rotl128(kaHi, kaLo, 45)
	_, k[9] = rotl128(klHi, klLo, 60)
	k[10], k[11] = rotl128(kaHi, kaLo, 60)
	ke[2], ke[3] = rotl128(klHi, klLo, 77)
	k[12], k[13] = rotl128(klHi, klLo, 94)
	k[14], k[15] = rotl128(kaHi, kaLo, 94)
	k[16], k[17] = rotl128(klHi, klLo, 111)
	c.ekw[2], c.ekw[3] = rotl128(kaHi, kaLo, 111)

	c.ek, c.eke = k, ke
}

// schedule256 fills the 24-round subkey table shared by 192- and 256-bit
// keys (RFC 3713 section 2.4.2).
func (c *camelliaCipher) schedule256(klHi, klLo, krHi, krLo, kaHi, kaLo, kbHi, kbLo uint64) {
	k := make([]uint64, 24)
	ke := make([]uint64, 6)

	c.ekw[0], c.ekw[1] = klHi, klLo
	k[0], k[1] = kbHi, kbLo
	k[2], k[3] = rotl128(krHi, krLo, 15)
	k[4], k[5] = rotl128(kaHi, kaLo, 15)
	ke[0], ke[1] = rotl128(krHi, krLo, 30)
	k[6], k[7] = rotl128(kbHi, kbLo, 30)
	k[8], k[9] = rotl128(klHi, klLo, 45)
	k[10], k[11] = rotl128(kaHi, kaLo, 45)
	ke[2], ke[3] = rotl128(klHi, klLo, 60)
	k[12], k[13] = rotl128(krHi, krLo, 60)
	k[14], k[15] = rotl128(kbHi, kbLo, 60)
	k[16], k[17] = rotl128(klHi, klLo, 77)
	ke[4], ke[5] = rotl128(kaHi, kaLo, 77)
	k[18], k[19] = rotl128(krHi, krLo, 94)
	k[20], k[21] = rotl128(kaHi, kaLo, 94)
	k[22], k[23] = rotl128(klHi, klLo, 111)
	c.ekw[2], c.ekw[3] = rotl128(kbHi, kbLo, 111)

	c.ek, c.eke = k, ke
}

// crypt runs the Feistel network in the order given by kw/k/ke; decryption
// is the same walk with the reversed schedule.
func camelliaCrypt(d1, d2 uint64, kw *[4]uint64, k, ke []uint64) (uint64, uint64) {
	d1 ^= kw[0]
	d2 ^= kw[1]
	for i := 0; i < len(k); i += 2 {
		if i > 0 && i%6 == 0 {
			d1 = camelliaFL(d1, ke[i/3-2])
			d2 = camelliaFLInv(d2, ke[i/3-1])
		}
		d2 ^= camelliaF(d1, k[i])
		d1 ^= camelliaF(d2, k[i+1])
	}
	d2 ^= kw[2]
	d1 ^= kw[3]
	return d2, d1
}

func (c *camelliaCipher) BlockSize() int { return 16 }

func (c *camelliaCipher) Encrypt(dst, src []byte) {
	d1 := binary.BigEndian.Uint64(src[0:8])
	d2 := binary.BigEndian.Uint64(src[8:16])
	c1, c2 := camelliaCrypt(d1, d2, &c.ekw, c.ek, c.eke)
	binary.BigEndian.PutUint64(dst[0:8], c1)
	binary.BigEndian.PutUint64(dst[8:16], c2)
}

func (c *camelliaCipher) Decrypt(dst, src []byte) {
	d1 := binary.BigEndian.Uint64(src[0:8])
	d2 := binary.BigEndian.Uint64(src[8:16])
	m1, m2 := camelliaCrypt(d1, d2, &c.dkw, c.dk, c.dke)
	binary.BigEndian.PutUint64(dst[0:8], m1)
	binary.BigEndian.PutUint64(dst[8:16], m2)
}
