package sscrypto

// golang.org/x/crypto/chacha20 only exposes the IETF construction (12- or
// 24-byte nonce, 32-bit block counter); Shadowsocks' plain "chacha20" and
// "salsa20" methods use the original djb construction (8-byte nonce,
// 64-bit counter split across the state words), which has no exported
// low-level block primitive in the pack's x/crypto tree either. Both are
// hand-rolled here from the public-domain reference algorithms, the same
// engineering call as camellia.go.

import "encoding/binary"

var sigmaChaCha = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574}

func chachaQuarterRound(a, b, c, d *uint32) {
	*a += *b
	*d ^= *a
	*d = *d<<16 | *d>>16
	*c += *d
	*b ^= *c
	*b = *b<<12 | *b>>20
	*a += *b
	*d ^= *a
	*d = *d<<8 | *d>>24
	*c += *d
	*b ^= *c
	*b = *b<<7 | *b>>25
}

// chachaBlock runs the 20-round ChaCha core over state (16 words,
// little-endian) and writes the 64-byte keystream block to out.
func chachaBlock(state *[16]uint32, out *[64]byte) {
	x := *state
	for i := 0; i < 10; i++ {
		chachaQuarterRound(&x[0], &x[4], &x[8], &x[12])
		chachaQuarterRound(&x[1], &x[5], &x[9], &x[13])
		chachaQuarterRound(&x[2], &x[6], &x[10], &x[14])
		chachaQuarterRound(&x[3], &x[7], &x[11], &x[15])
		chachaQuarterRound(&x[0], &x[5], &x[10], &x[15])
		chachaQuarterRound(&x[1], &x[6], &x[11], &x[12])
		chachaQuarterRound(&x[2], &x[7], &x[8], &x[13])
		chachaQuarterRound(&x[3], &x[4], &x[9], &x[14])
	}
	for i := range x {
		x[i] += state[i]
	}
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], x[i])
	}
}

// chacha20LegacyStream implements cipher.Stream for the original (non-IETF)
// ChaCha20 construction: 8-byte nonce, 64-bit block counter.
type chacha20LegacyStream struct {
	state [16]uint32
	block [64]byte
	pos   int
}

func newChaCha20Legacy(key, nonce []byte) (*chacha20LegacyStream, error) {
	if len(key) != 32 {
		return nil, errInvalidStreamKeySize
	}
	if len(nonce) != 8 {
		return nil, errInvalidStreamIVSize
	}
	s := &chacha20LegacyStream{pos: 64}
	copy(s.state[0:4], sigmaChaCha[:])
	for i := 0; i < 8; i++ {
		s.state[4+i] = binary.LittleEndian.Uint32(key[i*4 : i*4+4])
	}
	s.state[12] = 0
	s.state[13] = 0
	s.state[14] = binary.LittleEndian.Uint32(nonce[0:4])
	s.state[15] = binary.LittleEndian.Uint32(nonce[4:8])
	return s, nil
}

func (s *chacha20LegacyStream) incrementCounter() {
	s.state[12]++
	if s.state[12] == 0 {
		s.state[13]++
	}
}

func (s *chacha20LegacyStream) XORKeyStream(dst, src []byte) {
	for i := 0; i < len(src); i++ {
		if s.pos == 64 {
			chachaBlock(&s.state, &s.block)
			s.incrementCounter()
			s.pos = 0
		}
		dst[i] = src[i] ^ s.block[s.pos]
		s.pos++
	}
}

// salsa20Stream implements cipher.Stream for Shadowsocks' "salsa20"
// method: 8-byte nonce, 64-bit block counter, Salsa20/20 core.
type salsa20Stream struct {
	key   [32]byte
	nonce [8]byte
	ctr   uint64
	block [64]byte
	pos   int
}

func newSalsa20(key, nonce []byte) (*salsa20Stream, error) {
	if len(key) != 32 {
		return nil, errInvalidStreamKeySize
	}
	if len(nonce) != 8 {
		return nil, errInvalidStreamIVSize
	}
	s := &salsa20Stream{pos: 64}
	copy(s.key[:], key)
	copy(s.nonce[:], nonce)
	return s, nil
}

var salsaConst = [4][4]byte{
	{'e', 'x', 'p', 'a'},
	{'n', 'd', ' ', '3'},
	{'2', '-', 'b', 'y'},
	{'t', 'e', ' ', 'k'},
}

func salsaQuarterRound(y0, y1, y2, y3 *uint32) {
	*y1 ^= rotl32(*y0+*y3, 7)
	*y2 ^= rotl32(*y1+*y0, 9)
	*y3 ^= rotl32(*y2+*y1, 13)
	*y0 ^= rotl32(*y3+*y2, 18)
}

func salsaBlock(key *[32]byte, nonce *[8]byte, counter uint64, out *[64]byte) {
	var in [16]uint32
	in[0] = binary.LittleEndian.Uint32(salsaConst[0][:])
	in[1] = binary.LittleEndian.Uint32(key[0:4])
	in[2] = binary.LittleEndian.Uint32(key[4:8])
	in[3] = binary.LittleEndian.Uint32(key[8:12])
	in[4] = binary.LittleEndian.Uint32(key[12:16])
	in[5] = binary.LittleEndian.Uint32(salsaConst[1][:])
	in[6] = binary.LittleEndian.Uint32(nonce[0:4])
	in[7] = binary.LittleEndian.Uint32(nonce[4:8])
	in[8] = uint32(counter)
	in[9] = uint32(counter >> 32)
	in[10] = binary.LittleEndian.Uint32(salsaConst[2][:])
	in[11] = binary.LittleEndian.Uint32(key[16:20])
	in[12] = binary.LittleEndian.Uint32(key[20:24])
	in[13] = binary.LittleEndian.Uint32(key[24:28])
	in[14] = binary.LittleEndian.Uint32(key[28:32])
	in[15] = binary.LittleEndian.Uint32(salsaConst[3][:])

	x := in
	for i := 0; i < 10; i++ {
		salsaQuarterRound(&x[0], &x[4], &x[8], &x[12])
		salsaQuarterRound(&x[5], &x[9], &x[13], &x[1])
		salsaQuarterRound(&x[10], &x[14], &x[2], &x[6])
		salsaQuarterRound(&x[15], &x[3], &x[7], &x[11])
		salsaQuarterRound(&x[0], &x[1], &x[2], &x[3])
		salsaQuarterRound(&x[5], &x[6], &x[7], &x[4])
		salsaQuarterRound(&x[10], &x[11], &x[8], &x[9])
		salsaQuarterRound(&x[15], &x[12], &x[13], &x[14])
	}
	for i := range x {
		x[i] += in[i]
	}
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], x[i])
	}
}

func (s *salsa20Stream) XORKeyStream(dst, src []byte) {
	for i := 0; i < len(src); i++ {
		if s.pos == 64 {
			salsaBlock(&s.key, &s.nonce, s.ctr, &s.block)
			s.ctr++
			s.pos = 0
		}
		dst[i] = src[i] ^ s.block[s.pos]
		s.pos++
	}
}
