// Package buffer provides the fixed-size byte buffers and big-endian
// integer helpers shared by the protocol adapters and the crypto pipeline.
package buffer

import "encoding/binary"

// MaxFrameSize is the largest chunk relayed in one read/write by a bridge
// and the largest AEAD plaintext frame.
const MaxFrameSize = 16 * 1024

// MaxAEADPayload is the largest plaintext payload a single Shadowsocks
// AEAD frame may carry (the length word's two high bits are reserved).
const MaxAEADPayload = 0x3FFF

// PutUint16 writes v to dst in big-endian order. dst must have length >= 2.
func PutUint16(dst []byte, v uint16) {
	binary.BigEndian.PutUint16(dst, v)
}

// Uint16 reads a big-endian uint16 from src. src must have length >= 2.
func Uint16(src []byte) uint16 {
	return binary.BigEndian.Uint16(src)
}

// PutUint32 writes v to dst in big-endian order. dst must have length >= 4.
func PutUint32(dst []byte, v uint32) {
	binary.BigEndian.PutUint32(dst, v)
}

// Uint32 reads a big-endian uint32 from src. src must have length >= 4.
func Uint32(src []byte) uint32 {
	return binary.BigEndian.Uint32(src)
}

// PutUint64 writes v to dst in big-endian order. dst must have length >= 8.
func PutUint64(dst []byte, v uint64) {
	binary.BigEndian.PutUint64(dst, v)
}

// Uint64 reads a big-endian uint64 from src. src must have length >= 8.
func Uint64(src []byte) uint64 {
	return binary.BigEndian.Uint64(src)
}

// Cache is a small append-only byte queue used by adapters to hold bytes
// read past a protocol boundary (HTTP sticky body, Shadowsocks leftover
// frame bytes) until the caller drains them. It never grows past one
// protocol header plus one frame.
type Cache struct {
	buf []byte
}

// Fill appends b to the cache.
func (c *Cache) Fill(b []byte) {
	c.buf = append(c.buf, b...)
}

// Len reports the number of unread bytes held.
func (c *Cache) Len() int {
	return len(c.buf)
}

// Empty reports whether the cache holds no bytes.
func (c *Cache) Empty() bool {
	return len(c.buf) == 0
}

// Drain copies as many cached bytes as fit into dst, removing them from the
// cache, and returns the number of bytes copied.
func (c *Cache) Drain(dst []byte) int {
	n := copy(dst, c.buf)
	c.buf = c.buf[n:]
	return n
}

// Reset discards all cached bytes.
func (c *Cache) Reset() {
	c.buf = nil
}
