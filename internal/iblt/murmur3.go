package iblt

// murmur3_32 is the 32-bit x86 variant of MurmurHash3, hand-rolled because
// nothing in the retrieval pack supplies a murmur3 implementation and the
// IBLT bucket layout is defined directly in terms of it.
func murmur3_32(seed uint32, data []byte) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
	)

	h := seed
	length := len(data)
	nBlocks := length / 4

	for i := 0; i < nBlocks; i++ {
		k := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		k *= c1
		k = rotl32(k, 15)
		k *= c2

		h ^= k
		h = rotl32(h, 13)
		h = h*5 + 0xe6546b64
	}

	tail := data[nBlocks*4:]
	var k1 uint32
	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= c1
		k1 = rotl32(k1, 15)
		k1 *= c2
		h ^= k1
	}

	h ^= uint32(length)
	h = fmix32(h)
	return h
}

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}

func fmix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// hashKey hashes a 4-byte little-endian encoding of key with the given seed,
// matching how the IBLT hashes its (already-hashed) uint32 keys for bucket
// placement and the keyCheck field.
func hashKey(seed uint32, key uint32) uint32 {
	var buf [4]byte
	buf[0] = byte(key)
	buf[1] = byte(key >> 8)
	buf[2] = byte(key >> 16)
	buf[3] = byte(key >> 24)
	return murmur3_32(seed, buf[:])
}

// HashName reduces an arbitrary byte string (typically an encoded Name) to
// the uint32 key space the IBLT operates over.
func HashName(b []byte) uint32 {
	return murmur3_32(0, b)
}
