package codec

// unshuffle reverses the byte shuffle filter: src holds all first bytes of
// each element, then all second bytes, and so on. Trailing bytes that do not
// form a whole element are stored unshuffled.
func unshuffle(typesize int, src, dst []byte) {
	n := len(src) / typesize
	for i := 0; i < n; i++ {
		for j := 0; j < typesize; j++ {
			dst[i*typesize+j] = src[j*n+i]
		}
	}
	rem := n * typesize
	copy(dst[rem:], src[rem:])
}

// bitunshuffle reverses the bit shuffle filter. The shuffled buffer is a
// sequence of bit planes, one per bit of each element, where plane
// byte*8+bit holds that bit of every element, eight elements per byte.
func bitunshuffle(typesize int, src, dst []byte, version byte) {
	n := len(src) / typesize
	if version <= 2 {
		if n%8 != 0 {
			copy(dst, src)
			return
		}
	} else {
		n -= n % 8
	}

	clear(dst[:n*typesize])
	rowLen := n / 8
	for row := 0; row < typesize*8; row++ {
		byteIdx, bit := row/8, row%8
		plane := src[row*rowLen : (row+1)*rowLen]
		for i := 0; i < n; i++ {
			if plane[i/8]>>(i%8)&1 != 0 {
				dst[i*typesize+byteIdx] |= 1 << bit
			}
		}
	}
	off := n * typesize
	copy(dst[off:], src[off:])
}
