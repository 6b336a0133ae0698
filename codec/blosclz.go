package codec

import "fmt"

// blosclzMaxDistance is the window reachable with a 13-bit offset.
const blosclzMaxDistance = 8191

// blosclzDecompress decodes a BloscLZ stream, a FastLZ derivative.
// Control bytes below 32 introduce ctrl+1 literals; larger ones encode a
// back reference whose length lives in the top three bits.
func blosclzDecompress(src, dst []byte) (int, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("empty blosclz stream")
	}
	ip, op := 0, 0
	ctrl := int(src[ip] & 31)
	ip++

	for {
		if ctrl >= 32 {
			length := (ctrl >> 5) - 1
			ofs := (ctrl & 31) << 8
			if length == 7-1 {
				for {
					if ip >= len(src) {
						return 0, fmt.Errorf("blosclz match length truncated")
					}
					code := src[ip]
					ip++
					length += int(code)
					if code != 255 {
						break
					}
				}
			}
			if ip >= len(src) {
				return 0, fmt.Errorf("blosclz match distance truncated")
			}
			code := int(src[ip])
			ip++
			length += 3
			ref := op - ofs - code
			if code == 255 && ofs == 31<<8 {
				if ip+1 >= len(src) {
					return 0, fmt.Errorf("blosclz far distance truncated")
				}
				ofs = int(src[ip])<<8 | int(src[ip+1])
				ip += 2
				ref = op - ofs - blosclzMaxDistance
			}
			ref--
			if op+length > len(dst) {
				return 0, fmt.Errorf("blosclz output overflow")
			}
			if ref < 0 {
				return 0, fmt.Errorf("blosclz reference before start of output")
			}
			// overlapping copies repeat the pattern
			for k := 0; k < length; k++ {
				dst[op+k] = dst[ref+k]
			}
			op += length
		} else {
			ctrl++
			if op+ctrl > len(dst) || ip+ctrl > len(src) {
				return 0, fmt.Errorf("blosclz literal run overflow")
			}
			copy(dst[op:], src[ip:ip+ctrl])
			op += ctrl
			ip += ctrl
		}

		if ip >= len(src) {
			break
		}
		ctrl = int(src[ip])
		ip++
	}
	return op, nil
}
