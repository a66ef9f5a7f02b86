package job

import (
	"encoding/hex"
	"fmt"
)

// ReverseHex reverses a hex string by byte pairs, not by character: the
// string "01020304" becomes "04030201". Used to flip block_version,
// ntime and nbits into the endianness the header/wire expects.
//
// The input length must be even; an odd-length input is a programmer
// error (every caller passes either a field already checked to be 8
// chars long or a "%08x"-formatted value), so this panics rather than
// returning an error. The characters themselves are not validated as hex.
func ReverseHex(s string) string {
	if len(s)%2 != 0 {
		panic(fmt.Sprintf("job: ReverseHex: odd-length input %q", s))
	}
	n := len(s) / 2
	out := make([]byte, len(s))
	for i := 0; i < n; i++ {
		src := i * 2
		dst := (n - 1 - i) * 2
		out[dst] = s[src]
		out[dst+1] = s[src+1]
	}
	return string(out)
}

// DecodeHex decodes a lowercase or uppercase hex string to bytes.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("job: invalid hex %q: %w", s, err)
	}
	return b, nil
}

// Extranonce2Hex renders v as lowercase, big-endian hex zero-padded to
// exactly 2*size characters — the same rule the spec states once for
// coinbase assembly (§4.4) and once for submit params (§4.3).
func Extranonce2Hex(v uint64, size int) string {
	return fmt.Sprintf("%0*x", size*2, v)
}
