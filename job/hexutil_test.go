package job

import "testing"

func TestReverseHex(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"01020304", "04030201"},
		{"12345678", "78563412"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ReverseHex(c.in); got != c.want {
			t.Errorf("ReverseHex(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReverseHexOddLengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on odd-length input")
		}
	}()
	ReverseHex("abc")
}

func TestExtranonce2Hex(t *testing.T) {
	cases := []struct {
		v    uint64
		size int
		want string
	}{
		{0, 4, "00000000"},
		{1, 4, "00000001"},
		{0xabcd, 2, "abcd"},
	}
	for _, c := range cases {
		if got := Extranonce2Hex(c.v, c.size); got != c.want {
			t.Errorf("Extranonce2Hex(%d, %d) = %q, want %q", c.v, c.size, got, c.want)
		}
	}
}

func TestDecodeHexInvalid(t *testing.T) {
	if _, err := DecodeHex("zz"); err == nil {
		t.Fatal("expected error decoding invalid hex")
	}
}
