package job

import "testing"

func TestBuildEmptyMerkleBranch(t *testing.T) {
	p := BuildParams{
		JobID:           "job1",
		PrevHash:        repeat("00", 32),
		Coinb1:          "0100000001" + repeat("00", 32) + "ffffffff" + "08" + "0000000000000000",
		Coinb2:          "ffffffff0100f2052a01000000" + "1976a914" + repeat("11", 20) + "88ac" + "00000000",
		MerkleBranch:    nil,
		BlockVersion:    "00000001",
		NBits:           "1d00ffff",
		NTime:           "4dd7f5c7",
		Extranonce1:     "2a010000",
		Extranonce2:     0x00434104,
		Extranonce2Size: 4,
		Difficulty:      1.0,
	}

	got, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "0100000000000000000000000000000000000000000000000000000000000000000000003f4fb86bdd83c54d0fa0a78851c1d6c564fcfadfdc39c06a067fb61677ed3978c7f5d74dffff001d00000000"
	if got.HeaderHex != want {
		t.Errorf("HeaderHex =\n%s\nwant\n%s", got.HeaderHex, want)
	}
	if got.HeaderHex[152:] != "00000000" {
		t.Errorf("header nonce placeholder = %q, want \"00000000\"", got.HeaderHex[152:])
	}
	if got.Target[6] != 0xFFFF0000 {
		t.Errorf("target[6] = 0x%08x, want 0xFFFF0000", got.Target[6])
	}
}

func TestBuildOneElementMerkleBranch(t *testing.T) {
	p := BuildParams{
		JobID:           "job2",
		PrevHash:        repeat("11", 32),
		Coinb1:          "0200000001" + repeat("00", 32) + "ffffffff" + "08" + "0000000000000000",
		Coinb2:          "ffffffff0100f2052a01000000" + "1976a914" + repeat("22", 20) + "88ac" + "00000000",
		MerkleBranch:    []string{repeat("33", 32)},
		BlockVersion:    "20000000",
		NBits:           "1a44b9f2",
		NTime:           "5cf7d74d",
		Extranonce1:     "0badc0de",
		Extranonce2:     7,
		Extranonce2Size: 4,
		Difficulty:      2.0,
	}

	got, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "0000002011111111111111111111111111111111111111111111111111111111111111112b6f7f1ead2a9a8af83bf99f2930a7e638665c43c2cbe2f0cd6dec27c472a8154dd7f75cf2b9441a00000000"
	if got.HeaderHex != want {
		t.Errorf("HeaderHex =\n%s\nwant\n%s", got.HeaderHex, want)
	}
}

// TestBuildBlock125552HeaderFields checks the version/prev_hash/ntime/
// nbits segments of a built header against the canonical Bitcoin block
// 125552 test vector's literal 160-char header: version reversed is
// "01000000", prev_hash is used verbatim, ntime reversed is "c7f5d74d",
// nbits reversed is "f2b9441a", and the trailing 8 chars are always the
// nonce placeholder. The coinbase below is synthetic — the real
// block's raw transaction bytes aren't reproduced here — so the Merkle
// root segment of the header isn't asserted against the vector.
func TestBuildBlock125552HeaderFields(t *testing.T) {
	p := BuildParams{
		JobID:           "125552",
		PrevHash:        "81cd02ab7e569e8bcd9317e2fe99f2de44d49ab2b8851ba4a308000000000000",
		Coinb1:          "0100000001" + repeat("00", 32) + "ffffffff" + "08" + "0000000000000000",
		Coinb2:          "ffffffff0100f2052a01000000" + "1976a914" + repeat("11", 20) + "88ac" + "00000000",
		MerkleBranch:    nil,
		BlockVersion:    "00000001",
		NBits:           "1a44b9f2",
		NTime:           "4dd7f5c7",
		Extranonce1:     "2a010000",
		Extranonce2:     0x00434104,
		Extranonce2Size: 4,
		Difficulty:      1.0,
	}

	got, err := Build(p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	const (
		wantVersion  = "01000000"
		wantPrevHash = "81cd02ab7e569e8bcd9317e2fe99f2de44d49ab2b8851ba4a308000000000000"
		wantNTime    = "c7f5d74d"
		wantNBits    = "f2b9441a"
	)
	if got.HeaderHex[0:8] != wantVersion {
		t.Errorf("version = %s, want %s", got.HeaderHex[0:8], wantVersion)
	}
	if got.HeaderHex[8:72] != wantPrevHash {
		t.Errorf("prev_hash = %s, want %s", got.HeaderHex[8:72], wantPrevHash)
	}
	if got.HeaderHex[136:144] != wantNTime {
		t.Errorf("ntime = %s, want %s", got.HeaderHex[136:144], wantNTime)
	}
	if got.HeaderHex[144:152] != wantNBits {
		t.Errorf("nbits = %s, want %s", got.HeaderHex[144:152], wantNBits)
	}
	if got.HeaderHex[152:] != "00000000" {
		t.Errorf("nonce placeholder = %s, want 00000000", got.HeaderHex[152:])
	}
	if got.Target[6] != 0xFFFF0000 {
		t.Errorf("target[6] = 0x%08x, want 0xFFFF0000", got.Target[6])
	}
}

func TestBuildRejectsMalformedFixedWidthFields(t *testing.T) {
	p := BuildParams{
		JobID:           "job3",
		PrevHash:        repeat("00", 32),
		Coinb1:          "00",
		Coinb2:          "00",
		BlockVersion:    "0001", // wrong width
		NBits:           "1d00ffff",
		NTime:           "4dd7f5c7",
		Extranonce1:     "00000000",
		Extranonce2Size: 4,
		Difficulty:      1.0,
	}
	if _, err := Build(p); err == nil {
		t.Fatal("expected error for malformed block_version width")
	}
}

func TestBuildRejectsBadHex(t *testing.T) {
	p := BuildParams{
		JobID:           "job4",
		PrevHash:        repeat("00", 32),
		Coinb1:          "zz",
		Coinb2:          "00",
		BlockVersion:    "00000001",
		NBits:           "1d00ffff",
		NTime:           "4dd7f5c7",
		Extranonce1:     "00000000",
		Extranonce2Size: 4,
		Difficulty:      1.0,
	}
	if _, err := Build(p); err == nil {
		t.Fatal("expected error for invalid coinb1 hex")
	}
}

func repeat(pair string, n int) string {
	out := make([]byte, 0, len(pair)*n)
	for i := 0; i < n; i++ {
		out = append(out, pair...)
	}
	return string(out)
}
