// Package job turns a mining.notify payload plus the connection's
// current extranonce/difficulty into a hashable block header and the
// 256-bit target it must beat. It is pure: no network state, no I/O,
// safe to call from any goroutine.
package job

import (
	"crypto/sha256"
	"fmt"
)

// Job is the built artifact a consumer varies the nonce of.
type Job struct {
	JobID           string
	HeaderHex       string // 160 lowercase hex chars, last 8 "00000000"
	Target          Target
	Extranonce2     uint64
	Extranonce2Size int
}

// BuildParams is everything Build needs, assembled by the caller from a
// stratum.JobNotification and the connection's current protocol state.
type BuildParams struct {
	JobID           string
	PrevHash        string // 64 hex chars, used as received
	Coinb1          string // hex
	Coinb2          string // hex
	MerkleBranch    []string
	BlockVersion    string // 8 hex chars
	NBits           string // 8 hex chars
	NTime           string // 8 hex chars
	Extranonce1     string // hex
	Extranonce2     uint64
	Extranonce2Size int
	Difficulty      float64
}

// Build assembles the coinbase, folds the Merkle branch, serializes the
// 160-character header, and converts difficulty into a target.
func Build(p BuildParams) (Job, error) {
	coinbaseHash, err := coinbaseDoubleHash(p)
	if err != nil {
		return Job{}, err
	}

	merkleRoot, err := foldMerkle(coinbaseHash, p.MerkleBranch)
	if err != nil {
		return Job{}, err
	}

	header, err := serializeHeader(p, merkleRoot)
	if err != nil {
		return Job{}, err
	}

	target, err := TargetFromDifficulty(p.Difficulty)
	if err != nil {
		return Job{}, err
	}

	return Job{
		JobID:           p.JobID,
		HeaderHex:       header,
		Target:          target,
		Extranonce2:     p.Extranonce2,
		Extranonce2Size: p.Extranonce2Size,
	}, nil
}

// coinbaseDoubleHash decodes coinb1/extranonce1/extranonce2/coinb2 into
// one byte sequence and returns SHA256(SHA256(concat)).
func coinbaseDoubleHash(p BuildParams) ([32]byte, error) {
	coinb1, err := DecodeHex(p.Coinb1)
	if err != nil {
		return [32]byte{}, fmt.Errorf("job: coinb1: %w", err)
	}
	extranonce1, err := DecodeHex(p.Extranonce1)
	if err != nil {
		return [32]byte{}, fmt.Errorf("job: extranonce1: %w", err)
	}
	coinb2, err := DecodeHex(p.Coinb2)
	if err != nil {
		return [32]byte{}, fmt.Errorf("job: coinb2: %w", err)
	}

	extranonce2Hex := Extranonce2Hex(p.Extranonce2, p.Extranonce2Size)
	extranonce2, err := DecodeHex(extranonce2Hex)
	if err != nil {
		return [32]byte{}, fmt.Errorf("job: extranonce2: %w", err)
	}

	buf := make([]byte, 0, len(coinb1)+len(extranonce1)+len(extranonce2)+len(coinb2))
	buf = append(buf, coinb1...)
	buf = append(buf, extranonce1...)
	buf = append(buf, extranonce2...)
	buf = append(buf, coinb2...)

	return doubleSHA256(buf), nil
}

// foldMerkle starts from the coinbase hash and folds in each sibling in
// order: acc = SHA256(SHA256(acc || branch)).
func foldMerkle(coinbaseHash [32]byte, branch []string) ([32]byte, error) {
	acc := coinbaseHash
	for i, hexSibling := range branch {
		sibling, err := DecodeHex(hexSibling)
		if err != nil {
			return [32]byte{}, fmt.Errorf("job: merkle_branch[%d]: %w", i, err)
		}
		buf := make([]byte, 0, len(acc)+len(sibling))
		buf = append(buf, acc[:]...)
		buf = append(buf, sibling...)
		acc = doubleSHA256(buf)
	}
	return acc, nil
}

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// serializeHeader produces the 160-char hex header: reversed version,
// prev_hash verbatim, the Merkle root in ascending byte order, reversed
// ntime, reversed nbits, and the literal nonce placeholder.
func serializeHeader(p BuildParams, merkleRoot [32]byte) (string, error) {
	if len(p.BlockVersion) != 8 || len(p.NBits) != 8 || len(p.NTime) != 8 {
		return "", fmt.Errorf("job: version/nbits/ntime must each be 8 hex chars")
	}
	if len(p.PrevHash) != 64 {
		return "", fmt.Errorf("job: prev_hash must be 64 hex chars")
	}

	merkleHex := fmt.Sprintf("%x", merkleRoot[:])

	header := ReverseHex(p.BlockVersion) +
		p.PrevHash +
		merkleHex +
		ReverseHex(p.NTime) +
		ReverseHex(p.NBits) +
		"00000000"

	if len(header) != 160 {
		return "", fmt.Errorf("job: internal error: header is %d chars, want 160", len(header))
	}
	return header, nil
}
