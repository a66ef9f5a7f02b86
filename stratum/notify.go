package stratum

import (
	"encoding/json"
	"fmt"
)

// JobNotification is the parsed form of a mining.notify call.
type JobNotification struct {
	JobID        string
	PrevHash     string
	Coinb1       string
	Coinb2       string
	MerkleBranch []string
	BlockVersion string
	NBits        string
	NTime        string
	CleanJobs    bool
}

// ParseNotify decodes mining.notify's positional params array:
// [job_id, prev_hash, coinb1, coinb2, merkle_branch, version, nbits, ntime, clean_jobs]
func ParseNotify(params json.RawMessage) (JobNotification, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return JobNotification{}, fmt.Errorf("stratum: mining.notify: %w", err)
	}
	if len(raw) < 9 {
		return JobNotification{}, fmt.Errorf("stratum: mining.notify: expected 9 params, got %d", len(raw))
	}

	var n JobNotification
	fields := []*string{&n.JobID, &n.PrevHash, &n.Coinb1, &n.Coinb2, &n.BlockVersion, &n.NBits, &n.NTime}
	// merkle_branch (index 4) and clean_jobs (index 8) are handled
	// separately below; everything else is a plain hex string.
	idx := []int{0, 1, 2, 3, 5, 6, 7}
	for i, field := range fields {
		if err := json.Unmarshal(raw[idx[i]], field); err != nil {
			return JobNotification{}, fmt.Errorf("stratum: mining.notify: param %d: %w", idx[i], err)
		}
	}
	if err := json.Unmarshal(raw[4], &n.MerkleBranch); err != nil {
		return JobNotification{}, fmt.Errorf("stratum: mining.notify: merkle_branch: %w", err)
	}
	if err := json.Unmarshal(raw[8], &n.CleanJobs); err != nil {
		return JobNotification{}, fmt.Errorf("stratum: mining.notify: clean_jobs: %w", err)
	}
	return n, nil
}

// SubscribeResult is the parsed result of mining.subscribe:
// [subscriptions, extranonce1, extranonce2_size]
type SubscribeResult struct {
	Subscriptions   [][2]string
	Extranonce1     string
	Extranonce2Size int
}

// ParseSubscribeResult decodes a mining.subscribe success result.
func ParseSubscribeResult(result json.RawMessage) (SubscribeResult, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(result, &raw); err != nil {
		return SubscribeResult{}, fmt.Errorf("stratum: mining.subscribe result: %w", err)
	}
	if len(raw) < 3 {
		return SubscribeResult{}, fmt.Errorf("stratum: mining.subscribe result: expected 3 elements, got %d", len(raw))
	}

	var out SubscribeResult
	var subs [][]string
	if err := json.Unmarshal(raw[0], &subs); err != nil {
		return SubscribeResult{}, fmt.Errorf("stratum: mining.subscribe result: subscriptions: %w", err)
	}
	for _, s := range subs {
		if len(s) >= 2 {
			out.Subscriptions = append(out.Subscriptions, [2]string{s[0], s[1]})
		}
	}
	if err := json.Unmarshal(raw[1], &out.Extranonce1); err != nil {
		return SubscribeResult{}, fmt.Errorf("stratum: mining.subscribe result: extranonce1: %w", err)
	}
	if err := json.Unmarshal(raw[2], &out.Extranonce2Size); err != nil {
		return SubscribeResult{}, fmt.Errorf("stratum: mining.subscribe result: extranonce2_size: %w", err)
	}
	return out, nil
}

// ParseSetDifficulty decodes mining.set_difficulty's single numeric
// param, accepting either a JSON integer or floating literal.
func ParseSetDifficulty(params json.RawMessage) (float64, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return 0, fmt.Errorf("stratum: mining.set_difficulty: %w", err)
	}
	if len(raw) < 1 {
		return 0, fmt.Errorf("stratum: mining.set_difficulty: missing difficulty param")
	}
	var d float64
	if err := json.Unmarshal(raw[0], &d); err != nil {
		return 0, fmt.Errorf("stratum: mining.set_difficulty: %w", err)
	}
	return d, nil
}

// SetExtranonce is the parsed form of mining.set_extranonce's params.
type SetExtranonce struct {
	Extranonce1     string
	Extranonce2Size int
}

// ParseSetExtranonce decodes [extranonce1, extranonce2_size].
func ParseSetExtranonce(params json.RawMessage) (SetExtranonce, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil {
		return SetExtranonce{}, fmt.Errorf("stratum: mining.set_extranonce: %w", err)
	}
	if len(raw) < 2 {
		return SetExtranonce{}, fmt.Errorf("stratum: mining.set_extranonce: expected 2 params, got %d", len(raw))
	}
	var out SetExtranonce
	if err := json.Unmarshal(raw[0], &out.Extranonce1); err != nil {
		return SetExtranonce{}, fmt.Errorf("stratum: mining.set_extranonce: extranonce1: %w", err)
	}
	if err := json.Unmarshal(raw[1], &out.Extranonce2Size); err != nil {
		return SetExtranonce{}, fmt.Errorf("stratum: mining.set_extranonce: extranonce2_size: %w", err)
	}
	return out, nil
}
