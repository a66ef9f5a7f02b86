package stratum

import (
	"fmt"

	"stratumclient/job"
)

// JobResult is the nonce and metadata a consumer of Job found. A result
// is empty iff JobID is empty, per the spec's definition — Submit
// rejects an empty result locally without touching the wire.
type JobResult struct {
	WorkerName      string
	JobID           string
	NTime           uint32
	Nonce           uint32
	Extranonce2     uint32
	Extranonce2Size uint32
}

// IsEmpty reports whether this is the empty JobResult sentinel.
func (r JobResult) IsEmpty() bool {
	return r.JobID == ""
}

// SubscribeParams builds mining.subscribe's params: [user_agent].
func SubscribeParams(userAgent string) []interface{} {
	return []interface{}{userAgent}
}

// AuthorizeParams builds mining.authorize's params: [worker, password].
func AuthorizeParams(worker, password string) []interface{} {
	return []interface{}{worker, password}
}

// SuggestDifficultyParams builds mining.suggest_difficulty's params.
func SuggestDifficultyParams(d float64) []interface{} {
	return []interface{}{d}
}

// SubmitParams builds mining.submit's params using the extranonce
// snapshot captured when jobID was accepted into the job table, not the
// connection's live extranonce state. Returns an error without
// producing params when result is empty — the caller must not send
// anything to the wire in that case. It does not consult the job table;
// the caller looks up snapshot and rejects unknown job IDs itself.
func SubmitParams(result JobResult, snapshot ExtranonceSnapshot) ([]interface{}, error) {
	if result.IsEmpty() {
		return nil, fmt.Errorf("stratum: mining.submit: empty job result")
	}

	extranonce2Hex := job.Extranonce2Hex(uint64(result.Extranonce2), int(snapshot.Extranonce2Size))
	ntimeHex := job.ReverseHex(fmt.Sprintf("%08x", result.NTime))
	nonceHex := job.ReverseHex(fmt.Sprintf("%08x", result.Nonce))

	return []interface{}{
		result.WorkerName,
		result.JobID,
		extranonce2Hex,
		ntimeHex,
		nonceHex,
	}, nil
}
