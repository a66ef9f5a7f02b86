package stratum

import "testing"

func TestSubmitParamsFormatting(t *testing.T) {
	result := JobResult{
		WorkerName:      "w",
		JobID:           "j",
		NTime:           0x12345678,
		Nonce:           0x9abcdef0,
		Extranonce2:     0x1234,
		Extranonce2Size: 3,
	}
	snapshot := ExtranonceSnapshot{Extranonce2Size: 3}

	params, err := SubmitParams(result, snapshot)
	if err != nil {
		t.Fatalf("SubmitParams: %v", err)
	}

	want := []interface{}{"w", "j", "001234", "78563412", "f0debc9a"}
	if len(params) != len(want) {
		t.Fatalf("params = %v, want %v", params, want)
	}
	for i := range want {
		if params[i] != want[i] {
			t.Errorf("params[%d] = %v, want %v", i, params[i], want[i])
		}
	}
}

func TestSubmitParamsRejectsEmptyResult(t *testing.T) {
	if _, err := SubmitParams(JobResult{}, ExtranonceSnapshot{}); err == nil {
		t.Fatal("expected error for empty job result")
	}
}

func TestJobResultIsEmpty(t *testing.T) {
	if !(JobResult{}).IsEmpty() {
		t.Error("zero-value JobResult should be empty")
	}
	if (JobResult{JobID: "j"}).IsEmpty() {
		t.Error("JobResult with a job_id should not be empty")
	}
}

func TestSubscribeAuthorizeSuggestParams(t *testing.T) {
	if got := SubscribeParams("agent/1.0"); len(got) != 1 || got[0] != "agent/1.0" {
		t.Errorf("SubscribeParams = %v", got)
	}
	if got := AuthorizeParams("worker", "pass"); len(got) != 2 || got[0] != "worker" || got[1] != "pass" {
		t.Errorf("AuthorizeParams = %v", got)
	}
	if got := SuggestDifficultyParams(4.0); len(got) != 1 || got[0] != 4.0 {
		t.Errorf("SuggestDifficultyParams = %v", got)
	}
}
