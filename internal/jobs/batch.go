package jobs

import "fmt"

// BatchResult aggregates the outcome of a batch job. A batch with failed
// entities is still a successful job; Partial reports that case.
type BatchResult struct {
	SuccessCount int
	FailedCount  int
	Total        int
	Message      string
}

// Partial reports whether some entities of the batch failed.
func (b BatchResult) Partial() bool { return b.FailedCount > 0 }

type batchPayload struct {
	Success      *int   `json:"success"`
	SuccessCount *int   `json:"success_count"`
	Failed       *int   `json:"failed"`
	FailedCount  *int   `json:"failed_count"`
	Total        *int   `json:"total"`
	Message      string `json:"message"`
}

// DecodeBatch extracts aggregate counts from a batch job result. Both the
// short (success/failed) and long (success_count/failed_count) key forms are
// accepted.
func DecodeBatch(result Result) (BatchResult, error) {
	var payload batchPayload
	if err := result.Decode(&payload); err != nil {
		return BatchResult{}, err
	}
	success := firstInt(payload.SuccessCount, payload.Success)
	failed := firstInt(payload.FailedCount, payload.Failed)
	if success == nil || failed == nil {
		return BatchResult{}, fmt.Errorf("decode batch result: missing success or failed count")
	}
	out := BatchResult{SuccessCount: *success, FailedCount: *failed, Message: payload.Message}
	if payload.Total != nil {
		out.Total = *payload.Total
	} else {
		out.Total = out.SuccessCount + out.FailedCount
	}
	return out, nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
