package bulk

import (
	"context"
	"errors"
	"log"
)

// ErrConfirmationRequired gates multi-target mutation: more than one id
// without an explicit confirmation and without dry-run refuses to run
// anything. Checked before any session work.
var ErrConfirmationRequired = errors.New("bulk operation over multiple targets requires the confirm flag")

// Action applies one operation to one target identifier. A nil error means
// the item succeeded.
type Action func(ctx context.Context, id string) error

// Policy gates a bulk run.
type Policy struct {
	// Confirm acknowledges intentional multi-target mutation.
	Confirm bool `json:"confirm"`
	// DryRun previews the run without executing any action.
	DryRun bool `json:"dry_run"`
}

// ItemResult is the outcome for one target identifier.
type ItemResult struct {
	Target  string `json:"target"`
	Success bool   `json:"success"`
	DryRun  bool   `json:"dry_run,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result aggregates a bulk run. Results preserves input order and always
// has exactly one entry per input id: SuccessCount+FailCount == Total ==
// len(Results).
type Result struct {
	Total        int          `json:"total"`
	SuccessCount int          `json:"success_count"`
	FailCount    int          `json:"fail_count"`
	Results      []ItemResult `json:"results"`
}

// Failed reports whether the run counts as failed for exit-status purposes.
// Individual successes are still in Results.
func (r Result) Failed() bool { return r.FailCount > 0 }

func (r *Result) append(item ItemResult) {
	r.Results = append(r.Results, item)
	if item.Success {
		r.SuccessCount++
	} else {
		r.FailCount++
	}
}

// Run applies action to each id strictly in input order, sequentially. The
// shared session and the app's single frame of reference (current draft,
// current account) do not tolerate concurrent mutation. One item's failure
// never aborts the rest. Cancellation takes effect only between items;
// remaining ids are recorded as failures so the result invariant holds.
func Run(ctx context.Context, ids []string, action Action, policy Policy) (Result, error) {
	res := Result{Total: len(ids), Results: make([]ItemResult, 0, len(ids))}

	if policy.DryRun {
		for _, id := range ids {
			res.append(ItemResult{Target: id, Success: true, DryRun: true})
		}
		return res, nil
	}

	if len(ids) > 1 && !policy.Confirm {
		for _, id := range ids {
			res.append(ItemResult{Target: id, Success: false, Error: ErrConfirmationRequired.Error()})
		}
		return res, ErrConfirmationRequired
	}

	canceled := false
	for _, id := range ids {
		if !canceled && ctx.Err() != nil {
			canceled = true
		}
		if canceled {
			res.append(ItemResult{Target: id, Success: false, Error: "canceled before start"})
			continue
		}

		if err := action(ctx, id); err != nil {
			log.Printf("[bulk] %s failed: %v", id, err)
			res.append(ItemResult{Target: id, Success: false, Error: err.Error()})
			continue
		}
		res.append(ItemResult{Target: id, Success: true})
	}

	return res, nil
}
