package jobs

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Result is the structured outcome of one job run.
type Result struct {
	Success     bool        `json:"success"`
	Stats       interface{} `json:"stats,omitempty"`
	Error       string      `json:"error,omitempty"`
	Stack       string      `json:"stack,omitempty"`
	CompletedAt time.Time   `json:"completedAt"`
}

// guard runs body and turns its error or panic into a Result. Stats are
// kept even when the run failed part way.
func guard(log *zap.SugaredLogger, clock func() time.Time, body func() (interface{}, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("panic: %v", r)
			res = Result{
				Success:     false,
				Error:       err.Error(),
				Stack:       fmt.Sprintf("%+v", err),
				CompletedAt: clock(),
			}
			log.Errorw("Job panicked", "error", err)
		}
	}()

	stats, err := body()
	if err != nil {
		log.Errorw("Job failed", "error", err, "stats", stats)
		return Result{
			Success:     false,
			Stats:       stats,
			Error:       err.Error(),
			Stack:       fmt.Sprintf("%+v", err),
			CompletedAt: clock(),
		}
	}
	log.Infow("Job completed", "stats", stats)
	return Result{Success: true, Stats: stats, CompletedAt: clock()}
}
