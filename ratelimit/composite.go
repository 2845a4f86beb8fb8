/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
)

// CompositeLimiter combines several limiting stages with AND semantics:
// a request is admitted only when every stage admits it.
//
// Stages are checked in order and the first denial short-circuits the chain.
// Admissions consumed by earlier stages are not refunded on a later denial,
// so a caller hammering a denied key drains earlier stages too. This matches
// the typical token-bucket-plus-sliding-window setup where the bucket shapes
// bursts and the window enforces the trailing-period total.
type CompositeLimiter struct {
	stages []Limiter
}

// NewCompositeLimiter creates a new composite limiter from the given stages.
// At least one stage is required.
func NewCompositeLimiter(stages ...Limiter) (*CompositeLimiter, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("at least one limiting stage is required")
	}
	return &CompositeLimiter{stages: stages}, nil
}

// Check checks the request against every stage in order.
// The returned Result is the first denial, or the last stage's admission.
// Remaining of an admission is the minimum known Remaining across stages.
func (l *CompositeLimiter) Check(ctx context.Context, key string) (Result, error) {
	res := Result{Allowed: true, Remaining: RemainingUnknown}
	for _, stage := range l.stages {
		stageRes, err := stage.Check(ctx, key)
		if err != nil {
			return Result{}, err
		}
		if !stageRes.Allowed {
			return stageRes, nil
		}
		if stageRes.Remaining != RemainingUnknown &&
			(res.Remaining == RemainingUnknown || stageRes.Remaining < res.Remaining) {
			res.Remaining = stageRes.Remaining
		}
	}
	return res, nil
}
