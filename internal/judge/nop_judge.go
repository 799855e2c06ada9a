package judge

import "context"

// NopJudge is used when no judge model is configured (spec §4.6). It
// always returns an empty, criterion-free Judgement rather than an error.
type NopJudge struct{}

func (NopJudge) Judge(context.Context, string, string) (Judgement, error) {
	return Judgement{}, nil
}
