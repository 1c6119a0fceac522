package funnel

import (
	"context"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/fallback"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/sessionlog"
)

// ValidateInput scores the business-details form.
func (s *Service) ValidateInput(ctx context.Context, in fallback.BusinessInput) Result[fallback.ValidationResult] {
	return call(ctx, s, callSite[fallback.BusinessInput, fallback.ValidationResult]{
		op:        OpValidateInput,
		fallback:  fallback.Validation,
		normalize: normalizeValidation,
		record:    promptRecorder[fallback.BusinessInput, fallback.ValidationResult](s, OpValidateInput),
	}, in)
}

// DetectContradiction checks the chosen tone against the desired outcome.
func (s *Service) DetectContradiction(ctx context.Context, in fallback.BusinessInput) Result[fallback.ContradictionResult] {
	return call(ctx, s, callSite[fallback.BusinessInput, fallback.ContradictionResult]{
		op:        OpDetectContradiction,
		fallback:  fallback.Contradiction,
		normalize: normalizeContradiction,
		record:    promptRecorder[fallback.BusinessInput, fallback.ContradictionResult](s, OpDetectContradiction),
	}, in)
}

// GenerateTooltip returns help text for one form field.
func (s *Service) GenerateTooltip(ctx context.Context, req fallback.TooltipRequest) Result[fallback.Tooltip] {
	return call(ctx, s, callSite[fallback.TooltipRequest, fallback.Tooltip]{
		op:        OpGenerateTooltip,
		fallback:  fallback.GenerateTooltip,
		normalize: normalizeTooltip,
		record:    promptRecorder[fallback.TooltipRequest, fallback.Tooltip](s, OpGenerateTooltip),
	}, req)
}

// GenerateSparks returns the initial set of sparks.
func (s *Service) GenerateSparks(ctx context.Context, req fallback.SparkRequest) Result[fallback.SparkSet] {
	return call(ctx, s, callSite[fallback.SparkRequest, fallback.SparkSet]{
		op:        OpGenerateSparks,
		fallback:  fallback.Sparks,
		normalize: normalizeSparkSet,
		record: func(ctx context.Context, corrID string, req fallback.SparkRequest, v fallback.SparkSet) {
			s.logs.LogSpark(ctx, corrID, sessionlog.SparkEntry{Operation: OpGenerateSparks, Request: req, Sparks: v.Sparks})
		},
	}, req)
}

// RegenerateSpark returns one replacement spark.
func (s *Service) RegenerateSpark(ctx context.Context, req fallback.RegenerateRequest) Result[fallback.Spark] {
	return call(ctx, s, callSite[fallback.RegenerateRequest, fallback.Spark]{
		op:        OpRegenerateSpark,
		fallback:  fallback.RegenerateSpark,
		normalize: normalizeSpark,
		record: func(ctx context.Context, corrID string, req fallback.RegenerateRequest, v fallback.Spark) {
			s.logs.LogSpark(ctx, corrID, sessionlog.SparkEntry{Operation: OpRegenerateSpark, Request: req, Sparks: []fallback.Spark{v}})
		},
	}, req)
}

// CompareSparkSplit compares personalized and generic output under the
// tighter spark-split latency budget.
func (s *Service) CompareSparkSplit(ctx context.Context, req fallback.ComparisonRequest) Result[fallback.ComparisonResult] {
	return call(ctx, s, callSite[fallback.ComparisonRequest, fallback.ComparisonResult]{
		op:        OpSparkSplit,
		timeout:   s.sparkSplitTimeout,
		fallback:  fallback.Comparison,
		normalize: normalizeComparison,
		record: func(ctx context.Context, corrID string, req fallback.ComparisonRequest, v fallback.ComparisonResult) {
			s.logs.LogComparison(ctx, corrID, sessionlog.ComparisonEntry{Request: req, Result: v})
		},
	}, req)
}

func promptRecorder[Req, Resp any](s *Service, op string) func(context.Context, string, Req, Resp) {
	return func(ctx context.Context, corrID string, req Req, v Resp) {
		s.logs.LogPrompt(ctx, corrID, sessionlog.PromptEntry{Operation: op, Input: req, Output: v})
	}
}
