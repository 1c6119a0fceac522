package funnel

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ErrUnknownOperation is returned by Invoke for an unrecognized operation.
var ErrUnknownOperation = eris.New("funnel: unknown operation")

// DecodeError reports a request payload that is not valid JSON for the
// operation's input type.
type DecodeError struct {
	Operation string
	Err       error
}

func (e *DecodeError) Error() string {
	return "funnel: decode " + e.Operation + " request: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Invoke decodes payload into op's request type and runs op. The returned
// value is the operation's Result. Errors are limited to unknown
// operations and undecodable payloads; an empty payload is the zero request.
func (s *Service) Invoke(ctx context.Context, op string, payload []byte) (any, error) {
	switch op {
	case OpValidateInput:
		return invoke(ctx, op, payload, s.ValidateInput)
	case OpDetectContradiction:
		return invoke(ctx, op, payload, s.DetectContradiction)
	case OpGenerateTooltip:
		return invoke(ctx, op, payload, s.GenerateTooltip)
	case OpGenerateSparks:
		return invoke(ctx, op, payload, s.GenerateSparks)
	case OpRegenerateSpark:
		return invoke(ctx, op, payload, s.RegenerateSpark)
	case OpSparkSplit:
		return invoke(ctx, op, payload, s.CompareSparkSplit)
	default:
		return nil, eris.Wrapf(ErrUnknownOperation, "%q", op)
	}
}

func invoke[Req, Resp any](ctx context.Context, op string, payload []byte, run func(context.Context, Req) Result[Resp]) (any, error) {
	var req Req
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, &DecodeError{Operation: op, Err: err}
		}
	}
	return run(ctx, req), nil
}
