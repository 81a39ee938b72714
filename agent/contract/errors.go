package contract

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrModelInvoke          = errors.New("model invoke failed")
	ErrSchemaViolation      = errors.New("model response violates schema")
	ErrRetrievalUnavailable = errors.New("retrieval backend unavailable")
	ErrAllUnitsFailed       = errors.New("no generative unit produced output")
	ErrAggregation          = errors.New("aggregation failed")
)
