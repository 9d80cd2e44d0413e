package metrics

import "context"

type outcomeKey struct{}

// WithOutcome attaches a cache outcome label ("hit", "miss", "bypass",
// "admission_rejected") to the request context so HTTPMiddleware can report
// it after the handler runs.
func WithOutcome(ctx context.Context, outcome string) context.Context {
	return context.WithValue(ctx, outcomeKey{}, &outcome)
}

// SetOutcome updates the outcome value referenced by ctx in place. WithOutcome
// must have been called earlier in the chain for this to have any effect.
func SetOutcome(ctx context.Context, outcome string) {
	if p, ok := ctx.Value(outcomeKey{}).(*string); ok {
		*p = outcome
	}
}

// OutcomeFromContext reads the current outcome label, defaulting to
// "unknown" if none was set.
func OutcomeFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(outcomeKey{}).(*string); ok {
		return *p
	}
	return "unknown"
}
