package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments erk records. All counters come from the global meter, so they
// are no-ops unless Init installed a real provider.
var (
	instrumentsOnce sync.Once

	githubRequests   metric.Int64Counter
	inferenceCalls   metric.Int64Counter
	submissionsTotal metric.Int64Counter
)

func initInstruments() {
	m := Meter("")
	githubRequests, _ = m.Int64Counter("erk.github.requests",
		metric.WithDescription("GitHub API requests by method and outcome"))
	inferenceCalls, _ = m.Int64Counter("erk.inference.calls",
		metric.WithDescription("Inference API calls by outcome"))
	submissionsTotal, _ = m.Int64Counter("erk.submissions",
		metric.WithDescription("PR submission attempts by terminal outcome"))
}

// CountGitHubRequest records one GitHub API request.
func CountGitHubRequest(ctx context.Context, method string, status int) {
	instrumentsOnce.Do(initInstruments)
	if githubRequests == nil {
		return
	}
	githubRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.Int("status", status),
		))
}

// CountInferenceCall records one inference invocation.
func CountInferenceCall(ctx context.Context, outcome string) {
	instrumentsOnce.Do(initInstruments)
	if inferenceCalls == nil {
		return
	}
	inferenceCalls.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// CountSubmission records one submission's terminal outcome ("created",
// "updated", or an error kind).
func CountSubmission(ctx context.Context, outcome string) {
	instrumentsOnce.Do(initInstruments)
	if submissionsTotal == nil {
		return
	}
	submissionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
