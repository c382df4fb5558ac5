package report

import (
	"context"

	"github.com/caixahub/caixahub/internal/service"
)

// MockWriter is a test double for the ReportWriter interface.
type MockWriter struct {
	WriteFunc func(ctx context.Context, summary *service.CashFlowSummary) error

	// Call recording
	Summaries []*service.CashFlowSummary
}

// Write implements service.ReportWriter.
func (m *MockWriter) Write(ctx context.Context, summary *service.CashFlowSummary) error {
	m.Summaries = append(m.Summaries, summary)
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, summary)
	}
	return nil
}

// Ensure MockWriter implements the ReportWriter interface.
var _ service.ReportWriter = (*MockWriter)(nil)
