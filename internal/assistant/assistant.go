// Package assistant orchestrates one conversation turn: classify and gate
// the query, retrieve policy context, assemble the prompt, stream the
// answer, and commit the exchange to session history only when it
// completes.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"axisconnect/internal/assembler"
	"axisconnect/internal/domain"
	"axisconnect/internal/generator"
	"axisconnect/internal/indexer"
	"axisconnect/internal/intent"
	"axisconnect/internal/prompt"
	"axisconnect/internal/retriever"
	"axisconnect/internal/session"
)

// ErrEmptyInput is returned for blank queries; they never become turns.
var ErrEmptyInput = errors.New("empty input")

// Assistant answers queries for authenticated sessions.
type Assistant struct {
	index     *indexer.Index
	retriever *retriever.Retriever
	assembler *assembler.Assembler
	generator domain.Generator
	logger    *slog.Logger
}

// New wires the orchestrator. The generator may be nil when no chat endpoint
// is configured; generation then degrades to an explanatory reply instead of
// failing login.
func New(index *indexer.Index, ret *retriever.Retriever, asm *assembler.Assembler, gen domain.Generator, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{index: index, retriever: ret, assembler: asm, generator: gen, logger: logger}
}

// Respond answers one query for the session, returning a streaming Reply.
// At most one Reply per session is live at a time; a second call while one
// is streaming returns session.ErrGenerationActive.
//
// Mutation requests and requests beyond the session's clearance are answered
// locally with their fixed responses; they never reach retrieval or the
// model.
func (a *Assistant) Respond(ctx context.Context, s *session.Session, input string) (*Reply, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}
	if err := s.Acquire(); err != nil {
		return nil, err
	}

	category := intent.Classify(input)
	pr := s.Profile()

	if category == intent.Mutation {
		a.logger.Info("mutation request declined", "employee", pr.EmployeeCode)
		return newReply(s, input, generator.Static(prompt.ReadOnlyMessage)), nil
	}
	if !intent.Allowed(category, pr.Clearance) {
		a.logger.Info("query beyond clearance refused",
			"employee", pr.EmployeeCode,
			"intent", category.String(),
			"clearance", pr.Clearance.String(),
		)
		return newReply(s, input, generator.Static(prompt.RefusalMessage)), nil
	}

	results, err := a.retriever.Retrieve(ctx, a.index, input)
	if err != nil {
		// Retrieval trouble degrades to a profile-only answer.
		a.logger.Warn("retrieval failed, answering without policy context", "error", err)
		results = nil
	}

	pc := a.assembler.Assemble(pr, s.History(), results, input)

	if a.generator == nil {
		s.Release()
		return nil, errors.New("no generator configured")
	}
	stream, err := a.generator.Generate(ctx, pc)
	if err != nil {
		a.logger.Error("generation failed to start", "error", err)
		r := newReply(s, input, generator.Static(failureNotice(err)))
		r.failed = true
		return r, nil
	}
	return newReply(s, input, stream), nil
}

// QuickActions returns the predefined shortcut queries offered after login.
func QuickActions() []domain.QuickAction {
	return []domain.QuickAction{
		{Label: "Apply Leave", Query: "I want to apply for leave. Show leave application steps."},
		{Label: "Salary Details", Query: "Show my salary details."},
		{Label: "My Goals", Query: "Show my goals and performance."},
		{Label: "IT Assets", Query: "Show all IT assets assigned to me."},
		{Label: "HR Policies", Query: "Show me all HR policies."},
	}
}

// Trigger runs a quick action. It is identical to the employee typing the
// action's query.
func (a *Assistant) Trigger(ctx context.Context, s *session.Session, action domain.QuickAction) (*Reply, error) {
	return a.Respond(ctx, s, action.Query)
}

const failureNoticeLimit = 200

// failureNotice renders a generation failure as a bounded assistant turn so
// the conversation stays coherent rather than silently losing a query.
func failureNotice(err error) string {
	msg := err.Error()
	if len(msg) > failureNoticeLimit {
		msg = msg[:failureNoticeLimit] + "..."
	}
	return fmt.Sprintf("I could not reach the assistant service (%s). Please try again shortly.", msg)
}
