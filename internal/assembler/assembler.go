// Package assembler merges the private profile record, retrieved policy
// text, and the conversation window into a single structured prompt context.
// Profile data and policy text are kept in distinct slots; the instruction
// document forbids conflating them.
package assembler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"axisconnect/internal/domain"
	"axisconnect/internal/prompt"
)

// DefaultMaxTurns is the default history window size in turns.
const DefaultMaxTurns = 20

// DefaultTokenBudget bounds the rendered history fed to generation.
const DefaultTokenBudget = 3000

const summaryMaxSentences = 3

// Assembler builds PromptContext values for generation.
type Assembler struct {
	maxTurns    int
	tokenBudget int
	summarizer  domain.Summarizer
	encoder     *tiktoken.Tiktoken
	logger      *slog.Logger
}

// New creates an assembler. The token encoder is loaded from the embedded
// BPE vocabulary, so no network access is needed.
func New(maxTurns, tokenBudget int, summarizer domain.Summarizer, logger *slog.Logger) (*Assembler, error) {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("loading token encoder: %w", err)
	}
	return &Assembler{
		maxTurns:    maxTurns,
		tokenBudget: tokenBudget,
		summarizer:  summarizer,
		encoder:     enc,
		logger:      logger,
	}, nil
}

// Assemble produces the four named slots of one generation: behavioral
// instructions (with profile and policy slots filled), the bounded history
// window, and the current user input.
func (a *Assembler) Assemble(profile domain.Profile, history []domain.Turn, results []domain.SearchResult, input string) domain.PromptContext {
	window, evicted := a.window(history)
	if len(evicted) > 0 && a.summarizer != nil {
		if summary := a.summarizeTurns(evicted); summary != "" {
			window = append([]domain.Turn{{
				Role:    domain.RoleAssistant,
				Content: "Summary of earlier conversation: " + summary,
			}}, window...)
		}
	}
	return domain.PromptContext{
		System:  prompt.System(RenderProfile(profile), RenderPolicy(results)),
		History: window,
		Input:   input,
	}
}

// window applies the turn limit and the token budget, newest turns win.
// Returns the kept window and the evicted prefix.
func (a *Assembler) window(history []domain.Turn) (kept, evicted []domain.Turn) {
	start := 0
	if len(history) > a.maxTurns {
		start = len(history) - a.maxTurns
	}
	total := 0
	costs := make([]int, len(history))
	for i := start; i < len(history); i++ {
		costs[i] = a.countTokens(history[i].Content)
		total += costs[i]
	}
	for start < len(history) && total > a.tokenBudget {
		total -= costs[start]
		start++
	}
	if start > 0 {
		a.logger.Debug("history window truncated", "evicted_turns", start, "kept_turns", len(history)-start)
	}
	return history[start:], history[:start]
}

func (a *Assembler) summarizeTurns(turns []domain.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Content)
		b.WriteString(" ")
	}
	summary, err := a.summarizer.Summarize(b.String(), summaryMaxSentences)
	if err != nil {
		a.logger.Warn("summarizing evicted history failed", "error", err)
		return ""
	}
	return summary
}

func (a *Assembler) countTokens(text string) int {
	return len(a.encoder.Encode(text, nil, nil))
}

// RenderProfile serializes the employee record as structured key/value
// text, one labeled line per field. Only fields present in the record are
// rendered; nothing is invented.
func RenderProfile(p domain.Profile) string {
	if p.EmployeeCode == "" && p.Name == "" {
		return ""
	}
	var b strings.Builder
	for _, f := range p.Fields() {
		fmt.Fprintf(&b, "**%s**: %s\n", f.Label, f.Value)
	}
	fmt.Fprintf(&b, "**Clearance**: %s\n", p.Clearance)
	fmt.Fprintf(&b, "**Leave Balance**: %d days\n", p.LeaveBalance)
	fmt.Fprintf(&b, "**Leave Taken**: %d days\n", p.LeaveTaken)
	for _, f := range p.Compensation {
		fmt.Fprintf(&b, "**%s**: %s\n", f.Label, f.Value)
	}
	writeList(&b, "Goals", p.Goals)
	writeList(&b, "Assigned Assets", p.Assets)
	writeList(&b, "Open Tickets", p.OpenTickets)
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**:\n", label)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

// RenderPolicy concatenates retrieved chunks in retrieval order, each tagged
// with its source page so answers can reference where a rule came from.
func RenderPolicy(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("[Excerpt %d, %s p.%d]\n%s", i+1, r.Chunk.SourceID, r.Chunk.Page, strings.TrimSpace(r.Chunk.Text)))
	}
	return strings.Join(parts, "\n\n")
}
