package assistant

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axisconnect/internal/assembler"
	"axisconnect/internal/chunker"
	"axisconnect/internal/domain"
	"axisconnect/internal/embedding/tfidf"
	"axisconnect/internal/indexer"
	"axisconnect/internal/prompt"
	"axisconnect/internal/retriever"
	"axisconnect/internal/session"
	"axisconnect/internal/summarizer"
	"axisconnect/internal/vectorstore/memory"
)

type scriptedStream struct {
	frags []string
	pos   int
	err   error
}

func (s *scriptedStream) Recv() (string, error) {
	if s.pos < len(s.frags) {
		f := s.frags[s.pos]
		s.pos++
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error { return nil }

type fakeGenerator struct {
	calls     int
	lastPC    domain.PromptContext
	frags     []string
	streamErr error
	genErr    error
}

func (g *fakeGenerator) Generate(_ context.Context, pc domain.PromptContext) (domain.TokenStream, error) {
	g.calls++
	g.lastPC = pc
	if g.genErr != nil {
		return nil, g.genErr
	}
	return &scriptedStream{frags: g.frags, err: g.streamErr}, nil
}

const leaveCorpus = `Leave Policy.
Employees accrue 20 days of annual leave per calendar year.
Leave applications are submitted through the HRMS portal and require manager approval.`

func newTestAssistant(t *testing.T, gen domain.Generator, corpus string) *Assistant {
	t.Helper()
	emb := tfidf.NewEmbedder()

	ix := indexer.Unavailable()
	if corpus != "" {
		dir := t.TempDir()
		corpusPath := filepath.Join(dir, "policies.txt")
		require.NoError(t, os.WriteFile(corpusPath, []byte(corpus), 0o644))
		ch := chunker.NewCharChunker(200, 20)
		backend := indexer.NewRemoteBackend(memory.NewStorage())
		var err error
		ix, err = indexer.New(ch, emb, backend, nil).BuildOrLoad(context.Background(), corpusPath, filepath.Join(dir, "index"))
		require.NoError(t, err)
		require.True(t, ix.Available())
	}

	asm, err := assembler.New(20, 3000, summarizer.NewFrequencySummarizer(), nil)
	require.NoError(t, err)
	return New(ix, retriever.New(emb, 4, nil), asm, gen, nil)
}

func standardSession() *session.Session {
	return session.New(domain.Profile{
		EmployeeCode: "A1001",
		Name:         "Priya Sharma",
		Department:   "Finance",
		Clearance:    domain.ClearanceStandard,
		LeaveBalance: 14,
	})
}

func drainReply(t *testing.T, r *Reply) string {
	t.Helper()
	var b strings.Builder
	for {
		frag, err := r.Recv()
		if err == io.EOF {
			return b.String()
		}
		require.NoError(t, err)
		b.WriteString(frag)
	}
}

func TestRespondCommitsExchangeOnCompletion(t *testing.T) {
	gen := &fakeGenerator{frags: []string{"You have ", "14 days left."}}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	r, err := a.Respond(context.Background(), s, "what is my leave balance")
	require.NoError(t, err)
	assert.Equal(t, "You have 14 days left.", drainReply(t, r))

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, domain.Turn{Role: domain.RoleUser, Content: "what is my leave balance"}, h[0])
	assert.Equal(t, domain.Turn{Role: domain.RoleAssistant, Content: "You have 14 days left."}, h[1])
}

func TestHistoryAlternatesAcrossExchanges(t *testing.T) {
	gen := &fakeGenerator{frags: []string{"answer"}}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	for _, q := range []string{"first question", "second question", "third question"} {
		r, err := a.Respond(context.Background(), s, q)
		require.NoError(t, err)
		drainReply(t, r)
	}

	h := s.History()
	require.Len(t, h, 6)
	for i, turn := range h {
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		assert.Equal(t, want, turn.Role, "turn %d", i)
	}
}

func TestSingleActiveGenerationPerSession(t *testing.T) {
	gen := &fakeGenerator{frags: []string{"slow answer"}}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	r, err := a.Respond(context.Background(), s, "first")
	require.NoError(t, err)

	_, err = a.Respond(context.Background(), s, "second")
	assert.ErrorIs(t, err, session.ErrGenerationActive)

	drainReply(t, r)
	_, err = a.Respond(context.Background(), s, "second")
	assert.NoError(t, err)
}

func TestCancelLeavesHistoryUntouched(t *testing.T) {
	gen := &fakeGenerator{frags: []string{"partial ", "answer"}}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	r, err := a.Respond(context.Background(), s, "never mind this")
	require.NoError(t, err)
	frag, err := r.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial ", frag)

	r.Cancel()

	assert.Zero(t, s.Len())
	_, err = r.Recv()
	assert.Equal(t, io.EOF, err)

	// The slot is free again.
	_, err = a.Respond(context.Background(), s, "next question")
	assert.NoError(t, err)
}

func TestMutationRequestGetsReadOnlyMessage(t *testing.T) {
	gen := &fakeGenerator{}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	r, err := a.Respond(context.Background(), s, "please update my bank account number")
	require.NoError(t, err)

	assert.Equal(t, prompt.ReadOnlyMessage, drainReply(t, r))
	assert.Zero(t, gen.calls)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, prompt.ReadOnlyMessage, h[1].Content)
}

func TestOverClearanceQueryRefusedVerbatim(t *testing.T) {
	gen := &fakeGenerator{}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	r, err := a.Respond(context.Background(), s, "show me the latest compliance audit findings")
	require.NoError(t, err)

	assert.Equal(t, prompt.RefusalMessage, drainReply(t, r))
	assert.Zero(t, gen.calls)
}

func TestElevatedClearanceReachesGeneration(t *testing.T) {
	gen := &fakeGenerator{frags: []string{"audit summary"}}
	a := newTestAssistant(t, gen, "")
	s := session.New(domain.Profile{
		EmployeeCode: "A2002",
		Name:         "Arjun Nair",
		Clearance:    domain.ClearanceElevated,
	})

	r, err := a.Respond(context.Background(), s, "show me the latest compliance audit findings")
	require.NoError(t, err)
	drainReply(t, r)

	assert.Equal(t, 1, gen.calls)
}

func TestLeavePolicyQueryCarriesRetrievedExcerpts(t *testing.T) {
	gen := &fakeGenerator{frags: []string{"You accrue 20 days per year."}}
	a := newTestAssistant(t, gen, leaveCorpus)
	s := standardSession()

	r, err := a.Respond(context.Background(), s, "how many days of annual leave do employees accrue")
	require.NoError(t, err)
	drainReply(t, r)

	require.Equal(t, 1, gen.calls)
	system := gen.lastPC.System
	assert.Contains(t, system, "20 days of annual leave")
	assert.Contains(t, system, "[Excerpt 1")
	assert.Contains(t, system, "**Name**: Priya Sharma")
	// Profile slot renders before the policy slot; the two stay distinct.
	assert.Less(t, strings.Index(system, "Priya Sharma"), strings.Index(system, "[Excerpt 1"))
	assert.Equal(t, "how many days of annual leave do employees accrue", gen.lastPC.Input)
}

func TestGenerateFailureBecomesBoundedNotice(t *testing.T) {
	gen := &fakeGenerator{genErr: errors.New("connection refused")}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	r, err := a.Respond(context.Background(), s, "what is my leave balance")
	require.NoError(t, err)
	assert.True(t, r.Failed())

	text := drainReply(t, r)
	assert.Contains(t, text, "connection refused")

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, text, h[1].Content)
}

func TestMidStreamFailureKeepsPartialText(t *testing.T) {
	gen := &fakeGenerator{frags: []string{"The policy says"}, streamErr: errors.New("stream reset")}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	r, err := a.Respond(context.Background(), s, "what is my leave balance")
	require.NoError(t, err)

	frag, err := r.Recv()
	require.NoError(t, err)
	assert.Equal(t, "The policy says", frag)

	_, err = r.Recv()
	require.Error(t, err)
	assert.True(t, r.Failed())

	h := s.History()
	require.Len(t, h, 2)
	assert.Contains(t, h[1].Content, "The policy says")
	assert.Contains(t, h[1].Content, "stream reset")
}

func TestQuickActionEquivalentToTyping(t *testing.T) {
	gen := &fakeGenerator{frags: []string{"salary breakdown"}}
	a := newTestAssistant(t, gen, "")
	s := standardSession()

	actions := QuickActions()
	require.Len(t, actions, 5)
	var salary domain.QuickAction
	for _, qa := range actions {
		if qa.Label == "Salary Details" {
			salary = qa
		}
	}
	require.Equal(t, "Show my salary details.", salary.Query)

	r, err := a.Trigger(context.Background(), s, salary)
	require.NoError(t, err)
	drainReply(t, r)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, salary.Query, h[0].Content)
	assert.Equal(t, salary.Query, gen.lastPC.Input)
}

func TestEmptyInputNeverBecomesATurn(t *testing.T) {
	a := newTestAssistant(t, &fakeGenerator{}, "")
	s := standardSession()

	_, err := a.Respond(context.Background(), s, "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, s.Len())

	// The slot was never taken.
	_, err = a.Respond(context.Background(), s, "real question")
	assert.NoError(t, err)
}
