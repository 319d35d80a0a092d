package assistant

import (
	"io"
	"strings"
	"sync"

	"axisconnect/internal/domain"
	"axisconnect/internal/session"
)

// Reply is the streaming result of one query. Exactly one of three things
// happens to it:
//
//   - It is drained to io.EOF: the user input and the full reply text are
//     appended to the session history as one exchange.
//   - It is cancelled: nothing is appended; the history reads as if the
//     query was never asked.
//   - The stream fails mid-way: the input and whatever text arrived, plus a
//     bounded failure notice, are appended so the conversation stays
//     coherent.
//
// All three release the session's generation slot. Recv is meant for a
// single consumer; Cancel may be called from another goroutine and
// interrupts a blocked Recv.
type Reply struct {
	mu      sync.Mutex
	sess    *session.Session
	input   string
	stream  domain.TokenStream
	text    strings.Builder
	settled bool
	failed  bool
}

func newReply(s *session.Session, input string, stream domain.TokenStream) *Reply {
	return &Reply{sess: s, input: input, stream: stream}
}

// Recv returns the next fragment of the reply. io.EOF signals completion,
// at which point the exchange has been committed to history.
func (r *Reply) Recv() (string, error) {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return "", io.EOF
	}
	stream := r.stream
	r.mu.Unlock()

	// The stream read blocks without holding the lock so Cancel can close
	// the stream underneath it.
	frag, err := stream.Recv()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled {
		// Cancelled while blocked; whatever came back is discarded.
		return "", io.EOF
	}
	if err == nil {
		r.text.WriteString(frag)
		return frag, nil
	}
	if err == io.EOF {
		r.commitLocked(r.text.String())
		return "", io.EOF
	}
	content := r.text.String()
	if content != "" {
		content += "\n\n"
	}
	r.failed = true
	r.commitLocked(content + failureNotice(err))
	return "", err
}

// Cancel abandons the reply. The session history is left untouched.
func (r *Reply) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled {
		return
	}
	r.settled = true
	_ = r.stream.Close()
	r.sess.Release()
}

// Failed reports whether this reply carries a failure notice instead of a
// generated answer.
func (r *Reply) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Text returns the reply text accumulated so far.
func (r *Reply) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text.String()
}

func (r *Reply) commitLocked(content string) {
	r.settled = true
	_ = r.stream.Close()
	r.sess.AppendExchange(r.input, content)
	r.sess.Release()
}
