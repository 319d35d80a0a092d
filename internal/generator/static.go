package generator

import (
	"io"
	"sync/atomic"

	"axisconnect/internal/domain"
)

// Static returns a stream that yields the given text once and then ends.
// Used for answers that are decided locally and never reach the model.
func Static(text string) domain.TokenStream {
	return &staticStream{text: text}
}

type staticStream struct {
	text string
	done atomic.Bool
}

func (s *staticStream) Recv() (string, error) {
	if !s.done.CompareAndSwap(false, true) {
		return "", io.EOF
	}
	return s.text, nil
}

func (s *staticStream) Close() error {
	s.done.Store(true)
	return nil
}
