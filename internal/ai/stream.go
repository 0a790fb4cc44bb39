package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/api/iterator"

	genai "github.com/google/generative-ai-go/genai"
)

// AnswerStream delivers a generated answer as an ordered sequence of text
// fragments. The stream is finite and not restartable. Recv blocks for the
// next fragment; Close abandons the stream and cancels the underlying call,
// taking effect between fragments.
type AnswerStream struct {
	fragments chan string
	cancel    context.CancelFunc

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func newAnswerStream(ctx context.Context, cancel context.CancelFunc, iter *genai.GenerateContentResponseIterator) *AnswerStream {
	s := &AnswerStream{
		fragments: make(chan string),
		cancel:    cancel,
	}
	go s.pump(ctx, iter)
	return s
}

func (s *AnswerStream) pump(ctx context.Context, iter *genai.GenerateContentResponseIterator) {
	defer close(s.fragments)
	defer s.cancel()

	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return
		}
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			s.setErr(fmt.Errorf("%w: %v", ErrGenerationUnavailable, err))
			return
		}
		text := responseText(resp)
		if text == "" {
			continue
		}
		select {
		case s.fragments <- text:
		case <-ctx.Done():
			// a deadline mid-stream is a failure; a plain cancel is the
			// consumer closing early and ends the stream cleanly
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				s.setErr(fmt.Errorf("%w: %v", ErrGenerationUnavailable, ctx.Err()))
			}
			return
		}
	}
}

func (s *AnswerStream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Recv returns the next fragment. ok is false once the stream is exhausted;
// the caller must then check Err to distinguish completion from failure.
func (s *AnswerStream) Recv() (fragment string, ok bool) {
	fragment, ok = <-s.fragments
	return fragment, ok
}

// Err reports why the stream terminated, or nil for normal completion.
// Only meaningful after Recv has returned ok=false.
func (s *AnswerStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the stream. Safe to call multiple times and after exhaustion.
func (s *AnswerStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		// drain so the pump goroutine can exit
		go func() {
			for range s.fragments {
			}
		}()
	})
}
