package llm

import "context"

// Mock streams a fixed reply. Used when Vertex credentials are absent.
type Mock struct {
	Reply string
}

func NewMock() *Mock {
	return &Mock{Reply: "Thank you for sharing that with me. How did it make you feel?"}
}

func (m *Mock) StreamAnswer(_ context.Context, _ string) (<-chan string, <-chan error) {
	out := make(chan string, 1)
	errs := make(chan error, 1)
	out <- m.Reply
	close(out)
	close(errs)
	return out, errs
}

func (m *Mock) Close() error { return nil }
