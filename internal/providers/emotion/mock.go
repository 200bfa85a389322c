package emotion

import "context"

// Mock reports fixed labels when no vision backend is configured.
type Mock struct {
	Labels []string
}

func NewMock() *Mock {
	return &Mock{Labels: []string{"neutral"}}
}

func (m *Mock) Detect(_ context.Context, _ []byte, _ string) ([]string, error) {
	return m.Labels, nil
}

func (m *Mock) Close() error { return nil }
