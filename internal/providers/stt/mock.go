package stt

import "context"

// Mock returns a canned transcript. Used when Google credentials are absent
// so the rest of the pipeline stays exercisable locally.
type Mock struct {
	Text       string
	Confidence float64
}

func NewMock() *Mock {
	return &Mock{Text: "I wanted to talk about how my day went.", Confidence: 0.9}
}

func (m *Mock) Transcribe(_ context.Context, _ []byte, _ string) (string, float64, error) {
	return m.Text, m.Confidence, nil
}

func (m *Mock) Close() error { return nil }
