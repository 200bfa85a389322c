package reveal

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

type slot struct {
	mu sync.Mutex
	s  string
}

func (s *slot) Reset() {
	s.mu.Lock()
	s.s = ""
	s.mu.Unlock()
}

func (s *slot) Append(x string) {
	s.mu.Lock()
	s.s += x
	s.mu.Unlock()
}

func (s *slot) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting: %s", msg)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRevealCompletes(t *testing.T) {
	r := New(time.Millisecond, testLog())
	target := &slot{}

	r.Reveal(target, "hello")

	waitFor(t, func() bool { return target.String() == "hello" }, "full text revealed")
	waitFor(t, func() bool { return !r.Active(target) }, "token cleared on completion")
}

func TestSecondRevealSupersedesFirst(t *testing.T) {
	r := New(time.Millisecond, testLog())
	target := &slot{}

	r.Reveal(target, strings.Repeat("a", 10000))
	time.Sleep(10 * time.Millisecond)
	r.Reveal(target, "bbb")

	waitFor(t, func() bool { return target.String() == "bbb" }, "second reveal completed")

	// the superseded reveal must never write again
	time.Sleep(20 * time.Millisecond)
	if got := target.String(); got != "bbb" {
		t.Fatalf("target = %q after supersession, want bbb", got)
	}
}

func TestWriteBypassesAnimationAndSupersedes(t *testing.T) {
	r := New(time.Millisecond, testLog())
	target := &slot{}

	r.Reveal(target, strings.Repeat("x", 10000))
	time.Sleep(5 * time.Millisecond)
	r.Write(target, "analysis failed")

	if got := target.String(); got != "analysis failed" {
		t.Fatalf("target = %q immediately after Write", got)
	}
	time.Sleep(20 * time.Millisecond)
	if got := target.String(); got != "analysis failed" {
		t.Fatalf("superseded reveal wrote after Write: %q", got)
	}
	if r.Active(target) {
		t.Fatalf("Write should leave no live reveal")
	}
}

func TestIndependentTargets(t *testing.T) {
	r := New(time.Millisecond, testLog())
	a, b := &slot{}, &slot{}

	r.Reveal(a, "one")
	r.Reveal(b, "two")

	waitFor(t, func() bool { return a.String() == "one" && b.String() == "two" }, "both targets complete")
}

func TestRepeatedRevealAfterCompletionIsFresh(t *testing.T) {
	r := New(time.Millisecond, testLog())
	target := &slot{}

	r.Reveal(target, "same")
	waitFor(t, func() bool { return target.String() == "same" }, "first pass")

	r.Reveal(target, "same")
	waitFor(t, func() bool { return target.String() == "same" && !r.Active(target) }, "second pass")
}
