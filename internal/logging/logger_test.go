package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormatsMessages(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Config{Level: "debug", Format: "text", Output: buf})
	l.Info("hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")
}

func TestWithTagsComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Config{Level: "debug", Format: "text", Output: buf})
	child := l.With("planner")
	child.Warn("stagnant after %d steps", 3)
	assert.True(t, strings.Contains(buf.String(), "planner"))
	assert.True(t, strings.Contains(buf.String(), "stagnant after 3 steps"))
}

func TestOrNopHandlesNil(t *testing.T) {
	var l Logger
	safe := OrNop(l)
	assert.NotNil(t, safe)
	safe.Debug("should not panic")
}

func TestNopDiscardsEverything(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop.Debug("x")
		Nop.Info("x")
		Nop.Warn("x")
		Nop.Error("x")
		Nop.With("c").Info("y")
	})
}
