package marble

import (
	"bytes"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func newBufferedLogger(prefix string, debug bool) (*DefaultLogger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	l := NewDefaultLogger(prefix, debug)
	l.out = log.New(&out, "", 0)
	l.err = log.New(&errOut, "", 0)

	return l, &out, &errOut
}

func TestDefaultLoggerLevels(t *testing.T) {
	l, out, errOut := newBufferedLogger("marble", false)

	l.Debugf("hidden %d", 1)
	assert.Empty(t, out.String())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("iterations=%d", 3)
	l.Infof("ready")
	l.Warnf("unknown handle %d", 7)
	l.Errorf("boom")

	assert.Equal(t, "[marble] DEBUG: iterations=3\n[marble] INFO: ready\n", out.String())
	assert.Equal(t, "[marble] WARN: unknown handle 7\n[marble] ERROR: boom\n", errOut.String())
}

func TestDefaultLoggerWithoutPrefix(t *testing.T) {
	l, out, _ := newBufferedLogger("", false)

	l.Infof("x=%v", 1.5)
	assert.Equal(t, "INFO: x=1.5\n", out.String())
}

func TestSystemWarnsOnUnknownHandle(t *testing.T) {
	s := newTestSystem(t)
	l, _, errOut := newBufferedLogger("", false)
	s.SetLogger(l)

	assert.False(t, s.AddForce(Handle(42), mgl64.Vec3{1, 0, 0}))
	assert.Contains(t, errOut.String(), "WARN")
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.SetDebug(true)

	assert.False(t, l.DebugEnabled())
	assert.NotPanics(t, func() {
		l.Debugf("a")
		l.Infof("b")
		l.Warnf("c")
		l.Errorf("d")
	})
}
