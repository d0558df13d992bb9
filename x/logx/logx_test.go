package logx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaggedLines(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, LevelInfo)
	root.With("device").Infof("probed %s", "cs-armv7-timer.0")
	root.With("machine").Warnf("poweroff %s", "unsupported")
	root.With("device").Debugf("hidden")

	assert.Equal(t,
		"[device] probed cs-armv7-timer.0\n[machine] warn: poweroff unsupported\n",
		buf.String())
}

func TestNilAndDiscardAreSilent(t *testing.T) {
	var l *Logger
	l.Infof("nothing %d", 1)
	Discard().With("x").Errorf("nothing")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}
