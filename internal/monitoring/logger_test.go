package monitoring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// A nil logger mutes output without panicking.
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestWriterLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var buf bytes.Buffer
	SetLogger(WriterLogger(&buf, "[evtrack] "))
	Logf("windows=%d", 3)
	assert.Contains(t, buf.String(), "[evtrack] ")
	assert.Contains(t, buf.String(), "windows=3")

	assert.Nil(t, WriterLogger(nil, "[evtrack] "))
	assert.NotPanics(t, func() {
		SetLogger(WriterLogger(nil, "x"))
		Logf("muted")
	})
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}
