package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugStreams(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	p, err := New(testOptions())
	require.NoError(t, err)
	res, err := p.Run(context.Background(), linearBlobSource())
	require.NoError(t, err)

	assert.Contains(t, diag.String(), "[pipeline] ")
	assert.Contains(t, diag.String(), res.RunID.String())
	assert.Equal(t, res.Windows, strings.Count(trace.String(), "window: "))
	assert.Empty(t, ops.String())

	_, err = p.Run(context.Background(), &failingSource{after: 0, err: errors.New("eof-ish")})
	require.Error(t, err)
	assert.Contains(t, ops.String(), "source failed after 0 chunks")
}

func TestDebugStreamsMuted(t *testing.T) {
	SetLogWriters(nil, nil, nil)
	assert.NotPanics(t, func() {
		opsf("x")
		diagf("x")
		tracef("x")
	})
}
