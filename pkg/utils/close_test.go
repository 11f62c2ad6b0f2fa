package utils

import (
	"bytes"
	"errors"
	"testing"

	"github.com/block/replsafe/pkg/statuslog"
	"github.com/stretchr/testify/assert"
)

type fakeCloser struct {
	err    error
	closed bool
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return f.err
}

func TestCloseAndLog(t *testing.T) {
	errOut := &bytes.Buffer{}
	logger := statuslog.New(&statuslog.Config{Out: &bytes.Buffer{}, ErrOut: errOut})

	closer := &fakeCloser{}
	CloseAndLog(closer, logger)
	assert.True(t, closer.closed)
	assert.Empty(t, errOut.String())

	failing := &fakeCloser{err: errors.New("already closed")}
	CloseAndLog(failing, logger)
	assert.True(t, failing.closed)
	assert.Contains(t, errOut.String(), "deferred close failed: already closed")

	CloseAndLog(nil, logger) // must not panic
}
