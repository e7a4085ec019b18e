package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := ConfigInvalid("practice proportions are empty")
	wrapped := Wrap(base, "failed to load config")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.True(t, Is(wrapped, CodeConfigInvalid))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Equal(t, "failed to load config: practice proportions are empty", wrapped.Error())
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrapf(stderrors.New("disk full"), "saving session %s", "abc")

	assert.Equal(t, CodeInternal, GetCode(wrapped))
	assert.Equal(t, "saving session abc: disk full", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
	assert.Equal(t, "", GetCode(nil))
}

func TestNotFound(t *testing.T) {
	err := NotFound("session")
	assert.Equal(t, "session not found", err.Error())
	assert.True(t, Is(err, CodeNotFound))
}

func TestAborted(t *testing.T) {
	err := Wrap(Aborted(context.Canceled, "run aborted"), "session s1")

	assert.True(t, Is(err, CodeAborted))
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Nil(t, Aborted(nil, "ignored"))
}
