package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeNilIsOK(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ExitOK, ExitCode(nil))
}

func TestExitCodePropagatesExitErrCode(t *testing.T) {
	t.Parallel()
	err := exitErr{code: ExitSourceFatal, err: errors.New("boom")}
	assert.Equal(t, ExitSourceFatal, ExitCode(err))
}

func TestExitCodeDefaultsToTargetFailureForUnrecognizedError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ExitTargetFailure, ExitCode(errors.New("plain")))
}

func TestNewRootCmdRegistersSyncSubcommand(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()
	sync, _, err := root.Find([]string{"sync"})
	assert.NoError(t, err)
	assert.Equal(t, "sync", sync.Name())
}
