// services/rproc/reset_test.go
package rproc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rproc-go/errcode"
)

func TestResetController_UnsupportedInstance(t *testing.T) {
	j := &journal{}
	c := NewResetController(newFakeReset(j))

	err := c.Assert(2, "cpu0")
	var rerr *ResetError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, errcode.Unsupported, rerr.C)

	err = c.Deassert(7, "cpu0")
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, errcode.Unsupported, rerr.C)

	// The backend must not be touched for an unknown shape.
	assert.Empty(t, j.entries)
}

func TestResetController_BackendFailureSurfaced(t *testing.T) {
	j := &journal{}
	fb := newFakeReset(j)
	cause := errors.New("line busy")
	fb.failOn["assert dsp"] = cause

	c := NewResetController(fb)
	err := c.Assert(0, "dsp")

	var rerr *ResetError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, errcode.BackendFault, rerr.C)
	assert.Equal(t, "dsp", rerr.Line)
	// The underlying cause stays reachable, never reclassified.
	assert.ErrorIs(t, err, cause)
}

func TestResetController_Passthrough(t *testing.T) {
	j := &journal{}
	c := NewResetController(newFakeReset(j))

	require.NoError(t, c.Deassert(1, "cpu1"))
	require.NoError(t, c.Assert(1, "cpu1"))
	assert.Equal(t, []string{"deassert cpu1", "assert cpu1"}, j.entries)
}
