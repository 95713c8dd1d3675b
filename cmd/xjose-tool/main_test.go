package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMain(t *testing.T) {
	out := bytes.NewBuffer([]byte{})
	errout := bytes.NewBuffer([]byte{})
	rc := 0
	exit := func(c int) {
		rc = c
	}

	realMain([]string{"xjose-tool", "bogus"}, out, errout, exit)
	assert.Equal(t, 1, rc)
	assert.Contains(t, errout.String(), "xjose-tool: error: unexpected argument bogus")
	assert.Empty(t, out.String())
}

func TestMain_AlgList(t *testing.T) {
	out := bytes.NewBuffer([]byte{})
	errout := bytes.NewBuffer([]byte{})
	rc := 0
	exit := func(c int) {
		rc = c
	}

	realMain([]string{"xjose-tool", "alg", "list", "--class", "content_encryption"}, out, errout, exit)
	assert.Equal(t, 0, rc)
	assert.Empty(t, errout.String())
	assert.Contains(t, out.String(), `"A256GCM"`)
	assert.NotContains(t, out.String(), `"ES256"`)
}
