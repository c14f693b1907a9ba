package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tamzrod/ccard-deploy/internal/dsa"
)

func TestParseAppendage(t *testing.T) {
	id, err := parseAppendage("1")
	assert.NoError(t, err)
	assert.Equal(t, dsa.DSA1, id)

	id, err = parseAppendage("2")
	assert.NoError(t, err)
	assert.Equal(t, dsa.DSA2, id)

	_, err = parseAppendage("3")
	assert.Error(t, err)
}
