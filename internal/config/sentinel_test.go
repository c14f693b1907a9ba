package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const defaultDelay = 1800 * time.Second

func writeSentinel(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "deployDelay")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write sentinel: %v", err)
	}
	return p
}

func TestDeployDelay_Override(t *testing.T) {
	d, err := DeployDelay(writeSentinel(t, "5"), defaultDelay)
	assert.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestDeployDelay_TrailingNewline(t *testing.T) {
	d, err := DeployDelay(writeSentinel(t, "  42\n"), defaultDelay)
	assert.NoError(t, err)
	assert.Equal(t, 42*time.Second, d)
}

func TestDeployDelay_ZeroIsValid(t *testing.T) {
	d, err := DeployDelay(writeSentinel(t, "0"), defaultDelay)
	assert.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)
}

func TestDeployDelay_MalformedKeepsDefault(t *testing.T) {
	for _, content := range []string{"abc", "-5", "", "5s", "1.5"} {
		d, err := DeployDelay(writeSentinel(t, content), defaultDelay)
		assert.Error(t, err, "content %q", content)
		assert.Equal(t, defaultDelay, d, "content %q", content)
	}
}

func TestDeployDelay_AbsentKeepsDefault(t *testing.T) {
	d, err := DeployDelay(filepath.Join(t.TempDir(), "nope"), defaultDelay)
	assert.NoError(t, err)
	assert.Equal(t, defaultDelay, d)

	d, err = DeployDelay("", defaultDelay)
	assert.NoError(t, err)
	assert.Equal(t, defaultDelay, d)
}
