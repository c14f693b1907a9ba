// internal/config/sentinel.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DeployDelay resolves the initial deployment delay.
//
// If the override file holds an ASCII non-negative integer, that many
// seconds is returned. An absent file returns def with a nil error.
// An unreadable or malformed file returns def with a non-nil error the
// caller should log; it is never fatal.
func DeployDelay(overrideFile string, def time.Duration) (time.Duration, error) {
	if overrideFile == "" {
		return def, nil
	}

	b, err := os.ReadFile(overrideFile)
	if err != nil {
		if os.IsNotExist(err) {
			return def, nil
		}
		return def, errors.Wrap(err, "deploy delay override: read")
	}

	s := strings.TrimSpace(string(b))
	secs, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return def, errors.Errorf("deploy delay override: %q is not a non-negative integer", s)
	}
	return time.Duration(secs) * time.Second, nil
}
