package pvwatts

import (
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/levenlabs/go-lflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfiguredExitsWithoutAPIKey re-runs the test binary so Configured can
// call os.Exit without taking the test process down with it.
func TestConfiguredExitsWithoutAPIKey(t *testing.T) {
	if os.Getenv("SOLARWATTS_CONFIGURED_CHILD") == "1" {
		os.Args = os.Args[:1]
		Configured(nil)
		lflag.Configure()
		// only reached if the missing key was accepted
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestConfiguredExitsWithoutAPIKey$")
	cmd.Env = append(withoutEnv(os.Environ(), "NREL_API_KEY"), "SOLARWATTS_CONFIGURED_CHILD=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected a non-zero exit, got %v: %s", err, out)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(out), ErrMissingAPIKey.Error())
}

func withoutEnv(env []string, name string) []string {
	var out []string
	for _, kv := range env {
		if len(kv) > len(name) && kv[:len(name)+1] == name+"=" {
			continue
		}
		out = append(out, kv)
	}
	return out
}
