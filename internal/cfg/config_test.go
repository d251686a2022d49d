package cfg

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsRegistersExpectedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs))

	for _, name := range []string{
		"source", "cache", "placeholder-size", "ref",
		"debug", "debug-self", "foreground", "single-threaded",
		"log-format", "log-severity", "log-file", "metrics-addr",
	} {
		assert.NotNil(t, fs.Lookup(name), "expected flag %q to be registered", name)
	}
}

func TestValidateRequiresMountPoint(t *testing.T) {
	c := Config{LogFormat: "text"}
	assert.Error(t, c.Validate())

	c.MountPoint = "/mnt/x"
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	c := Config{MountPoint: "/mnt/x", LogFormat: "xml"}
	assert.Error(t, c.Validate())
}
