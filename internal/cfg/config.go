// Package cfg holds cramfuse's typed runtime configuration, bound from
// command-line flags (via pflag) and optionally overridden by a config file
// (via viper), mirroring the split the teacher uses between its cfg package
// and cmd/root.go.
package cfg

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Config is cramfuse's full runtime configuration. It is immutable once
// cmd.Execute has finished parsing, per spec.md's "Runtime configuration"
// data-model entry.
type Config struct {
	// Positional.
	MountPoint string `mapstructure:"mount_point"`

	// -S, --source, source=DIR. Defaults to the working directory.
	Source string `mapstructure:"source"`

	// --cache=FILE. Empty means derive the path from CRAMP_CACHE/HOME.
	CacheFile string `mapstructure:"cache"`

	// Default placeholder size (bytes) used when the stat cache is cold.
	PlaceholderSize int64 `mapstructure:"placeholder-size"`

	// -T, --ref. Reference FASTA passed to the codec ahead of
	// REF_CACHE/REF_PATH/the CRAM header's UR tag.
	ReferencePath string `mapstructure:"ref"`

	// -d, --debug: all debug, including the FUSE frontend's own trace log.
	// --debug is the long form of -d, not the own-logs-only switch.
	Debug bool `mapstructure:"debug"`
	// --debug-self: our logs only, forces foreground.
	DebugSelf bool `mapstructure:"debug-self"`
	// -f: stay in the foreground.
	Foreground bool `mapstructure:"foreground"`
	// -s: single-threaded FUSE dispatch.
	SingleThreaded bool `mapstructure:"single-threaded"`

	// Logging.
	LogFormat   string `mapstructure:"log-format"`
	LogSeverity string `mapstructure:"log-severity"`
	LogFile     string `mapstructure:"log-file"`

	// Optional loopback address to serve Prometheus metrics on, e.g.
	// "127.0.0.1:9319". Empty disables the listener.
	MetricsAddr string `mapstructure:"metrics-addr"`
}

const DefaultPlaceholderSize = 1 << 34 // 16 GiB; conservatively large.

// BindFlags registers cramfuse's flags on fs, mirroring cfg.BindFlags in the
// teacher. Values land in the struct via viper.Unmarshal in the root
// command's RunE (cmd/root.go), after cobra has parsed argv; each field's
// mapstructure tag is the flag's name.
func BindFlags(fs *pflag.FlagSet) error {
	fs.StringP("source", "S", "", "Source directory to project (default: working directory)")
	fs.String("cache", "", "Alternative stat-cache file path")
	fs.Int64("placeholder-size", DefaultPlaceholderSize, "Reported size of a virtual BAM before its stat cache entry is warm")
	fs.StringP("ref", "T", "", "FASTA reference file forwarded to the codec")
	fs.BoolP("debug", "d", false, "Enable all debug output, including the FUSE frontend's")
	fs.Bool("debug-self", false, "Enable cramfuse's own debug output only; forces foreground")
	fs.BoolP("foreground", "f", false, "Stay in the foreground instead of daemonizing")
	fs.BoolP("single-threaded", "s", false, "Dispatch FUSE callbacks single-threaded")
	fs.String("log-format", "text", "Log format: text or json")
	fs.String("log-severity", "info", "Log severity: off, error, warning, info, debug, trace")
	fs.String("log-file", "", "Log file path (default: stderr)")
	fs.String("metrics-addr", "", "Loopback address to serve Prometheus metrics on (default: disabled)")
	return nil
}

// Validate checks invariants BindFlags alone cannot enforce.
func (c *Config) Validate() error {
	if c.MountPoint == "" {
		return fmt.Errorf("a mount point is required")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid --log-format %q: want text or json", c.LogFormat)
	}
	return nil
}
