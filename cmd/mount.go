package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jacobsa/daemonize"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/kardianos/osext"

	"github.com/wtsi-hgi/cramfuse/internal/cfg"
	"github.com/wtsi-hgi/cramfuse/internal/cramfs"
	"github.com/wtsi-hgi/cramfuse/internal/logger"
	"github.com/wtsi-hgi/cramfuse/internal/metrics"
)

// runMount is cramfuse's entry point once flags have been parsed and
// validated: it either re-execs itself as a background daemon (mirroring
// the teacher's daemonize.Run usage in legacy_main.go) or mounts in the
// foreground and blocks until unmounted.
func runMount(ctx context.Context, c *cfg.Config) error {
	severity := c.LogSeverity
	if c.Debug || c.DebugSelf {
		severity = logger.SeverityTrace
	}
	if err := logger.Init(logger.Config{
		Format:   c.LogFormat,
		Severity: severity,
		FilePath: c.LogFile,
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	// --debug-self forces foreground: a backgrounded process has no terminal to
	// usefully trace to.
	foreground := c.Foreground || c.DebugSelf

	if !foreground {
		return daemonizeSelf(c)
	}

	return mountForeground(ctx, c)
}

// daemonizeSelf re-execs the current binary with --foreground set, mirroring
// the original command-line contract where the parent process exits once
// the daemon confirms a successful mount.
func daemonizeSelf(c *cfg.Config) error {
	path, err := osext.Executable()
	if err != nil {
		return fmt.Errorf("finding executable path: %w", err)
	}

	args := append([]string{"--foreground"}, os.Args[1:]...)

	env := []string{
		fmt.Sprintf("PATH=%s", os.Getenv("PATH")),
	}
	if v, ok := os.LookupEnv("CRAMP_CACHE"); ok {
		env = append(env, fmt.Sprintf("CRAMP_CACHE=%s", v))
	}
	if v, ok := os.LookupEnv("REF_CACHE"); ok {
		env = append(env, fmt.Sprintf("REF_CACHE=%s", v))
	}
	if v, ok := os.LookupEnv("REF_PATH"); ok {
		env = append(env, fmt.Sprintf("REF_PATH=%s", v))
	}
	if home, err := os.UserHomeDir(); err == nil {
		env = append(env, fmt.Sprintf("HOME=%s", home))
	}
	env = append(env, "_CRAMFUSE_DAEMON=true")

	if err := daemonize.Run(path, args, env, os.Stdout); err != nil {
		return fmt.Errorf("daemonize.Run: %w", err)
	}
	logger.Infof("cramfuse has been successfully mounted at %q.", c.MountPoint)
	return nil
}

func mountForeground(ctx context.Context, c *cfg.Config) (err error) {
	// When this process was launched by daemonizeSelf, the parent is
	// blocked waiting for exactly one outcome signal.
	daemonized := os.Getenv("_CRAMFUSE_DAEMON") == "true"
	if daemonized {
		defer func() {
			if sigErr := daemonize.SignalOutcome(err); sigErr != nil {
				logger.Errorf("Failed to signal mount outcome to parent process: %v", sigErr)
			}
		}()
	}

	collector := metrics.New()
	metricsCtx, cancelMetrics := context.WithCancel(ctx)
	defer cancelMetrics()
	go func() {
		if srvErr := collector.Serve(metricsCtx, c.MetricsAddr); srvErr != nil {
			logger.Errorf("Metrics server stopped: %v", srvErr)
		}
	}()

	filesystem, err := cramfs.NewFileSystem(*c, collector)
	if err != nil {
		return fmt.Errorf("creating file system: %w", err)
	}

	server := fuseutil.NewFileSystemServer(filesystem)

	mountCfg := &fuse.MountConfig{
		FSName:                  "cramfuse",
		Subtype:                 "cramfuse",
		VolumeName:              "cramfuse",
		ReadOnly:                true,
		EnableParallelDirOps:    true,
		DisableWritebackCaching: true,
	}
	if c.Debug {
		mountCfg.DebugLogger = logger.StandardLoggerAt(logger.LevelTrace, "fuse_debug: ")
		mountCfg.ErrorLogger = logger.StandardLoggerAt(logger.LevelError, "fuse: ")
	}

	logger.Infof("Mounting cramfuse at %q (source %q)...", c.MountPoint, c.Source)
	mfs, err := fuse.Mount(c.MountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	registerSIGINTHandler(c.MountPoint)

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("waiting for unmount: %w", err)
	}
	return nil
}

func registerSIGINTHandler(mountPoint string) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	go func() {
		for range signalChan {
			logger.Infof("Received SIGINT, attempting to unmount %q...", mountPoint)
			if err := fuse.Unmount(mountPoint); err != nil {
				logger.Errorf("Failed to unmount in response to SIGINT: %v", err)
				continue
			}
			logger.Infof("Successfully unmounted in response to SIGINT.")
			return
		}
	}()
}
