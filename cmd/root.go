// Package cmd implements cramfuse's command-line surface: a single Cobra
// command binding pflag-parsed flags into internal/cfg.Config via Viper,
// mirroring the teacher's cmd/root.go split between cobra (argument
// parsing) and viper (config-file overrides) even though cramfuse's flag
// surface is far smaller.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wtsi-hgi/cramfuse/internal/cfg"
)

var (
	cfgFile     string
	bindErr     error
	mountConfig cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "cramfuse [flags] mount_point",
	Short: "Project a directory of CRAM files as a read-only BAM filesystem",
	Long: `cramfuse mounts a source directory at mount_point, presenting every
file it contains unchanged except that each "*.cram" file gains a virtual
"*.bam" sibling, transcoded on read.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if err := viper.Unmarshal(&mountConfig); err != nil {
			return fmt.Errorf("parsing configuration: %w", err)
		}

		mountPoint, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("canonicalizing mount point: %w", err)
		}
		mountConfig.MountPoint = mountPoint

		if mountConfig.Source == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
			mountConfig.Source = wd
		}

		if err := mountConfig.Validate(); err != nil {
			return err
		}

		return runMount(cmd.Context(), &mountConfig)
	},
}

// Execute runs the root command, the sole entry point main calls into.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.Flags().StringVar(&cfgFile, "config-file", "", "Path to an optional YAML config file")
	bindErr = cfg.BindFlags(rootCmd.Flags())
	if bindErr == nil {
		bindErr = viper.BindPFlags(rootCmd.Flags())
	}
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetEnvPrefix("CRAMFUSE")
	viper.AutomaticEnv()

	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		bindErr = fmt.Errorf("reading config file %q: %w", cfgFile, err)
	}
}
