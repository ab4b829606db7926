package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danmuck/dmapctl/internal/codec"
	"github.com/danmuck/dmapctl/internal/config"
	"github.com/danmuck/dmapctl/internal/logging"
	"github.com/danmuck/dmapctl/internal/observability"
)

type rootOpts struct {
	cfgFile   string
	codesFile string
	logLevel  string
	noColor   bool

	cfg    config.Config
	logger zerolog.Logger
}

const longRootDescription = `dmapctl decodes, encodes and serves DMAP/DAAP tagged messages.

Every command except "config" needs a content-codes response (the raw body
of a /content-codes request) to build the type dictionary from. Point at it
with --codes or the content_codes config key.
`

func newRootCmd() *cobra.Command {
	opts := &rootOpts{cfg: config.Default()}
	cmd := &cobra.Command{
		Use:           "dmapctl",
		Short:         "DMAP/DAAP codec toolkit",
		Long:          longRootDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "path to a dmapctl TOML config")
	flags.StringVar(&opts.codesFile, "codes", "", "content-codes response file (overrides content_codes)")
	flags.StringVar(&opts.logLevel, "log-level", "", "trace|debug|info|warn|error|disabled")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored console logs")

	cmd.AddCommand(
		newCodesCmd(opts),
		newDecodeCmd(opts),
		newEncodeCmd(opts),
		newRoundTripCmd(opts),
		newServeCmd(opts),
		newConfigCmd(),
	)
	return cmd
}

// init loads the config file and installs the process logger. Flags win
// over the config file, which wins over DMAPCTL_LOG_* defaults.
func (o *rootOpts) init(cmd *cobra.Command) error {
	if o.cfgFile != "" {
		cfg, err := config.Load(o.cfgFile)
		if err != nil {
			return err
		}
		o.cfg = cfg
	}

	logCfg := o.cfg.Log.Logging()
	if o.cfgFile == "" {
		logCfg = logging.DefaultConfig(logging.ProfileRuntime)
		logCfg.Level = zerolog.WarnLevel
		logging.ApplyEnv(&logCfg)
	}
	if o.logLevel != "" {
		lvl, ok := logging.ParseLevel(o.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", o.logLevel)
		}
		logCfg.Level = lvl
	}
	if o.noColor {
		logCfg.NoColor = true
	}
	logging.Apply(logCfg)
	o.logger = observability.InitLogger(cmd.Root().Name())
	return nil
}

func (o *rootOpts) contentCodesPath() string {
	if o.codesFile != "" {
		return o.codesFile
	}
	return o.cfg.ContentCodes
}

func (o *rootOpts) service() (*codec.Service, error) {
	path := strings.TrimSpace(o.contentCodesPath())
	if path == "" {
		return nil, fmt.Errorf("no content-codes file: set --codes or content_codes")
	}
	return codec.Load(path, o.cfg.CodeOverrides(), o.logger)
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
