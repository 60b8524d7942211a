package main

import (
	"context"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cloudshipai/gitconfd/internal/api"
	"github.com/cloudshipai/gitconfd/internal/config"
	"github.com/cloudshipai/gitconfd/internal/logging"
	"github.com/cloudshipai/gitconfd/internal/materializer/resolver"
	"github.com/cloudshipai/gitconfd/internal/materializer/workspace"
	"github.com/cloudshipai/gitconfd/internal/metrics"
)

func newServeCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP configuration materialization service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(v)
		},
	}

	flags := cmd.Flags()
	flags.String("configs-url", "", "git repository URL (may embed user:password@ and a branch fragment)")
	flags.String("ssh-key", "", "path to an ssh private key, used when configs-url has no embedded password")
	flags.String("address", "0.0.0.0", "bind address")
	flags.Int("port", 80, "bind port")
	flags.Int("cache-size", 100, "capacity of each resolver cache")
	flags.String("environments-filter", ".+", "regex restricting discovered environment names")
	flags.Bool("strict", false, "treat missing template variables as errors")
	flags.Bool("datadog", false, "emit request-timer and cache-outcome metrics to Datadog")
	flags.String("datadog-api-key", "", "Datadog API key, required when --datadog is set")
	flags.Bool("debug", false, "enable debug logging")

	bindFlag(v, "configs_url", flags.Lookup("configs-url"))
	bindFlag(v, "ssh_key", flags.Lookup("ssh-key"))
	bindFlag(v, "address", flags.Lookup("address"))
	bindFlag(v, "port", flags.Lookup("port"))
	bindFlag(v, "cache_size", flags.Lookup("cache-size"))
	bindFlag(v, "environments_filter", flags.Lookup("environments-filter"))
	bindFlag(v, "strict", flags.Lookup("strict"))
	bindFlag(v, "datadog", flags.Lookup("datadog"))
	bindFlag(v, "datadog_api_key", flags.Lookup("datadog-api-key"))
	bindFlag(v, "debug", flags.Lookup("debug"))

	return cmd
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	_ = v.BindPFlag(key, flag)
}

func runServe(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logging.Initialize(cfg.Debug)

	envRegex, err := regexp.Compile("(?i)" + cfg.EnvironmentsFilter)
	if err != nil {
		return err
	}

	scratchDir, err := os.MkdirTemp("", "gitconfd-"+uuid.NewString())
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratchDir)

	credentials, cleanedURL, branch, err := workspace.SelectCredentials(cfg.ConfigsURL, cfg.SSHKeyPath)
	if err != nil {
		return err
	}

	ws := workspace.New(cleanedURL, credentials, branch, scratchDir)
	ws.Lock()
	initErr := ws.Initialize()
	ws.Unlock()
	if initErr != nil {
		return initErr
	}

	var sink metrics.Sink = metrics.NullSink{}
	if cfg.Datadog {
		sink = metrics.NewDatadogSink(cfg.DatadogAPIKey)
	}

	res, err := resolver.New(ws, cfg.CacheSize, envRegex, sink)
	if err != nil {
		return err
	}

	server := api.New(cfg, res, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Info("shutting down")
		cancel()
	}()

	return server.Start(ctx)
}
