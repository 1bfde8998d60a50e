package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/sitewatch/internal/config"
)

// loadConfig builds a Config from defaults, the configuration file and the
// flags the user set on cmd, in that order of precedence.
// Positional args replace the configured source list.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = configPath

	// A missing file is only an error when the user named one explicitly.
	if path := config.FindConfigFile(configPath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(file)
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Sources = args
	}
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogJSON = getLogJSONFlag(cmd)

	return cfg, nil
}

// applyFlags copies every flag the user changed onto cfg. Flags that a
// command does not define are skipped.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var errs []error
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	if changed("state") {
		cfg.StatePath, err = flags.GetString("state")
		collect(err)
	}
	if changed("history-dir") {
		cfg.HistoryDir, err = flags.GetString("history-dir")
		collect(err)
	}
	if changed("no-history") {
		var noHistory bool
		noHistory, err = flags.GetBool("no-history")
		collect(err)
		cfg.SaveHistory = !noHistory
	}
	if changed("timeout") {
		cfg.Timeout, err = flags.GetDuration("timeout")
		collect(err)
	}
	if changed("concurrency") {
		cfg.Concurrency, err = flags.GetInt("concurrency")
		collect(err)
	}
	if changed("max-diff-lines") {
		cfg.MaxDiffLines, err = flags.GetInt("max-diff-lines")
		collect(err)
	}
	if changed("user-agent") {
		cfg.UserAgent, err = flags.GetString("user-agent")
		collect(err)
	}
	if changed("proxy") {
		cfg.Proxy, err = flags.GetString("proxy")
		collect(err)
	}
	if changed("algorithm") {
		cfg.Algorithm, err = flags.GetString("algorithm")
		collect(err)
	}
	if changed("fail-on-fetch-error") {
		cfg.FailOnFetchError, err = flags.GetBool("fail-on-fetch-error")
		collect(err)
	}
	if changed("json") {
		cfg.JSONReport, err = flags.GetBool("json")
		collect(err)
	}
	if changed("markdown") {
		cfg.MarkdownReport, err = flags.GetBool("markdown")
		collect(err)
	}
	if changed("output") {
		cfg.ReportFile, err = flags.GetString("output")
		collect(err)
	}

	return errors.Join(errs...)
}
