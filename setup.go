// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// configPaths are searched for showcase.yaml when no file is named.
var configPaths = []string{
	"/etc/" + applicationName,
	"$HOME/." + applicationName,
	".",
}

// errVersionPrinted stops startup after --version.
var errVersionPrinted = errors.New("version printed")

type flags struct {
	file    string
	debug   bool
	version bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet(applicationName, pflag.ContinueOnError)
	fs.StringVarP(&f.file, "file", "f", "", "the configuration file to use.  Overrides the search path.")
	fs.BoolVarP(&f.debug, "debug", "d", false, "enables debug logging.  Overrides configuration.")
	fs.BoolVarP(&f.version, "version", "v", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return f, fmt.Errorf("failed to parse args: %w", err)
	}
	return f, nil
}

// setup parses the command line, loads the configuration and builds the
// application logger. Every setting has a default, so running without a
// configuration file is allowed unless one was named with --file.
// Environment variables prefixed with SHOWCASE_ override the file.
func setup(args []string, stdout io.Writer) (*viper.Viper, *zap.Logger, error) {
	l, err := zap.NewDevelopment() // until the configured logger exists
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	f, err := parseFlags(args)
	if err != nil {
		return nil, l, err
	}
	if f.version {
		printVersionInfo(stdout)
		return nil, l, errVersionPrinted
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(applicationName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfig(v, f.file, configPaths, l); err != nil {
		return v, l, err
	}

	if f.debug {
		v.Set("logging.level", "DEBUG")
	}

	var c sallust.Config
	if err := v.UnmarshalKey("logging", &c, arrange.ComposeDecodeHooks(sallust.DecodeHook)); err != nil {
		return v, l, fmt.Errorf("invalid logging configuration: %w", err)
	}

	logger, err := c.Build()
	if err != nil {
		return v, l, fmt.Errorf("failed to build logger: %w", err)
	}
	return v, logger, nil
}

// readConfig loads the named file, or searches paths when no file was
// named. Only the search may come up empty.
func readConfig(v *viper.Viper, file string, paths []string, l *zap.Logger) error {
	if len(file) > 0 {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName(applicationName)
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case errors.As(err, &notFound):
		l.Info("no configuration file found, using defaults")
		return nil
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	}
	l.Info("loaded configuration", zap.String("file", v.ConfigFileUsed()))
	return nil
}

func printVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "%s:\n", applicationName)
	fmt.Fprintf(w, "  version: \t%s\n", Version)
	fmt.Fprintf(w, "  go version: \t%s\n", runtime.Version())
	fmt.Fprintf(w, "  built time: \t%s\n", BuildTime)
	fmt.Fprintf(w, "  git commit: \t%s\n", GitCommit)
	fmt.Fprintf(w, "  os/arch: \t%s/%s\n", runtime.GOOS, runtime.GOARCH)
}
