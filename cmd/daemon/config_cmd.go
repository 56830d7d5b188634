// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tuto/meetd/internal/config"
	"github.com/tuto/meetd/internal/version"
)

const redacted = "***"

func runConfigCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "init":
		return runConfigInit(args[1:], stdout, stderr)
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  meetd config init [--force] <path>")
	fmt.Fprintln(w, "  meetd config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  meetd config dump [--file|-f config.yaml]")
}

func runConfigInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("meetd config init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one path is required")
		return 2
	}

	path := fs.Arg(0)
	if err := config.WriteExample(path, *force); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			fmt.Fprintf(stderr, "Error: %s exists (use --force to overwrite)\n", path)
			return 1
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return 0
}

// loadForCLI resolves the config the daemon would run with.
func loadForCLI(name string, args []string, stderr io.Writer) (config.AppConfig, string, int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return config.AppConfig{}, "", 2
	}

	path := strings.TrimSpace(file)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		source := path
		if source == "" {
			source = "environment"
		}
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", source, err)
		return cfg, path, 1
	}
	return cfg, path, 0
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	_, path, code := loadForCLI("meetd config validate", args, stderr)
	if code != 0 {
		return code
	}
	if path == "" {
		path = "environment"
	}
	fmt.Fprintf(stdout, "✓ %s is valid\n", path)
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	cfg, _, code := loadForCLI("meetd config dump", args, stderr)
	if code != 0 {
		return code
	}

	redactSecrets(&cfg)
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
		return 1
	}
	_ = enc.Close()
	return 0
}

func redactSecrets(cfg *config.AppConfig) {
	for _, s := range []*string{
		&cfg.LiveKit.APISecret,
		&cfg.Blob.AccessKey,
		&cfg.Blob.Secret,
		&cfg.Auth.JWTSecret,
		&cfg.Store.RedisPassword,
	} {
		if *s != "" {
			*s = redacted
		}
	}
}
