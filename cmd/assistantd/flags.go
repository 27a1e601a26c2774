// ABOUTME: CLI flag parsing using stdlib flag package

package main

import "flag"

type cliArgs struct {
	verbose    bool
	configPath string
	version    bool
}

func parseFlags() cliArgs {
	var args cliArgs

	flag.BoolVar(&args.verbose, "verbose", false, "Enable debug logging")
	flag.StringVar(&args.configPath, "config", "", "Path to config.json (defaults to the OS user config dir)")
	flag.BoolVar(&args.version, "version", false, "Show version and exit")

	flag.Parse()
	return args
}
