package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

const defaultServer = "http://localhost:8080"

type cliConfig struct {
	server   string
	email    string
	password string
}

var errShowUsage = errors.New("show usage")

func main() {
	cfg, command, args, err := parseArgs(os.Args[1:])
	if errors.Is(err, errShowUsage) {
		printUsage()
		if len(os.Args) == 1 {
			os.Exit(1)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch command {
	case "whoami":
		err = runWhoami(ctx, cfg)
	case "can":
		err = runCan(ctx, cfg, args)
	case "resources":
		err = runResources(ctx, cfg)
	case "seed":
		err = runSeed(ctx, cfg)
	case "trail":
		err = runTrail(ctx, cfg)
	case "help", "--help", "-h":
		printUsage()
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}

	if err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func parseArgs(argv []string) (cliConfig, string, []string, error) {
	cfg := cliConfig{
		server:   envOr("GASTROPOS_SERVER", defaultServer),
		email:    os.Getenv("GASTROPOS_EMAIL"),
		password: os.Getenv("GASTROPOS_PASSWORD"),
	}

	var command string
	var rest []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "--server", "-s":
			if i+1 >= len(argv) {
				return cfg, "", nil, errors.New("--server requires a value")
			}
			i++
			cfg.server = argv[i]
		case "--email":
			if i+1 >= len(argv) {
				return cfg, "", nil, errors.New("--email requires a value")
			}
			i++
			cfg.email = argv[i]
		case "--password":
			if i+1 >= len(argv) {
				return cfg, "", nil, errors.New("--password requires a value")
			}
			i++
			cfg.password = argv[i]
		default:
			if command == "" {
				command = arg
			} else {
				rest = append(rest, arg)
			}
		}
	}
	if command == "" {
		return cfg, "", nil, errShowUsage
	}
	return cfg, command, rest, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Fprint(os.Stderr, `gastroctl - gastropos admin console client

Usage:
  gastroctl [flags] <command> [args]

Commands:
  whoami                 Show the identity bound to the session
  can <resource> <action>  Check a permission against the server
  resources              List accessible resources with CRUD summary
  seed                   Install the default permission matrix (super admin)
  trail                  Print the auth diagnostic trail for this run

Flags:
  -s, --server URL       Server base URL (default `+defaultServer+`)
      --email EMAIL      Login email (or GASTROPOS_EMAIL)
      --password PASS    Login password (or GASTROPOS_PASSWORD)
`)
}
