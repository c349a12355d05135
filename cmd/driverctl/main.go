package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/driver-retention/internal/app"
	"github.com/ogurasousui/driver-retention/internal/platform/config"
)

const usage = `usage: driverctl [-config path] <command> [flags]

commands:
  kpi        monthly headcount, leavers and retention
  followups  weekly check-in table
  import     merge a CSV file into the driver list
  export     write drivers as csv or xlsx
  sync       pull the configured Google Sheet now
`

var errUsage = errors.New("driverctl: invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatalf("driverctl: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("driverctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if global.NArg() == 0 {
		return errUsage
	}

	cmd, ok := commands[global.Arg(0)]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, global.Arg(0))
	}

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		return err
	}
	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			log.Printf("close: %v", cerr)
		}
	}()

	return cmd(ctx, application, global.Args()[1:], stdout)
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}
