package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/basket/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override basket config path (optional)")
	seller := flag.Bool("seller", false, "show the orders placed with you as a seller")
	refreshSeconds := flag.Int("refresh", 0, "order refresh interval in seconds (optional, negative disables)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:   *configPath,
		Seller:       *seller,
		RefreshEvery: *refreshSeconds,
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "basket: %v\n", err)
		return 1
	}
	return 0
}
