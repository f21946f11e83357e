package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/five82/basket/internal/config"
	"github.com/five82/basket/internal/mirror"
	"github.com/five82/basket/internal/orders"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/ui"
)

// Options configure the basket application.
type Options struct {
	ConfigPath   string
	Seller       bool // force the seller order view
	RefreshEvery int  // seconds; zero uses the config, negative disables
}

// Run boots the basket TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if opts.Seller {
		cfg.Seller = true
	}
	switch {
	case opts.RefreshEvery > 0:
		cfg.RefreshInterval = time.Duration(opts.RefreshEvery) * time.Second
	case opts.RefreshEvery < 0:
		cfg.RefreshInterval = 0
	}

	lg, err := newLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer func() { _ = lg.Sync() }()

	client, err := shop.NewClient(cfg.APIURL, shop.WithToken(cfg.Token), shop.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return errors.Wrap(err, "init shop client")
	}
	m, err := mirror.Open(cfg.MirrorDir)
	if err != nil {
		return errors.Wrap(err, "open mirror")
	}

	scope := orders.Buyer
	if cfg.Seller {
		scope = orders.Seller
	}
	lg.Info("Starting",
		zap.String("api_url", cfg.APIURL),
		zap.Stringer("scope", scope),
		zap.String("mirror_dir", m.Dir()),
		zap.Duration("refresh", cfg.RefreshInterval),
	)

	ctx, cancel := context.WithCancel(ctx)
	sess := NewSession(ctx, client, m, scope, cfg.SearchDebounce, lg)
	defer func() {
		cancel()
		sess.Close()
	}()
	sess.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runRefresher(gctx, cfg.RefreshInterval, sess.Refresh, lg.Named("refresh"))
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return ui.Run(gctx, ui.Options{
			Cart:      sess.Cart,
			Orders:    sess.Orders,
			Search:    sess.Search,
			Errors:    sess.Errors(),
			Logger:    lg.Named("ui"),
			Interval:  cfg.RefreshInterval,
			LogPath:   cfg.LogPath,
			ThemeName: cfg.Theme,
		})
	})
	return g.Wait()
}

// newLogger writes JSON logs to path. The terminal belongs to the UI.
func newLogger(path string, level zapcore.Level) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	return cfg.Build()
}
