package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/alvarorichard/svetserialu/internal/addon"
	"github.com/alvarorichard/svetserialu/internal/browser"
	"github.com/alvarorichard/svetserialu/internal/cache"
	"github.com/alvarorichard/svetserialu/internal/catalog"
	"github.com/alvarorichard/svetserialu/internal/config"
	"github.com/alvarorichard/svetserialu/internal/httpx"
	"github.com/alvarorichard/svetserialu/internal/metrics"
	"github.com/alvarorichard/svetserialu/internal/proxy"
	"github.com/alvarorichard/svetserialu/internal/scraper"
	"github.com/alvarorichard/svetserialu/internal/session"
	"github.com/alvarorichard/svetserialu/internal/streams"
	"github.com/alvarorichard/svetserialu/internal/util"
	"github.com/alvarorichard/svetserialu/internal/version"
)

const (
	statusInterval  = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
	loginSettle     = 100 * time.Millisecond
)

var envHelp = []util.EnvHelp{
	{Name: config.EnvSiteBase, Description: "Content site root (default " + config.DefaultSiteBase + ")."},
	{Name: config.EnvLoginEmail + " / " + config.EnvLoginPassword, Description: "Site credentials; login is skipped when unset."},
	{Name: config.EnvLoginStrategy, Description: "\"form\" (plain HTTP) or \"browser\" (stealth page)."},
	{Name: config.EnvAddonPort + " / " + config.EnvProxyPort, Description: "Listen ports of the addon and the proxy."},
	{Name: config.EnvProxyPublicURL, Description: "Proxy address written into stream URLs."},
	{Name: config.EnvCacheTTL, Description: "Lifetime of cached stream lists, e.g. 5m."},
	{Name: config.EnvDisabledHosters, Description: "Comma separated hoster kinds to skip (default filemoon)."},
	{Name: config.EnvBrowserHeadless + " / " + config.EnvBrowserExecutable, Description: "Chromium launch options."},
	{Name: config.EnvLogLevel, Description: "\"debug\" enables verbose logs."},
}

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	debugFlag := flag.Bool("debug", false, "enable debug mode")
	helpFlag := flag.Bool("help", false, "show help message")
	altHelpFlag := flag.Bool("h", false, "show help message")
	noWarmup := flag.Bool("no-warmup", false, "start the browser on first use")

	flag.Parse()

	if *versionFlag || version.HasVersionArg(os.Args) {
		version.ShowVersion(os.Stdout)
		return
	}
	if *helpFlag || *altHelpFlag {
		util.ShowHelp(os.Stdout, envHelp)
		return
	}

	cfg := config.Load()
	util.SetDebugMode(*debugFlag || util.ParseLevel(cfg.LogLevel))
	util.InitLogger()

	if err := run(cfg, !*noWarmup); err != nil {
		util.Fatal("svetserialu stopped", "error", err)
	}
}

func run(cfg *config.Config, warmup bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	util.Info("Starting addon", "name", version.Name, "version", version.Version, "site", cfg.SiteBase)
	if err := cfg.CheckCredentials(); err != nil {
		util.Warn("Running anonymously", "reason", err)
	}

	stats := util.GetStats()
	store, err := session.NewStore()
	if err != nil {
		return errors.Wrap(err, "cookie store")
	}

	manager := browser.NewManager(browser.Options{
		Headless:       cfg.BrowserHeadless,
		ExecutablePath: cfg.BrowserExecutable,
	})
	defer func() {
		if err := manager.Close(); err != nil {
			util.Error("Browser shutdown failed", "error", err)
		}
	}()

	creds := session.Credentials{Identity: cfg.LoginEmail, Secret: cfg.LoginPassword}
	var auth session.Authenticator = session.NewFormLogin(cfg.SiteBase, creds, store)
	if cfg.LoginStrategy == config.LoginBrowser {
		auth = session.NewBrowserLogin(cfg.SiteBase, creds, store, manager)
	}
	login := session.NewBootstrapper(auth, cfg.HasCredentials(), cfg.LoginInterval, stats)

	results := cache.New(cache.DefaultSize, cfg.CacheTTL)
	m := metrics.New(results.Len)

	svc := streams.NewService(streams.Deps{
		Catalog:     catalog.NewResolver(store.Client(), cfg.SiteBase, cfg.MetadataBase),
		Session:     login,
		Cookies:     store,
		Parser:      scraper.NewEpisodeParser(manager, stats),
		Hosters:     scraper.NewHosterResolver(manager, cfg.DisabledHosters, stats),
		Prober:      streams.NewQualityProber(util.GetSharedClient()),
		Cache:       results,
		Metrics:     m,
		Stats:       stats,
		SiteBase:    cfg.SiteBase,
		ProxyBase:   cfg.ProxyPublicURL,
		LoginSettle: loginSettle,
	})

	addonSrv := httpx.NewServer(fmt.Sprintf("0.0.0.0:%d", cfg.AddonPort), addon.NewHandler(svc, stats).Router())
	proxySrv := httpx.NewServer(fmt.Sprintf("0.0.0.0:%d", cfg.ProxyPort), proxy.New(proxy.Options{
		AddonPort:      cfg.AddonPort,
		ProxyPort:      cfg.ProxyPort,
		CacheLen:       results.Len,
		BrowserRunning: manager.Running,
		Stats:          stats,
		Metrics:        m,
	}).Router())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listen(addonSrv, "addon") })
	g.Go(func() error { return listen(proxySrv, "proxy") })
	g.Go(func() error {
		<-gctx.Done()
		util.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Wrap(shutdown(shutdownCtx, addonSrv, proxySrv), "shutdown")
	})
	g.Go(func() error {
		reportStatus(gctx, stats)
		return nil
	})
	if warmup {
		g.Go(func() error {
			if _, err := manager.Acquire(gctx); err != nil && gctx.Err() == nil {
				return errors.Wrap(err, "browser warm-up")
			}
			return nil
		})
	}

	util.Info("Addon ready", "manifest", fmt.Sprintf("http://localhost:%d/manifest.json", cfg.AddonPort))
	util.Info("Proxy ready", "health", fmt.Sprintf("http://localhost:%d%s", cfg.ProxyPort, proxy.PathHealth))
	return g.Wait()
}

func listen(srv *http.Server, name string) error {
	util.Info("Listening", "server", name, "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "%s server", name)
	}
	return nil
}

func shutdown(ctx context.Context, servers ...*http.Server) error {
	var firstErr error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func reportStatus(ctx context.Context, stats *util.Stats) {
	t := time.NewTicker(statusInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			util.Info(stats.StatusLine())
		}
	}
}
