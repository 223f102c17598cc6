// bridged is the HTTP-to-management-bus bridge daemon. It serves the
// read/write/exec/search/list/version/notification protocol of spec.md §3
// over HTTP, translating to whatever product-specific management beans the
// detector chain discovers at startup.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/beanbridge/bridge/internal/beanserver"
	"github.com/beanbridge/bridge/internal/config"
	"github.com/beanbridge/bridge/internal/convert"
	"github.com/beanbridge/bridge/internal/debugstore"
	"github.com/beanbridge/bridge/internal/detect"
	"github.com/beanbridge/bridge/internal/dispatch"
	"github.com/beanbridge/bridge/internal/history"
	"github.com/beanbridge/bridge/internal/httpapi"
	"github.com/beanbridge/bridge/internal/mbean"
	"github.com/beanbridge/bridge/internal/objname"
	"github.com/beanbridge/bridge/internal/pluginclient"
	"github.com/beanbridge/bridge/internal/restrict"
	"github.com/beanbridge/bridge/internal/verb"

	"log/slog"
)

// validateEnv checks that the environment variables bridged consults at
// startup have well-formed values, mirroring the teacher's cmd/ratd
// validateEnv: fail fast with a readable message instead of a confusing
// error three layers down.
func validateEnv() []string {
	var errs []string
	if addr := os.Getenv("BRIDGE_LISTEN_ADDR"); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Sprintf("BRIDGE_LISTEN_ADDR=%q: must be host:port (%v)", addr, err))
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		if _, err := net.LookupPort("tcp", port); err != nil {
			errs = append(errs, fmt.Sprintf("PORT=%q: must be a valid port number", port))
		}
	}
	if v := os.Getenv("BRIDGE_RESCAN_CRON"); v != "" {
		// validated for real when the sweeper parses it below; this only
		// catches the empty-vs-garbage distinction early for a clean exit.
		if strings.TrimSpace(v) == "" {
			errs = append(errs, "BRIDGE_RESCAN_CRON: must not be blank")
		}
	}
	return errs
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if errs := validateEnv(); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("invalid environment variable", "error", e)
		}
		os.Exit(1)
	}

	cfg, err := config.Load(config.ResolvePath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	server := beanserver.NewServer(qualifierOrDefault(cfg.MBeanQualifier))

	runtimeRegistry, err := mbean.NewRuntimeSnapshotRegistry()
	if err != nil {
		slog.Error("failed to build runtime bean registry", "error", err)
		os.Exit(1)
	}
	server.AddDetectorRegistry(runtimeRegistry)

	histStore := history.New(cfg.HistoryMaxEntries, cfg.HistoryMaxKeys, cfg.HistoryMaxAge)
	histBean := history.NewBean(histStore)
	histName, err := server.RegisterCoreBean("History", histBean)
	if err != nil {
		slog.Error("failed to register history bean", "error", err)
		os.Exit(1)
	}
	registerHistoryOperations(server, histName, histBean)

	dbgStore := debugstore.New(cfg.DebugMaxEntries, cfg.Debug)
	dbgBean := debugstore.NewBean(dbgStore)
	dbgName, err := server.RegisterCoreBean("Debug", dbgBean)
	if err != nil {
		slog.Error("failed to register debug bean", "error", err)
		os.Exit(1)
	}
	registerDebugOperations(server, dbgName, dbgBean)

	syncedOpts := convert.NewSyncedOptions(convert.Options{MaxDepth: cfg.MaxDepth, MaxCollectionSize: cfg.MaxCollectionSize, MaxObjects: cfg.MaxObjects})
	cfgBean := config.NewBean(syncedOpts, dbgStore, histStore)
	cfgName, err := server.RegisterCoreBean("Config", cfgBean)
	if err != nil {
		slog.Error("failed to register config bean", "error", err)
		os.Exit(1)
	}
	registerConfigOperations(server, cfgName, cfgBean)

	pluginHTTPClient := pluginclient.New()

	detectors := []detect.Detector{detect.RuntimeDetector{}}
	for _, p := range cfg.DetectorPlugins {
		detectors = append(detectors, detect.NewPluginDetector(detect.PluginConfig{Name: p.Name, Addr: p.Addr, Opts: p.Opts}, pluginHTTPClient, logger))
	}
	chain := detect.NewChain(logger, detectors...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle, contributed := chain.Run(ctx, server.Registries())
	for _, reg := range contributed {
		server.AddDetectorRegistry(reg)
	}

	handleBean := detect.NewHandleBean(handle)
	if _, err := server.RegisterCoreBean("ServerHandle", handleBean); err != nil {
		slog.Error("failed to register server-handle bean", "error", err)
		os.Exit(1)
	}

	handle.PreDispatch = append(handle.PreDispatch,
		func(_ context.Context, _ []mbean.Registry) { runtimeRegistry.Refresh() },
		func(_ context.Context, _ []mbean.Registry) { histBean.Refresh() },
		func(_ context.Context, _ []mbean.Registry) { dbgBean.Refresh() },
		func(_ context.Context, _ []mbean.Registry) { cfgBean.Refresh() },
		func(_ context.Context, _ []mbean.Registry) { handleBean.Refresh() },
	)
	handle.RunPostDetect(ctx, cfg.DetectorOptions, logger)
	slog.Info("detector chain resolved", "vendor", handle.Vendor, "product", handle.Product, "version", handle.Version)

	rst := restrictorFromConfig(cfg, logger)

	table := verb.NewTable(verb.ServerInfo{
		Vendor:   handle.Vendor,
		Product:  handle.Product,
		Version:  handle.Version,
		AgentURL: handle.AgentURL,
	})

	var extraDispatchers []dispatch.Dispatcher
	for _, p := range cfg.DispatcherClasses {
		extraDispatchers = append(extraDispatchers, dispatch.NewHTTPDispatcher(p.Name, p.Addr, pluginHTTPClient))
	}

	manager := dispatch.NewManager(server, handle, table, rst, histStore, syncedOpts, logger, dispatch.WithExtraDispatchers(extraDispatchers...))

	router := httpapi.NewRouter(&httpapi.Server{Manager: manager, CORSOrigins: corsOrigins(), Log: logger})

	addr := listenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var sweeper *dispatch.Sweeper
	if cronExpr := rescanCron(); cronExpr != "" {
		sweeper, err = dispatch.NewSweeper(server, cronExpr, 10*time.Second, logger)
		if err != nil {
			slog.Error("invalid rescan schedule", "error", err)
			os.Exit(1)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("bridged listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if sweeper != nil {
		sweeper.Start(gctx)
		g.Go(func() error {
			<-gctx.Done()
			sweeper.Stop()
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("bridged exited with error", "error", err)
		os.Exit(1)
	}

	if err := server.Shutdown(); err != nil {
		slog.Error("core bean shutdown error", "error", err)
	}
	slog.Info("bridged shutdown complete")
}

func qualifierOrDefault(q string) string {
	if q == "" {
		return "beanbridge"
	}
	return q
}

func listenAddr() string {
	if v := os.Getenv("BRIDGE_LISTEN_ADDR"); v != "" {
		return v
	}
	if v := os.Getenv("PORT"); v != "" {
		return ":" + v
	}
	return "127.0.0.1:8778"
}

func corsOrigins() []string {
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		return strings.Split(v, ",")
	}
	return nil
}

func rescanCron() string {
	return os.Getenv("BRIDGE_RESCAN_CRON")
}

// restrictorFromConfig builds the deny-list restrictor from PolicyLocation,
// falling back to allow-all (spec.md §1 Non-goals: auth/authz plugins beyond
// a bundled deny-list are out of scope; RestrictorClass is reserved for a
// future reflective policy plugin and currently just logs that it was
// requested).
func restrictorFromConfig(cfg *config.Config, log *slog.Logger) restrict.Restrictor {
	if cfg.RestrictorClass != nil {
		log.Warn("restrictorClass configured but no reflective restrictor plugin loader is wired; falling back to policyLocation/allow-all", "name", cfg.RestrictorClass.Name)
	}
	if cfg.PolicyLocation == "" {
		return restrict.AllowAll{}
	}
	patterns, err := restrict.LoadDenyList(cfg.PolicyLocation)
	if err != nil {
		log.Error("failed to load restrictor policy, falling back to allow-all", "path", cfg.PolicyLocation, "error", err)
		return restrict.AllowAll{}
	}
	return restrict.DenyList{Patterns: patterns}
}

// registerHistoryOperations wires the History bean's Reset/Resize
// operations onto the platform registry, converting each to the
// reflect-typed signature mbean.LocalRegistry.RegisterOperation expects.
func registerHistoryOperations(server *beanserver.Server, name objname.Name, bean *history.Bean) {
	must(server.Platform().RegisterOperation(name, "reset", nil, func([]any) (any, error) {
		return bean.Reset()
	}))
	must(server.Platform().RegisterOperation(name, "resize", []reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0), reflect.TypeOf(int64(0))}, func(args []any) (any, error) {
		return bean.Resize(args[0].(int), args[1].(int), args[2].(int64))
	}))
}

func registerDebugOperations(server *beanserver.Server, name objname.Name, bean *debugstore.Bean) {
	must(server.Platform().RegisterOperation(name, "dump", nil, func([]any) (any, error) {
		return bean.Dump()
	}))
	must(server.Platform().RegisterOperation(name, "reset", nil, func([]any) (any, error) {
		return bean.Reset()
	}))
}

// registerConfigOperations wires the Config bean's setLimits/setDebug/
// setHistoryLimits operations onto the platform registry (spec.md §6:
// maxDepth/maxCollectionSize/maxObjects/debug/history limits are runtime-
// adjustable via the config bean).
func registerConfigOperations(server *beanserver.Server, name objname.Name, bean *config.Bean) {
	must(server.Platform().RegisterOperation(name, "setLimits", []reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0), reflect.TypeOf(0)}, func(args []any) (any, error) {
		return bean.SetLimits(args[0].(int), args[1].(int), args[2].(int))
	}))
	must(server.Platform().RegisterOperation(name, "setDebug", []reflect.Type{reflect.TypeOf(false)}, func(args []any) (any, error) {
		return bean.SetDebug(args[0].(bool))
	}))
	must(server.Platform().RegisterOperation(name, "setHistoryLimits", []reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0), reflect.TypeOf(int64(0))}, func(args []any) (any, error) {
		return bean.SetHistoryLimits(args[0].(int), args[1].(int), args[2].(int64))
	}))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
