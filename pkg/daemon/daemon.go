package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/events"
	"github.com/charlie0129/battime/pkg/indicator"
	"github.com/charlie0129/battime/pkg/metrics"
	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
)

var (
	conf     config.Config
	ind      *indicator.Indicator
	sseHub   *events.EventHub
	registry *prometheus.Registry

	openSource = power.Open
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/config", getConfig)
	router.GET("/display", getDisplay)
	router.GET("/snapshot", getSnapshot)
	router.GET("/status", getStatus)
	router.GET("/version", getVersion)
	router.PUT("/locale", setLocale)
	router.PUT("/percent-separator", setPercentSeparator)
	router.POST("/refresh", refresh)
	router.GET("/events", streamEvents)
	router.GET("/ws", streamWebsocket)
	router.GET("/metrics", metricsHandler())

	return router
}

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// newDeriver builds the deriver described by the current config.
func newDeriver() (presentation.Deriver, error) {
	f, err := presentation.NewFormatter(conf.Locale(), conf.PercentSeparator())
	if err != nil {
		return nil, err
	}
	return presentation.NewDeriver(f), nil
}

func reloadConfig() error {
	oldSource := conf.Source()

	if err := conf.Load(); err != nil {
		return err
	}

	d, err := newDeriver()
	if err != nil {
		return err
	}
	ind.SetDeriver(d)

	if conf.Source() != oldSource {
		logrus.WithFields(logrus.Fields{
			"from": oldSource,
			"to":   conf.Source(),
		}).Warn("power source changed in config; restart the daemon to switch sources")
	}

	return nil
}

// listenUnix listens on path, replacing a socket file left behind by a
// daemon that did not shut down cleanly.
func listenUnix(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		conn, err := net.Dial("unix", path)
		if err == nil {
			_ = conn.Close()
			return nil, pkgerrors.Errorf("another daemon is already listening on %s", path)
		}
		logrus.Infof("removing stale socket %s", path)
		if err := os.Remove(path); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to remove stale socket %s", path)
		}
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", path)
	}
	return l, nil
}

func Run(configPath string, unixSocketPath string, allowOtherUsers bool) error {
	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	deriver, err := newDeriver()
	if err != nil {
		return pkgerrors.Wrapf(err, "invalid label format in config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := openSource(ctx, conf.Source(), conf.PollInterval())
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open power source")
	}
	logrus.WithField("source", source.Name()).Info("power source opened")
	defer func() {
		logrus.Info("closing power source")
		if err := source.Close(); err != nil {
			logrus.Errorf("failed to close power source: %v", err)
		}
	}()

	sseHub = events.NewEventHub()
	ind = indicator.New(source, deriver, newEventSink(sseHub))
	registry = metrics.NewRegistry(ind)

	router := setupRoutes()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := reloadConfig()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler: router,
	}

	l, err := listenUnix(unixSocketPath)
	if err != nil {
		return err
	}

	if conf.AllowOtherUsers() || allowOtherUsers {
		logrus.Infof("other users are allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to change permissions of %s", unixSocketPath)
		}
	}

	fatal := make(chan error, 3)

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal <- pkgerrors.Wrapf(err, "http server failed")
		}
	}()

	var metricsSrv *http.Server
	if addr := conf.MetricsAddress(); addr != "" {
		metricsRouter := gin.New()
		metricsRouter.Use(gin.Recovery())
		metricsRouter.GET("/metrics", metricsHandler())
		metricsSrv = &http.Server{
			Addr:              addr,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logrus.Infof("metrics server listening on %s", addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal <- pkgerrors.Wrapf(err, "metrics server failed")
			}
		}()
	}

	go func() {
		logrus.Debugln("indicator loop starts")

		if err := ind.Run(ctx); err != nil {
			fatal <- err
			return
		}

		logrus.Debugln("indicator loop stopped")
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigc:
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
	case runErr = <-fatal:
		logrus.Errorf("shutting down: %v", runErr)
	}

	cancel()

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	// Streaming handlers only return once their subscriptions end.
	sseHub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("failed to shutdown metrics server: %v", err)
		}
	}

	logrus.Info("exiting")
	return runErr
}
