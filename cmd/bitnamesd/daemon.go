// Package bitnamesd runs the sidechain node.
package bitnamesd

import (
	"net/http"
	_ "net/http/pprof" //nolint:gosec // only served when profilerAddr is set
	"time"

	"github.com/bitnames/bitnames/daemon"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/felixge/fgprof"
	"github.com/ordishs/gocore"
)

// RunDaemon reads the settings and runs the node until it is interrupted.
func RunDaemon(progname, version, commit string) {
	gocore.SetInfo(progname, version, commit)

	tSettings := settings.NewSettings()

	logOpts := []ulogger.Option{
		ulogger.WithLevel(tSettings.LogLevel),
		ulogger.WithLoggerType(tSettings.LoggerType),
		ulogger.WithPretty(tSettings.PrettyLogs),
	}

	logger := ulogger.New(progname, logOpts...)

	stats := gocore.Config().Stats()
	logger.Infof("STATS\n%s\nVERSION\n-------\n%s (%s)\n\n", stats, version, commit)

	if profilerAddr, ok := gocore.Config().Get("profilerAddr"); ok && profilerAddr != "" {
		http.DefaultServeMux.Handle("/debug/fgprof", fgprof.Handler())

		go func() {
			logger.Infof("Profiler listening on http://%s/debug/pprof, fgprof on /debug/fgprof", profilerAddr)

			server := &http.Server{
				Addr:              profilerAddr,
				ReadHeaderTimeout: 20 * time.Second,
			}

			logger.Errorf("profiler stopped: %v", server.ListenAndServe())
		}()
	}

	daemon.New(daemon.WithLoggerFactory(func(serviceName string) ulogger.Logger {
		return ulogger.New(serviceName, logOpts...)
	})).Start(logger, tSettings)
}
