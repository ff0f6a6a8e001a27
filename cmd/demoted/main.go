package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/oxzi/demote"
)

// Exit codes, distinguishable per error kind for scripts and unit files.
const (
	exitGeneric        = 1
	exitAlreadyRunning = 2
	exitBadIdentity    = 3
)

// osExit is indirect so tests can observe the failure path.
var osExit = os.Exit

func exitCode(err error) int {
	switch {
	case errors.Is(err, demote.ErrAlreadyRunning):
		return exitAlreadyRunning
	case errors.Is(err, demote.ErrUnknownUser), errors.Is(err, demote.ErrUnknownGroup):
		return exitBadIdentity
	default:
		return exitGeneric
	}
}

// fail exits after a post-bootstrap setup error. os.Exit skips deferred
// cleanup, so the pid file must be released here explicitly or it lingers
// as a stale file.
func fail(proc *demote.Process, err error, msg string) {
	log.WithError(err).Error(msg)

	if releaseErr := proc.PidFile.Release(); releaseErr != nil {
		log.WithError(releaseErr).Warn("Releasing the pid file errored")
	}

	osExit(exitCode(err))
}

func main() {
	var (
		flagConfig   string
		flagLogLevel string
		flagListen   string
	)

	flag.StringVar(&flagConfig, "config", "", "YAML configuration file")
	flag.StringVar(&flagLogLevel, "log-level", "",
		"Log level (off, error, warn, info, debug, trace), overrides the config file")
	flag.StringVar(&flagListen, "listen", "", "Listen address, overrides the config file")

	flag.Parse()

	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	conf := defaultConfig()
	if flagConfig != "" {
		var err error
		conf, err = loadConfig(flagConfig)
		if err != nil {
			log.WithError(err).Fatal("Cannot load configuration")
		}
	}
	if flagListen != "" {
		conf.Listen = flagListen
	}

	configLevel, err := conf.logLevel()
	if err != nil {
		log.WithError(err).Fatal("Configuration has an invalid log level")
	}

	var cliLevel *demote.Level
	if flagLogLevel != "" {
		level, err := demote.ParseLevel(flagLogLevel)
		if err != nil {
			log.WithError(err).Fatal("Invalid -log-level flag")
		}
		cliLevel = &level
	}

	proc, err := demote.Bootstrap(demote.Config{
		User:              conf.User,
		Group:             conf.Group,
		PidFile:           conf.PidFile,
		PidFileBeforeDrop: conf.PidFileBeforeDrop,
		Chroot:            conf.Chroot,
		LogLevel:          configLevel,
		LogLevelOverride:  cliLevel,
	})
	if err != nil {
		log.WithError(err).Error("Bootstrap failed")
		os.Exit(exitCode(err))
	}
	defer func() { _ = proc.PidFile.Release() }()

	proc.LogLevel.Apply(log.StandardLogger())
	log.WithFields(log.Fields{
		"level":  proc.LogLevel.Level.String(),
		"source": proc.LogLevel.Source.String(),
	}).Info("Log level decided")

	hits, err := OpenHitLog(conf.DataDir)
	if err != nil {
		fail(proc, err, "Cannot open hit log")
	}

	// Listeners must exist before syscall filtering cuts off bind(2).
	ln, err := serviceListener(proc.Sockets, conf.Listen)
	if err != nil {
		fail(proc, err, "Cannot create listener")
	}
	metricsLn, err := metricsListener(proc.Sockets, conf.MetricsListen)
	if err != nil {
		fail(proc, err, "Cannot create metrics listener")
	}

	restrictions := demote.Restrictions{
		Paths: []string{conf.DataDir},
		SyscallFilter: []string{
			"@system-service",
			"~@chown",
			"~@clock",
			"~@cpu-emulation",
			"~@debug",
			"~@keyring",
			"~@memlock",
			"~@module",
			"~@mount",
			"~@privileged",
			"~@reboot",
			"~@setuid",
			"~@swap",
			"~execve", "~execveat", "~fork",
		},
		Promises: "stdio rpath wpath cpath flock inet error",
	}
	if err := restrictions.Apply(); err != nil {
		fail(proc, err, "Cannot restrict the process")
	}

	if flagConfig != "" {
		watchLogLevel(flagConfig, cliLevel)
	}
	if metricsLn != nil {
		serveMetrics(metricsLn)
	}

	webServer := &http.Server{Handler: &Server{hits: hits}}
	go func() {
		log.WithField("addr", ln.Addr()).Info("Starting web server")

		if err := webServer.Serve(ln); err != http.ErrServerClosed {
			log.WithError(err).Fatal("Web server errored")
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)

	<-stopChan
	log.Info("Closing web server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := webServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Failed to shutdown web server")
	}

	if err := hits.Close(); err != nil {
		log.WithError(err).Warn("Closing the hit log errored")
	}
	if err := proc.PidFile.Release(); err != nil {
		log.WithError(err).Warn("Releasing the pid file errored")
	}
}
