package main

import (
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/oxzi/demote"
)

// watchLogLevel re-reads the configuration whenever the file changes or a
// SIGHUP arrives and re-applies the log level decision.
//
// The command line override is passed through unchanged on every pass, so an
// explicitly chosen level survives any number of reloads; only the config
// file's side of the decision may move.
func watchLogLevel(configPath string, cliLevel *demote.Level) {
	reload := func() {
		conf, err := loadConfig(configPath)
		if err != nil {
			log.WithError(err).WithField("config", configPath).Warn("Reload failed, keeping log level")
			return
		}
		configLevel, err := conf.logLevel()
		if err != nil {
			log.WithError(err).Warn("Reloaded config has an invalid log level, keeping the current one")
			return
		}

		decision := demote.ReconcileLogLevel(configLevel, cliLevel)
		decision.Apply(log.StandardLogger())

		log.WithFields(log.Fields{
			"level":  decision.Level.String(),
			"source": decision.Source.String(),
		}).Info("Reconfigured log level")
	}

	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, unix.SIGHUP)

	// The watch is on the containing directory, not the file itself. An
	// editor's or atomic writer's rename-replace swaps the inode out and
	// a watch on the old file would go dead after the first save.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("Cannot watch config file, only SIGHUP reloads the log level")
	} else if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		log.WithError(err).WithField("config", configPath).Warn("Cannot watch config file")
		_ = watcher.Close()
		watcher = nil
	}

	var events chan fsnotify.Event
	var errs chan error
	if watcher != nil {
		events = watcher.Events
		errs = watcher.Errors
	}

	go func() {
		for {
			select {
			case <-hupCh:
				reload()

			case event, ok := <-events:
				if !ok {
					return
				}
				if reloadEvent(event, configPath) {
					reload()
				}

			case err, ok := <-errs:
				if !ok {
					return
				}
				log.WithError(err).Warn("Config watcher errored")
			}
		}
	}()
}

// reloadEvent reports whether a directory watch event concerns the config
// file. Atomic saves surface as Create or Rename of the watched name rather
// than Write.
func reloadEvent(event fsnotify.Event, configPath string) bool {
	if filepath.Base(event.Name) != filepath.Base(configPath) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
