package demote

import (
	"fmt"
	"io"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Level is a log verbosity setting, ordered from quietest to noisiest.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// DefaultLevel is used when neither the config file nor the command line
// supplies a log level.
const DefaultLevel = LevelWarn

var levelNames = map[Level]string{
	LevelOff:   "off",
	LevelError: "error",
	LevelWarn:  "warn",
	LevelInfo:  "info",
	LevelDebug: "debug",
	LevelTrace: "trace",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel maps a level's textual form back to a Level.
func ParseLevel(s string) (Level, error) {
	for level, name := range levelNames {
		if name == strings.ToLower(s) {
			return level, nil
		}
	}
	return DefaultLevel, fmt.Errorf("unknown log level %q", s)
}

// LevelSource says where the effective log level came from.
type LevelSource int

const (
	SourceDefault LevelSource = iota
	SourceConfigFile
	SourceCommandLine
)

func (s LevelSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceConfigFile:
		return "config"
	case SourceCommandLine:
		return "cli"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// LevelDecision is the reconciled log level together with its provenance.
type LevelDecision struct {
	Level  Level
	Source LevelSource
}

// ReconcileLogLevel merges the config file's log level with a command line
// override. The command line wins over the config file, the config file wins
// over the built-in default. A nil input means "not provided", which is
// distinct from an explicit request for the default value: an explicitly
// supplied level is never replaced by the default.
func ReconcileLogLevel(config, cli *Level) LevelDecision {
	switch {
	case cli != nil:
		return LevelDecision{Level: *cli, Source: SourceCommandLine}
	case config != nil:
		return LevelDecision{Level: *config, Source: SourceConfigFile}
	default:
		return LevelDecision{Level: DefaultLevel, Source: SourceDefault}
	}
}

// silenced remembers the output a logger had before LevelOff swapped it for
// io.Discard, so a later reload to an audible level gets it back.
var (
	silencedMu sync.Mutex
	silenced   = map[*log.Logger]io.Writer{}
)

// Apply configures a logrus logger for the decided level. LevelOff discards
// all output as logrus has no disabled level of its own; applying an audible
// level afterwards restores the previous output, so a reload away from Off
// actually becomes audible again.
func (d LevelDecision) Apply(logger *log.Logger) {
	silencedMu.Lock()
	defer silencedMu.Unlock()

	if d.Level == LevelOff {
		if logger.Out != io.Discard {
			silenced[logger] = logger.Out
		}
		logger.SetOutput(io.Discard)
		logger.SetLevel(log.PanicLevel)
		return
	}

	if out, ok := silenced[logger]; ok {
		logger.SetOutput(out)
		delete(silenced, logger)
	}
	logger.SetLevel(d.Level.Logrus())
}

// Logrus maps a Level onto the corresponding logrus level. LevelOff has no
// logrus equivalent and maps to PanicLevel; use LevelDecision.Apply to also
// silence the output.
func (l Level) Logrus() log.Level {
	switch l {
	case LevelError:
		return log.ErrorLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelDebug:
		return log.DebugLevel
	case LevelTrace:
		return log.TraceLevel
	default:
		return log.PanicLevel
	}
}
