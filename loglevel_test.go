package demote

import (
	"bytes"
	"testing"

	log "github.com/sirupsen/logrus"
)

func levelPtr(l Level) *Level {
	return &l
}

func TestReconcileLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config *Level
		cli    *Level
		level  Level
		source LevelSource
	}{
		{"both unset", nil, nil, DefaultLevel, SourceDefault},
		{"config only", levelPtr(LevelInfo), nil, LevelInfo, SourceConfigFile},
		{"cli only", nil, levelPtr(LevelDebug), LevelDebug, SourceCommandLine},
		{"cli wins", levelPtr(LevelInfo), levelPtr(LevelDebug), LevelDebug, SourceCommandLine},
		{"config set to default", levelPtr(DefaultLevel), nil, DefaultLevel, SourceConfigFile},
		{"cli set to default", levelPtr(LevelInfo), levelPtr(DefaultLevel), DefaultLevel, SourceCommandLine},
	}

	for _, test := range tests {
		d := ReconcileLogLevel(test.config, test.cli)
		if d.Level != test.level || d.Source != test.source {
			t.Fatalf("%s: got (%v, %v), expected (%v, %v)",
				test.name, d.Level, d.Source, test.level, test.source)
		}
	}
}

// An explicitly supplied level must never be reported as the default, no
// matter the combination.
func TestReconcileLogLevelNeverSilentlyDefault(t *testing.T) {
	levels := []Level{LevelOff, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace}

	options := []*Level{nil}
	for i := range levels {
		options = append(options, &levels[i])
	}

	for _, config := range options {
		for _, cli := range options {
			d := ReconcileLogLevel(config, cli)
			if (config != nil || cli != nil) && d.Source == SourceDefault {
				t.Fatalf("explicit input (config=%v, cli=%v) reported as default", config, cli)
			}
		}
	}
}

// Re-running the reconciliation after a config reload must keep a command
// line override in place even when the config side changed.
func TestReconcileLogLevelReload(t *testing.T) {
	cli := levelPtr(LevelDebug)

	first := ReconcileLogLevel(levelPtr(LevelInfo), cli)
	second := ReconcileLogLevel(levelPtr(LevelError), cli)

	if first != second {
		t.Fatalf("reload changed the decision: %v -> %v", first, second)
	}
	if second.Level != LevelDebug || second.Source != SourceCommandLine {
		t.Fatalf("unexpected decision after reload: %v", second)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input  string
		output Level
		valid  bool
	}{
		{"off", LevelOff, true},
		{"error", LevelError, true},
		{"warn", LevelWarn, true},
		{"info", LevelInfo, true},
		{"debug", LevelDebug, true},
		{"trace", LevelTrace, true},
		{"Info", LevelInfo, true},
		{"verbose", 0, false},
		{"", 0, false},
	}

	for _, test := range tests {
		l, err := ParseLevel(test.input)
		if (err == nil) != test.valid {
			t.Fatalf("ParseLevel(%q): error %v, expected valid=%t", test.input, err, test.valid)
		}
		if test.valid && l != test.output {
			t.Fatalf("ParseLevel(%q) = %v, expected %v", test.input, l, test.output)
		}
	}
}

func TestLevelStringRoundTrip(t *testing.T) {
	for _, level := range []Level{LevelOff, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace} {
		back, err := ParseLevel(level.String())
		if err != nil {
			t.Fatalf("ParseLevel(%q) errored: %v", level.String(), err)
		}
		if back != level {
			t.Fatalf("round trip of %v gave %v", level, back)
		}
	}
}

// A reload away from the off level must make the logger audible again, not
// leave its output on io.Discard forever.
func TestLevelDecisionApplyReloadFromOff(t *testing.T) {
	logger := log.New()

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	LevelDecision{Level: LevelOff, Source: SourceConfigFile}.Apply(logger)
	logger.Error("must be discarded")
	if buf.Len() != 0 {
		t.Fatalf("off level still wrote output: %q", buf.String())
	}

	// Applying off twice must not remember io.Discard as the output to
	// restore.
	LevelDecision{Level: LevelOff, Source: SourceConfigFile}.Apply(logger)

	LevelDecision{Level: LevelInfo, Source: SourceConfigFile}.Apply(logger)
	logger.Info("audible again")
	if buf.Len() == 0 {
		t.Fatal("logger still discards output after a reload away from off")
	}
}
