package logging

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RunLogger collects the identity, configuration and feature switches of a
// single CLI run, then emits them as one structured zerolog event. Reading
// that one line is enough to know how a run was configured.
type RunLogger struct {
	name     string
	runID    string
	started  time.Time
	dirs     map[string]string
	features map[string]bool
	config   map[string]string
}

// NewRunLogger creates a RunLogger for the given command name
// (e.g. "photo-process", "photo-select").
func NewRunLogger(name string) *RunLogger {
	return &RunLogger{
		name:     name,
		started:  time.Now(),
		dirs:     make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// RunID sets the run identifier attached to every log line of the run.
func (s *RunLogger) RunID(id string) *RunLogger {
	s.runID = id
	return s
}

// Dir registers a directory the run reads from or writes to.
func (s *RunLogger) Dir(label, path string) *RunLogger {
	s.dirs[label] = path
	return s
}

// Feature registers a boolean switch (e.g. "strict", "dryRun").
func (s *RunLogger) Feature(name string, enabled bool) *RunLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *RunLogger) Config(key, value string) *RunLogger {
	s.config[key] = value
	return s
}

// Configs registers several configuration pairs at once.
func (s *RunLogger) Configs(m map[string]string) *RunLogger {
	for k, v := range m {
		s.config[k] = v
	}
	return s
}

// Log emits a single structured INFO log event with all collected information.
func (s *RunLogger) Log() {
	evt := log.Info()

	runDict := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Time("started", s.started)
	if s.runID != "" {
		runDict = runDict.Str("runId", s.runID)
	}
	evt = evt.Dict("run", runDict)

	if len(s.dirs) > 0 {
		evt = evt.Dict("dirs", dictFromMap(s.dirs))
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}

	evt.Msg("Run configured")
}

// dictFromMap converts a map[string]string into a zerolog.Event (Dict).
func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
