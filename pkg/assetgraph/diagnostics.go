package assetgraph

import (
	"errors"
	"fmt"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
)

// Level is the severity of a diagnostic.
type Level int

const (
	LevelWarn Level = iota
	LevelInfo
)

func (l Level) String() string {
	if l == LevelInfo {
		return "info"
	}
	return "warn"
}

// Diagnostic is a recorded problem or notice. Content errors of graph
// members (failed loads, parse and syntax errors) become warnings instead
// of being returned.
type Diagnostic struct {
	Level  Level
	Err    error
	Code   agerrors.Code
	Asset  string // offending asset, if known
	Line   int    // 1-based line inside the asset, 0 if unknown
	Status int    // HTTP status of a failed load, 0 if not applicable
}

// Message returns the error text without the code prefix.
func (d Diagnostic) Message() string {
	return agerrors.UserMessage(d.Err)
}

func (d Diagnostic) String() string {
	if d.Code == "" {
		return fmt.Sprintf("%s: %v", d.Level, d.Err)
	}
	return fmt.Sprintf("%s %s: %v", d.Level, d.Code, d.Err)
}

type diagnostics struct {
	records []Diagnostic
	onWarn  []func(Diagnostic)
	onInfo  []func(Diagnostic)
}

// Warn records a warning, logs it and notifies subscribers.
func (g *Graph) Warn(err error) {
	if err == nil {
		return
	}
	d := newDiagnostic(LevelWarn, err)
	g.diag.records = append(g.diag.records, d)
	g.logger.Warn(agerrors.UserMessage(err), d.keyvals()...)
	for _, fn := range g.diag.onWarn {
		fn(d)
	}
}

// Info records a notice, logs it and notifies subscribers.
func (g *Graph) Info(err error) {
	if err == nil {
		return
	}
	d := newDiagnostic(LevelInfo, err)
	g.diag.records = append(g.diag.records, d)
	g.logger.Info(agerrors.UserMessage(err), d.keyvals()...)
	for _, fn := range g.diag.onInfo {
		fn(d)
	}
}

// OnWarn subscribes fn to warnings.
func (g *Graph) OnWarn(fn func(Diagnostic)) { g.diag.onWarn = append(g.diag.onWarn, fn) }

// OnInfo subscribes fn to notices.
func (g *Graph) OnInfo(fn func(Diagnostic)) { g.diag.onInfo = append(g.diag.onInfo, fn) }

// Diagnostics returns every recorded diagnostic in order.
func (g *Graph) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), g.diag.records...)
}

// Warnings returns the recorded warnings.
func (g *Graph) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range g.diag.records {
		if d.Level == LevelWarn {
			out = append(out, d)
		}
	}
	return out
}

func newDiagnostic(level Level, err error) Diagnostic {
	d := Diagnostic{Level: level, Err: err}
	var e *agerrors.Error
	if errors.As(err, &e) {
		d.Code = e.Code
		d.Asset = e.Asset
		d.Line = e.Line
		d.Status = e.Status
	}
	var le *agerrors.LoadError
	if errors.As(err, &le) {
		if d.Code == "" {
			d.Code = agerrors.ErrCodeLoad
		}
		if d.Asset == "" {
			d.Asset = le.URL
		}
		if d.Status == 0 {
			d.Status = le.Status
		}
	}
	return d
}

func (d Diagnostic) keyvals() []any {
	kv := make([]any, 0, 8)
	if d.Code != "" {
		kv = append(kv, "code", d.Code)
	}
	if d.Asset != "" {
		kv = append(kv, "asset", d.Asset)
	}
	if d.Line > 0 {
		kv = append(kv, "line", d.Line)
	}
	if d.Status > 0 {
		kv = append(kv, "status", d.Status)
	}
	return kv
}
