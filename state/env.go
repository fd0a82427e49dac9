// Package state defines shared program state.
package state

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"pview/book"
	"pview/config"
	"pview/preprocess"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// stylesheet injected into every document
	Stylesheet string

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:      time.Now(),
		Stylesheet: preprocess.DefaultStylesheet(),
	}
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// LoadStylesheet replaces default stylesheet with configured one. Grammar
// problems are reported but do not prevent stylesheet from being used.
func (e *LocalEnv) LoadStylesheet() error {
	if e.Cfg == nil || e.Cfg.Viewer.StylesheetPath == "" {
		return nil
	}
	path := e.Cfg.Viewer.StylesheetPath

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}
	if problems := preprocess.ValidateStylesheet(data); len(problems) > 0 && e.Log != nil {
		e.Log.Warn("Stylesheet may not be applied as expected", zap.Error(&preprocess.StylesheetError{Source: path, Problems: problems}))
	}
	e.Stylesheet = string(data)
	return nil
}

// StaticRoot returns configured static asset root.
func (e *LocalEnv) StaticRoot() (book.StaticRoot, error) {
	if e.Cfg == nil {
		return book.StaticRoot{}, fmt.Errorf("configuration is not loaded")
	}
	return book.ParseStaticRoot(e.Cfg.Viewer.StaticRoot)
}

// Preprocessor creates document preprocessor according to configuration.
func (e *LocalEnv) Preprocessor(root book.StaticRoot) *preprocess.Preprocessor {
	opts := []preprocess.Option{
		preprocess.WithStylesheet(e.Stylesheet),
		preprocess.WithLogger(e.Log),
	}
	if e.Cfg != nil {
		opts = append(opts, preprocess.WithLinks(!e.Cfg.Viewer.DisableLinks))
	}
	return preprocess.New(root, opts...)
}
