// Package state defines shared program state.
package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"dss/config"
	"dss/style"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by build subcommand
	Defines   map[string]string
	Overwrite bool

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

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Define records "name=value" pair, later definitions win.
func (e *LocalEnv) Define(def string) error {
	name, value, ok := strings.Cut(def, "=")
	name = strings.TrimSpace(name)
	if !ok || len(name) == 0 {
		return fmt.Errorf("malformed definition %q, expected name=value", def)
	}
	if e.Defines == nil {
		e.Defines = make(map[string]string)
	}
	e.Defines[name] = value
	return nil
}

// StyleEnv returns environment stylesheet conditions are evaluated against:
// configured viewport and variables overlaid with command line definitions.
func (e *LocalEnv) StyleEnv() (style.Env, error) {
	if e.Cfg == nil {
		return style.Env{}, errors.New("configuration is not loaded")
	}
	vars := make(map[string]string, len(e.Cfg.Build.Env.Vars)+len(e.Defines))
	maps.Copy(vars, e.Cfg.Build.Env.Vars)
	maps.Copy(vars, e.Defines)
	return style.Env{
		ViewportWidth: e.Cfg.Build.Env.ViewportWidth,
		Now:           time.Now(),
		Vars:          vars,
	}, nil
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
