// Package build implements CLI actions turning stylesheet definitions into
// CSS files.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"dss/sheetdef"
	"dss/state"
	"dss/style"
)

// StdoutName requests compiled stylesheet to be written to STDOUT.
const StdoutName = "-"

func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	srcs := cmd.Args().Slice()
	if len(srcs) == 0 {
		return errors.New("no stylesheet definitions have been specified")
	}
	for _, def := range cmd.StringSlice("define") {
		if err := env.Define(def); err != nil {
			return err
		}
	}
	env.Overwrite = cmd.Bool("overwrite")
	verify := cmd.Bool("verify") || env.Cfg.Build.Verify
	out := cmd.String("out")

	log.Info("Processing starting", zap.Strings("sources", srcs), zap.String("destination", out), zap.Bool("verify", verify))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, srcs, out, verify, os.Stdout, env, log)
}

// Tree prints rule tree of a single definition, includes combined.
func Tree(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("tree")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no stylesheet definition has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	return dumpTree(src, os.Stdout, env, log)
}

func dumpTree(src string, w io.Writer, env *state.LocalEnv, log *zap.Logger) error {
	senv, err := env.StyleEnv()
	if err != nil {
		return err
	}
	ss, _, err := sheetdef.NewBuilder(senv, log).BuildFile(src)
	if err != nil {
		return fmt.Errorf("unable to build %s: %w", src, err)
	}
	if _, err := io.WriteString(w, ss.Dump()); err != nil {
		return fmt.Errorf("unable to write rule tree: %w", err)
	}
	return nil
}

// process handles the core build logic independently of CLI framework:
// sources are built and combined in order into a single stylesheet which is
// compiled against environment, optionally verified and written out.
func process(ctx context.Context, srcs []string, out string, verify bool, stdout io.Writer, env *state.LocalEnv, log *zap.Logger) error {
	senv, err := env.StyleEnv()
	if err != nil {
		return err
	}

	b := sheetdef.NewBuilder(senv, log)
	ss := style.New(log)

	var name string
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return err
		}
		part, def, err := b.BuildFile(src)
		if err != nil {
			return fmt.Errorf("unable to build %s: %w", src, err)
		}
		if len(name) == 0 {
			name = definitionName(def, src)
		}
		if err := ss.Combine(part); err != nil {
			return fmt.Errorf("unable to combine %s: %w", src, err)
		}
		log.Debug("Definition built", zap.String("source", src), zap.String("name", def.Name), zap.Int("rules", len(part.Rules())))
	}

	css, err := ss.CompileEnv(senv)
	if err != nil {
		return fmt.Errorf("unable to compile stylesheet: %w", err)
	}
	if verify {
		if err := Verify([]byte(css), log); err != nil {
			return err
		}
	}

	header, err := expandHeader(env.Cfg.Build.HeaderTemplate, newHeaderValues(name, b.Sources(), css))
	if err != nil {
		return err
	}
	data := []byte(header + css)

	for _, src := range b.Sources() {
		if err := env.Rpt.StoreCopy(filepath.ToSlash(filepath.Join("sources", filepath.Base(src))), src); err != nil {
			log.Warn("Unable to store source in report", zap.String("source", src), zap.Error(err))
		}
	}

	dst := outputPath(name, out, env)
	if dst == StdoutName {
		env.Rpt.StoreData("output/"+buildFileName(name, env), data)
		_, err = stdout.Write(data)
		return err
	}
	env.Rpt.StoreData("output/"+filepath.Base(dst), data)
	return writeOutput(dst, data, env, log)
}

// definitionName is either declared name or source file name without
// extension.
func definitionName(def *sheetdef.Definition, src string) string {
	if name := strings.TrimSpace(def.Name); len(name) > 0 {
		return name
	}
	return strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
}

func writeOutput(dst string, data []byte, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(dst); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", dst)
		}
		log.Warn("Output file already exists, overwriting", zap.String("file", dst))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	log.Info("Stylesheet written", zap.String("file", dst), zap.Int("bytes", len(data)))
	return nil
}
