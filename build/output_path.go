package build

import (
	"path/filepath"

	"github.com/gosimple/slug"

	"dss/config"
	"dss/state"
)

// outputPath returns destination for compiled stylesheet. Explicit
// destination is used as is, otherwise file name is derived from stylesheet
// name, cleaned and if requested transliterated, under configured output
// directory.
func outputPath(name, out string, env *state.LocalEnv) string {
	if len(out) > 0 {
		return out
	}
	return filepath.Join(env.Cfg.Build.OutputDir, buildFileName(name, env))
}

func buildFileName(name string, env *state.LocalEnv) string {
	if env.Cfg.Build.FileNameTransliterate {
		name = slug.Make(name)
	}
	return config.SanitizeFileName(name, "stylesheet") + ".css"
}
