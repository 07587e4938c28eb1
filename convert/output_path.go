package convert

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"stylec/config"
	"stylec/state"
)

// buildOutputPath returns path of a compile artifact with extension ext under
// dst. Default name is "<source>.<platform>", configured template may
// produce a different name and put it into subdirectories.
func buildOutputPath(dst, ext string, values Values, env *state.LocalEnv) string {
	defaultFile := cleanPathSegment(values.Source+"."+values.Platform, env) + ext

	nameTemplate := env.Cfg.Compile.OutputNameTemplate
	if nameTemplate == "" {
		return filepath.Join(dst, defaultFile)
	}

	expanded, err := expandTemplate(config.OutputNameTemplateFieldName, nameTemplate, values)
	if err != nil || strings.TrimSpace(expanded) == "" {
		env.Log.Warn("Unable to prepare output filename, using default", zap.String("template", nameTemplate), zap.Error(err))
		return filepath.Join(dst, defaultFile)
	}
	return assemblePathWithSubdirs(dst, filepath.FromSlash(expanded), ext, env)
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output
// path, cleaning and transliterating segments as requested.
func assemblePathWithSubdirs(outDir, expandedName, ext string, env *state.LocalEnv) string {
	segments := splitPath(expandedName)
	if len(segments) == 0 {
		return outDir
	}

	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, outDir)
	for _, s := range segments[:len(segments)-1] {
		parts = append(parts, cleanPathSegment(s, env))
	}
	parts = append(parts, cleanPathSegment(segments[len(segments)-1], env)+ext)
	return filepath.Join(parts...)
}

func splitPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		if tail != "." && tail != ".." {
			segments = slices.Insert(segments, 0, tail)
		}
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Compile.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
