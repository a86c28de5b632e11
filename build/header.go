package build

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"dss/config"
	"dss/misc"
)

// HeaderValues holds variables available to header template.
type HeaderValues struct {
	Name    string
	Sources []string
	Version string
	// Hash is a short digest of compiled stylesheet, header excluded.
	Hash string
}

func newHeaderValues(name string, sources []string, css string) HeaderValues {
	bases := make([]string, 0, len(sources))
	for _, src := range sources {
		bases = append(bases, filepath.Base(src))
	}
	sum := sha256.Sum256([]byte(css))
	return HeaderValues{
		Name:    name,
		Sources: bases,
		Version: misc.GetVersion(),
		Hash:    hex.EncodeToString(sum[:6]),
	}
}

// expandHeader returns expanded header followed by a new line, empty
// template produces no header.
func expandHeader(field string, values HeaderValues) (string, error) {
	if len(strings.TrimSpace(field)) == 0 {
		return "", nil
	}
	tmpl, err := template.New(string(config.HeaderTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse header template: %w", err)
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("unable to expand header template: %w", err)
	}
	header := buf.String()
	if len(header) > 0 && !strings.HasSuffix(header, "\n") {
		header += "\n"
	}
	return header, nil
}
