// Package render expands client-supplied templates against an
// Environment's config_data using the Handlebars-style raymond engine.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mbleigh/raymond"

	"github.com/cloudshipai/gitconfd/internal/materializer"
)

// variablePattern matches bare {{identifier.path}} expressions; block,
// partial, and comment tags (#, /, >, !) all fail to match immediately
// after the opening braces and are left alone.
var variablePattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*\}\}`)

// Render expands template against env's config_data. raymond has no
// built-in strict mode, so when strict is true Render pre-scans the
// template for bare variable references and fails with BadTemplate if
// any path is absent from config_data, before raymond ever runs. In
// lenient mode no scan happens and raymond's own "missing renders empty"
// behavior applies unmodified.
func Render(template string, env materializer.Environment, strict bool) (string, error) {
	if strict {
		if missing, ok := firstMissingVariable(template, env.ConfigData); !ok {
			return "", materializer.Wrap(materializer.ErrBadTemplate, "render.Render",
				fmt.Errorf("missing variable %q", missing))
		}
	}

	out, err := raymond.Render(template, env.ConfigData)
	if err != nil {
		return "", materializer.Wrap(materializer.ErrBadTemplate, "render.Render", err)
	}
	return out, nil
}

func firstMissingVariable(template string, data map[string]interface{}) (string, bool) {
	for _, match := range variablePattern.FindAllStringSubmatch(template, -1) {
		path := match[1]
		if path == "this" || path == "else" {
			continue
		}
		if _, ok := lookup(data, path); !ok {
			return path, false
		}
	}
	return "", true
}

func lookup(data map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
