// Package prompt renders ego prompts that carry template markers. Auxiliary
// parameters become template variables, so a single ego can serve many
// call sites. This lives in internal to avoid committing to public API
// stability prematurely.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Render replaces template variables using Go's text/template package. Plain
// text without markers passes through untouched. Referencing an unset
// parameter is an error; callers fall back to the raw text rather than
// sending a half-rendered prompt to the endpoint.
func Render(text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"default": func(defaultVal any, val any) any {
			if val == nil || val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join": func(sep string, items []any) string {
			strItems := make([]string, len(items))
			for i, item := range items {
				strItems[i] = fmt.Sprintf("%v", item)
			}
			return strings.Join(strItems, sep)
		},
	}).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}

	// Unset parameters render as "<no value>" under missingkey=zero; treat
	// that as an error instead of letting it reach the endpoint.
	out := buf.String()
	if strings.Contains(out, "<no value>") {
		return "", fmt.Errorf("template references an unset parameter")
	}

	return out, nil
}
