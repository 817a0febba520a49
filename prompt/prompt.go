package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// embeddedPrompts holds the default stage prompts shipped in the binary.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Loader loads and renders prompt templates. Filesystem prompts override the
// embedded defaults, so a project can tune a stage's instructions without
// rebuilding.
type Loader struct {
	dirs    []string
	cache   map[string]*template.Template
	funcMap template.FuncMap
}

// NewLoader creates a loader rooted at projectDir. Search order:
//  1. projectDir/.planflow/prompts/
//  2. projectDir/prompts/
//  3. embedded defaults
func NewLoader(projectDir string) *Loader {
	return &Loader{
		dirs: []string{
			filepath.Join(projectDir, ".planflow", "prompts"),
			filepath.Join(projectDir, "prompts"),
		},
		cache:   make(map[string]*template.Template),
		funcMap: defaultPromptFuncMap(),
	}
}

// AddSearchDir prepends a directory to the search order.
func (l *Loader) AddSearchDir(dir string) {
	l.dirs = append([]string{dir}, l.dirs...)
}

// AddFunc registers a custom template function.
func (l *Loader) AddFunc(name string, fn any) {
	l.funcMap[name] = fn
}

// Load loads a prompt by name without variable substitution.
func (l *Loader) Load(name string) (string, error) {
	return l.LoadWithVars(name, nil)
}

// LoadWithVars loads and renders a prompt with template variables.
func (l *Loader) LoadWithVars(name string, vars map[string]any) (string, error) {
	tmpl, err := l.getTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Exists reports whether a prompt is available under name.
func (l *Loader) Exists(name string) bool {
	_, err := l.loadRaw(name)
	return err == nil
}

// List returns every available prompt name, filesystem and embedded.
func (l *Loader) List() ([]string, error) {
	prompts := make(map[string]bool)

	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
				prompts[strings.TrimSuffix(entry.Name(), ".txt")] = true
			}
		}
	}

	entries, err := embeddedPrompts.ReadDir("prompts")
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
				prompts[strings.TrimSuffix(entry.Name(), ".txt")] = true
			}
		}
	}

	result := make([]string, 0, len(prompts))
	for name := range prompts {
		result = append(result, name)
	}
	return result, nil
}

func (l *Loader) getTemplate(name string) (*template.Template, error) {
	if tmpl, ok := l.cache[name]; ok {
		return tmpl, nil
	}

	content, err := l.loadRaw(name)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(name).Funcs(l.funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}

	l.cache[name] = tmpl
	return tmpl, nil
}

func (l *Loader) loadRaw(name string) (string, error) {
	filename := name + ".txt"

	for _, dir := range l.dirs {
		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err == nil {
			return string(data), nil
		}
	}

	data, err := embeddedPrompts.ReadFile("prompts/" + filename)
	if err != nil {
		return "", fmt.Errorf("prompt not found: %s", name)
	}
	return string(data), nil
}

// ClearCache drops cached templates so edited files are re-read.
func (l *Loader) ClearCache() {
	l.cache = make(map[string]*template.Template)
}

func defaultPromptFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":     strings.Join,
		"split":    strings.Split,
		"trim":     strings.TrimSpace,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    cases.Title(language.English).String,
		"contains": strings.Contains,
		"replace":  strings.ReplaceAll,
		"indent":   indentString,
		"default":  defaultValue,
		"quote":    quoteString,
	}
}

func indentString(indent int, s string) string {
	if s == "" {
		return s
	}
	prefix := strings.Repeat(" ", indent)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func defaultValue(defaultVal, value any) any {
	if value == nil {
		return defaultVal
	}
	if s, ok := value.(string); ok && s == "" {
		return defaultVal
	}
	return value
}

func quoteString(s string) string {
	return fmt.Sprintf("%q", s)
}

// Builder assembles user prompts programmatically: brief text, upstream
// stage outputs as JSON blocks, instructions.
type Builder struct {
	parts []string
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends raw text.
func (b *Builder) Add(text string) *Builder {
	b.parts = append(b.parts, text)
	return b
}

// AddSection appends a markdown section with a header.
func (b *Builder) AddSection(header, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("## %s\n\n%s", header, content))
	return b
}

// AddList appends a bulleted list under an optional header.
func (b *Builder) AddList(header string, items []string) *Builder {
	var buf strings.Builder
	if header != "" {
		buf.WriteString("## ")
		buf.WriteString(header)
		buf.WriteString("\n\n")
	}
	for _, item := range items {
		buf.WriteString("- ")
		buf.WriteString(item)
		buf.WriteString("\n")
	}
	b.parts = append(b.parts, buf.String())
	return b
}

// AddJSON appends a value as an indented JSON block under a header. Values
// that fail to marshal render as an empty object; upstream outputs are
// always marshalable, so this is a formatting convenience, not validation.
func (b *Builder) AddJSON(header string, v any) *Builder {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	b.parts = append(b.parts, fmt.Sprintf("## %s\n\n```json\n%s\n```", header, data))
	return b
}

// Build joins the accumulated parts.
func (b *Builder) Build() string {
	return strings.Join(b.parts, "\n\n")
}

// Clear resets the builder.
func (b *Builder) Clear() {
	b.parts = nil
}
