// Package blueprint loads model schemas and roles from YAML files.
//
// Layout below the blueprint root:
//
//	site.yml
//	pages/{template}.yml
//	files/{template}.yml
//	users/{role}.yml
//
// User blueprints double as role definitions.
package blueprint

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"folio/internal/cms"
	"folio/internal/txt"
)

// Loader reads blueprints from a filesystem and keeps them once parsed.
// Safe for concurrent use.
type Loader struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]*cms.Blueprint
	roles []*cms.Role
}

// NewLoader creates a Loader reading from fsys.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys, cache: make(map[string]*cms.Blueprint)}
}

// document is the YAML shape of one blueprint file.
type document struct {
	Title       string               `yaml:"title"`
	Options     map[string]yaml.Node `yaml:"options"`
	Fields      yaml.Node            `yaml:"fields"`
	Templates   []string             `yaml:"templates"`
	Permissions any                  `yaml:"permissions"`
}

type fieldDoc struct {
	Type      string `yaml:"type"`
	Translate *bool  `yaml:"translate"`
}

// Blueprint returns the schema for kind and name. A missing file falls
// back to the "default" blueprint of the kind, then to nil.
func (l *Loader) Blueprint(kind cms.Kind, name string) (*cms.Blueprint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file := filename(kind, name)
	if bp, ok := l.cache[file]; ok {
		return bp, nil
	}

	bp, _, err := l.load(file, name)
	if err != nil {
		return nil, err
	}
	if bp == nil && kind != cms.KindSite && name != "default" {
		bp, _, err = l.load(filename(kind, "default"), name)
		if err != nil {
			return nil, err
		}
	}
	l.cache[file] = bp
	return bp, nil
}

// Roles returns a role per user blueprint. The admin role is always
// first; an admin.yml may rename it but never restrict it.
func (l *Loader) Roles() ([]*cms.Role, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.roles != nil {
		return l.roles, nil
	}

	admin := cms.NewAdminRole()
	roles := []*cms.Role{admin}

	entries, err := fs.ReadDir(l.fsys, "users")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading user blueprints: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "default" {
			continue
		}
		bp, doc, err := l.load(path.Join("users", name+".yml"), name)
		if err != nil {
			return nil, err
		}
		if bp == nil {
			bp, doc, err = l.load(path.Join("users", name+".yaml"), name)
			if err != nil {
				return nil, err
			}
		}
		if name == cms.AdminRole {
			if bp != nil && bp.Title != name {
				admin.Title = bp.Title
			}
			continue
		}

		perms, err := cms.NewPermissions(doc.Permissions)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
		roles = append(roles, &cms.Role{Name: name, Title: bp.Title, Permissions: perms})
	}

	l.roles = roles
	return roles, nil
}

// load parses one file. It returns nil, nil, nil when the file does not exist.
func (l *Loader) load(file, name string) (*cms.Blueprint, *document, error) {
	data, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading blueprint %s: %w", file, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing blueprint %s: %w", file, err)
	}

	bp := &cms.Blueprint{
		Name:      name,
		Title:     doc.Title,
		Templates: doc.Templates,
		Options:   make(map[string]cms.Option, len(doc.Options)),
	}
	if bp.Title == "" {
		bp.Title = name
	}

	for action, node := range doc.Options {
		opt, err := parseOption(&node)
		if err != nil {
			return nil, nil, fmt.Errorf("blueprint %s option %q: %w", file, action, err)
		}
		bp.Options[action] = opt
	}

	fields, err := parseFields(&doc.Fields)
	if err != nil {
		return nil, nil, fmt.Errorf("blueprint %s: %w", file, err)
	}
	bp.Fields = fields

	return bp, &doc, nil
}

// parseOption accepts a bool or a role -> bool map.
func parseOption(node *yaml.Node) (cms.Option, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var v bool
		if err := node.Decode(&v); err != nil {
			return cms.Option{}, err
		}
		return cms.Option{Default: v}, nil
	case yaml.MappingNode:
		var roles map[string]bool
		if err := node.Decode(&roles); err != nil {
			return cms.Option{}, err
		}
		return cms.Option{Roles: roles}, nil
	}
	return cms.Option{}, fmt.Errorf("expected bool or map")
}

// parseFields keeps the declaration order of the fields mapping.
func parseFields(node *yaml.Node) ([]cms.Field, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("fields must be a mapping")
	}

	fields := make([]cms.Field, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := txt.NormalizeKey(node.Content[i].Value)

		var fd fieldDoc
		if node.Content[i+1].Kind == yaml.MappingNode {
			if err := node.Content[i+1].Decode(&fd); err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
		}
		translate := true
		if fd.Translate != nil {
			translate = *fd.Translate
		}
		if fd.Type == "" {
			fd.Type = "text"
		}
		fields = append(fields, cms.Field{Name: name, Type: fd.Type, Translate: translate})
	}
	return fields, nil
}

func filename(kind cms.Kind, name string) string {
	switch kind {
	case cms.KindSite:
		return "site.yml"
	case cms.KindPage:
		return path.Join("pages", name+".yml")
	case cms.KindFile:
		return path.Join("files", name+".yml")
	case cms.KindUser:
		return path.Join("users", name+".yml")
	}
	return path.Join(string(kind), name+".yml")
}

func isYAML(name string) bool {
	ext := path.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}

// Compile-time check that Loader implements cms.Blueprints.
var _ cms.Blueprints = (*Loader)(nil)
