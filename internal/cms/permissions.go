package cms

import (
	"fmt"
	"maps"
)

// permissionActions lists every category and its actions.
var permissionActions = map[string][]string{
	"access":    {"account", "languages", "panel", "site", "system", "users"},
	"files":     {"access", "changeName", "changeTemplate", "create", "delete", "read", "replace", "sort", "update"},
	"languages": {"create", "delete", "update"},
	"pages":     {"access", "changeSlug", "changeStatus", "changeTemplate", "changeTitle", "create", "delete", "duplicate", "preview", "read", "sort", "update"},
	"site":      {"changeTitle", "update"},
	"user":      {"changeEmail", "changeLanguage", "changeName", "changePassword", "changeRole", "delete", "update"},
	"users":     {"access", "changeEmail", "changeLanguage", "changeName", "changePassword", "changeRole", "create", "delete", "update"},
}

// permissionAliases fold alternative action names into their canonical one.
var permissionAliases = map[string]string{
	"edit": "update",
	"save": "update",
}

func canonicalAction(action string) string {
	if a, ok := permissionAliases[action]; ok {
		return a
	}
	return action
}

// Permissions is a category -> action -> allowed table.
type Permissions struct {
	actions map[string]map[string]bool
}

// NewPermissions builds a table from role settings as decoded from YAML:
//
//	nil or true or "*"  everything allowed
//	false               everything denied
//	map                 per category: bool, "*", or action map
//
// Action maps may use "*" for the rest of the category and may name
// aliases ("edit", "save") which fold into "update".
func NewPermissions(settings any) (*Permissions, error) {
	p := &Permissions{actions: make(map[string]map[string]bool)}

	switch s := settings.(type) {
	case nil:
		p.setAll(true)
	case bool:
		p.setAll(s)
	case string:
		if s != "*" {
			return nil, invalidArgument("permissions.invalid", map[string]any{"value": s})
		}
		p.setAll(true)
	case map[string]any:
		p.setAll(true)
		if wildcard, ok := s["*"]; ok {
			v, err := permissionBool(wildcard)
			if err != nil {
				return nil, err
			}
			p.setAll(v)
		}
		for category, value := range s {
			if category == "*" {
				continue
			}
			if err := p.setCategory(category, value); err != nil {
				return nil, err
			}
		}
	default:
		return nil, invalidArgument("permissions.invalid", map[string]any{"value": fmt.Sprint(settings)})
	}

	return p, nil
}

func (p *Permissions) setAll(v bool) {
	for category, actions := range permissionActions {
		m := make(map[string]bool, len(actions))
		for _, a := range actions {
			m[a] = v
		}
		p.actions[category] = m
	}
}

func (p *Permissions) setCategory(category string, value any) error {
	actions, ok := p.actions[category]
	if !ok {
		return invalidArgument("permissions.category.invalid", map[string]any{"category": category})
	}

	if m, ok := value.(map[string]any); ok {
		if wildcard, ok := m["*"]; ok {
			v, err := permissionBool(wildcard)
			if err != nil {
				return err
			}
			for a := range actions {
				actions[a] = v
			}
		}
		for action, raw := range m {
			if action == "*" {
				continue
			}
			v, err := permissionBool(raw)
			if err != nil {
				return err
			}
			action = canonicalAction(action)
			if _, ok := actions[action]; !ok {
				return invalidArgument("permissions.action.invalid", map[string]any{"category": category, "action": action})
			}
			actions[action] = v
		}
		return nil
	}

	v, err := permissionBool(value)
	if err != nil {
		return err
	}
	for a := range actions {
		actions[a] = v
	}
	return nil
}

func permissionBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		if b == "*" {
			return true, nil
		}
	}
	return false, invalidArgument("permissions.invalid", map[string]any{"value": fmt.Sprint(v)})
}

// For reports whether the action is allowed in the category. Unknown
// categories and actions are denied.
func (p *Permissions) For(category, action string) bool {
	return p.actions[category][canonicalAction(action)]
}

// Map returns a copy of the full table.
func (p *Permissions) Map() map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(p.actions))
	for c, actions := range p.actions {
		out[c] = maps.Clone(actions)
	}
	return out
}

// permissionCategory returns the category checked for an action on m.
func permissionCategory(m Model) string {
	switch v := m.(type) {
	case *Page:
		return "pages"
	case *File:
		return "files"
	case *Site:
		return "site"
	case *User:
		if cur := v.app.User(); cur != nil && cur.ID() == v.ID() {
			return "user"
		}
		return "users"
	}
	return ""
}

// can reports whether the current actor may run action on m: the system
// actor always may; otherwise the role's permissions and the model's
// blueprint options must both allow it.
func can(m Model, action string) bool {
	app := m.App()
	if app.isSystem() {
		return true
	}
	user := app.User()
	if user == nil {
		return false
	}
	role, err := user.Role()
	if err != nil || role == nil {
		return false
	}

	if !role.Permissions.For(permissionCategory(m), action) {
		return false
	}

	bp, err := m.blueprint()
	if err != nil {
		return false
	}
	if opt, ok := bp.Options[canonicalAction(action)]; ok {
		return opt.Allows(role.Name)
	}
	return true
}
