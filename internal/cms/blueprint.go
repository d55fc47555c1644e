package cms

import "folio/internal/txt"

// Blueprint is the schema of a model as far as the content core needs it.
// Field layout and form rendering live elsewhere.
type Blueprint struct {
	Name  string
	Title string

	// Options override role permissions per action for models using this
	// blueprint, e.g. "delete: false".
	Options map[string]Option

	Fields []Field

	// Templates lists the page templates allowed for children. A page can
	// switch between the templates its parent allows.
	Templates []string
}

// Field is one blueprint field.
type Field struct {
	Name      string
	Type      string
	Translate bool
}

// Option is a per-action switch, either a plain bool or a per-role map
// where "*" sets the fallback.
type Option struct {
	Default bool
	Roles   map[string]bool
}

// Allows reports whether the option permits the role.
func (o Option) Allows(role string) bool {
	if v, ok := o.Roles[role]; ok {
		return v
	}
	if v, ok := o.Roles["*"]; ok {
		return v
	}
	if o.Roles != nil {
		return false
	}
	return o.Default
}

// DefaultBlueprint is used when no schema exists for a model.
func DefaultBlueprint(name string) *Blueprint {
	return &Blueprint{Name: name, Title: name}
}

// Field returns the named field or nil. Names compare in normalized form.
func (b *Blueprint) Field(name string) *Field {
	name = txt.NormalizeKey(name)
	for i := range b.Fields {
		if txt.NormalizeKey(b.Fields[i].Name) == name {
			return &b.Fields[i]
		}
	}
	return nil
}

// Untranslatable returns the names of fields marked translate: false.
func (b *Blueprint) Untranslatable() []string {
	var names []string
	for _, f := range b.Fields {
		if !f.Translate {
			names = append(names, f.Name)
		}
	}
	return names
}

// Role is a named set of permissions users can be assigned.
type Role struct {
	Name        string
	Title       string
	Permissions *Permissions
}

// IsAdmin reports whether this is the built-in admin role.
func (r *Role) IsAdmin() bool { return r.Name == AdminRole }

// AdminRole is always present and can do everything.
const AdminRole = "admin"

// NewAdminRole returns the built-in admin role.
func NewAdminRole() *Role {
	p, _ := NewPermissions(true)
	return &Role{Name: AdminRole, Title: "Admin", Permissions: p}
}
