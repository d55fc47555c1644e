package cms

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// credentialsFile holds the account data of a user next to its content.
const credentialsFile = "user.yml"

var validate = validator.New()

// credentials is the account data stored in user.yml.
type credentials struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name,omitempty"`
	Role     string `yaml:"role"`
	Language string `yaml:"language,omitempty"`
}

// User is an account stored in "{accounts root}/{id}". Account data lives
// in user.yml, custom fields in the user content file.
type User struct {
	app   *App
	id    string
	creds *credentials
	st    *contentState
	files Files
}

func (u *User) Kind() Kind   { return KindUser }
func (u *User) ID() string   { return u.id }
func (u *User) App() *App    { return u.app }
func (u *User) root() string { return filepath.Join(u.app.opts.AccountsRoot, u.id) }

func (u *User) Content() (*Content, error)              { return contentOf(u, "") }
func (u *User) ContentIn(code string) (*Content, error) { return contentOf(u, code) }
func (u *User) Translations() *Translations             { return translationsOf(u) }
func (u *User) UUID() (*UUID, error)                    { return uuidFor(u) }

func (u *User) contentFileDirectory() string { return u.root() }
func (u *User) contentFileName() string      { return "user" }
func (u *User) state() *contentState         { return u.st }

func (u *User) blueprint() (*Blueprint, error) {
	return u.app.blueprint(KindUser, u.RoleName())
}

func (u *User) validate(action string, args Args) error {
	return userRules(u.app, action, args)
}

func (u *User) afterArgs(action string, st ModelState) Args {
	return userAfterArgs(action, st)
}

func (u *User) Email() string    { return u.creds.Email }
func (u *User) Name() string     { return u.creds.Name }
func (u *User) RoleName() string { return u.creds.Role }
func (u *User) Language() string { return u.creds.Language }

// Role returns the role of the user, nil if it is not configured.
func (u *User) Role() (*Role, error) {
	return u.app.Role(u.creds.Role)
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.creds.Role == AdminRole }

// Files returns the files stored in the account directory.
func (u *User) Files() (Files, error) {
	if u.files == nil {
		files, err := loadFiles(u.app, u)
		if err != nil {
			return nil, err
		}
		u.files = files
	}
	return u.files, nil
}

func (u *User) purge() { u.files = nil }

func (u *User) clone() *User {
	creds := *u.creds
	return &User{app: u.app, id: u.id, creds: &creds, st: &contentState{}}
}

// Users is the list of all accounts.
type Users []*User

// Find returns the user with the given id or email, or nil.
func (us Users) Find(idOrEmail string) *User {
	for _, u := range us {
		if u.id == idOrEmail || strings.EqualFold(u.creds.Email, idOrEmail) {
			return u
		}
	}
	return nil
}

// Admins returns the users with the admin role.
func (us Users) Admins() Users {
	var out Users
	for _, u := range us {
		if u.IsAdmin() {
			out = append(out, u)
		}
	}
	return out
}

func loadUsers(app *App) (Users, error) {
	users := Users{}
	if app.opts.AccountsRoot == "" {
		return users, nil
	}
	listing, err := app.inventory.Scan(app.opts.AccountsRoot)
	if err != nil {
		return nil, err
	}
	for _, c := range listing.Children {
		creds, err := readCredentials(filepath.Join(c.Root, credentialsFile))
		if err != nil {
			return nil, err
		}
		if creds == nil {
			continue
		}
		users = append(users, &User{app: app, id: c.Dirname, creds: creds, st: &contentState{}})
	}
	return users, nil
}

// readCredentials returns nil, nil when the file does not exist.
func readCredentials(path string) (*credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	var c credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &c, nil
}

func (u *User) writeCredentials() error {
	data, err := yaml.Marshal(u.creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	path := filepath.Join(u.root(), credentialsFile)
	unlock := u.app.lockPath(path)
	defer unlock()
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// UserProps describes a user to create.
type UserProps struct {
	ID       string
	Email    string
	Name     string
	Role     string
	Language string
	Content  Data
}

// CreateUser creates an account. The first user becomes admin when no
// role is given.
func CreateUser(app *App, props UserProps) (*User, error) {
	users, err := app.Users()
	if err != nil {
		return nil, err
	}

	id := props.ID
	if id == "" {
		id = shortID(app.idgen.New())
	}
	role := props.Role
	if role == "" && len(users) == 0 {
		role = AdminRole
	}

	u := &User{
		app: app,
		id:  id,
		creds: &credentials{
			Email:    strings.ToLower(strings.TrimSpace(props.Email)),
			Name:     strings.TrimSpace(props.Name),
			Role:     role,
			Language: props.Language,
		},
		st: &contentState{},
	}

	args := Args{
		{Name: "user", Value: u},
		{Name: "input", Value: props},
	}
	return commit(u, "create", args, func(args Args) (*User, error) {
		user := args.Value("user").(*User)
		input, _ := args.Value("input").(UserProps)

		if err := os.MkdirAll(user.root(), 0o755); err != nil {
			return nil, fmt.Errorf("creating account directory: %w", err)
		}
		if err := user.writeCredentials(); err != nil {
			return nil, err
		}
		if len(input.Content) > 0 {
			if err := saveContent(user, input.Content, app.defaultCode(), true); err != nil {
				return nil, err
			}
		}

		app.purgeUsers()
		return user, nil
	})
}

// shortID strips dashes from a generated id and keeps eight characters.
func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// Update merges values into the user content of the given language.
func (u *User) Update(values Data, languageCode string) (*User, error) {
	values = values.normalize()
	args := Args{
		{Name: "user", Value: u},
		{Name: "values", Value: values},
		{Name: "strings", Value: values},
		{Name: "languageCode", Value: languageCode},
	}
	return commit(u, "update", args, func(args Args) (*User, error) {
		next := args.Value("user").(*User).clone()
		if err := saveContent(next, args.Value("values").(Data), args.String("languageCode"), false); err != nil {
			return nil, err
		}
		return u.app.replaceUser(next), nil
	})
}

// ChangeEmail sets a new email address.
func (u *User) ChangeEmail(email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return u.changeCredential("changeEmail", "email", email, func(c *credentials, v string) { c.Email = v })
}

// ChangeRole assigns another role.
func (u *User) ChangeRole(role string) (*User, error) {
	return u.changeCredential("changeRole", "role", role, func(c *credentials, v string) { c.Role = v })
}

// ChangeName sets the display name.
func (u *User) ChangeName(name string) (*User, error) {
	name = strings.TrimSpace(name)
	return u.changeCredential("changeName", "name", name, func(c *credentials, v string) { c.Name = v })
}

// ChangeLanguage sets the interface language of the user.
func (u *User) ChangeLanguage(language string) (*User, error) {
	return u.changeCredential("changeLanguage", "language", language, func(c *credentials, v string) { c.Language = v })
}

func (u *User) changeCredential(action, arg, value string, set func(*credentials, string)) (*User, error) {
	args := Args{
		{Name: "user", Value: u},
		{Name: arg, Value: value},
	}
	return commit(u, action, args, func(args Args) (*User, error) {
		next := args.Value("user").(*User).clone()
		set(next.creds, args.String(arg))
		if err := next.writeCredentials(); err != nil {
			return nil, err
		}
		return u.app.replaceUser(next), nil
	})
}

// Delete removes the account directory with its files.
func (u *User) Delete() (bool, error) {
	args := Args{{Name: "user", Value: u}}
	return commit(u, "delete", args, func(args Args) (bool, error) {
		user := args.Value("user").(*User)

		if err := clearFileEntries(user); err != nil {
			return false, err
		}
		if err := os.RemoveAll(user.root()); err != nil {
			return false, fmt.Errorf("removing account %q: %w", user.id, err)
		}

		u.app.purgeUsers()
		if cur := u.app.User(); cur != nil && cur.id == user.id {
			u.app.SetUser(nil)
		}
		return true, nil
	})
}

// replaceUser drops the cached user list and keeps the current actor in
// sync with its latest state.
func (a *App) replaceUser(u *User) *User {
	a.purgeUsers()
	if cur := a.user; cur != nil && cur.id == u.id {
		a.user = u
	}
	return u
}

func userRules(app *App, action string, args Args) error {
	user, ok := args.Value("user").(*User)
	if !ok || user == nil {
		return invalidArgument("user.invalid", nil)
	}
	users, err := app.Users()
	if err != nil {
		return err
	}

	switch action {
	case "create":
		// The very first account can be created by anyone.
		if len(users) > 0 && !can(user, "create") {
			return permissionDenied("user.create.permission", nil)
		}
		if users.Find(user.id) != nil {
			return duplicate("user.duplicate", map[string]any{"id": user.id})
		}
		if err := validateEmail(users, user, user.creds.Email); err != nil {
			return err
		}
		return validateRole(app, user.creds.Role)
	case "update":
		if !can(user, "update") {
			return permissionDenied("user.update.permission", map[string]any{"name": user.id})
		}
		return validateLanguageArg(app, args)
	case "changeEmail":
		if !can(user, "changeEmail") {
			return permissionDenied("user.changeEmail.permission", map[string]any{"name": user.id})
		}
		return validateEmail(users, user, args.String("email"))
	case "changeRole":
		if !can(user, "changeRole") {
			return permissionDenied("user.changeRole.permission", map[string]any{"name": user.id})
		}
		role := args.String("role")
		if err := validateRole(app, role); err != nil {
			return err
		}
		if role == AdminRole && !app.isSystem() && (app.User() == nil || !app.User().IsAdmin()) {
			return permissionDenied("user.changeRole.toAdmin", nil)
		}
		if user.IsAdmin() && role != AdminRole && len(users.Admins()) <= 1 {
			return logicError("user.changeRole.lastAdmin", nil)
		}
		return nil
	case "changeName":
		if !can(user, "changeName") {
			return permissionDenied("user.changeName.permission", map[string]any{"name": user.id})
		}
		return nil
	case "changeLanguage":
		if !can(user, "changeLanguage") {
			return permissionDenied("user.changeLanguage.permission", map[string]any{"name": user.id})
		}
		return nil
	case "delete":
		if !can(user, "delete") {
			return permissionDenied("user.delete.permission", map[string]any{"name": user.id})
		}
		if user.IsAdmin() && len(users.Admins()) <= 1 {
			return logicError("user.delete.lastAdmin", nil)
		}
		if len(users) <= 1 {
			return logicError("user.delete.lastUser", nil)
		}
		return nil
	}
	return logicError("user.action.invalid", map[string]any{"action": action})
}

// validateEmail checks the syntax and that no other user has the address.
func validateEmail(users Users, user *User, email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return invalidArgument("user.email.invalid", map[string]any{"email": email})
	}
	if other := users.Find(email); other != nil && other.id != user.id {
		return duplicate("user.duplicate", map[string]any{"email": email})
	}
	return nil
}

func validateRole(app *App, name string) error {
	role, err := app.Role(name)
	if err != nil {
		return err
	}
	if role == nil {
		return invalidArgument("user.role.invalid", map[string]any{"role": name})
	}
	return nil
}
