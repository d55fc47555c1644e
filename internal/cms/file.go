package cms

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File is an asset stored in the directory of its parent. Its content
// lives in a meta file named "{filename}[.{code}].{ext}" next to it.
type File struct {
	app      *App
	parent   FilesParent
	filename string
	st       *contentState
}

// Files is the list of files of one parent.
type Files []*File

// Find returns the file with the given filename, or nil.
func (fs Files) Find(filename string) *File {
	for _, f := range fs {
		if f.filename == filename {
			return f
		}
	}
	return nil
}

func (f *File) Kind() Kind { return KindFile }
func (f *File) App() *App  { return f.app }

// ID returns "{parent id}/{filename}", or just the filename for site files.
func (f *File) ID() string {
	if id := f.parent.ID(); id != "" {
		return id + "/" + f.filename
	}
	return f.filename
}

func (f *File) Content() (*Content, error)              { return contentOf(f, "") }
func (f *File) ContentIn(code string) (*Content, error) { return contentOf(f, code) }
func (f *File) Translations() *Translations             { return translationsOf(f) }
func (f *File) UUID() (*UUID, error)                    { return uuidFor(f) }

func (f *File) contentFileDirectory() string { return f.parent.root() }
func (f *File) contentFileName() string      { return f.filename }
func (f *File) state() *contentState         { return f.st }

func (f *File) blueprint() (*Blueprint, error) {
	return f.app.blueprint(KindFile, f.Template())
}

func (f *File) validate(action string, args Args) error {
	return fileRules(f.app, action, args)
}

func (f *File) afterArgs(action string, st ModelState) Args {
	return fileAfterArgs(action, st)
}

// Filename returns the name including the extension.
func (f *File) Filename() string { return f.filename }

// Name returns the filename without the extension.
func (f *File) Name() string {
	return strings.TrimSuffix(f.filename, filepath.Ext(f.filename))
}

// Extension returns the extension without the dot.
func (f *File) Extension() string {
	return strings.TrimPrefix(filepath.Ext(f.filename), ".")
}

// Root returns the path of the asset.
func (f *File) Root() string { return filepath.Join(f.parent.root(), f.filename) }

// Parent returns the page, site or user owning the file.
func (f *File) Parent() FilesParent { return f.parent }

// Template returns the template field of the meta content, or "default".
func (f *File) Template() string {
	data, err := translationsOf(f).Default().Content()
	if err != nil || data["template"] == "" {
		return "default"
	}
	return data["template"]
}

// Exists reports whether the asset is on disk.
func (f *File) Exists() bool {
	_, err := os.Stat(f.Root())
	return err == nil
}

func (f *File) clone() *File {
	return &File{app: f.app, parent: f.parent, filename: f.filename, st: &contentState{}}
}

func loadFiles(app *App, parent FilesParent) (Files, error) {
	listing, err := app.inventory.Scan(parent.root())
	if err != nil {
		return nil, err
	}
	files := make(Files, 0, len(listing.Files))
	for _, e := range listing.Files {
		if parent.Kind() == KindUser && e.Filename == credentialsFile {
			continue
		}
		files = append(files, &File{app: app, parent: parent, filename: e.Filename, st: &contentState{}})
	}
	return files, nil
}

// FileProps describes a file to create.
type FileProps struct {
	Parent   FilesParent
	Filename string

	// Source is the path of the asset to copy in.
	Source   string
	Template string
	Content  Data
}

// CreateFile copies props.Source into the parent directory and writes its
// meta content with a new uuid.
func CreateFile(app *App, props FileProps) (*File, error) {
	if props.Parent == nil {
		props.Parent = app.Site()
	}
	f := &File{
		app:      app,
		parent:   props.Parent,
		filename: sanitizeFilename(props.Filename),
		st:       &contentState{},
	}

	args := Args{
		{Name: "file", Value: f},
		{Name: "input", Value: props},
	}
	return commit(f, "create", args, func(args Args) (*File, error) {
		file := args.Value("file").(*File)
		input, _ := args.Value("input").(FileProps)

		if err := os.MkdirAll(file.parent.root(), 0o755); err != nil {
			return nil, fmt.Errorf("creating file directory: %w", err)
		}
		if err := copyAsset(input.Source, file.Root()); err != nil {
			return nil, err
		}

		data := input.Content.normalize()
		if input.Template != "" {
			data["template"] = input.Template
		}
		if data["uuid"] == "" {
			data["uuid"] = app.idgen.New()
		}
		if err := saveContent(file, data, app.defaultCode(), true); err != nil {
			return nil, err
		}

		file.parent.purge()
		populateStored(file)
		return file, nil
	})
}

// Update merges values into the meta content of the given language.
func (f *File) Update(values Data, languageCode string) (*File, error) {
	values = values.normalize()
	delete(values, "uuid")

	args := Args{
		{Name: "file", Value: f},
		{Name: "values", Value: values},
		{Name: "strings", Value: values},
		{Name: "languageCode", Value: languageCode},
	}
	return commit(f, "update", args, func(args Args) (*File, error) {
		next := args.Value("file").(*File).clone()
		if err := saveContent(next, args.Value("values").(Data), args.String("languageCode"), false); err != nil {
			return nil, err
		}
		next.parent.purge()
		return next, nil
	})
}

// ChangeName renames the asset and its meta files. The extension is kept.
func (f *File) ChangeName(name string) (*File, error) {
	name = sanitizeFilename(strings.TrimSpace(name))
	if name == f.Name() {
		return f, nil
	}

	args := Args{
		{Name: "file", Value: f},
		{Name: "name", Value: name},
	}
	return commit(f, "changeName", args, func(args Args) (*File, error) {
		file := args.Value("file").(*File)
		next := file.clone()
		next.filename = args.String("name") + "." + file.Extension()

		if err := clearStored(file); err != nil {
			return nil, err
		}
		if err := os.Rename(file.Root(), next.Root()); err != nil {
			return nil, fmt.Errorf("renaming file %q: %w", file.ID(), err)
		}
		for _, t := range translationsOf(file).All() {
			if !t.Exists() {
				continue
			}
			dst := translationsOf(next).Find(t.Code())
			if err := os.Rename(t.path, dst.path); err != nil {
				return nil, fmt.Errorf("renaming meta file: %w", err)
			}
		}

		next.st = &contentState{}
		file.parent.purge()
		populateStored(next)
		return next, nil
	})
}

// Delete removes the asset and every meta file.
func (f *File) Delete() (bool, error) {
	args := Args{{Name: "file", Value: f}}
	return commit(f, "delete", args, func(args Args) (bool, error) {
		file := args.Value("file").(*File)

		if err := clearStored(file); err != nil {
			return false, err
		}
		if err := removeContentFiles(file); err != nil {
			return false, err
		}
		if err := os.Remove(file.Root()); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("removing file %q: %w", file.ID(), err)
		}

		file.parent.purge()
		return true, nil
	})
}

func fileRules(app *App, action string, args Args) error {
	file, ok := args.Value("file").(*File)
	if !ok || file == nil {
		return invalidArgument("file.invalid", nil)
	}

	switch action {
	case "create":
		if !can(file, "create") {
			return permissionDenied("file.create.permission", map[string]any{"filename": file.filename})
		}
		if file.Name() == "" {
			return invalidArgument("file.name.missing", nil)
		}
		if file.Extension() == "" {
			return invalidArgument("file.extension.missing", map[string]any{"filename": file.filename})
		}
		if strings.HasSuffix(file.filename, "."+app.opts.ContentExtension) {
			return invalidArgument("file.extension.forbidden", map[string]any{"extension": file.Extension()})
		}
		input, _ := args.Value("input").(FileProps)
		if _, err := os.Stat(input.Source); err != nil {
			return invalidArgument("file.source.missing", map[string]any{"source": input.Source})
		}
		return uniqueFilename(file, file.filename)
	case "update":
		if !can(file, "update") {
			return permissionDenied("file.update.permission", map[string]any{"filename": file.filename})
		}
		return validateLanguageArg(app, args)
	case "changeName":
		if !can(file, "changeName") {
			return permissionDenied("file.changeName.permission", map[string]any{"filename": file.filename})
		}
		name := args.String("name")
		if name == "" {
			return invalidArgument("file.changeName.empty", nil)
		}
		return uniqueFilename(file, name+"."+file.Extension())
	case "delete":
		if !can(file, "delete") {
			return permissionDenied("file.delete.permission", map[string]any{"filename": file.filename})
		}
		return nil
	}
	return logicError("file.action.invalid", map[string]any{"action": action})
}

func uniqueFilename(f *File, filename string) error {
	files, err := f.parent.Files()
	if err != nil {
		return err
	}
	if files.Find(filename) != nil {
		return duplicate("file.duplicate", map[string]any{"filename": filename})
	}
	return nil
}

// sanitizeFilename lowercases the name and slugifies everything but the
// extension.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	ext := filepath.Ext(name)
	stem := Slugify(strings.TrimSuffix(name, ext))
	return stem + strings.ToLower(ext)
}

// copyAsset copies src to dst through a temp file and a rename.
func copyAsset(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("copying asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
