package cms

// Cache is a string key-value store with no expiry. It backs both the
// UUID cache and the page render cache. Get reports ok=false on a miss.
type Cache interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Flush() error
}

// Inventory lists what a model directory contains on disk.
type Inventory interface {
	// Scan lists the child folders and asset files in dir. A directory
	// that does not exist yields an empty listing.
	Scan(dir string) (*Listing, error)
}

// Listing is the result of scanning one model directory.
type Listing struct {
	// Template is the stem of the content file found in the directory
	// (e.g. "article" for article.txt), empty if there is none.
	Template string
	Children []ChildEntry
	Files    []FileEntry
}

// ChildEntry describes one child folder, named "{num}_{slug}" or "{slug}".
type ChildEntry struct {
	Dirname string
	Slug    string
	Num     *int
	Root    string
}

// FileEntry describes one asset file; its meta content file is not listed.
type FileEntry struct {
	Filename string
	Root     string
}

// Blueprints loads model schemas and role definitions.
type Blueprints interface {
	// Blueprint returns the schema for a model kind and name (page template,
	// file template or user role). Unknown names fall back to "default".
	Blueprint(kind Kind, name string) (*Blueprint, error)

	// Roles returns every configured role. The admin role is always present.
	Roles() ([]*Role, error)
}
