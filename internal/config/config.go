// Package config defines the JSON-serializable configuration model for the
// catalog build: the parent-catalog settings (API base URL, Solr endpoint,
// database credentials) and the per-collection dataset mappings.
//
// Design goals:
//
//  1. Typed shape: every config field is a declared struct field; attribute
//     conversions are keyed by a declared kind, validated at load time.
//  2. Stability: changes should be additive and backwards-compatible.
//  3. Minimalism: decoding is performed by the standard library.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ncruces/go-strftime"
)

// TestPrefix is prepended to every collection id in test mode so that test
// runs never touch production collection ids.
const TestPrefix = "TEST_"

// Attribute kinds. Each kind selects one pure conversion raw -> typed value
// in the normalizer.
const (
	KindDate     = "date"     // parse with the collection date format
	KindJSON     = "json"     // decode an embedded JSON object
	KindDatetime = "datetime" // reformat to an ISO-8601 string
	KindGeometry = "geometry" // decode from WKB hex
	KindDecimal  = "decimal"  // arbitrary precision -> float64
	KindMission  = "mission"  // format through the mission template
	KindVerbatim = "verbatim" // copy as-is
)

// Kinds lists every valid attribute kind.
var Kinds = []string{KindDate, KindJSON, KindDatetime, KindGeometry, KindDecimal, KindMission, KindVerbatim}

// Attribute maps one source column to a logical field.
type Attribute struct {
	// Name is the logical field name. Names with the "item:" prefix become
	// item properties; "date", "geometry" and "srid" are reserved.
	Name string `json:"name"`

	// Column is the source column selected from the dataset table.
	Column string `json:"column"`

	// Kind selects the typed conversion applied to the raw value.
	Kind string `json:"kind"`
}

// AssetTemplate describes one downloadable asset attached to every item of a
// collection. Title, URL and the asset key are interpolated per record with
// {id}, {filename}, {filetype} and {folder}.
type AssetTemplate struct {
	IDFormat    string   `json:"id_format"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url"`
	FileType    string   `json:"filetype"`
	MediaType   string   `json:"mediatype"`
	Roles       []string `json:"roles"`
}

// Provider declares one collection provider.
type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles"`
	URL         string   `json:"url,omitempty"`
}

// Thumbnail configures the optional collection thumbnail asset.
type Thumbnail struct {
	Key       string `json:"key"`
	Href      string `json:"href"`
	MediaType string `json:"media_type"`
}

// Collection is one dataset-to-collection mapping. It is loaded once per
// run, merged with its file's template, and read-only thereafter.
type Collection struct {
	ID          string          `json:"coll_id"`
	Title       string          `json:"coll_title"`
	Description string          `json:"coll_description"`
	License     string          `json:"coll_license"`
	Keywords    []string        `json:"coll_keywords"`
	Providers   []Provider      `json:"coll_providers"`
	Table       string          `json:"coll_table"`
	Where       string          `json:"coll_where"`
	DateFormat  string          `json:"coll_date_format"` // strftime directives
	Attributes  []Attribute     `json:"coll_table_attributes"`
	Extensions  []string        `json:"extensions"`
	Assets      []AssetTemplate `json:"assets"`
	Thumbnail   *Thumbnail      `json:"coll_thumbnail,omitempty"`
	Ignore      bool            `json:"ignore_collection"`
	Overwrite   bool            `json:"overwrite_existing_collection"`

	// ConfigFile is the file the collection was loaded from, kept for error
	// reporting.
	ConfigFile string `json:"-"`
}

// File is one collection config file: a list of collections plus an optional
// template the collections inherit unset fields from.
type File struct {
	Collections []Collection `json:"collections"`
	Template    *Collection  `json:"collection_template,omitempty"`

	Name string `json:"-"`
}

// DB assembles the database connection from the (possibly encrypted)
// credentials block.
type DB struct {
	Type     string `json:"dbtype"` // "postgres", "mssql", "sqlite"
	User     string `json:"u" encrypted:"true"`
	Password string `json:"p" encrypted:"true"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Name     string `json:"name"`

	// Encrypted marks the credentials block as Fernet-encrypted; the tagged
	// fields above are decrypted at load time when set.
	Encrypted bool `json:"encrypted"`
}

// DSN renders the connection string for the configured database kind.
func (d DB) DSN() string {
	switch d.Type {
	case "sqlite":
		return d.Name
	default:
		return fmt.Sprintf("%s://%s:%s@%s:%s/%s", d.Type, d.User, d.Password, d.Host, d.Port, d.Name)
	}
}

// ProbePolicy values for Catalog.OnProbeError.
const (
	ProbeAssumeMissing = "assume-missing"
	ProbeAbort         = "abort"
)

// Catalog holds the parent-catalog run settings.
type Catalog struct {
	CatalogID   string `json:"catalog_id"`
	Title       string `json:"title"`
	Description string `json:"catalog_description"`

	// Href is the API-serving base URL; every produced link derives from it.
	Href string `json:"href"`

	// Solr is the base URL of the search index core.
	Solr string `json:"solr"`

	// OnProbeError selects what a transport-level existence-check failure
	// means: treat the collection as missing (default) or abort the run.
	OnProbeError string `json:"on_probe_error"`

	DB DB `json:"db"`
}

// LoadCatalog reads and decodes the parent-catalog config file.
func LoadCatalog(path string) (Catalog, error) {
	var c Catalog
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if c.OnProbeError == "" {
		c.OnProbeError = ProbeAssumeMissing
	}
	return c, nil
}

// TestModePaths redirects collection config paths into the test config
// folder, a sibling of the production folder carrying the "_test" suffix.
// Bare file names are read from a "test" folder.
func TestModePaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." {
			dir = "test"
		} else {
			dir += "_test"
		}
		out[i] = filepath.Join(dir, filepath.Base(p))
	}
	return out
}

// LoadFiles reads the given collection config files, applies each file's
// template and, in test mode, prefixes every collection id with TestPrefix.
func LoadFiles(paths []string, testMode bool) ([]File, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("config: no collection config files provided")
	}
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", p, err)
		}
		var f File
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", p, err)
		}
		f.Name = filepath.Base(p)
		for i := range f.Collections {
			if testMode {
				f.Collections[i].ID = TestPrefix + f.Collections[i].ID
			}
			f.Collections[i] = MergeTemplate(f.Collections[i], f.Template)
			f.Collections[i].ConfigFile = f.Name
		}
		files = append(files, f)
	}
	return files, nil
}

// MergeTemplate fills fields c leaves unset from the template. The merged
// collection keeps every field c sets explicitly.
func MergeTemplate(c Collection, tpl *Collection) Collection {
	if tpl == nil {
		return c
	}
	if c.Title == "" {
		c.Title = tpl.Title
	}
	if c.Description == "" {
		c.Description = tpl.Description
	}
	if c.License == "" {
		c.License = tpl.License
	}
	if len(c.Keywords) == 0 {
		c.Keywords = tpl.Keywords
	}
	if len(c.Providers) == 0 {
		c.Providers = tpl.Providers
	}
	if c.Table == "" {
		c.Table = tpl.Table
	}
	if c.Where == "" {
		c.Where = tpl.Where
	}
	if c.DateFormat == "" {
		c.DateFormat = tpl.DateFormat
	}
	if len(c.Attributes) == 0 {
		c.Attributes = tpl.Attributes
	}
	if len(c.Extensions) == 0 {
		c.Extensions = tpl.Extensions
	}
	if len(c.Assets) == 0 {
		c.Assets = tpl.Assets
	}
	if c.Thumbnail == nil {
		c.Thumbnail = tpl.Thumbnail
	}
	return c
}

// DateLayout converts the collection's strftime date format into a Go time
// layout.
func (c Collection) DateLayout() (string, error) {
	if c.DateFormat == "" {
		return "", fmt.Errorf("config: %s: coll_date_format is empty", c.ConfigFile)
	}
	layout, err := strftime.Layout(c.DateFormat)
	if err != nil {
		return "", fmt.Errorf("config: %s: coll_date_format %q: %w", c.ConfigFile, c.DateFormat, err)
	}
	return layout, nil
}

// Attribute returns the attribute with the given logical name, if declared.
func (c Collection) Attribute(name string) (Attribute, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// DateColumn is the source column the extraction query requires to be
// non-null: the "date" attribute when declared, else "item:start_datetime".
func (c Collection) DateColumn() (string, bool) {
	if a, ok := c.Attribute("date"); ok {
		return a.Column, true
	}
	if a, ok := c.Attribute("item:start_datetime"); ok {
		return a.Column, true
	}
	return "", false
}

// Columns lists the source columns in declared attribute order.
func (c Collection) Columns() []string {
	cols := make([]string, len(c.Attributes))
	for i, a := range c.Attributes {
		cols[i] = a.Column
	}
	return cols
}
