package messages

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultSchemaPath is where the command server schema lives relative to the
// repository root.
const DefaultSchemaPath = "schema/commandserver/server_types/v1/Message.json"

// =============================================================================
// DOCUMENT MODEL
// =============================================================================

// Document is a parsed JSON Schema file. It is immutable once loaded.
type Document struct {
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Definitions map[string]*Node `json:"definitions"`

	path string
	url  string
	raw  []byte

	mu       sync.Mutex
	compiler *jsonschema.Compiler
	compiled map[string]*jsonschema.Schema
}

// Node is a single entry of the document's definitions map.
type Node struct {
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Type        TypeList             `json:"type,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`

	// Raw is the definition exactly as it appears in the file.
	Raw json.RawMessage `json:"-"`
}

// Property is a member of a Node's properties map.
type Property struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Type        TypeList        `json:"type,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`
	Ref         string          `json:"$ref,omitempty"`
	Default     json.RawMessage `json:"default,omitempty"`
	Items       *Property       `json:"items,omitempty"`
}

// TypeList holds a JSON Schema "type", which may be a single name or a list.
type TypeList []string

func (t *TypeList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*t = TypeList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type must be a string or a list of strings: %w", err)
	}
	*t = many
	return nil
}

func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	if err := json.Unmarshal(data, (*plain)(n)); err != nil {
		return err
	}
	n.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Property returns the named property of the node, or nil.
func (n *Node) Property(name string) *Property {
	if n == nil || n.Properties == nil {
		return nil
	}
	return n.Properties[name]
}

// IsRequired reports whether name is listed in the node's required set.
func (n *Node) IsRequired(name string) bool {
	for _, r := range n.Required {
		if r == name {
			return true
		}
	}
	return false
}

// =============================================================================
// LOADING
// =============================================================================

// LoadSchema reads and parses the schema document at path.
func LoadSchema(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SchemaLoadError{Path: path, Err: err}
	}
	return ParseSchema(path, data)
}

// ParseSchema parses data as a schema document. path is only used to name the
// document in errors and to anchor relative references.
func ParseSchema(path string, data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &SchemaLoadError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	if doc.Definitions == nil {
		return nil, &SchemaLoadError{Path: path, Err: errors.New("document has no definitions")}
	}

	doc.path = path
	doc.raw = data
	doc.url = schemaURL(path)
	doc.compiled = make(map[string]*jsonschema.Schema)
	doc.compiler = jsonschema.NewCompiler()
	doc.compiler.Draft = jsonschema.Draft7
	if err := doc.compiler.AddResource(doc.url, bytes.NewReader(data)); err != nil {
		return nil, &SchemaLoadError{Path: path, Err: fmt.Errorf("add resource: %w", err)}
	}
	if _, err := doc.compile(""); err != nil {
		return nil, &SchemaLoadError{Path: path, Err: fmt.Errorf("compile: %w", err)}
	}
	return doc, nil
}

func schemaURL(path string) string {
	if path == "" {
		path = "schema.json"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string { return d.path }

// Bytes returns the document source.
func (d *Document) Bytes() []byte { return d.raw }

// Definition looks up a definition by name.
func (d *Document) Definition(name string) (*Node, bool) {
	n, ok := d.Definitions[name]
	return n, ok && n != nil
}

// compile returns the compiled schema for a definition, or for the document
// root when name is empty. Results are cached.
func (d *Document) compile(name string) (*jsonschema.Schema, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.compiled[name]; ok {
		return s, nil
	}
	url := d.url
	if name != "" {
		url += "#/definitions/" + name
	}
	s, err := d.compiler.Compile(url)
	if err != nil {
		return nil, err
	}
	d.compiled[name] = s
	return s, nil
}

// Validate checks a decoded JSON value against the named definition.
func (d *Document) Validate(name string, v any) error {
	if _, ok := d.Definition(name); !ok {
		return notFound("Validate", name, "no such definition")
	}
	s, err := d.compile(name)
	if err != nil {
		return fmt.Errorf("compile definition %s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		return invalid("Validate", name, err.Error())
	}
	return nil
}

// =============================================================================
// PROCESS-WIDE REGISTRY
// =============================================================================

// Lazy loads a registry from a fixed path the first time it is asked for one
// and hands out that same registry, or that same error, ever after.
type Lazy struct {
	path string
	once sync.Once
	reg  *Registry
	err  error
}

// NewLazy returns a Lazy bound to path. Nothing is read until Registry is called.
func NewLazy(path string) *Lazy {
	return &Lazy{path: path}
}

// Registry loads the schema on first use.
func (l *Lazy) Registry() (*Registry, error) {
	l.once.Do(func() {
		doc, err := LoadSchema(l.path)
		if err != nil {
			l.err = err
			return
		}
		l.reg = NewRegistry(doc)
	})
	return l.reg, l.err
}

// Path returns the schema path the Lazy is bound to.
func (l *Lazy) Path() string { return l.path }

var defaultLazy = NewLazy(DefaultSchemaPath)

// Default returns the registry for DefaultSchemaPath, loading it on first use.
// Changes to the file are not seen until the process restarts.
func Default() (*Registry, error) {
	return defaultLazy.Registry()
}
