package manifest

import (
	"bytes"
	"embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

//go:embed schema/*.yaml
var schemaFS embed.FS

// DocType identifies a manifest document type.
type DocType string

// Document types.
const (
	DocServerManifest DocType = "ServerManifest"
	DocClientManifest DocType = "ClientManifest"
)

// FileName returns the document's file name below the server URL.
func (d DocType) FileName() string {
	switch d {
	case DocServerManifest:
		return ServerManifestFileName
	case DocClientManifest:
		return ClientManifestFileName
	default:
		return strings.ToLower(string(d)) + ".xml"
	}
}

// ExpectedVersion returns the protocol version accepted for the document type.
func (d DocType) ExpectedVersion() int {
	switch d {
	case DocServerManifest:
		return ServerManifestVersion
	case DocClientManifest:
		return ClientManifestVersion
	default:
		return 0
	}
}

// Attribute value types understood by the validator.
const (
	typeString     = "string"
	typeInt        = "int"
	typeUint32     = "uint32"
	typeUint64     = "uint64"
	typeLocaleList = "localelist"
	typeName       = "name"
)

// Schema describes the permitted structure of one document type.
type Schema struct {
	Document string                    `yaml:"document"`
	Version  int                       `yaml:"version"`
	Root     string                    `yaml:"root"`
	Elements map[string]*ElementSchema `yaml:"elements"`
}

// ElementSchema describes one element.
type ElementSchema struct {
	// Text allows non-whitespace character data inside the element.
	Text       bool              `yaml:"text"`
	Attributes []AttributeSchema `yaml:"attributes"`
	Children   []ChildSchema     `yaml:"children"`
}

// AttributeSchema describes one attribute.
type AttributeSchema struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

// ChildSchema describes a permitted child element and its occurrence bounds.
// A nil Max means unbounded.
type ChildSchema struct {
	Element string `yaml:"element"`
	Min     int    `yaml:"min"`
	Max     *int   `yaml:"max"`
}

// SchemaError reports where and why a document failed validation.
type SchemaError struct {
	// Path is the slash-separated element path, e.g. "ClientManifest/Folder/File".
	Path   string
	Reason string
}

// Error implements error.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Is makes SchemaError match types.ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == types.ErrSchema
}

var (
	schemaOnce sync.Once
	schemas    map[DocType]*Schema
	schemaErr  error
)

// LoadSchema returns the embedded schema of a document type.
func LoadSchema(doc DocType) (*Schema, error) {
	schemaOnce.Do(func() {
		schemas, schemaErr = loadSchemas()
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	s, ok := schemas[doc]
	if !ok {
		return nil, fmt.Errorf("no schema for document type %q", doc)
	}
	return s, nil
}

func loadSchemas() (map[DocType]*Schema, error) {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return nil, fmt.Errorf("reading embedded schemas: %w", err)
	}

	out := make(map[DocType]*Schema, len(entries))
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", entry.Name(), err)
		}

		var s Schema
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing schema %s: %w", entry.Name(), err)
		}
		if err := s.check(); err != nil {
			return nil, fmt.Errorf("schema %s: %w", entry.Name(), err)
		}
		out[DocType(s.Document)] = &s
	}
	return out, nil
}

// check verifies that every referenced element is defined.
func (s *Schema) check() error {
	if _, ok := s.Elements[s.Root]; !ok {
		return fmt.Errorf("root element %q is not defined", s.Root)
	}
	for name, el := range s.Elements {
		if el == nil {
			s.Elements[name] = &ElementSchema{}
			continue
		}
		for _, c := range el.Children {
			if _, ok := s.Elements[c.Element]; !ok {
				return fmt.Errorf("element %q references undefined child %q", name, c.Element)
			}
		}
		for _, a := range el.Attributes {
			switch a.Type {
			case typeString, typeInt, typeUint32, typeUint64, typeLocaleList, typeName:
			default:
				return fmt.Errorf("attribute %s/@%s has unknown type %q", name, a.Name, a.Type)
			}
		}
	}
	return nil
}

type frame struct {
	path   string
	schema *ElementSchema
	counts map[string]int
}

// Validate checks data against the schema of doc. A nil error means the
// document is well formed and matches the schema. Syntax errors wrap
// types.ErrMalformed; structural violations are *SchemaError values.
func Validate(doc DocType, data []byte) error {
	s, err := LoadSchema(doc)
	if err != nil {
		return err
	}
	return s.Validate(data)
}

// Validate checks data against s.
func (s *Schema) Validate(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var stack []*frame
	rootSeen := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			f, err := s.enter(stack, rootSeen, t)
			if err != nil {
				return err
			}
			rootSeen = true
			stack = append(stack, f)

		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := f.checkMinimums(); err != nil {
				return err
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			f := stack[len(stack)-1]
			if !f.schema.Text && len(bytes.TrimSpace(t)) > 0 {
				return &SchemaError{Path: f.path, Reason: "unexpected text content"}
			}
		}
	}

	if !rootSeen {
		return fmt.Errorf("%w: no root element", types.ErrMalformed)
	}
	return nil
}

// enter validates a start element against its parent and returns its frame.
func (s *Schema) enter(stack []*frame, rootSeen bool, t xml.StartElement) (*frame, error) {
	name := t.Name.Local

	var path string
	if len(stack) == 0 {
		if rootSeen {
			return nil, &SchemaError{Path: name, Reason: "more than one root element"}
		}
		if name != s.Root {
			return nil, &SchemaError{Path: name, Reason: fmt.Sprintf("root element must be %s", s.Root)}
		}
		path = name
	} else {
		parent := stack[len(stack)-1]
		path = parent.path + "/" + name

		child, ok := parent.child(name)
		if !ok {
			return nil, &SchemaError{Path: path, Reason: "element not allowed here"}
		}
		parent.counts[name]++
		if child.Max != nil && parent.counts[name] > *child.Max {
			return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("element occurs more than %d times", *child.Max)}
		}
	}

	el := s.Elements[name]
	if err := checkAttributes(path, el, t.Attr); err != nil {
		return nil, err
	}

	return &frame{path: path, schema: el, counts: make(map[string]int)}, nil
}

func (f *frame) child(name string) (ChildSchema, bool) {
	for _, c := range f.schema.Children {
		if c.Element == name {
			return c, true
		}
	}
	return ChildSchema{}, false
}

func (f *frame) checkMinimums() error {
	for _, c := range f.schema.Children {
		if f.counts[c.Element] < c.Min {
			return &SchemaError{
				Path:   f.path,
				Reason: fmt.Sprintf("expected at least %d %s element(s), found %d", c.Min, c.Element, f.counts[c.Element]),
			}
		}
	}
	return nil
}

func checkAttributes(path string, el *ElementSchema, attrs []xml.Attr) error {
	present := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		// Namespace declarations and namespaced attributes (xsi:*) are not part of the schema.
		if a.Name.Space != "" || a.Name.Local == "xmlns" {
			continue
		}

		decl, ok := findAttribute(el, a.Name.Local)
		if !ok {
			return &SchemaError{Path: path + "/@" + a.Name.Local, Reason: "attribute not allowed"}
		}
		if present[a.Name.Local] {
			return &SchemaError{Path: path + "/@" + a.Name.Local, Reason: "duplicate attribute"}
		}
		present[a.Name.Local] = true

		if err := checkValue(decl.Type, a.Value); err != nil {
			return &SchemaError{Path: path + "/@" + a.Name.Local, Reason: err.Error()}
		}
	}

	for _, decl := range el.Attributes {
		if decl.Required && !present[decl.Name] {
			return &SchemaError{Path: path + "/@" + decl.Name, Reason: "required attribute missing"}
		}
	}
	return nil
}

func findAttribute(el *ElementSchema, name string) (AttributeSchema, bool) {
	for _, a := range el.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeSchema{}, false
}

func checkValue(typ, value string) error {
	var err error
	switch typ {
	case typeInt:
		_, err = strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	case typeUint32:
		_, err = strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	case typeUint64:
		_, err = strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	case typeLocaleList:
		_, err = ParseLocales(value)
		if err != nil {
			return err
		}
	case typeName:
		return checkName(value)
	}
	if err != nil {
		return fmt.Errorf("invalid %s value %q", typ, value)
	}
	return nil
}

// checkName accepts a single path segment that stays inside its folder.
func checkName(name string) error {
	switch {
	case name == "":
		return errors.New("empty name")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is not a file or folder name", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("name %q contains a path separator or NUL", name)
	}
	return nil
}
