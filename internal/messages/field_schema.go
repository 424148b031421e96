package messages

import (
	"sort"
	"strings"
)

// FieldType is a simplified view of a property's JSON Schema type.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeNumber  FieldType = "number"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
	FieldTypeRef     FieldType = "ref"
	FieldTypeAny     FieldType = "any"
)

// FieldSchema describes one property of a message definition.
type FieldSchema struct {
	Name          string    `json:"name"`
	Type          FieldType `json:"type"`
	Ref           string    `json:"ref,omitempty"` // definition name for FieldTypeRef and arrays of refs
	Required      bool      `json:"required"`
	Discriminator bool      `json:"discriminator,omitempty"`
	Description   string    `json:"description,omitempty"`
}

// FieldSchemas lists the properties of a message definition. The wire name
// discriminator comes first, the rest are sorted by name.
func (r *Registry) FieldSchemas(messageType string) ([]FieldSchema, error) {
	kind, err := r.kindOf("FieldSchemas", messageType)
	if err != nil {
		return nil, err
	}
	node, _ := r.doc.Definition(messageType)

	names := make([]string, 0, len(node.Properties))
	for name := range node.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		di, dj := names[i] == kind.NameProperty(), names[j] == kind.NameProperty()
		if di != dj {
			return di
		}
		return names[i] < names[j]
	})

	fields := make([]FieldSchema, 0, len(names))
	for _, name := range names {
		prop := node.Properties[name]
		if prop == nil {
			continue
		}
		fs := FieldSchema{
			Name:          name,
			Required:      node.IsRequired(name),
			Discriminator: name == kind.NameProperty(),
			Description:   prop.Description,
		}
		fs.Type, fs.Ref = fieldType(prop)
		fields = append(fields, fs)
	}
	return fields, nil
}

func fieldType(p *Property) (FieldType, string) {
	if p.Ref != "" {
		return FieldTypeRef, refName(p.Ref)
	}
	if len(p.Type) == 0 {
		return FieldTypeAny, ""
	}
	switch p.Type[0] {
	case "string":
		return FieldTypeString, ""
	case "boolean":
		return FieldTypeBoolean, ""
	case "integer", "number":
		return FieldTypeNumber, ""
	case "array":
		if p.Items != nil && p.Items.Ref != "" {
			return FieldTypeArray, refName(p.Items.Ref)
		}
		return FieldTypeArray, ""
	case "object":
		return FieldTypeObject, ""
	default:
		return FieldTypeAny, ""
	}
}

func refName(ref string) string {
	return strings.TrimPrefix(ref, "#/definitions/")
}
