package util

import (
	"bytes"
	"fmt"
	"strings"

	"msgmap/internal/messages"
)

// CatalogueMarkdown documents every message in reg: its wire name, subject and
// fields, followed by the raw schema.
func CatalogueMarkdown(reg *messages.Registry) ([]byte, error) {
	doc := reg.Document()
	var b bytes.Buffer

	title := doc.Title
	if title == "" {
		title = "Messages"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if doc.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", doc.Description)
	}
	fmt.Fprintf(&b, "Schema: `%s`\n\n", doc.Path())

	sections := []struct {
		heading string
		names   []string
	}{
		{"Commands", reg.AllCommandNames()},
		{"Events", reg.AllEventNames()},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n\n", s.heading)
		if len(s.names) == 0 {
			b.WriteString("_None._\n\n")
			continue
		}
		b.WriteString("| Message | Wire name | Subject |\n|---|---|---|\n")
		for _, name := range s.names {
			wire, subject := "_missing_", ""
			if w, err := reg.MessageTypeToWireName(name); err == nil {
				wire = "`" + w + "`"
				subject, _ = reg.SubjectFor(name)
				subject = "`" + subject + "`"
			}
			fmt.Fprintf(&b, "| [%s](#%s) | %s | %s |\n", name, strings.ToLower(name), wire, subject)
		}
		b.WriteString("\n")

		for _, name := range s.names {
			if err := writeFields(&b, reg, name); err != nil {
				return nil, err
			}
		}
	}

	b.WriteString("## Schema source\n\n")
	b.Write(CodeBlock("json", doc.Bytes()))
	return b.Bytes(), nil
}

func writeFields(b *bytes.Buffer, reg *messages.Registry, name string) error {
	fields, err := reg.FieldSchemas(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "### %s\n\n", name)
	if def, ok := reg.Document().Definition(name); ok && def.Description != "" {
		fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(def.Description))
	}
	if len(fields) == 0 {
		b.WriteString("_No fields._\n\n")
		return nil
	}
	b.WriteString("| Field | Type | Required |\n|---|---|---|\n")
	for _, f := range fields {
		typ := string(f.Type)
		if f.Ref != "" {
			typ += " of " + f.Ref
		}
		req := ""
		if f.Required {
			req = "yes"
		}
		fmt.Fprintf(b, "| `%s` | %s | %s |\n", f.Name, typ, req)
	}
	b.WriteString("\n")
	return nil
}

// CatalogueHTML renders CatalogueMarkdown, memoised per schema file.
func CatalogueHTML(reg *messages.Registry) (string, error) {
	key := "catalogue:" + reg.Document().Path()
	if v, ok := cache.Load(key); ok {
		return v.(string), nil
	}
	src, err := CatalogueMarkdown(reg)
	if err != nil {
		return "", err
	}
	return MarkdownToHTML(key, src)
}
