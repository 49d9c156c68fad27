package opc

import (
	"encoding/xml"
	"path"
	"strings"
)

// Relationship is one typed link from a source container (the package root
// or a part) to a target.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string // "Internal" or "External"
}

// IsExternal reports whether the target is an external URI.
func (r Relationship) IsExternal() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// ResolveTarget resolves the relationship target against the directory of
// the source part and canonicalizes it. ok is false when the target escapes
// the package root. External targets are returned untouched.
func (r Relationship) ResolveTarget(sourceURI string) (string, bool) {
	if r.IsExternal() {
		return r.Target, true
	}

	target := r.Target
	var base string
	if strings.HasPrefix(target, "/") {
		base = "/"
	} else {
		base = path.Dir(normalize(sourceURI))
	}

	var stack []string
	for _, seg := range strings.Split(base+"/"+target, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) == 0 {
				return "/" + strings.Join(stack, "/"), false
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}
	return "/" + strings.Join(stack, "/"), true
}

// Relationships is the ordered, id-indexed collection for one source.
type Relationships struct {
	Source string

	list []Relationship
	byID map[string]Relationship
	dups []string
}

func emptyRelationships(source string) *Relationships {
	return &Relationships{Source: source, byID: make(map[string]Relationship)}
}

// All returns the relationships in declaration order.
func (rs *Relationships) All() []Relationship { return rs.list }

// Len returns the number of relationships.
func (rs *Relationships) Len() int { return len(rs.list) }

// ByID returns the relationship with the given id.
func (rs *Relationships) ByID(id string) (Relationship, bool) {
	r, ok := rs.byID[id]
	return r, ok
}

// ByType returns every relationship with the given type URI, in order.
func (rs *Relationships) ByType(relType string) []Relationship {
	var out []Relationship
	for _, r := range rs.list {
		if r.Type == relType {
			out = append(out, r)
		}
	}
	return out
}

// FirstByType returns the first relationship with the given type URI.
func (rs *Relationships) FirstByType(relType string) (Relationship, bool) {
	for _, r := range rs.list {
		if r.Type == relType {
			return r, true
		}
	}
	return Relationship{}, false
}

// DuplicateIDs lists ids that appeared more than once in the source file.
func (rs *Relationships) DuplicateIDs() []string { return rs.dups }

type relationshipsXML struct {
	XMLName xml.Name `xml:"Relationships"`
	Rels    []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

func parseRelationships(data []byte, sourceURI string) (*Relationships, error) {
	var doc relationshipsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	rs := emptyRelationships(sourceURI)
	for _, e := range doc.Rels {
		if e.ID == "" || e.Type == "" {
			continue
		}
		mode := e.TargetMode
		if mode == "" {
			mode = "Internal"
		}
		rel := Relationship{ID: e.ID, Type: e.Type, Target: e.Target, TargetMode: mode}
		if _, dup := rs.byID[rel.ID]; dup {
			rs.dups = append(rs.dups, rel.ID)
		} else {
			rs.byID[rel.ID] = rel
		}
		rs.list = append(rs.list, rel)
	}
	return rs, nil
}

// RelsPath returns the path of the .rels file for a source. The package root
// ("/") maps to /_rels/.rels; a part maps to {dir}/_rels/{name}.rels.
func RelsPath(sourceURI string) string {
	if sourceURI == "/" {
		return "/_rels/.rels"
	}
	sourceURI = normalize(sourceURI)
	dir, name := path.Split(sourceURI)
	return dir + "_rels/" + name + ".rels"
}
