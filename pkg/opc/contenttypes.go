package opc

import (
	"encoding/xml"
	"path"
	"strings"
)

// ContentTypes is the parsed [Content_Types].xml table: extension defaults
// and per-part overrides. Overrides take precedence on lookup.
type ContentTypes struct {
	Defaults  map[string]string // lowercased extension -> media type
	Overrides map[string]string // part path -> media type
}

func newContentTypes() *ContentTypes {
	return &ContentTypes{
		Defaults:  make(map[string]string),
		Overrides: make(map[string]string),
	}
}

type contentTypesXML struct {
	XMLName  xml.Name `xml:"Types"`
	Defaults []struct {
		Extension   string `xml:"Extension,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Default"`
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

func parseContentTypes(data []byte) (*ContentTypes, error) {
	var doc contentTypesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	ct := newContentTypes()
	for _, d := range doc.Defaults {
		if d.Extension != "" && d.ContentType != "" {
			ct.Defaults[strings.ToLower(d.Extension)] = d.ContentType
		}
	}
	for _, o := range doc.Overrides {
		if o.PartName != "" && o.ContentType != "" {
			ct.Overrides[normalize(o.PartName)] = o.ContentType
		}
	}
	return ct, nil
}

// Lookup returns the media type for a part path, or "" when neither an
// override nor an extension default applies. Override matching is exact;
// extension matching is case-insensitive.
func (ct *ContentTypes) Lookup(partName string) string {
	partName = normalize(partName)
	if mt, ok := ct.Overrides[partName]; ok {
		return mt
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(partName), "."))
	return ct.Defaults[ext]
}

// IsXML reports whether a media type denotes XML content.
func IsXML(mediaType string) bool {
	return mediaType == "application/xml" || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml")
}
