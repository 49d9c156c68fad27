// Package binary validates embedded non-XML payloads (images, OLE objects,
// fonts) by checking their leading bytes against the signature the declared
// content type or extension promises.
package binary

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/adammathes/ooxmlverify/pkg/report"
)

// Result is the outcome for an invalid or unverifiable payload. A nil
// result means the payload is acceptable.
type Result struct {
	Message  string
	Severity report.Severity
}

var (
	jpegMagic = [][]byte{{0xFF, 0xD8, 0xFF}}
	pngMagic  = [][]byte{{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}}
	gifMagic  = [][]byte{[]byte("GIF87a"), []byte("GIF89a")}
	bmpMagic  = [][]byte{[]byte("BM")}
	tiffMagic = [][]byte{[]byte("II*\x00"), []byte("MM\x00*")}
	oleMagic  = [][]byte{{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}}
	fontMagic = [][]byte{
		{0x00, 0x01, 0x00, 0x00},
		[]byte("OTTO"),
		[]byte("ttcf"),
		[]byte("true"),
		[]byte("typ1"),
	}
	wmfPlaceableMagic = []byte{0xD7, 0xCD, 0xC6, 0x9A}
)

var fontContentTypes = map[string]bool{
	"application/vnd.ms-opentype": true,
	"application/x-font-ttf":      true,
	"application/x-font-opentype": true,
	"application/x-fontdata":      true,
}

const obfuscatedFontContentType = "application/vnd.openxmlformats-officedocument.obfuscatedFont"

var fontExtensions = map[string]bool{
	".ttf": true, ".otf": true, ".ttc": true, ".otc": true,
	".fntdata": true, ".odttf": true,
}

func startsWithAny(data []byte, prefixes [][]byte) bool {
	for _, p := range prefixes {
		if bytes.HasPrefix(data, p) {
			return true
		}
	}
	return false
}

func isJPEG(data []byte) bool { return startsWithAny(data, jpegMagic) }
func isPNG(data []byte) bool  { return startsWithAny(data, pngMagic) }
func isGIF(data []byte) bool  { return startsWithAny(data, gifMagic) }
func isBMP(data []byte) bool  { return startsWithAny(data, bmpMagic) }
func isTIFF(data []byte) bool { return startsWithAny(data, tiffMagic) }
func isOLE(data []byte) bool  { return startsWithAny(data, oleMagic) }

// isEMF checks the EMF record type plus the " EMF" signature at offset 40.
func isEMF(data []byte) bool {
	if len(data) < 44 {
		return false
	}
	return bytes.Equal(data[:4], []byte{0x01, 0x00, 0x00, 0x00}) &&
		bytes.Equal(data[40:44], []byte(" EMF"))
}

// isWMF accepts the placeable header, or a non-placeable header with type
// 1 or 2 and header size 9.
func isWMF(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	if bytes.HasPrefix(data, wmfPlaceableMagic) {
		return true
	}
	if data[2] != 0x09 || data[3] != 0x00 {
		return false
	}
	return (data[0] == 0x01 || data[0] == 0x02) && data[1] == 0x00
}

func isFontHeader(data []byte) bool { return startsWithAny(data, fontMagic) }

// format binds a payload kind to the content types and extensions that
// declare it and the signature check it must pass.
type format struct {
	name         string
	contentTypes []string
	extensions   []string
	check        func([]byte) bool
}

var formats = []format{
	{"jpeg", []string{"image/jpeg", "image/pjpeg"}, []string{".jpg", ".jpeg"}, isJPEG},
	{"png", []string{"image/png"}, []string{".png"}, isPNG},
	{"gif", []string{"image/gif"}, []string{".gif"}, isGIF},
	{"bmp", []string{"image/bmp", "image/x-bmp"}, []string{".bmp"}, isBMP},
	{"tiff", []string{"image/tiff"}, []string{".tif", ".tiff"}, isTIFF},
	{"emf", []string{"image/emf", "image/x-emf"}, []string{".emf"}, isEMF},
	{"wmf", []string{"image/wmf", "image/x-wmf"}, []string{".wmf"}, isWMF},
	{"ole", []string{
		"application/vnd.openxmlformats-officedocument.oleObject",
		"application/vnd.ms-office.activeX",
	}, []string{".bin", ".ole"}, isOLE},
}

func extension(partURI string) string {
	lower := strings.ToLower(partURI)
	i := strings.LastIndexByte(lower, '.')
	if i < 0 {
		return ""
	}
	return lower[i:]
}

func isFontCandidate(contentType, partURI string) bool {
	if fontContentTypes[contentType] || contentType == obfuscatedFontContentType {
		return true
	}
	return fontExtensions[extension(partURI)]
}

func isObfuscatedFont(contentType, partURI string) bool {
	if contentType == obfuscatedFontContentType {
		return true
	}
	return extension(partURI) == ".odttf"
}

// extractFntdataPayload peels the length-prefixed .fntdata wrapper: total
// size and font length as little-endian uint32, font bytes at the tail.
func extractFntdataPayload(data []byte) []byte {
	if len(data) < 8 {
		return nil
	}
	total := int(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24)
	fontLen := int(uint32(data[4]) | uint32(data[5])<<8 | uint32(data[6])<<16 | uint32(data[7])<<24)
	if total <= 0 || fontLen <= 0 || total > len(data) {
		return nil
	}
	offset := total - fontLen
	if offset < 8 || offset >= len(data) {
		return nil
	}
	return data[offset:]
}

// ParseFontKey parses a GUID-style font key into the 16 deobfuscation key
// bytes, or nil when the value is not a well-formed GUID.
func ParseFontKey(value string) []byte {
	text := strings.ToLower(strings.TrimSpace(value))
	text = strings.TrimPrefix(text, "{")
	text = strings.TrimSuffix(text, "}")
	parts := strings.Split(text, "-")
	if len(parts) != 5 {
		return nil
	}
	lengths := []int{8, 4, 4, 4, 12}
	for i, p := range parts {
		if len(p) != lengths[i] {
			return nil
		}
	}
	data1, err1 := hex.DecodeString(parts[0])
	data2, err2 := hex.DecodeString(parts[1])
	data3, err3 := hex.DecodeString(parts[2])
	data4, err4 := hex.DecodeString(parts[3] + parts[4])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil
	}
	key := make([]byte, 0, 16)
	key = append(key, reverse(data1)...)
	key = append(key, reverse(data2)...)
	key = append(key, reverse(data3)...)
	key = append(key, data4...)
	return key
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// deobfuscatePrefix XORs the first bytes of an obfuscated font with the
// 16-byte key, enough to expose the signature.
func deobfuscatePrefix(data, key []byte, length int) []byte {
	limit := length
	if len(data) < limit {
		limit = len(data)
	}
	if limit == 0 {
		return nil
	}
	if len(key) != 16 {
		return data[:limit]
	}
	out := make([]byte, limit)
	for i := 0; i < limit; i++ {
		out[i] = data[i] ^ key[i%16]
	}
	return out
}

// Check validates one payload against the format its content type or
// extension declares. Parts declaring no recognized binary format pass.
// fontKey, when known, unlocks obfuscated font payloads; an obfuscated
// font without a key is reported as a warning rather than an error.
func Check(contentType, partURI string, data []byte, fontKey []byte) *Result {
	if isFontCandidate(contentType, partURI) {
		if extension(partURI) == ".fntdata" || contentType == "application/x-fontdata" {
			if payload := extractFntdataPayload(data); payload != nil && isFontHeader(payload) {
				return nil
			}
		}
		if isFontHeader(data) {
			return nil
		}
		if isObfuscatedFont(contentType, partURI) {
			if len(fontKey) != 16 {
				return &Result{
					Message:  "Obfuscated font payload missing fontKey; unable to validate",
					Severity: report.Warning,
				}
			}
			if isFontHeader(deobfuscatePrefix(data, fontKey, 32)) {
				return nil
			}
			return &Result{
				Message:  "Invalid obfuscated font payload after deobfuscation",
				Severity: report.Error,
			}
		}
		return &Result{Message: "Invalid font payload", Severity: report.Error}
	}

	for _, fmtDef := range formats {
		if !matchesFormat(fmtDef, contentType, extension(partURI)) {
			continue
		}
		if fmtDef.check(data) {
			return nil
		}
		msg := fmt.Sprintf("Invalid %s payload", fmtDef.name)
		if contentType != "" {
			msg = fmt.Sprintf("%s (content type %s)", msg, contentType)
		}
		return &Result{Message: msg, Severity: report.Error}
	}
	return nil
}

func matchesFormat(f format, contentType, ext string) bool {
	for _, ct := range f.contentTypes {
		if contentType != "" && contentType == ct {
			return true
		}
	}
	for _, e := range f.extensions {
		if ext != "" && ext == e {
			return true
		}
	}
	return false
}
