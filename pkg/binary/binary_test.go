package binary

import (
	"testing"

	"github.com/adammathes/ooxmlverify/pkg/report"
	"github.com/stretchr/testify/require"
)

func pad(prefix []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, prefix)
	return out
}

func validEMF() []byte {
	data := make([]byte, 48)
	copy(data, []byte{0x01, 0x00, 0x00, 0x00})
	copy(data[40:], []byte(" EMF"))
	return data
}

func TestCheckImageSignatures(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		uri         string
		data        []byte
		valid       bool
	}{
		{"png valid", "image/png", "/ppt/media/image1.png", pad([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, 64), true},
		{"png invalid", "image/png", "/ppt/media/image1.png", []byte("definitely not a png"), false},
		{"jpeg valid", "image/jpeg", "/ppt/media/image1.jpg", pad([]byte{0xFF, 0xD8, 0xFF, 0xE0}, 64), true},
		{"jpeg invalid", "image/jpeg", "/ppt/media/image1.jpg", pad([]byte{0x00, 0x00}, 64), false},
		{"gif valid", "image/gif", "/ppt/media/image1.gif", pad([]byte("GIF89a"), 64), true},
		{"gif old valid", "image/gif", "/ppt/media/image1.gif", pad([]byte("GIF87a"), 64), true},
		{"bmp valid", "image/bmp", "/ppt/media/image1.bmp", pad([]byte("BM"), 64), true},
		{"tiff little-endian", "image/tiff", "/ppt/media/image1.tif", pad([]byte("II*\x00"), 64), true},
		{"tiff big-endian", "image/tiff", "/ppt/media/image1.tif", pad([]byte("MM\x00*"), 64), true},
		{"tiff invalid", "image/tiff", "/ppt/media/image1.tif", pad([]byte("XX"), 64), false},
		{"emf valid", "image/emf", "/ppt/media/image1.emf", validEMF(), true},
		{"emf truncated", "image/emf", "/ppt/media/image1.emf", []byte{0x01, 0x00, 0x00, 0x00}, false},
		{"wmf placeable", "image/wmf", "/ppt/media/image1.wmf", pad([]byte{0xD7, 0xCD, 0xC6, 0x9A}, 64), true},
		{"wmf non-placeable", "image/wmf", "/ppt/media/image1.wmf", pad([]byte{0x01, 0x00, 0x09, 0x00}, 64), true},
		{"wmf invalid", "image/wmf", "/ppt/media/image1.wmf", pad([]byte{0x05, 0x00, 0x01, 0x00}, 64), false},
		{"ole valid", "application/vnd.openxmlformats-officedocument.oleObject", "/word/embeddings/oleObject1.bin",
			pad([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, 64), true},
		{"ole invalid", "application/vnd.openxmlformats-officedocument.oleObject", "/word/embeddings/oleObject1.bin",
			pad([]byte("junk"), 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(tt.contentType, tt.uri, tt.data, nil)
			if tt.valid && res != nil {
				t.Errorf("Check() = %v, want nil", res)
			}
			if !tt.valid {
				if res == nil {
					t.Fatal("Check() = nil, want a result")
				}
				if res.Severity != report.Error {
					t.Errorf("severity = %s, want error", res.Severity)
				}
			}
		})
	}
}

func TestCheckFallsBackToExtension(t *testing.T) {
	// No declared content type: the extension decides the expected format.
	res := Check("", "/ppt/media/picture.PNG", []byte("not a png at all"), nil)
	require.NotNil(t, res)

	res = Check("", "/ppt/media/picture.png", pad([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, 16), nil)
	require.Nil(t, res)
}

func TestCheckIgnoresUnrecognizedParts(t *testing.T) {
	require.Nil(t, Check("application/octet-stream", "/ppt/media/blob.dat", []byte("anything"), nil))
	require.Nil(t, Check("", "/docProps/thumbnail", []byte("anything"), nil))
}

func TestCheckFontSignatures(t *testing.T) {
	ttf := pad([]byte{0x00, 0x01, 0x00, 0x00}, 64)
	otto := pad([]byte("OTTO"), 64)

	require.Nil(t, Check("application/x-font-ttf", "/ppt/embeddings/font1.ttf", ttf, nil))
	require.Nil(t, Check("application/vnd.ms-opentype", "/ppt/embeddings/font1.otf", otto, nil))
	require.Nil(t, Check("", "/ppt/embeddings/font1.ttf", ttf, nil), "extension alone marks a font candidate")

	res := Check("application/x-font-ttf", "/ppt/embeddings/font1.ttf", pad([]byte("nope"), 64), nil)
	require.NotNil(t, res)
	require.Equal(t, report.Error, res.Severity)
}

func TestCheckFntdataWrapper(t *testing.T) {
	payload := pad([]byte{0x00, 0x01, 0x00, 0x00}, 32)
	total := 8 + len(payload)
	data := []byte{
		byte(total), byte(total >> 8), byte(total >> 16), byte(total >> 24),
		byte(len(payload)), byte(len(payload) >> 8), byte(len(payload) >> 16), byte(len(payload) >> 24),
	}
	data = append(data, payload...)

	require.Nil(t, Check("application/x-fontdata", "/ppt/fonts/font1.fntdata", data, nil))

	// A wrapper whose length fields do not add up is an invalid font.
	bad := append([]byte{0xFF, 0xFF, 0xFF, 0x7F, 0x01, 0x00, 0x00, 0x00}, payload...)
	require.NotNil(t, Check("application/x-fontdata", "/ppt/fonts/font1.fntdata", bad, nil))
}

func TestParseFontKey(t *testing.T) {
	key := ParseFontKey("{00112233-4455-6677-8899-AABBCCDDEEFF}")
	require.NotNil(t, key)
	require.Len(t, key, 16)
	// The first three GUID fields are stored little-endian.
	require.Equal(t, []byte{0x33, 0x22, 0x11, 0x00}, key[:4])
	require.Equal(t, []byte{0x55, 0x44}, key[4:6])
	require.Equal(t, []byte{0x77, 0x66}, key[6:8])
	require.Equal(t, []byte{0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, key[8:])

	bare := ParseFontKey("00112233-4455-6677-8899-aabbccddeeff")
	require.Equal(t, key, bare, "braces are optional and case is ignored")

	for _, bad := range []string{"", "not-a-guid", "{0011-4455-6677-8899-AABBCCDDEEFF}", "{0011223Z-4455-6677-8899-AABBCCDDEEFF}"} {
		require.Nil(t, ParseFontKey(bad), "ParseFontKey(%q)", bad)
	}
}

func TestCheckObfuscatedFont(t *testing.T) {
	key := ParseFontKey("{00112233-4455-6677-8899-AABBCCDDEEFF}")
	require.NotNil(t, key)

	font := pad([]byte{0x00, 0x01, 0x00, 0x00}, 64)
	obfuscated := make([]byte, len(font))
	copy(obfuscated, font)
	for i := 0; i < 32; i++ {
		obfuscated[i] ^= key[i%16]
	}

	const ct = "application/vnd.openxmlformats-officedocument.obfuscatedFont"

	require.Nil(t, Check(ct, "/word/fonts/font1.odttf", obfuscated, key))

	missing := Check(ct, "/word/fonts/font1.odttf", obfuscated, nil)
	require.NotNil(t, missing)
	require.Equal(t, report.Warning, missing.Severity)

	wrongKey := ParseFontKey("{FFFFFFFF-FFFF-FFFF-FFFF-FFFFFFFFFFFF}")
	garbled := Check(ct, "/word/fonts/font1.odttf", obfuscated, wrongKey)
	require.NotNil(t, garbled)
	require.Equal(t, report.Error, garbled.Severity)
}
