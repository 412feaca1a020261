package objectstore

import "testing"

func TestDetectContentTypePrefersExtension(t *testing.T) {
	mime, ok := DetectContentType("photo.PNG", []byte{0xFF, 0xD8, 0xFF})
	if !ok || mime != "image/png" {
		t.Fatalf("got %s,%v want image/png,true", mime, ok)
	}
}

func TestDetectContentTypeFallsBackToMagicBytes(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0x00}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif87", []byte("GIF87a")[:6], "image/gif"},
		{"gif89", []byte("GIF89a")[:6], "image/gif"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"bmp", []byte{0x42, 0x4D}, "image/bmp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mime, ok := DetectContentType("noext", tc.data)
			if !ok || mime != tc.want {
				t.Fatalf("got %s,%v want %s,true", mime, ok, tc.want)
			}
		})
	}
}

func TestDetectContentTypeUnrecognizedDefaultsToJPEGWithFalse(t *testing.T) {
	mime, ok := DetectContentType("noext", []byte{0x00, 0x01, 0x02})
	if ok {
		t.Fatalf("expected ok=false for unrecognized signature")
	}
	if mime != "image/jpeg" {
		t.Fatalf("got %s want image/jpeg", mime)
	}
}

func TestExtensionForKnownMimes(t *testing.T) {
	if ExtensionFor("image/png") != "png" {
		t.Fatal("expected png")
	}
	if ExtensionFor("application/octet-stream") != "bin" {
		t.Fatal("expected bin fallback")
	}
}
