package encoding

import (
	"bytes"
	"testing"
)

func TestUTF16LERoundTrip(t *testing.T) {
	tests := []string{"", "tir_chonaill", "Dunbarton 던바튼", "prop/event/x"}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			encoded, err := StringToUTF16LE(s)
			if err != nil {
				t.Fatalf("StringToUTF16LE failed: %v", err)
			}
			if got := UTF16LEToString(encoded); got != s {
				t.Errorf("round trip: expected %q, got %q", s, got)
			}
		})
	}
}

func TestStringToUTF16LE_Layout(t *testing.T) {
	encoded, err := StringToUTF16LE("Ab")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(encoded, []byte{'A', 0, 'b', 0}) {
		t.Errorf("unexpected encoding % x", encoded)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Material\\Terrain\\Grass.DDS", "material/terrain/grass.dds"},
		{"data/gfx/prop.set", "data/gfx/prop.set"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.input); got != tt.expected {
			t.Errorf("NormalizePath(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestFixedStrings(t *testing.T) {
	fixed := StringToFixed("mesh01", 8)
	if len(fixed) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(fixed))
	}
	if got := TrimNullString(fixed); got != "mesh01" {
		t.Errorf("expected mesh01, got %q", got)
	}

	truncated := StringToFixed("abcdefgh", 4)
	if got := TrimNullString(truncated); got != "abc" {
		t.Errorf("expected truncation to abc, got %q", got)
	}
}

func TestDecodeText(t *testing.T) {
	wide, err := StringToUTF16LE("10\t나무")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf16 bom", append([]byte{0xFF, 0xFE}, wide...), "10\t나무"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "10\ttree"...), "10\ttree"},
		{"plain", []byte("10\ttree"), "10\ttree"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeText(tt.data); got != tt.want {
				t.Errorf("DecodeText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasBOM(t *testing.T) {
	tests := []struct {
		data []byte
		want bool
	}{
		{[]byte{0xFF, 0xFE, '<', 0}, true},
		{[]byte{0xFE, 0xFF, 0, '<'}, true},
		{[]byte{0xEF, 0xBB, 0xBF, '<'}, true},
		{[]byte("<Material/>"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := HasBOM(tt.data); got != tt.want {
			t.Errorf("HasBOM(% x) = %v, want %v", tt.data, got, tt.want)
		}
	}
}
