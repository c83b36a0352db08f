package validation

import "testing"

func TestValidateFilename(t *testing.T) {
	valid := []string{
		"laporan.pdf",
		"foto kegiatan.jpg",
		"data..v2.csv",
		".hidden",
	}
	for _, name := range valid {
		if err := ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"..",
		".",
		"a/b.txt",
		`a\b.txt`,
		"evil\x00.txt",
		"../escape.txt",
	}
	for _, name := range invalid {
		if err := ValidateFilename(name); err == nil {
			t.Errorf("ValidateFilename(%q) = nil, want error", name)
		}
	}
}
