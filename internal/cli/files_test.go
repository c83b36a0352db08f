package cli

import "testing"

func TestDownloadFileName(t *testing.T) {
	tests := []struct {
		url    string
		fileID string
		want   string
	}{
		{"http://storage.local/bucket/laporan.pdf?sig=abc", "f1", "laporan.pdf"},
		{"http://storage.local/", "f1", "f1"},
		{"://bad url", "f1", "f1"},
	}

	for _, tt := range tests {
		if got := downloadFileName(tt.url, tt.fileID); got != tt.want {
			t.Errorf("downloadFileName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
