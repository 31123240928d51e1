package domain

import "testing"

func TestPickVideoFilePrefersLargestBrowserSafe(t *testing.T) {
	files := []FileRef{
		{Index: 0, Path: "a.srt", Length: 10},
		{Index: 1, Path: "b.mkv", Length: 500},
		{Index: 2, Path: "c.mp4", Length: 700},
		{Index: 3, Path: "d.mp4", Length: 300},
	}

	picked, ok := PickVideoFile(files)
	if !ok {
		t.Fatal("expected a file to be picked")
	}
	if picked.Path != "c.mp4" {
		t.Fatalf("picked = %q, want c.mp4", picked.Path)
	}
}

func TestPickVideoFileFallsBackToLargestVideo(t *testing.T) {
	files := []FileRef{
		{Index: 0, Path: "a.mkv", Length: 900},
		{Index: 1, Path: "b.avi", Length: 100},
	}

	picked, ok := PickVideoFile(files)
	if !ok {
		t.Fatal("expected a file to be picked")
	}
	if picked.Path != "a.mkv" {
		t.Fatalf("picked = %q, want a.mkv", picked.Path)
	}
}

func TestPickVideoFileFallsBackToFirstFile(t *testing.T) {
	files := []FileRef{{Index: 0, Path: "a.txt", Length: 5}}

	picked, ok := PickVideoFile(files)
	if !ok {
		t.Fatal("expected a file to be picked")
	}
	if picked.Path != "a.txt" {
		t.Fatalf("picked = %q, want a.txt", picked.Path)
	}
}

func TestPickVideoFileEmpty(t *testing.T) {
	if _, ok := PickVideoFile(nil); ok {
		t.Fatal("expected no pick for empty file list")
	}
}

func TestPickVideoFileStableOnTies(t *testing.T) {
	files := []FileRef{
		{Index: 0, Path: "first.mp4", Length: 100},
		{Index: 1, Path: "second.mp4", Length: 100},
	}

	picked, _ := PickVideoFile(files)
	if picked.Path != "first.mp4" {
		t.Fatalf("picked = %q, want first.mp4 (stable order)", picked.Path)
	}
}

func TestPickVideoFileCaseInsensitiveExtensions(t *testing.T) {
	files := []FileRef{
		{Index: 0, Path: "FEATURE.MKV", Length: 900},
		{Index: 1, Path: "extra.MP4", Length: 100},
	}

	picked, _ := PickVideoFile(files)
	if picked.Path != "extra.MP4" {
		t.Fatalf("picked = %q, want extra.MP4 (browser-safe wins)", picked.Path)
	}
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"movie.mp4", "video/mp4"},
		{"movie.m4v", "video/mp4"},
		{"movie.webm", "video/webm"},
		{"movie.mkv", "video/x-matroska"},
		{"movie.mov", "video/quicktime"},
		{"movie.bin", "application/octet-stream"},
	}
	for _, tc := range tests {
		if got := MimeType(tc.name); got != tc.want {
			t.Errorf("MimeType(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
