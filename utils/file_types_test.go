package utils

import "testing"

func TestContentTypeForFile(t *testing.T) {
	cases := map[string]string{
		"report.PDF":    "application/pdf",
		"notes.txt":     "text/plain; charset=utf-8",
		"sheet.xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"archive.tar":   "application/octet-stream",
		"no-extension":  "application/octet-stream",
		" spaced.docx ": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
	for name, want := range cases {
		if got := ContentTypeForFile(name); got != want {
			t.Errorf("ContentTypeForFile(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestDisplayFileName(t *testing.T) {
	cases := map[string]string{
		"draft.txt":               "draft.txt",
		"../../etc/passwd":        "passwd",
		`C:\Users\ada\draft.docx`: "draft.docx",
		"  chapter\x001.pdf  ":    "chapter1.pdf",
		"":                        "",
		"/":                       "",
	}
	for in, want := range cases {
		if got := DisplayFileName(in); got != want {
			t.Errorf("DisplayFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseExtensionList(t *testing.T) {
	got := ParseExtensionList(" .PDF,docx, ,txt,.pdf")
	want := []string{".pdf", ".docx", ".txt"}
	if len(got) != len(want) {
		t.Fatalf("ParseExtensionList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ParseExtensionList = %v, want %v", got, want)
		}
	}
}

func TestExceedsLength(t *testing.T) {
	if ExceedsLength("สวัสดี", 6) {
		t.Error("six runes must fit a limit of six")
	}
	if !ExceedsLength("abcdefg", 6) {
		t.Error("seven characters exceed a limit of six")
	}
	if ExceedsLength("anything", 0) {
		t.Error("zero means unlimited")
	}
}

func TestValidateEmail(t *testing.T) {
	if !ValidateEmail("ada@example.com") {
		t.Error("expected valid email")
	}
	if ValidateEmail("ada@") {
		t.Error("expected invalid email")
	}
}
