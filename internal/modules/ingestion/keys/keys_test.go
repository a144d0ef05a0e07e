package keys

import "testing"

func TestChunkObjectName(t *testing.T) {
	cases := map[string]string{
		"Complaint.pdf":                 "Complaint_chunk_3.txt",
		"dir/sub/Motion.to.Dismiss.PDF": "Motion.to.Dismiss_chunk_3.txt",
		`C:\uploads\exhibit-a.pdf`:      "exhibit-a_chunk_3.txt",
	}
	for in, want := range cases {
		if got := ChunkObjectName(in, 3); got != want {
			t.Fatalf("ChunkObjectName(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestCaseKeys(t *testing.T) {
	if got := SourceKey("2023-CV-001", "../../etc/Brief.pdf"); got != "cases/2023-CV-001/source/Brief.pdf" {
		t.Fatalf("SourceKey: got=%q", got)
	}
	if got := ChunkKey("2023-CV-001", "Brief.pdf", 1); got != "cases/2023-CV-001/chunks/Brief_chunk_1.txt" {
		t.Fatalf("ChunkKey: got=%q", got)
	}
	if got := ChunksPrefix("2023-CV-001"); got != "cases/2023-CV-001/chunks/" {
		t.Fatalf("ChunksPrefix: got=%q", got)
	}
}

func TestValidCaseNumber(t *testing.T) {
	for _, ok := range []string{"2023-CV-001", "A 12"} {
		if !ValidCaseNumber(ok) {
			t.Fatalf("want valid: %q", ok)
		}
	}
	for _, bad := range []string{"", "  ", "..", "a/b", `a\b`} {
		if ValidCaseNumber(bad) {
			t.Fatalf("want invalid: %q", bad)
		}
	}
}
