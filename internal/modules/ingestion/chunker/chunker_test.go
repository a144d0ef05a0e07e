package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitScenario(t *testing.T) {
	text := strings.Repeat("a", 4500)
	chunks, err := Split(text, 2000, 200)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	wantStarts := []int{0, 1800, 3600}
	if len(chunks) != len(wantStarts) {
		t.Fatalf("chunks: want=%d got=%d", len(wantStarts), len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i+1 {
			t.Fatalf("chunk %d index: want=%d got=%d", i, i+1, c.Index)
		}
		if c.Start != wantStarts[i] {
			t.Fatalf("chunk %d start: want=%d got=%d", i, wantStarts[i], c.Start)
		}
	}
	if chunks[2].Size != 900 || len(chunks[2].Text) != 900 {
		t.Fatalf("last chunk: want size=900 got size=%d len=%d", chunks[2].Size, len(chunks[2].Text))
	}
}

func TestSplitReconstructsText(t *testing.T) {
	texts := []string{
		"x",
		"short text",
		strings.Repeat("The court grants the motion. ", 97),
		strings.Repeat("é漢字🙂", 333),
	}
	params := [][2]int{{1, 0}, {5, 0}, {7, 3}, {10, 9}, {64, 16}, {2000, 200}}
	for _, text := range texts {
		for _, p := range params {
			size, overlap := p[0], p[1]
			chunks, err := Split(text, size, overlap)
			if err != nil {
				t.Fatalf("Split(size=%d overlap=%d): %v", size, overlap, err)
			}
			if len(chunks) == 0 {
				t.Fatalf("non-empty text produced zero chunks (size=%d overlap=%d)", size, overlap)
			}
			stride := size - overlap
			var b strings.Builder
			for i, c := range chunks {
				r := []rune(c.Text)
				if len(r) == 0 {
					t.Fatalf("empty chunk %d (size=%d overlap=%d)", i, size, overlap)
				}
				if len(r) != c.Size {
					t.Fatalf("chunk %d size: want=%d got=%d", i, len(r), c.Size)
				}
				if i > 0 && c.Start != chunks[i-1].Start+stride {
					t.Fatalf("chunk %d start: want=%d got=%d", i, chunks[i-1].Start+stride, c.Start)
				}
				if i == len(chunks)-1 {
					b.WriteString(c.Text)
				} else {
					b.WriteString(string(r[:stride]))
				}
			}
			if b.String() != text {
				t.Fatalf("reconstruction mismatch (size=%d overlap=%d)", size, overlap)
			}
		}
	}
}

func TestSplitEmptyText(t *testing.T) {
	chunks, err := Split("", 100, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("chunks: want=0 got=%d", len(chunks))
	}
}

func TestSplitExactSizeIsOneChunk(t *testing.T) {
	chunks, err := Split(strings.Repeat("b", 2000), 2000, 200)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Size != 2000 {
		t.Fatalf("want one full chunk got=%d", len(chunks))
	}
}

func TestSplitInvalidArguments(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks, err := Split("some text", tc.size, tc.overlap)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("want ErrInvalidArgument got=%v", err)
			}
			if chunks != nil {
				t.Fatalf("want nil chunks got=%v", chunks)
			}
		})
	}
}
