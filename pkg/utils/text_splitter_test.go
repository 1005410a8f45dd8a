package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTextShortInputIsOneChunk(t *testing.T) {
	text := "fits in one chunk"
	chunks := SplitText(text, 100, 20)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplitTextGeometry(t *testing.T) {
	text := strings.Repeat("a", 220)
	chunks := SplitText(text, 100, 30)

	// step = 70: [0,100) [70,170) [140,220), stopping once a window reaches
	// the end of the text.
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d has %d chars, max 100", i, len(c))
		}
	}
	if got := len(chunks[len(chunks)-1]); got != 80 {
		t.Errorf("tail chunk has %d chars, want 80", got)
	}
}

func TestSplitTextOverlapKeepsBoundaryText(t *testing.T) {
	// A sentence straddling the cut must appear whole in some chunk.
	text := strings.Repeat("x", 90) + "important detail here" + strings.Repeat("y", 60)
	chunks := SplitText(text, 100, 40)

	found := false
	for _, c := range chunks {
		if strings.Contains(c, "important detail here") {
			found = true
		}
	}
	if !found {
		t.Error("overlap lost the sentence on the boundary")
	}
}

func TestSplitTextCoversWholeInput(t *testing.T) {
	text := strings.Repeat("0123456789", 50)
	chunks := SplitText(text, 120, 20)

	for i := 0; i+10 <= len(text); i += 10 {
		window := text[i : i+10]
		present := false
		for _, c := range chunks {
			if strings.Contains(c, window) {
				present = true
				break
			}
		}
		if !present {
			t.Fatalf("input bytes [%d,%d) missing from every chunk", i, i+10)
		}
	}
}

func TestSplitTextPathologicalOverlap(t *testing.T) {
	// overlap >= chunkSize would loop forever without the step fallback.
	text := strings.Repeat("z", 300)
	chunks := SplitText(text, 100, 100)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3 non-overlapping", len(chunks))
	}
}

func TestSplitTextMultibyteSafe(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 40)
	chunks := SplitText(text, 100, 20)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want a real split", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d cuts through a multibyte rune", i)
		}
	}
}
