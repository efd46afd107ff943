package extractor

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkShortText(t *testing.T) {
	chunks := Chunk("  short text  ", 1000, 200)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Errorf("Chunk = %q, want single trimmed chunk", chunks)
	}

	if got := Chunk("   \n\t ", 1000, 200); len(got) != 0 {
		t.Errorf("Chunk(blank) = %q, want none", got)
	}
}

func TestChunkRespectsSizeAndOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 300; i++ {
		sb.WriteString("word ")
	}
	text := sb.String()

	chunks := Chunk(text, 100, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 100 {
			t.Errorf("chunk %d has %d runes, want <= 100", i, n)
		}
	}

	// consecutive chunks share text
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-10:]
		if !strings.Contains(chunks[i], strings.TrimSpace(tail)) {
			t.Errorf("chunk %d does not overlap previous chunk", i)
		}
	}
}

func TestChunkPrefersChineseSentenceEnd(t *testing.T) {
	first := strings.Repeat("甲", 80) + "。"
	second := strings.Repeat("乙", 80) + "。"

	chunks := Chunk(first+second, 100, 0)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if chunks[0] != first {
		t.Errorf("first chunk should end at the sentence boundary, got %q", chunks[0])
	}
	if chunks[1] != second {
		t.Errorf("second chunk = %q", chunks[1])
	}
}

func TestChunkPrefersParagraph(t *testing.T) {
	para1 := strings.Repeat("a", 75) + ". " + strings.Repeat("b", 5)
	para2 := strings.Repeat("c", 60)

	chunks := Chunk(para1+"\n\n"+para2, 100, 0)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2: %q", len(chunks), chunks)
	}
	if chunks[0] != para1 {
		t.Errorf("first chunk = %q, want paragraph one", chunks[0])
	}
}

func TestChunkIsDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 80)

	a := Chunk(text, 300, 60)
	b := Chunk(text, 300, 60)

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs", i)
		}
	}
}

func TestChunkInvalidOverlapDoesNotLoop(t *testing.T) {
	chunks := Chunk(strings.Repeat("x", 50), 10, 10)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
}
