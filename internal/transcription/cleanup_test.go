package transcription

import (
	"fmt"
	"strings"
	"testing"
)

func TestCleanTranscriptAdjacentDuplicate(t *testing.T) {
	got := CleanTranscript("the the lecture", 0)
	if got != "the lecture" {
		t.Errorf("expected adjacent duplicate dropped, got %q", got)
	}
}

func TestCleanTranscriptNonAdjacentUnchanged(t *testing.T) {
	got := CleanTranscript("the lecture the", 0)
	if got != "the lecture the" {
		t.Errorf("non-adjacent repeat should be untouched, got %q", got)
	}
}

func TestCleanTranscriptCaseInsensitive(t *testing.T) {
	got := CleanTranscript("Hello hello world", 0)
	if got != "hello world" {
		t.Errorf("expected case-insensitive dedup to keep the later word, got %q", got)
	}
}

func TestCleanTranscriptIntentionalRepetition(t *testing.T) {
	// "very very important" is a known false positive of the heuristic;
	// the cleaner drops one "very" regardless of intent.
	got := CleanTranscript("this is very very important", 0)
	if got != "this is very important" {
		t.Errorf("got %q", got)
	}
}

func TestCleanTranscriptTripleRepeat(t *testing.T) {
	got := CleanTranscript("go go go now", 0)
	if got != "go now" {
		t.Errorf("expected run of repeats collapsed to one, got %q", got)
	}
}

func TestCleanTranscriptEmpty(t *testing.T) {
	if got := CleanTranscript("", 100); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
	if got := CleanTranscript("   \t\n", 100); got != "" {
		t.Errorf("expected empty result for whitespace, got %q", got)
	}
}

func TestCleanTranscriptWordCap(t *testing.T) {
	const limit = 50000

	var b strings.Builder
	for i := 0; i < limit+1; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "w%d", i)
	}

	got := CleanTranscript(b.String(), limit)

	if !strings.HasSuffix(got, " "+TruncationMarker) {
		t.Fatalf("expected truncation marker suffix, got tail %q", got[len(got)-40:])
	}

	kept := strings.Fields(strings.TrimSuffix(got, " "+TruncationMarker))
	if len(kept) != limit {
		t.Errorf("expected exactly %d words before the marker, got %d", limit, len(kept))
	}
	if kept[len(kept)-1] != fmt.Sprintf("w%d", limit-1) {
		t.Errorf("unexpected last kept word %q", kept[len(kept)-1])
	}
}

func TestCleanTranscriptUnderCapNoMarker(t *testing.T) {
	got := CleanTranscript("one two three", 3)
	if strings.Contains(got, TruncationMarker) {
		t.Errorf("marker must not appear at exactly the cap, got %q", got)
	}
	if got != "one two three" {
		t.Errorf("got %q", got)
	}
}
