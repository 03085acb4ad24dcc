package budgeter

import (
	"strings"
	"testing"
)

func depthParts(size int) []Part {
	return []Part{{Output: strings.Repeat("a", size)}}
}

func TestDecideBelowNeverTruncateIsVerbatim(t *testing.T) {
	d := Decide(depthParts(500), 0, 100, "evt1")
	if d.Truncated {
		t.Fatalf("expected verbatim for size below NeverTruncate")
	}
}

func TestDecideScenarioVerbatimAtBurialDepth5(t *testing.T) {
	// totalMessages=6, currentIndex=0 -> burialDepth = 6-0-1 = 5.
	d := Decide(depthParts(1500), 0, 6, "evt1")
	if d.Truncated {
		t.Fatalf("expected verbatim at burialDepth=5, size=1500")
	}
}

func TestDecideScenarioTruncatesWithRetrievalIDAtBurialDepth6(t *testing.T) {
	// totalMessages=7, currentIndex=0 -> burialDepth = 7-0-1 = 6.
	d := Decide(depthParts(1500), 0, 7, "evt1")
	if !d.Truncated {
		t.Fatalf("expected truncation at burialDepth=6, size=1500")
	}
	if !strings.Contains(d.Parts[0].Output, "1500 chars output truncated") {
		t.Fatalf("Output = %q", d.Parts[0].Output)
	}
	if !strings.Contains(d.Parts[0].Output, `fs_read(tool="evt1")`) {
		t.Fatalf("Output missing retrieval reference: %q", d.Parts[0].Output)
	}
}

func TestDecideScenarioTruncatesWithoutRetrievalIDAtBurialDepth6(t *testing.T) {
	d := Decide(depthParts(1500), 0, 7, "")
	if !d.Truncated {
		t.Fatalf("expected truncation at burialDepth=6, size=1500")
	}
	if !strings.Contains(d.Parts[0].Output, "omitted to save context (1500 chars)") {
		t.Fatalf("Output = %q", d.Parts[0].Output)
	}
}

func TestDecideLargeSizeLowersBurialLimit(t *testing.T) {
	// size > Large (10000): limit drops to LargeBurialLimit=3.
	// burialDepth=3 -> totalMessages=4, currentIndex=0.
	d := Decide(depthParts(10_001), 0, 4, "evt1")
	if !d.Truncated {
		t.Fatalf("expected truncation at burialDepth=3 for size > Large")
	}

	// The same burial depth with a size in the "small" bracket stays verbatim
	// because its limit is higher (SmallBurialLimit=6).
	d2 := Decide(depthParts(1500), 0, 4, "evt1")
	if d2.Truncated {
		t.Fatalf("expected verbatim at burialDepth=3 for size in the small bracket")
	}
}

func TestDecideNeverKeepsVerbatimWhenTruncatingWithoutRetrievalID(t *testing.T) {
	d := Decide(depthParts(2000), 5, 6, "")
	if !d.Truncated {
		t.Fatalf("expected truncation")
	}
	for _, p := range d.Parts {
		if p.Output == strings.Repeat("a", 2000) {
			t.Fatalf("output was kept verbatim despite truncation decision")
		}
	}
}

func TestBurialDepthFormula(t *testing.T) {
	if got := BurialDepth(10, 3); got != 6 {
		t.Fatalf("BurialDepth(10, 3) = %d, want 6", got)
	}
}

func TestDecideMonotonicBurialDepthNeverDecreasesTruncationLikelihood(t *testing.T) {
	size := 1500
	prevTruncated := false
	for depth := 0; depth <= 10; depth++ {
		total := depth + 1
		d := Decide(depthParts(size), 0, total, "evt1")
		if prevTruncated && !d.Truncated {
			t.Fatalf("truncation reverted to verbatim at depth=%d", depth)
		}
		prevTruncated = d.Truncated
	}
}
