package embedding

import "testing"

func TestTextHashDeterministic(t *testing.T) {
	h1 := TextHash("hello", "text-embedding-3-small", 1, 1, "")
	h2 := TextHash("hello", "text-embedding-3-small", 1, 1, "")
	if h1 != h2 {
		t.Fatalf("expected deterministic hash, got %s != %s", h1, h2)
	}
}

func TestTextHashSensitiveToVersion(t *testing.T) {
	h1 := TextHash("hello", "text-embedding-3-small", 1, 1, "")
	h2 := TextHash("hello", "text-embedding-3-small", 2, 1, "")
	if h1 == h2 {
		t.Fatalf("expected different hash when chunking_version differs")
	}
}

func TestTextHashSensitiveToLang(t *testing.T) {
	h1 := TextHash("hello", "text-embedding-3-small", 1, 1, "uk")
	h2 := TextHash("hello", "text-embedding-3-small", 1, 1, "")
	if h1 == h2 {
		t.Fatalf("expected different hash when lang differs")
	}
}
