package checksum

import (
	"strings"
	"testing"
)

func TestReaderMatchesSum(t *testing.T) {
	data := "[{\"id\":\"x\"}]"
	got, err := Reader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if got != Sum([]byte(data)) {
		t.Errorf("Reader = %q, Sum = %q", got, Sum([]byte(data)))
	}
}

func TestFields_SeparatorMatters(t *testing.T) {
	if Fields("ab", "c") == Fields("a", "bc") {
		t.Error("field boundaries should change the digest")
	}
	if Fields("a", "b") != Fields("a", "b") {
		t.Error("digest should be deterministic")
	}
}
