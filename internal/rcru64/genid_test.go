package rcru64

import (
	"strings"
	"testing"
)

func TestTwisterGolden(t *testing.T) {
	tests := []struct {
		seed uint32
		want string
	}{
		{1, "JQF8V7GP"},
		{0xDEADBEEF, "1B7I3L0J"},
	}

	for _, tt := range tests {
		got := newTwister(tt.seed).randomString(victimIDLen + ransomExtLen)
		if got != tt.want {
			t.Errorf("seed %#x: got %q, want %q", tt.seed, got, tt.want)
		}
	}
}

func TestGenerateID(t *testing.T) {
	// Only the first 51 charset entries are reachable, upper-cased.
	alphabet := strings.ToUpper(idChars[:idCharMaxIndex+1])

	id, ext, err := GenerateID()
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}

	if len(id) != victimIDLen {
		t.Errorf("victim ID %q has length %d, want %d", id, len(id), victimIDLen)
	}

	if !strings.HasPrefix(ext, ".") || len(ext) != ransomExtLen+1 {
		t.Errorf("ransom ext %q malformed", ext)
	}

	for _, s := range []string{id, ext[1:]} {
		for _, c := range s {
			if !strings.ContainsRune(alphabet, c) {
				t.Errorf("character %q outside generator alphabet", c)
			}
		}
	}
}
