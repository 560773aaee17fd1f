package cache

import (
	"strings"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	a, err := Fingerprint("search", "google", map[string]interface{}{"q": "go 1.24", "max": 10})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint("search", "google", map[string]interface{}{"max": 10, "q": "go 1.24"})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("key order changed fingerprint: %s vs %s", a, b)
	}
}

func TestFingerprintNormalizesWhitespace(t *testing.T) {
	cases := []struct {
		name string
		a, b interface{}
		same bool
	}{
		{"extra spaces", map[string]string{"q": "go  generics"}, map[string]string{"q": "go generics"}, true},
		{"leading and trailing", map[string]string{"q": "  go generics \n"}, map[string]string{"q": "go generics"}, true},
		{"nested strings", map[string]interface{}{"qs": []string{" a  b ", "c"}}, map[string]interface{}{"qs": []string{"a b", "c"}}, true},
		{"different query", map[string]string{"q": "go generics"}, map[string]string{"q": "rust traits"}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fa, err := Fingerprint("search", "google", c.a)
			if err != nil {
				t.Fatal(err)
			}
			fb, err := Fingerprint("search", "google", c.b)
			if err != nil {
				t.Fatal(err)
			}
			if (fa == fb) != c.same {
				t.Fatalf("fingerprints %s / %s; want same=%v", fa, fb, c.same)
			}
		})
	}
}

func TestFingerprintSeparatesCapabilityAndProvider(t *testing.T) {
	base, _ := Fingerprint("search", "google", "q")
	otherCap, _ := Fingerprint("llm", "google", "q")
	otherProv, _ := Fingerprint("search", "searx", "q")

	if base == otherCap || base == otherProv {
		t.Fatal("capability/provider must be part of the fingerprint")
	}
	if !strings.HasPrefix(base, "search:") {
		t.Fatalf("fingerprint %q missing capability prefix", base)
	}
}
