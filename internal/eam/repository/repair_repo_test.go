package repository

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateCodeUnique(t *testing.T) {
	r := &RepairRepository{}
	prefix := "RO-" + time.Now().Format("20060102") + "-"

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := r.GenerateCode()
		if !strings.HasPrefix(code, prefix) {
			t.Fatalf("code %q should start with %q", code, prefix)
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = true
	}
}
