package conformance

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFixtures(t *testing.T) {
	cases, err := LoadSuites("testdata")
	if err != nil {
		t.Fatalf("loading fixtures: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("no fixture cases found")
	}

	byFile := make(map[string][]LoadedCase)
	for _, c := range cases {
		byFile[c.File] = append(byFile[c.File], c)
	}
	for file, fileCases := range byFile {
		t.Run(file, func(t *testing.T) {
			for _, c := range fileCases {
				t.Run(c.Test.Name, func(t *testing.T) {
					if r := Run(c); !r.Passed {
						t.Error(r.Err)
					}
				})
			}
		})
	}
}

func TestLoaderRejectsNamelessSuite(t *testing.T) {
	if _, err := LoadSuite("testdata/arithmetic.yaml"); err != nil {
		t.Fatalf("valid fixture rejected: %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("tests:\n  - name: x\n    expr: {int: 1}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSuite(bad); err == nil {
		t.Fatal("nameless suite accepted")
	}
}
