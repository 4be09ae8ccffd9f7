package conformance

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadedCase pairs a test case with the fixture it came from.
type LoadedCase struct {
	File  string
	Suite string
	Test  TestCase
}

// LoadSuites reads every .yaml fixture under dir.
func LoadSuites(dir string) ([]LoadedCase, error) {
	var loaded []LoadedCase
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		suite, err := LoadSuite(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rel, _ := filepath.Rel(dir, path)
		for _, tc := range suite.Tests {
			loaded = append(loaded, LoadedCase{File: rel, Suite: suite.Name, Test: tc})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// LoadSuite reads one fixture file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, err
	}
	if suite.Name == "" {
		return nil, fmt.Errorf("fixture has no name")
	}
	for i, tc := range suite.Tests {
		if tc.Name == "" {
			return nil, fmt.Errorf("test %d has no name", i)
		}
	}
	return &suite, nil
}
