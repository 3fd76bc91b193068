package testutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snapshot is the expected result of one fixture.
type Snapshot struct {
	Description string `yaml:"description"`
	InputFile   string `yaml:"input_file"`
	// Error, when set, is a substring of the error the render must fail
	// with. Expected is ignored then.
	Error    string `yaml:"error"`
	Expected string `yaml:"-"`
}

// ParseSnapshotFile parses a .snap file.
func ParseSnapshotFile(path string) (*Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSnapshot(string(content))
}

// ParseSnapshot parses the content of a .snap file.
// Format: ---\n<yaml metadata>\n---\n<expected output>
//
// The final newline of the file is not part of the expected output.
func ParseSnapshot(content string) (*Snapshot, error) {
	snap := &Snapshot{}

	content = strings.TrimPrefix(content, "---\n")
	parts := strings.SplitN(content, "\n---\n", 2)
	if len(parts) < 2 {
		snap.Expected = strings.TrimSuffix(content, "\n")
		return snap, nil
	}

	if err := yaml.Unmarshal([]byte(parts[0]), snap); err != nil {
		return nil, err
	}
	snap.Expected = strings.TrimSuffix(parts[1], "\n")
	return snap, nil
}

// LoadSkipList loads a skip list file (one fixture name per line, # for
// comments). A missing file is an empty list.
func LoadSkipList(path string) (map[string]bool, error) {
	skipList := make(map[string]bool)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return skipList, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		skipList[line] = true
	}
	return skipList, scanner.Err()
}

// FindSnapshotFile returns the snapshot path of an input file:
// <snapshotDir>/<prefix>@<input base name>.snap
func FindSnapshotFile(snapshotDir, testPrefix, inputFile string) string {
	base := filepath.Base(inputFile)
	return filepath.Join(snapshotDir, testPrefix+"@"+base+".snap")
}
