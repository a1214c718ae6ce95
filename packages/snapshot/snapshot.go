// Package snapshot stores values recorded by stories and compares later
// runs against them.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
)

const (
	// SnapshotDir is the directory name for storing snapshots
	SnapshotDir = "__snapshots__"
	// SnapshotExt is the file extension for snapshot files
	SnapshotExt = ".snap.json"
	// DefaultGroup holds snapshots whose name has no group
	DefaultGroup = "stories"
)

// Manager handles snapshot storage and comparison. It is safe for
// concurrent use.
type Manager struct {
	mu            sync.Mutex
	baseDir       string
	updateMode    bool
	snapshotsRead map[string]map[string]any // file -> {name -> value}
}

// NewManager stores snapshots below baseDir/__snapshots__. In update mode
// missing or differing snapshots are written instead of failing.
func NewManager(baseDir string, updateMode bool) *Manager {
	return &Manager{
		baseDir:       baseDir,
		updateMode:    updateMode,
		snapshotsRead: make(map[string]map[string]any),
	}
}

// UpdateMode reports whether mismatching snapshots are overwritten.
func (m *Manager) UpdateMode() bool {
	return m.updateMode
}

// SnapshotResult represents the result of a snapshot comparison.
type SnapshotResult struct {
	Passed     bool
	Message    string
	Expected   any
	Actual     any
	IsNew      bool
	WasUpdated bool
}

// Err returns nil for a passing comparison.
func (r *SnapshotResult) Err() error {
	if r.Passed {
		return nil
	}
	if r.Expected == nil {
		return fmt.Errorf("%s", r.Message)
	}
	expected, _ := json.Marshal(r.Expected)
	actual, _ := json.Marshal(r.Actual)
	return fmt.Errorf("%s: expected %s, got %s", r.Message, expected, actual)
}

// SplitName splits "group/key" into its group and key. A name without a
// slash belongs to DefaultGroup.
func SplitName(name string) (group, key string) {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, "/")
	if i <= 0 {
		return DefaultGroup, strings.TrimPrefix(name, "/")
	}
	return name[:i], name[i+1:]
}

// Compare compares actual against the snapshot called name.
func (m *Manager) Compare(name string, actual any) *SnapshotResult {
	result := &SnapshotResult{Actual: actual}

	group, key := SplitName(name)
	if key == "" {
		result.Message = fmt.Sprintf("invalid snapshot name %q", name)
		return result
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshotFile := m.FilePath(group)
	snapshots, err := m.loadSnapshots(snapshotFile)
	if err != nil {
		result.Message = fmt.Sprintf("failed to load snapshots: %v", err)
		return result
	}

	expected, exists := snapshots[key]
	if !exists {
		if !m.updateMode {
			result.Message = fmt.Sprintf("snapshot %s does not exist (run with --update-snapshots to create)", name)
			return result
		}
		snapshots[key] = actual
		if err := m.saveSnapshots(snapshotFile, snapshots); err != nil {
			result.Message = fmt.Sprintf("failed to save snapshot: %v", err)
			return result
		}
		result.Passed = true
		result.IsNew = true
		result.Expected = actual
		result.Message = "new snapshot created"
		return result
	}

	result.Expected = expected
	if deepEqual(expected, actual) {
		result.Passed = true
		return result
	}

	if m.updateMode {
		snapshots[key] = actual
		if err := m.saveSnapshots(snapshotFile, snapshots); err != nil {
			result.Message = fmt.Sprintf("failed to update snapshot: %v", err)
			return result
		}
		result.Passed = true
		result.WasUpdated = true
		result.Message = "snapshot updated"
		return result
	}

	result.Message = fmt.Sprintf("snapshot %s mismatch", name)
	return result
}

// FilePath returns the file the snapshots of group are stored in.
func (m *Manager) FilePath(group string) string {
	return filepath.Join(m.baseDir, SnapshotDir, filepath.FromSlash(group)+SnapshotExt)
}

// loadSnapshots loads snapshots from a file. Callers hold m.mu.
func (m *Manager) loadSnapshots(path string) (map[string]any, error) {
	if cached, ok := m.snapshotsRead[path]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			snapshots := make(map[string]any)
			m.snapshotsRead[path] = snapshots
			return snapshots, nil
		}
		return nil, err
	}

	var snapshots map[string]any
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = make(map[string]any)
	}
	m.snapshotsRead[path] = snapshots
	return snapshots, nil
}

// saveSnapshots saves snapshots to a file. Callers hold m.mu.
func (m *Manager) saveSnapshots(path string, snapshots map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return err
	}
	m.snapshotsRead[path] = snapshots
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// deepEqual compares two values after a JSON round trip, so that numbers
// read back from a file compare equal to the ints stories produce.
func deepEqual(a, b any) bool {
	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)

	var aVal, bVal any
	if err := json.Unmarshal(aJSON, &aVal); err == nil {
		a = aVal
	}
	if err := json.Unmarshal(bJSON, &bVal); err == nil {
		b = bVal
	}
	return reflect.DeepEqual(a, b)
}
