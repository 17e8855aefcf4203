package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStorage implements Store using the filesystem.
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based store rooted at baseDir.
func NewFileStorage(baseDir string) *FileStorage {
	return &FileStorage{
		baseDir: baseDir,
	}
}

// DefaultStorageDir returns the default storage directory.
func DefaultStorageDir() string {
	// Check for test environment variable first
	if testDir := os.Getenv("ROLLOPS_STATE_DIR"); testDir != "" {
		return testDir
	}

	// Try to use XDG_DATA_HOME first
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "rollops", "state")
	}

	// Fall back to ~/.local/share
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "rollops", "state")
	}

	// Last resort: use temp directory
	return filepath.Join(os.TempDir(), "rollops", "state")
}

// SaveStatus saves the current rollout status for a service.
func (fs *FileStorage) SaveStatus(status *RolloutStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	statusDir := filepath.Join(fs.baseDir, "status")
	if err := os.MkdirAll(statusDir, 0700); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	status.UpdatedAt = time.Now()

	filename := filepath.Join(statusDir, fmt.Sprintf("%s.json", sanitizeFilename(status.Service)))
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}

	return nil
}

// GetStatus retrieves the current rollout status for a service.
func (fs *FileStorage) GetStatus(service string) (*RolloutStatus, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	filename := filepath.Join(fs.baseDir, "status", fmt.Sprintf("%s.json", sanitizeFilename(service)))
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no rollout status found for service %s", service)
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var status RolloutStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

// AppendHistory saves one weight-transition history entry.
func (fs *FileStorage) AppendHistory(entry *HistoryEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	historyDir := filepath.Join(fs.baseDir, "history", sanitizeFilename(entry.Service))
	if err := os.MkdirAll(historyDir, 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	if entry.ID == "" {
		entry.ID = fmt.Sprintf("%d-%s", entry.Timestamp.UnixNano(), entry.Service)
	}

	filename := filepath.Join(historyDir, fmt.Sprintf("%d.json", entry.Timestamp.UnixNano()))
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	return nil
}

// GetHistory retrieves history for a service, newest first.
func (fs *FileStorage) GetHistory(service string, limit int) ([]HistoryEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	historyDir := filepath.Join(fs.baseDir, "history", sanitizeFilename(service))

	if _, err := os.Stat(historyDir); os.IsNotExist(err) {
		return []HistoryEntry{}, nil
	}

	files, err := os.ReadDir(historyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(historyDir, file.Name()))
		if err != nil {
			continue
		}

		var entry HistoryEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// SaveControl records an operator control request for a service. An existing
// abort request is never overwritten by a weight request.
func (fs *FileStorage) SaveControl(service string, req *ControlRequest) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	controlDir := filepath.Join(fs.baseDir, "control")
	if err := os.MkdirAll(controlDir, 0700); err != nil {
		return fmt.Errorf("failed to create control directory: %w", err)
	}

	filename := filepath.Join(controlDir, fmt.Sprintf("%s.json", sanitizeFilename(service)))

	if req.Type != ControlAbort {
		if data, err := os.ReadFile(filename); err == nil {
			var existing ControlRequest
			if json.Unmarshal(data, &existing) == nil && existing.Type == ControlAbort {
				return fmt.Errorf("an abort request is already pending for %s", service)
			}
		}
	}

	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}

	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal control request: %w", err)
	}

	// Write-then-rename so a polling controller never reads a partial file.
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write control file: %w", err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("failed to publish control file: %w", err)
	}

	return nil
}

// TakeControl removes and returns the pending control request for a service.
func (fs *FileStorage) TakeControl(service string) (*ControlRequest, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	filename := filepath.Join(fs.baseDir, "control", fmt.Sprintf("%s.json", sanitizeFilename(service)))

	// Claim the file before reading so two pollers cannot both consume it.
	claimed := filename + ".claimed"
	if err := os.Rename(filename, claimed); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim control file: %w", err)
	}
	defer os.Remove(claimed)

	data, err := os.ReadFile(claimed)
	if err != nil {
		return nil, fmt.Errorf("failed to read control file: %w", err)
	}

	var req ControlRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal control request: %w", err)
	}

	return &req, nil
}

// CleanupOldEntries removes history entries older than the specified duration.
func (fs *FileStorage) CleanupOldEntries(olderThan time.Duration) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	historyRoot := filepath.Join(fs.baseDir, "history")
	if _, err := os.Stat(historyRoot); os.IsNotExist(err) {
		return nil
	}

	cutoff := time.Now().Add(-olderThan)

	services, err := os.ReadDir(historyRoot)
	if err != nil {
		return fmt.Errorf("failed to read history root: %w", err)
	}

	for _, service := range services {
		if !service.IsDir() {
			continue
		}
		serviceDir := filepath.Join(historyRoot, service.Name())
		files, err := os.ReadDir(serviceDir)
		if err != nil {
			continue
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				continue
			}
			path := filepath.Join(serviceDir, file.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var entry HistoryEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				continue
			}
			if entry.Timestamp.Before(cutoff) {
				os.Remove(path)
			}
		}
	}

	return nil
}

// sanitizeFilename keeps service names safe to use as file names.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return replacer.Replace(name)
}
