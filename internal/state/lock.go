package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Lock acquires a file lock on a stage's record to prevent concurrent
// deploys of the same stage.
func (s *LocalStore) Lock(stage string) error {
	lockPath := s.lockPath(stage)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	// Check if lock already exists
	if info, err := os.Stat(lockPath); err == nil {
		// If lock is older than 10 minutes, consider it stale
		if time.Since(info.ModTime()) > 10*time.Minute {
			os.Remove(lockPath)
		} else {
			return fmt.Errorf("stage %s is locked by another process (lock file: %s). "+
				"If this is an error, remove the lock file manually", stage, lockPath)
		}
	}

	// Create lock file with current PID and timestamp
	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	return nil
}

// Unlock releases the stage lock.
func (s *LocalStore) Unlock(stage string) error {
	lockPath := s.lockPath(stage)
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (s *LocalStore) lockPath(stage string) string {
	return s.recordPath(stage) + ".lock"
}
