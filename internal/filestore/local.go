// Package filestore keeps the uploaded source files on disk. Layout
// is one directory per agent so deleting an agent is one RemoveAll.
package filestore

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Save writes one uploaded file under the agent's directory and
// returns the stored path. The documentID in the name keeps two
// uploads of the same filename apart.
func (s *LocalStore) Save(agentID, documentID, filename string, file multipart.File) (string, error) {
	dir := filepath.Join(s.root, agentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create agent dir: %w", err)
	}

	path := filepath.Join(dir, documentID+"_"+filepath.Base(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// Open returns a reader over a stored file. Caller closes it.
func (s *LocalStore) Open(path string) (io.ReadSeekCloser, error) {
	return os.Open(path)
}

// Remove deletes one stored file. Missing files are not an error so
// document deletion stays idempotent.
func (s *LocalStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// RemoveAgent deletes the whole directory of an agent.
func (s *LocalStore) RemoveAgent(agentID string) error {
	if err := os.RemoveAll(filepath.Join(s.root, agentID)); err != nil {
		return fmt.Errorf("remove agent dir: %w", err)
	}
	return nil
}
