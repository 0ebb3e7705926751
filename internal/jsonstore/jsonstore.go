// Package jsonstore keeps users and file records in a single JSON document on
// local disk. Every operation reads the whole document, and every mutation
// rewrites it; a mutex serialises them so concurrent writers never lose
// updates within one process.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"filedrop/internal/models"
)

type document struct {
	Users []models.User `json:"users"`
	Files []models.File `json:"files"`

	// Ids are never handed out twice, even after the newest record is
	// deleted. Documents written without these fall back to max id + 1.
	NextUserID int `json:"next_user_id,omitempty"`
	NextFileID int `json:"next_file_id,omitempty"`
}

func (doc *document) nextUserID() int {
	next := doc.NextUserID
	for _, u := range doc.Users {
		if u.ID >= next {
			next = u.ID + 1
		}
	}
	if next < 1 {
		next = 1
	}
	doc.NextUserID = next + 1
	return next
}

func (doc *document) nextFileID() int {
	next := doc.NextFileID
	for _, f := range doc.Files {
		if f.ID >= next {
			next = f.ID + 1
		}
	}
	if next < 1 {
		next = 1
	}
	doc.NextFileID = next + 1
	return next
}

type Store struct {
	path string
	mu   sync.Mutex
}

// Open prepares path for use, creating an empty document when it does not
// exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write(&document{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	// Fail early on a corrupt file rather than on the first request.
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	doc := &document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, nil
}

// write replaces the document atomically: a crash mid-write leaves the old
// file in place.
func (s *Store) write(doc *document) error {
	if doc.Users == nil {
		doc.Users = []models.User{}
	}
	if doc.Files == nil {
		doc.Files = []models.File{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	return nil
}

// mutate runs fn on a fresh copy of the document and persists the result
// unless fn fails.
func (s *Store) mutate(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *Store) view(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var found *models.User
	err := s.view(func(doc *document) error {
		for i := range doc.Users {
			if doc.Users[i].Username == username {
				u := doc.Users[i]
				found = &u
				return nil
			}
		}
		return models.ErrNotFound
	})
	return found, err
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error) {
	var created models.User
	err := s.mutate(func(doc *document) error {
		for _, u := range doc.Users {
			if u.Username == username {
				return models.ErrDuplicateUsername
			}
		}
		created = models.User{ID: doc.nextUserID(), Username: username, PasswordHash: passwordHash, Role: role}
		doc.Users = append(doc.Users, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int) error {
	return s.mutate(func(doc *document) error {
		for i, u := range doc.Users {
			if u.ID == id {
				doc.Users = append(doc.Users[:i], doc.Users[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.view(func(doc *document) error {
		users = doc.Users
		return nil
	})
	return users, err
}

func (s *Store) CreateFile(ctx context.Context, f *models.File) error {
	return s.mutate(func(doc *document) error {
		f.ID = doc.nextFileID()
		doc.Files = append(doc.Files, *f)
		return nil
	})
}

func (s *Store) GetFile(ctx context.Context, id int) (*models.File, error) {
	return s.findFile(func(f *models.File) bool { return f.ID == id })
}

func (s *Store) GetFileByLocator(ctx context.Context, locator string) (*models.File, error) {
	return s.findFile(func(f *models.File) bool { return f.Locator == locator })
}

func (s *Store) findFile(match func(f *models.File) bool) (*models.File, error) {
	var found *models.File
	err := s.view(func(doc *document) error {
		for i := range doc.Files {
			if match(&doc.Files[i]) {
				f := doc.Files[i]
				found = &f
				return nil
			}
		}
		return models.ErrNotFound
	})
	return found, err
}

// DeleteFile removes the record and returns it, or models.ErrNotFound when
// no record has that id.
func (s *Store) DeleteFile(ctx context.Context, id int) (*models.File, error) {
	var removed models.File
	err := s.mutate(func(doc *document) error {
		for i, f := range doc.Files {
			if f.ID == id {
				removed = f
				doc.Files = append(doc.Files[:i], doc.Files[i+1:]...)
				return nil
			}
		}
		return models.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (s *Store) ListFiles(ctx context.Context) ([]models.File, error) {
	return s.SearchFiles(ctx, "")
}

func (s *Store) SearchFiles(ctx context.Context, query string) ([]models.File, error) {
	var files []models.File
	err := s.view(func(doc *document) error {
		for i := range doc.Files {
			if doc.Files[i].Matches(query) {
				files = append(files, doc.Files[i])
			}
		}
		return nil
	})
	return files, err
}
