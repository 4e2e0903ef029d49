package kubeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
	"k8s.io/client-go/tools/clientcmd"

	"kubeconfig-updater/pkg/logging"
)

const subsystem = "Store"

// DefaultBackupSuffix is appended to the kubeconfig path for the backup copy.
const DefaultBackupSuffix = ".bak"

// writeFile replaces filename atomically. Tests swap it to simulate crashes
// and full disks.
var writeFile = atomicwriter.WriteFile

// Store owns the local kubeconfig for the duration of one run: it loads the
// file once, writes the backup before anything is changed and persists the
// patched document atomically.
type Store struct {
	path       string
	backupPath string
	mode       os.FileMode
	original   []byte

	doc      *Document
	dirty    bool
	backedUp bool
}

// Option configures a Store.
type Option func(*Store)

// WithBackupSuffix overrides the suffix used to derive the backup path.
func WithBackupSuffix(suffix string) Option {
	return func(s *Store) {
		if suffix != "" {
			s.backupPath = s.path + suffix
		}
	}
}

// Load reads and parses the kubeconfig at path. Symlinks are resolved so
// that saving replaces the link target rather than the link.
func Load(path string, opts ...Option) (*Store, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to resolve kubeconfig path %s: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat kubeconfig %s: %w", resolved, err)
	}
	if info.IsDir() {
		return nil, &ParseError{Path: resolved, Err: errors.New("is a directory")}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig %s: %w", resolved, err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, &ParseError{Path: resolved, Err: err}
	}
	// The node tree is what gets written back; clientcmd only checks that
	// kubectl itself would accept the file.
	if _, err := clientcmd.Load(data); err != nil {
		return nil, &ParseError{Path: resolved, Err: err}
	}

	s := &Store{
		path:       resolved,
		backupPath: resolved + DefaultBackupSuffix,
		mode:       info.Mode().Perm(),
		original:   data,
		doc:        doc,
	}
	for _, opt := range opts {
		opt(s)
	}

	logging.Debug(subsystem, "Loaded %s (%d contexts)", s.path, len(doc.Contexts()))
	return s, nil
}

// Path returns the resolved kubeconfig path.
func (s *Store) Path() string { return s.path }

// BackupPath returns where Backup writes the original content.
func (s *Store) BackupPath() string { return s.backupPath }

// Dirty reports whether any field setter changed the document.
func (s *Store) Dirty() bool { return s.dirty }

// Original returns the file content as it was when loaded.
func (s *Store) Original() []byte { return s.original }

// Backup writes the content read by Load to the backup path. Only the first
// call writes; the backup of a run is never overwritten by that run.
func (s *Store) Backup() error {
	if s.backedUp {
		return nil
	}
	if err := writeFile(s.backupPath, s.original, s.mode); err != nil {
		return &BackupError{Path: s.backupPath, Err: err}
	}
	s.backedUp = true
	logging.Info(subsystem, "Backup created at %s", s.backupPath)
	return nil
}

// BackedUp reports whether Backup has succeeded.
func (s *Store) BackedUp() bool { return s.backedUp }

// Bytes returns the serialized current document. An unmodified document is
// returned byte for byte as it was read.
func (s *Store) Bytes() ([]byte, error) {
	if !s.dirty {
		return s.original, nil
	}
	return s.doc.Encode()
}

// Save atomically replaces the kubeconfig with the current document.
func (s *Store) Save() error {
	data, err := s.Bytes()
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	if err := writeFile(s.path, data, s.mode); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	logging.Info(subsystem, "Saved %s", s.path)
	return nil
}

// Contexts returns every context in document order.
func (s *Store) Contexts() []Context { return s.doc.Contexts() }

// FindCluster looks a cluster up by name. A missing cluster is not an error.
func (s *Store) FindCluster(name string) (Cluster, bool) { return s.doc.FindCluster(name) }

// FindUser looks a user up by name. A missing user is not an error.
func (s *Store) FindUser(name string) (User, bool) { return s.doc.FindUser(name) }

// FindContext looks a context up by name. A missing context is not an error.
func (s *Store) FindContext(name string) (Context, bool) { return s.doc.FindContext(name) }

// SetClusterField patches one key of the named cluster.
func (s *Store) SetClusterField(name, field, value string) (bool, error) {
	changed, err := s.doc.SetClusterField(name, field, value)
	if changed {
		s.dirty = true
		logging.Debug(subsystem, "cluster %s: updated %s", name, field)
	}
	return changed, err
}

// SetUserField patches one key of the named user.
func (s *Store) SetUserField(name, field, value string) (bool, error) {
	changed, err := s.doc.SetUserField(name, field, value)
	if changed {
		s.dirty = true
		logging.Debug(subsystem, "user %s: updated %s", name, field)
	}
	return changed, err
}
