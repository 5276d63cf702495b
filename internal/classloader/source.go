package classloader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Source locates the bytes of a named class resource, without parsing
// them. A boot class path is an ordered list of Sources; the first one
// to produce a match wins (JVMS 5.3.1's search order).
type Source interface {
	// Find returns the raw .class bytes for the binary class name
	// (slash-separated), or ok == false if this source has no such
	// resource.
	Find(binaryName string) (data []byte, ok bool, err error)
	String() string
}

// DirSource finds classes as plain files under a directory root.
type DirSource struct {
	Root string
}

func (s *DirSource) String() string { return s.Root }

func (s *DirSource) Find(binaryName string) ([]byte, bool, error) {
	path := filepath.Join(s.Root, filepath.FromSlash(binaryName)+".class")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("classloader: reading %s: %w", path, err)
	}
	return data, true, nil
}

// JmodSource finds classes inside a JDK .jmod archive: a zip file with a
// 4-byte "JM\x01\x00" header prefix and class resources stored under a
// "classes/" prefix, matching the modular JDK's packaging.
type JmodSource struct {
	Path string

	mu     sync.Mutex
	reader *zip.Reader
	data   []byte
}

func (s *JmodSource) String() string { return s.Path }

func (s *JmodSource) ensureReader() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		return nil
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("classloader: opening jmod %s: %w", s.Path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("classloader: reading jmod %s: %w", s.Path, err)
	}
	if len(raw) < 4 {
		return fmt.Errorf("classloader: jmod %s too short for header", s.Path)
	}
	s.data = raw[4:] // skip "JM\x01\x00"

	reader, err := zip.NewReader(bytes.NewReader(s.data), int64(len(s.data)))
	if err != nil {
		return fmt.Errorf("classloader: opening jmod zip %s: %w", s.Path, err)
	}
	s.reader = reader
	return nil
}

func (s *JmodSource) Find(binaryName string) ([]byte, bool, error) {
	if err := s.ensureReader(); err != nil {
		return nil, false, err
	}
	target := "classes/" + binaryName + ".class"
	for _, file := range s.reader.File {
		if file.Name == target {
			rc, err := file.Open()
			if err != nil {
				return nil, false, fmt.Errorf("classloader: opening %s in %s: %w", target, s.Path, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return nil, false, fmt.Errorf("classloader: reading %s in %s: %w", target, s.Path, err)
			}
			return data, true, nil
		}
	}
	return nil, false, nil
}

// JarSource finds classes inside a plain (non-jmod) zip/jar archive, for
// user class path entries ending in ".jar".
type JarSource struct {
	Path string

	mu     sync.Mutex
	reader *zip.ReadCloser
}

func (s *JarSource) String() string { return s.Path }

func (s *JarSource) ensureReader() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		return nil
	}
	r, err := zip.OpenReader(s.Path)
	if err != nil {
		return fmt.Errorf("classloader: opening jar %s: %w", s.Path, err)
	}
	s.reader = r
	return nil
}

func (s *JarSource) Find(binaryName string) ([]byte, bool, error) {
	if err := s.ensureReader(); err != nil {
		return nil, false, err
	}
	target := binaryName + ".class"
	for _, file := range s.reader.File {
		if file.Name == target {
			rc, err := file.Open()
			if err != nil {
				return nil, false, fmt.Errorf("classloader: opening %s in %s: %w", target, s.Path, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return nil, false, fmt.Errorf("classloader: reading %s in %s: %w", target, s.Path, err)
			}
			return data, true, nil
		}
	}
	return nil, false, nil
}

// ParseClassPath splits a colon-separated class path string into Sources,
// picking DirSource/JarSource/JmodSource by entry shape.
func ParseClassPath(classPath string) []Source {
	if classPath == "" {
		return nil
	}
	var sources []Source
	for _, entry := range strings.Split(classPath, ":") {
		if entry == "" {
			continue
		}
		switch {
		case strings.HasSuffix(entry, ".jmod"):
			sources = append(sources, &JmodSource{Path: entry})
		case strings.HasSuffix(entry, ".jar"):
			sources = append(sources, &JarSource{Path: entry})
		default:
			sources = append(sources, &DirSource{Root: entry})
		}
	}
	return sources
}

// FindFirst scans sources in order and returns the first match, mirroring
// the "scan the class path in order, read the first matching .class
// file" step of load_class (§4.2).
func FindFirst(sources []Source, binaryName string) ([]byte, bool, error) {
	for _, src := range sources {
		data, ok, err := src.Find(binaryName)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return data, true, nil
		}
	}
	return nil, false, nil
}
