package filehandler

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/anthonyquizon/fswatch/pkg/model"
)

type Meta struct {
	Name       string
	Size       int64
	ModifyTime time.Time
}

func (f Meta) String() string {
	return fmt.Sprintf("file meta :: file-name: %s, size: %d, modified_at: %v", f.Name, f.Size, f.ModifyTime.String())
}

// Handler tracks the metadata of every file under a watched root.
// Keys are root relative names, the convention the watcher emits on
// every platform adapter which reports relative paths.
type Handler struct {
	meta   map[string]Meta
	rwM    sync.RWMutex
	path   string
	logger *log.Logger
}

func NewHandler(path string, logger *log.Logger) (*Handler, error) {
	logger.Printf("NEW handler :: on path %s\n", path)

	h := Handler{
		meta:   make(map[string]Meta),
		rwM:    sync.RWMutex{},
		path:   path,
		logger: logger,
	}

	h.rwM.Lock()
	defer h.rwM.Unlock()
	if err := h.readDir(path); err != nil {
		return nil, err
	}

	return &h, nil
}

func (h *Handler) readDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, f := range entries {
		full := filepath.Join(dir, f.Name())
		if f.IsDir() {
			if err := h.readDir(full); err != nil {
				return err
			}
			continue
		}

		info, err := f.Info()
		if err != nil {
			continue
		}

		name, err := filepath.Rel(h.path, full)
		if err != nil {
			name = f.Name()
		}

		h.meta[name] = Meta{
			Name:       name,
			Size:       info.Size(),
			ModifyTime: info.ModTime(),
		}
	}

	return nil
}

func (h *Handler) GetMeta(name string) *Meta {
	h.rwM.RLock()
	defer h.rwM.RUnlock()

	if m, c := h.meta[name]; c {
		metaCopy := m
		return &metaCopy
	}
	return nil
}

func (h *Handler) ListFiles() {
	h.rwM.RLock()
	defer h.rwM.RUnlock()

	h.logger.Printf("handler :: list files ---- %d\n", len(h.meta))
	for _, meta := range h.meta {
		fmt.Println(meta)
	}
}

// ignored reports editor and stream droppings the watcher picks up
// but nobody wants tracked.
func ignored(name string) bool {
	return strings.Contains(name, "swp") ||
		strings.Contains(name, ".goutputstream") ||
		strings.HasSuffix(name, "~")
}

// Apply updates the tracked metadata from one poll result. The
// consumer loop feeds every event it polls through here.
func (h *Handler) Apply(e model.Event) {
	if ignored(e.Name) {
		return
	}

	if e.Has(model.Deleted) || e.Has(model.Renamed) {
		h.rwM.Lock()
		defer h.rwM.Unlock()

		if old, contains := h.meta[e.Name]; contains {
			h.logger.Printf("handler :: drop file meta --> %s, on event %s\n", old, e)
			delete(h.meta, e.Name)
		}
		// a rename's destination half arrives as its own event under
		// the new name
		return
	}

	full := filepath.Join(h.path, e.Name)
	fs, err := os.Stat(full)
	if err != nil {
		h.logger.Printf("ERROR handler :: got error %v, on event %s\n", err, e)
		return
	}

	if fs.IsDir() {
		return
	}

	h.rwM.Lock()
	defer h.rwM.Unlock()

	meta := Meta{
		Name:       e.Name,
		Size:       fs.Size(),
		ModifyTime: fs.ModTime(),
	}
	if _, contains := h.meta[e.Name]; contains {
		h.logger.Printf("handler :: got modification on file meta --> %s, on event %s\n", meta, e)
	} else {
		h.logger.Printf("handler :: got new file meta --> %s, on event %s\n", meta, e)
	}
	h.meta[e.Name] = meta
}

func (h *Handler) ReadFile(name string) ([]byte, error) {
	h.rwM.RLock()
	defer h.rwM.RUnlock()

	if _, ok := h.meta[name]; !ok {
		return nil, fmt.Errorf("invalid file name %s", name)
	}

	return os.ReadFile(filepath.Join(h.path, name))
}

func (h *Handler) WriteFile(name string, data []byte) error {
	h.rwM.Lock()
	defer h.rwM.Unlock()

	full := filepath.Join(h.path, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return err
	}

	fs, err := os.Stat(full)
	if err != nil {
		return err
	}

	h.meta[name] = Meta{
		Name:       name,
		Size:       fs.Size(),
		ModifyTime: fs.ModTime(),
	}
	return nil
}

func (h *Handler) RemoveFile(name string) error {
	h.rwM.Lock()
	defer h.rwM.Unlock()

	if err := os.RemoveAll(filepath.Join(h.path, name)); err != nil {
		return err
	}
	delete(h.meta, name)
	return nil
}
