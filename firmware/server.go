package firmware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moffa90/go-bleota/ota"
)

// Metadata describes one firmware release.
type Metadata struct {
	Filename string `json:"filename"`
	Version  string `json:"version"`
}

// Server is the firmware catalog HTTP server.
type Server struct {
	dir    string
	mux    *http.ServeMux
	logger ota.Logger
}

// NewServer creates a Server for the catalog in dir. logger may be nil.
func NewServer(dir string, logger ota.Logger) *Server {
	s := &Server{
		dir:    dir,
		mux:    http.NewServeMux(),
		logger: logger,
	}

	s.mux.HandleFunc("GET /api/firmware", s.handleLatest)
	s.mux.HandleFunc("GET /firmware/{filename}", s.handleDownload)

	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	data, name, err := s.latest()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "No firmware found")
			return
		}
		s.logError("read catalog failed", "error", err)
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	s.logDebug("serving metadata", "file", name)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// latest returns the contents of the last metadata file by name.
func (s *Server) latest() ([]byte, string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, "", err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, "", fs.ErrNotExist
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	data, err := os.ReadFile(filepath.Join(s.dir, names[0]))
	if err != nil {
		return nil, "", err
	}
	if !json.Valid(data) {
		return nil, "", fmt.Errorf("metadata %s is not valid JSON", names[0])
	}
	return data, names[0], nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	s.logInfo("serving firmware", "file", name, "bytes", info.Size())
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) logDebug(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Server) logInfo(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Server) logError(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, keysAndValues...)
	}
}
