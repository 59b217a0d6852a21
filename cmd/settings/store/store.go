// Package store persists speechplay settings and derives the library paths from them.
//
// Settings are a nested YAML document addressed with dotted keys, for example
// "whisper.model" or "user.id". Path helpers create their directories on demand.
package store

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	// LibrarySuffix is the directory name every library path ends with.
	LibrarySuffix   = "SpeechplayLibrary"
	DatabaseName    = "speechplay"
	DefaultLanguage = "en"
)

var (
	ErrEmptyKey   = errors.New("empty settings key")
	ErrNoUser     = errors.New("user.id is not set")
	ErrNoModel    = errors.New("no model configured")
	ErrNoLanguage = errors.New("empty language")
)

// Store is a settings document backed by a YAML file.
// It is safe for concurrent use.
type Store struct {
	// DocumentsDir is where the default library is created.
	DocumentsDir string
	// Dev selects the development database name.
	Dev bool

	path     string
	mu       sync.Mutex
	data     map[string]any
	lookPath func(file string) (string, error)
}

// Dir returns the settings directory (~/.speechplay).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".speechplay")
}

// DefaultPath returns the default settings file (~/.speechplay/settings.yaml).
func DefaultPath() string {
	return filepath.Join(Dir(), "settings.yaml")
}

// Open loads the settings file at path. A missing file yields empty settings.
// An empty path means DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{
		DocumentsDir: documentsDir(),
		Dev:          devBuild(),
		path:         path,
		lookPath:     exec.LookPath,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func documentsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, "Documents")
}

// devBuild reports whether the binary was built from a working tree rather than a released module.
func devBuild() bool {
	info, ok := debug.ReadBuildInfo()
	return !ok || info.Main.Version == "" || info.Main.Version == "(devel)"
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the settings file.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read settings: %w", err)
	}

	doc := map[string]any{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse settings %s: %w", s.path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}

	s.mu.Lock()
	s.data = doc
	s.mu.Unlock()
	return nil
}

// Get returns the value stored under a dotted key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key)
}

// GetString returns the value under key formatted as a string, or "" when unset.
func (s *Store) GetString(key string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	if str, isStr := v.(string); isStr {
		return str
	}
	return fmt.Sprint(v)
}

// Set stores value under a dotted key, creating intermediate maps, and saves the file.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.set(key, value); err != nil {
		return err
	}
	return s.save()
}

// Keys lists every leaf key in dotted form, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := flatten("", s.data)
	slices.Sort(keys)
	return keys
}

func (s *Store) get(key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	var cur any = s.data
	for _, part := range strings.Split(key, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func (s *Store) set(key string, value any) error {
	parts := strings.Split(key, ".")
	if key == "" || lo.Contains(parts, "") {
		return fmt.Errorf("%w: %q", ErrEmptyKey, key)
	}

	m := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(m[part])
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
	return nil
}

func (s *Store) save() error {
	data, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func flatten(prefix string, m map[string]any) []string {
	return lo.FlatMap(lo.Keys(m), func(k string, _ int) []string {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := asMap(m[k]); ok && len(child) > 0 {
			return flatten(key, child)
		}
		return []string{key}
	})
}

// ParseValue interprets a command-line value as YAML, so "3" is a number,
// "true" a bool and "{a: 1}" a map. Anything unparsable stays a string.
func ParseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

// LibraryPath returns the library directory, creating it if needed.
// A configured library that does not end in LibrarySuffix gets it appended.
func (s *Store) LibraryPath() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.libraryPath()
}

func (s *Store) libraryPath() (string, error) {
	lib, _ := s.data["library"].(string)
	switch {
	case lib == "":
		lib = filepath.Join(s.DocumentsDir, LibrarySuffix)
	case filepath.Base(lib) != LibrarySuffix:
		lib = filepath.Join(lib, LibrarySuffix)
	}
	if s.data["library"] != lib {
		s.data["library"] = lib
		if err := s.save(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(lib, 0755); err != nil {
		return "", fmt.Errorf("create library: %w", err)
	}
	return lib, nil
}

// SetLibrary moves the library to dir, appending LibrarySuffix when missing.
func (s *Store) SetLibrary(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: library", ErrEmptyKey)
	}
	if filepath.Base(dir) != LibrarySuffix {
		dir = filepath.Join(dir, LibrarySuffix)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create library: %w", err)
	}
	if err := s.Set("library", dir); err != nil {
		return "", err
	}
	return dir, nil
}

// libraryDir returns a directory inside the library, creating it if needed.
func (s *Store) libraryDir(elem ...string) (string, error) {
	lib, err := s.LibraryPath()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(append([]string{lib}, elem...)...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// CachePath returns <library>/cache.
func (s *Store) CachePath() (string, error) {
	return s.libraryDir("cache")
}

// UserDataPath returns <library>/<user.id>. It fails when no user is configured.
func (s *Store) UserDataPath() (string, error) {
	id := s.GetString("user.id")
	if id == "" {
		return "", ErrNoUser
	}
	return s.libraryDir(id)
}

// DBPath returns the database file inside the user data directory.
func (s *Store) DBPath() (string, error) {
	dir, err := s.UserDataPath()
	if err != nil {
		return "", err
	}
	name := DatabaseName + ".sqlite"
	if s.Dev {
		name = DatabaseName + "_dev.sqlite"
	}
	return filepath.Join(dir, name), nil
}

func (s *Store) WhisperModelsPath() (string, error) {
	return s.libraryDir("whisper", "models")
}

func (s *Store) WhisperModelPath() (string, error) {
	return s.modelPath(s.WhisperModelsPath, "whisper.model")
}

func (s *Store) LlamaModelsPath() (string, error) {
	return s.libraryDir("llama", "models")
}

func (s *Store) LlamaModelPath() (string, error) {
	return s.modelPath(s.LlamaModelsPath, "llama.model")
}

func (s *Store) modelPath(dir func() (string, error), key string) (string, error) {
	name := s.GetString(key)
	if name == "" {
		return "", fmt.Errorf("%w: %s", ErrNoModel, key)
	}
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

// Language returns the UI language, storing the default when none is set.
func (s *Store) Language() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lang, ok := s.data["language"].(string); ok && lang != "" {
		return lang, nil
	}
	s.data["language"] = DefaultLanguage
	if err := s.save(); err != nil {
		return "", err
	}
	return DefaultLanguage, nil
}

// SwitchLanguage stores a new UI language.
func (s *Store) SwitchLanguage(lang string) error {
	if lang == "" {
		return ErrNoLanguage
	}
	return s.Set("language", lang)
}

// FFmpeg describes where ffmpeg and ffprobe were found.
type FFmpeg struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	CommandExists bool   `json:"commandExists"`
	FFmpegPath    string `json:"ffmpegPath"`
	FFprobePath   string `json:"ffprobePath"`
	Ready         bool   `json:"ready"`
}

// FFmpegConfig looks for ffmpeg and ffprobe in <library>/ffmpeg, then in the
// configured ffmpeg.* paths, and finally on PATH.
func (s *Store) FFmpegConfig() (FFmpeg, error) {
	dir, err := s.LibraryPath()
	if err != nil {
		return FFmpeg{}, err
	}

	cfg := FFmpeg{OS: runtime.GOOS, Arch: runtime.GOARCH}
	cfg.FFmpegPath = s.findBinary(dir, "ffmpeg", "ffmpeg.ffmpegPath")
	cfg.FFprobePath = s.findBinary(dir, "ffprobe", "ffmpeg.ffprobePath")

	_, ffmpegErr := s.lookPath("ffmpeg")
	_, ffprobeErr := s.lookPath("ffprobe")
	cfg.CommandExists = ffmpegErr == nil && ffprobeErr == nil
	cfg.Ready = cfg.CommandExists || (cfg.FFmpegPath != "" && cfg.FFprobePath != "")
	return cfg, nil
}

func (s *Store) findBinary(library, name, key string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	candidates := []string{filepath.Join(library, "ffmpeg", name), s.GetString(key)}
	found, _ := lo.Find(candidates, func(p string) bool {
		if p == "" {
			return false
		}
		info, err := os.Stat(p)
		return err == nil && !info.IsDir()
	})
	return found
}

// SetFFmpegConfig stores explicit ffmpeg and ffprobe locations.
func (s *Store) SetFFmpegConfig(ffmpegPath, ffprobePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.set("ffmpeg.ffmpegPath", ffmpegPath); err != nil {
		return err
	}
	if err := s.set("ffmpeg.ffprobePath", ffprobePath); err != nil {
		return err
	}
	return s.save()
}
