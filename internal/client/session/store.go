// Package session persists the chat client's identity and preferences in
// device storage. Storage failures never reach the caller.
package session

import (
	"os"
	"strings"

	"github.com/campus-sarthi/sarthi/backend/internal/client/kv"
	"github.com/campus-sarthi/sarthi/backend/internal/config"
	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

const (
	keySessionID  = "campus-sarthi-session"
	keyLanguage   = "campus-sarthi-language"
	keyAdminToken = "campus-sarthi-admin-token"
)

var localeVars = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// Options configure language resolution.
type Options struct {
	DefaultLanguage  string
	EnabledLanguages []string
	// Getenv reads the process locale; os.Getenv when nil.
	Getenv func(string) string
}

// Store wraps a kv.Store. A nil kv.Store means storage is unavailable and
// every value is ephemeral.
type Store struct {
	kv      kv.Store
	opts    Options
	enabled map[string]bool
	log     *logger.Logger
}

func New(store kv.Store, opts Options, log *logger.Logger) *Store {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	if len(opts.EnabledLanguages) == 0 {
		opts.EnabledLanguages = config.DefaultLanguages
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	enabled := make(map[string]bool, len(opts.EnabledLanguages))
	for _, l := range opts.EnabledLanguages {
		enabled[l] = true
	}
	return &Store{
		kv:      store,
		opts:    opts,
		enabled: enabled,
		log:     logger.OrNop(log).With("component", "session_store"),
	}
}

// GetOrCreateSessionID returns the persisted session ID, creating and
// persisting one on first use.
func (s *Store) GetOrCreateSessionID() string {
	if id, ok := s.get(keySessionID); ok && id != "" {
		return id
	}
	id := chat.NewSessionID()
	s.set(keySessionID, id)
	return id
}

// ClearSession forgets the session ID; the next call creates a new one.
func (s *Store) ClearSession() {
	s.remove(keySessionID)
}

// PreferredLanguage resolves the stored choice, then the process locale,
// then the configured default.
func (s *Store) PreferredLanguage() string {
	if lang, ok := s.get(keyLanguage); ok && s.enabled[lang] {
		return lang
	}
	if lang := s.localeLanguage(); lang != "" {
		return lang
	}
	return s.opts.DefaultLanguage
}

func (s *Store) SetPreferredLanguage(code string) {
	s.set(keyLanguage, code)
}

func (s *Store) localeLanguage() string {
	for _, name := range localeVars {
		raw := s.opts.Getenv(name)
		if raw == "" {
			continue
		}
		parts := strings.FieldsFunc(raw, func(r rune) bool {
			return r == '_' || r == '-' || r == '.' || r == '@'
		})
		if len(parts) > 0 && s.enabled[strings.ToLower(parts[0])] {
			return strings.ToLower(parts[0])
		}
		// The first set variable decides, as with POSIX locale precedence.
		return ""
	}
	return ""
}

func (s *Store) SetAdminToken(token string) {
	s.set(keyAdminToken, token)
}

// AdminToken returns the stored admin token, or "" when none.
func (s *Store) AdminToken() string {
	token, _ := s.get(keyAdminToken)
	return token
}

func (s *Store) ClearAdminToken() {
	s.remove(keyAdminToken)
}

func (s *Store) IsAuthenticated() bool {
	return s.AdminToken() != ""
}

// ValidateToken accepts any non-empty token until the backend checks
// credentials.
func ValidateToken(token string) bool {
	return token != ""
}

func (s *Store) get(key string) (string, bool) {
	if s.kv == nil {
		return "", false
	}
	v, ok, err := s.kv.Get(key)
	if err != nil {
		s.log.Warn("storage read failed", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (s *Store) set(key, value string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(key, value); err != nil {
		s.log.Warn("storage write failed", "key", key, "error", err)
	}
}

func (s *Store) remove(key string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Remove(key); err != nil {
		s.log.Warn("storage remove failed", "key", key, "error", err)
	}
}
