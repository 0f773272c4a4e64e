package widget

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLang     = "en"
	DefaultTheme    = "light"
	DefaultPosition = "bottom-right"
	embedPath       = "/widget/embed"
)

var (
	ErrHostRequired        = errors.New("widget host is required")
	ErrUnsupportedLanguage = errors.New("unsupported widget language")
	ErrInvalidTheme        = errors.New("invalid widget theme")
)

var positions = map[string]bool{
	"bottom-right": true,
	"bottom-left":  true,
	"top-right":    true,
	"top-left":     true,
}

// Config is the embed configuration a host page passes to the widget.
type Config struct {
	Host        string `json:"host"`
	APIKey      string `json:"apiKey"`
	ElID        string `json:"elId"`
	DefaultLang string `json:"defaultLang"`
	Theme       string `json:"theme"`
	Position    string `json:"position"`
}

// WithDefaults fills unset fields. Unknown positions fall back to
// bottom-right.
func (c Config) WithDefaults() Config {
	c.Host = strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if c.ElID == "" {
		c.ElID = "campus-sarthi-widget-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	if c.DefaultLang == "" {
		c.DefaultLang = DefaultLang
	}
	if c.Theme == "" {
		c.Theme = DefaultTheme
	}
	if !positions[c.Position] {
		c.Position = DefaultPosition
	}
	return c
}

// Merge overlays the non-empty fields of update onto c.
func (c Config) Merge(update Config) Config {
	if update.Host != "" {
		c.Host = strings.TrimRight(update.Host, "/")
	}
	if update.APIKey != "" {
		c.APIKey = update.APIKey
	}
	if update.ElID != "" {
		c.ElID = update.ElID
	}
	if update.DefaultLang != "" {
		c.DefaultLang = update.DefaultLang
	}
	if update.Theme != "" {
		c.Theme = update.Theme
	}
	if positions[update.Position] {
		c.Position = update.Position
	}
	return c
}

// EmbedURL builds the frame URL for cfg.
func EmbedURL(cfg Config) (string, error) {
	cfg = cfg.WithDefaults()
	if cfg.Host == "" {
		return "", ErrHostRequired
	}
	u, err := url.Parse(cfg.Host + embedPath)
	if err != nil {
		return "", fmt.Errorf("parse widget host: %w", err)
	}
	q := url.Values{}
	q.Set("apiKey", cfg.APIKey)
	q.Set("lang", cfg.DefaultLang)
	q.Set("theme", cfg.Theme)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// EmbedQuery is what the frame reads back from its URL.
type EmbedQuery struct {
	APIKey string `json:"apiKey"`
	Lang   string `json:"lang"`
	Theme  string `json:"theme"`
}

// ParseEmbedQuery reads the frame parameters. supported reports whether a
// language is enabled; nil accepts any.
func ParseEmbedQuery(q url.Values, supported func(string) bool) (EmbedQuery, error) {
	out := EmbedQuery{
		APIKey: q.Get("apiKey"),
		Lang:   strings.ToLower(strings.TrimSpace(q.Get("lang"))),
		Theme:  strings.ToLower(strings.TrimSpace(q.Get("theme"))),
	}
	if out.Lang == "" {
		out.Lang = DefaultLang
	}
	if out.Theme == "" {
		out.Theme = DefaultTheme
	}
	if supported != nil && !supported(out.Lang) {
		return EmbedQuery{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, out.Lang)
	}
	if out.Theme != "light" && out.Theme != "dark" {
		return EmbedQuery{}, fmt.Errorf("%w: %q", ErrInvalidTheme, out.Theme)
	}
	return out, nil
}

// Config turns the query into a frame config served from host.
func (q EmbedQuery) Config(host string) Config {
	return Config{Host: host, APIKey: q.APIKey, DefaultLang: q.Lang, Theme: q.Theme}.WithDefaults()
}
