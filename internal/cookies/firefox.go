// Package cookies loads browser cookies so the extractor can read articles
// behind a login the user already has.
package cookies

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	_ "modernc.org/sqlite"

	"github.com/thomaskoefod/podcast-briefing/internal/logging"
)

var ErrNoProfile = errors.New("no firefox profile with cookies found")

// Cookie is one row of Firefox's moz_cookies table.
type Cookie struct {
	Host     string
	Path     string
	Name     string
	Value    string
	Secure   bool
	HTTPOnly bool
	Expires  time.Time
}

// FirefoxDir returns the directory holding profiles.ini on this platform.
func FirefoxDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Mozilla", "Firefox")
	default:
		return filepath.Join(home, ".mozilla", "firefox")
	}
}

type profile struct {
	path       string
	isRelative bool
	isDefault  bool
}

// FindCookiesDB locates cookies.sqlite for the default profile under dir:
// the profile an [Install...] section points at, then one marked Default=1,
// then any profile directory that has the file.
func FindCookiesDB(dir string) (string, error) {
	var installDefault string
	var profiles []profile

	f, err := os.Open(filepath.Join(dir, "profiles.ini"))
	if err == nil {
		defer f.Close()

		var section string
		var cur *profile
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
				section = strings.Trim(line, "[]")
				cur = nil
				if strings.HasPrefix(section, "Profile") {
					profiles = append(profiles, profile{isRelative: true})
					cur = &profiles[len(profiles)-1]
				}
				continue
			}

			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			switch {
			case strings.HasPrefix(section, "Install") && key == "Default":
				if installDefault == "" {
					installDefault = value
				}
			case cur != nil && key == "Path":
				cur.path = value
			case cur != nil && key == "IsRelative":
				cur.isRelative = value != "0"
			case cur != nil && key == "Default":
				cur.isDefault = value == "1"
			}
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading profiles.ini: %w", err)
		}
	}

	resolve := func(p profile) string {
		if p.isRelative {
			return filepath.Join(dir, filepath.FromSlash(p.path))
		}
		return p.path
	}

	var candidates []string
	if installDefault != "" {
		candidates = append(candidates, filepath.Join(dir, filepath.FromSlash(installDefault)))
	}
	for _, p := range profiles {
		if p.isDefault && p.path != "" {
			candidates = append(candidates, resolve(p))
		}
	}
	for _, c := range candidates {
		db := filepath.Join(c, "cookies.sqlite")
		if fileExists(db) {
			return db, nil
		}
	}

	// Fallback: any profile directory with a cookie database.
	for _, base := range []string{dir, filepath.Join(dir, "Profiles")} {
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			db := filepath.Join(base, e.Name(), "cookies.sqlite")
			if fileExists(db) {
				return db, nil
			}
		}
	}

	return "", ErrNoProfile
}

// ReadCookies returns unexpired, non-empty cookies from a Firefox cookie
// database. Firefox keeps the file locked, so a copy is read instead.
func ReadCookies(ctx context.Context, dbPath string, now time.Time) ([]Cookie, error) {
	tmp, err := copyToTemp(dbPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return nil, fmt.Errorf("opening cookie database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT host, path, isSecure, expiry, name, value, isHttpOnly
		 FROM moz_cookies
		 WHERE expiry > ? AND name != '' AND value != ''`,
		now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying cookies: %w", err)
	}
	defer rows.Close()

	var cookies []Cookie
	for rows.Next() {
		var c Cookie
		var secure, httpOnly, expiry int64
		if err := rows.Scan(&c.Host, &c.Path, &secure, &expiry, &c.Name, &c.Value, &httpOnly); err != nil {
			return nil, fmt.Errorf("scanning cookie: %w", err)
		}
		c.Secure = secure != 0
		c.HTTPOnly = httpOnly != 0
		c.Expires = expiryTime(expiry)
		cookies = append(cookies, c)
	}
	return cookies, rows.Err()
}

// NewJar loads cookies into a public-suffix aware jar.
func NewJar(cookies []Cookie) (*cookiejar.Jar, int, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, 0, fmt.Errorf("creating cookie jar: %w", err)
	}

	loaded := 0
	for _, c := range cookies {
		host := strings.TrimPrefix(c.Host, ".")
		if host == "" {
			continue
		}
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		u := &url.URL{Scheme: scheme, Host: host, Path: path}

		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
			Expires:  c.Expires,
		}
		// A leading dot marks a domain cookie; otherwise it is host-only.
		if strings.HasPrefix(c.Host, ".") {
			hc.Domain = host
		}
		jar.SetCookies(u, []*http.Cookie{hc})
		loaded++
	}
	return jar, loaded, nil
}

// LoadFirefox builds a jar from the default Firefox profile. Every failure
// is logged and yields a nil jar; missing cookies only affect paywalled
// sites.
func LoadFirefox(ctx context.Context, logger *slog.Logger) http.CookieJar {
	logger = logging.Component(logger, "cookies")

	dbPath, err := FindCookiesDB(FirefoxDir())
	if err != nil {
		logger.Info("no firefox cookies found, paywalled sites may not work")
		return nil
	}

	cookies, err := ReadCookies(ctx, dbPath, time.Now())
	if err != nil {
		logger.Warn("could not load firefox cookies", "path", dbPath, "error", err)
		return nil
	}

	jar, n, err := NewJar(cookies)
	if err != nil {
		logger.Warn("could not build cookie jar", "error", err)
		return nil
	}
	logger.Info("loaded firefox cookies", "count", n)
	return jar
}

// expiryTime accepts seconds or, from newer Firefox releases, milliseconds.
func expiryTime(v int64) time.Time {
	if v > 1e11 {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}

func copyToTemp(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening firefox cookie database: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "podcast-briefing-cookies-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("copying cookie database: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return out.Name(), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
