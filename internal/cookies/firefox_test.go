package cookies

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCookieDB(t *testing.T, path string, now time.Time) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE moz_cookies (
		id INTEGER PRIMARY KEY, name TEXT, value TEXT, host TEXT, path TEXT,
		expiry INTEGER, isSecure INTEGER, isHttpOnly INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	future, past := now.Add(24*time.Hour).Unix(), now.Add(-time.Hour).Unix()
	rows := []struct {
		name, value, host, path string
		expiry                  int64
		secure                  int
	}{
		{"session", "abc", ".example.com", "/", future, 1},
		{"pref", "dark", "news.example.org", "/", now.Add(48*time.Hour).UnixMilli(), 0},
		{"old", "gone", ".example.com", "/", past, 1},
		{"blank", "", ".example.com", "/", future, 1},
	}
	for _, r := range rows {
		if _, err := db.Exec(`INSERT INTO moz_cookies (name, value, host, path, expiry, isSecure, isHttpOnly)
			VALUES (?, ?, ?, ?, ?, ?, 0)`, r.name, r.value, r.host, r.path, r.expiry, r.secure); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestFindCookiesDB(t *testing.T) {
	dir := t.TempDir()
	writeCookieDB(t, filepath.Join(dir, "aaa.other", "cookies.sqlite"), time.Now())
	writeCookieDB(t, filepath.Join(dir, "bbb.default-release", "cookies.sqlite"), time.Now())

	ini := `[General]
StartWithLastProfile=1

[Profile1]
Name=other
IsRelative=1
Path=aaa.other

[Profile0]
Name=default-release
IsRelative=1
Path=bbb.default-release
Default=1
`
	if err := os.WriteFile(filepath.Join(dir, "profiles.ini"), []byte(ini), 0644); err != nil {
		t.Fatalf("write ini: %v", err)
	}

	got, err := FindCookiesDB(dir)
	if err != nil {
		t.Fatalf("FindCookiesDB: %v", err)
	}
	if want := filepath.Join(dir, "bbb.default-release", "cookies.sqlite"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	// An install section overrides the Default=1 marker.
	ini += "\n[Install4F96D1932A9F858E]\nDefault=aaa.other\nLocked=1\n"
	if err := os.WriteFile(filepath.Join(dir, "profiles.ini"), []byte(ini), 0644); err != nil {
		t.Fatalf("write ini: %v", err)
	}
	got, err = FindCookiesDB(dir)
	if err != nil {
		t.Fatalf("FindCookiesDB: %v", err)
	}
	if want := filepath.Join(dir, "aaa.other", "cookies.sqlite"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFindCookiesDBFallbackAndMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindCookiesDB(dir); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}

	writeCookieDB(t, filepath.Join(dir, "xyz.profile", "cookies.sqlite"), time.Now())
	got, err := FindCookiesDB(dir)
	if err != nil {
		t.Fatalf("FindCookiesDB: %v", err)
	}
	if filepath.Base(filepath.Dir(got)) != "xyz.profile" {
		t.Fatalf("unexpected fallback %s", got)
	}
}

func TestReadCookiesAndJar(t *testing.T) {
	now := time.Now()
	path := filepath.Join(t.TempDir(), "cookies.sqlite")
	writeCookieDB(t, path, now)

	cookies, err := ReadCookies(context.Background(), path, now)
	if err != nil {
		t.Fatalf("ReadCookies: %v", err)
	}
	if len(cookies) != 2 {
		t.Fatalf("expected 2 live cookies, got %+v", cookies)
	}

	jar, n, err := NewJar(cookies)
	if err != nil || n != 2 {
		t.Fatalf("NewJar: %d, %v", n, err)
	}

	sub, _ := url.Parse("https://www.example.com/article")
	if got := jar.Cookies(sub); len(got) != 1 || got[0].Name != "session" {
		t.Fatalf("domain cookie should reach subdomains, got %v", got)
	}
	host, _ := url.Parse("http://news.example.org/")
	if got := jar.Cookies(host); len(got) != 1 || got[0].Value != "dark" {
		t.Fatalf("host cookie missing, got %v", got)
	}
	other, _ := url.Parse("http://example.org/")
	if got := jar.Cookies(other); len(got) != 0 {
		t.Fatalf("host-only cookie leaked to parent domain: %v", got)
	}
}
