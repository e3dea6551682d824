package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Credential names.
const (
	AnthropicAPIKey = "ANTHROPIC_API_KEY"
	RaindropToken   = "RAINDROP_TOKEN"
)

// ErrMissingCredential is matched by every MissingCredentialError.
var ErrMissingCredential = errors.New("missing credential")

// MissingCredentialError names the variable a stage needed but did not find.
type MissingCredentialError struct {
	Name string
	Path string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s not set (checked environment and %s)", e.Name, e.Path)
}

func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// Credentials are key/value pairs read once at startup.
type Credentials struct {
	path   string
	values map[string]string
}

// LoadCredentials reads the env-style file at path. A missing file leaves
// only the process environment to consult.
func LoadCredentials(path string) (*Credentials, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading credentials from %s: %w", path, err)
		}
		values = map[string]string{}
	}
	return &Credentials{path: path, values: values}, nil
}

// Get returns a credential; the process environment wins over the file.
func (c *Credentials) Get(name string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.values[name])
}

// Require returns the credential or a *MissingCredentialError.
func (c *Credentials) Require(name string) (string, error) {
	if v := c.Get(name); v != "" {
		return v, nil
	}
	path := ""
	if c != nil {
		path = c.path
	}
	return "", &MissingCredentialError{Name: name, Path: path}
}
