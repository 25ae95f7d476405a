// Package config is the configuration collaborator of the automation
// engine: it owns the target-system registry and the encrypted credential
// store. The engine only ever receives credentials decrypted, in memory,
// for the duration of a login attempt.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/invoicefill/pkg/invoice"
)

// Credential is a stored username/password pair for one target system.
// Password is ciphertext on disk once Encrypted is set.
type Credential struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Encrypted bool   `yaml:"encrypted"`
}

// App is the on-disk configuration shape.
type App struct {
	Systems     []invoice.SystemConfig `yaml:"systems"`
	Credentials map[string]Credential  `yaml:"credentials"`
}

// DefaultSystems is the built-in target-system registry, used when the
// config file does not define one.
func DefaultSystems() []invoice.SystemConfig {
	return []invoice.SystemConfig{
		{
			ID:            "erp_sap",
			Name:          "SAP ERP",
			LoginURL:      "https://erp.internal.sgcc.com.cn/login",
			Category:      invoice.CategoryERP,
			LoginProtocol: invoice.ProtocolForm,
		},
		{
			ID:            "reimburse",
			Name:          "费用报销系统",
			LoginURL:      "https://expense.internal.sgcc.com.cn/",
			Category:      invoice.CategoryReimburse,
			LoginProtocol: invoice.ProtocolCAS,
		},
		{
			ID:            "tax_platform",
			Name:          "税务管理平台",
			LoginURL:      "https://tax.internal.sgcc.com.cn/",
			Category:      invoice.CategoryTax,
			LoginProtocol: invoice.ProtocolSSO,
		},
	}
}

// DefaultDataDir returns the application data directory, honoring the
// INVOICEFILL_DATA_DIR override.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("INVOICEFILL_DATA_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".invoicefill"), nil
}

// Store loads and persists the application configuration as a YAML file
// under the data directory.
type Store struct {
	mu      sync.RWMutex
	path    string
	cipher  *credentialCipher
	systems []invoice.SystemConfig
	creds   map[string]Credential
}

// NewStore opens the store rooted at dataDir, creating defaults when no
// config file exists yet.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cipher, err := newCredentialCipher(filepath.Join(dataDir, ".key"))
	if err != nil {
		return nil, err
	}

	s := &Store{
		path:    filepath.Join(dataDir, "config.yaml"),
		cipher:  cipher,
		systems: DefaultSystems(),
		creds:   make(map[string]Credential),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var app App
	if err := yaml.Unmarshal(data, &app); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(app.Systems) > 0 {
		s.systems = app.Systems
	}
	if app.Credentials != nil {
		s.creds = app.Credentials
	}
	return nil
}

// Save writes the configuration back to disk. Plaintext passwords are
// encrypted before they ever touch the file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, cred := range s.creds {
		if !cred.Encrypted && cred.Password != "" {
			encrypted, err := s.cipher.encrypt(cred.Password)
			if err != nil {
				return fmt.Errorf("failed to encrypt credential for %q: %w", id, err)
			}
			cred.Password = encrypted
			cred.Encrypted = true
			s.creds[id] = cred
		}
	}

	data, err := yaml.Marshal(&App{Systems: s.systems, Credentials: s.creds})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Systems returns the target-system registry.
func (s *Store) Systems() []invoice.SystemConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]invoice.SystemConfig, len(s.systems))
	copy(out, s.systems)
	return out
}

// System returns the descriptor for one identifier.
func (s *Store) System(systemID string) (invoice.SystemConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, system := range s.systems {
		if system.ID == systemID {
			return system, true
		}
	}
	return invoice.SystemConfig{}, false
}

// SetCredential stores a credential for a target system and persists the
// configuration.
func (s *Store) SetCredential(systemID, username, password string) error {
	s.mu.Lock()
	s.creds[systemID] = Credential{Username: username, Password: password}
	s.mu.Unlock()
	return s.Save()
}

// Credential returns the decrypted credential for a target system. The
// second return is false when none is stored. Implements the automation
// layer's CredentialSource.
func (s *Store) Credential(systemID string) (string, string, bool) {
	s.mu.RLock()
	cred, ok := s.creds[systemID]
	s.mu.RUnlock()
	if !ok || cred.Username == "" {
		return "", "", false
	}

	password := cred.Password
	if cred.Encrypted {
		decrypted, err := s.cipher.decrypt(password)
		if err != nil {
			return "", "", false
		}
		password = decrypted
	}
	return cred.Username, password, true
}
