package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultPort is the standard POP3-over-TLS port.
const DefaultPort = 995

const accountsKey = "accounts"

// ErrNotFound is returned by Load when the store file does not exist.
// Callers decide whether that means "empty store" (editor) or "nothing to
// do" (cleanup job).
var ErrNotFound = errors.New("account store file not found")

// ErrIndexOutOfRange is returned by Remove and Toggle for selectors outside
// the current list.
var ErrIndexOutOfRange = errors.New("account index out of range")

// Account holds one mailbox's connection credentials and policy flags.
type Account struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Server      string `json:"server"`
	Port        int    `json:"port"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// UnmarshalJSON applies the record defaults: port 995 and enabled true when
// the keys are absent.
func (a *Account) UnmarshalJSON(data []byte) error {
	type account Account
	aux := account{Port: DefaultPort, Enabled: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Account(aux)
	return nil
}

// ResolvePassword returns the password for the account, preferring the
// MAIL_PASS_<EMAIL> environment variable (with "@" and "." replaced by "_",
// uppercased) over the stored value.
func (a Account) ResolvePassword() string {
	key := "MAIL_PASS_" + strings.ToUpper(strings.NewReplacer("@", "_", ".", "_").Replace(a.Email))
	if env := os.Getenv(key); env != "" {
		return env
	}
	return a.Password
}

// Store is the ordered account list backed by a JSON file. The file is the
// sole source of truth and the store assumes a single writer; callers must
// serialize access.
type Store struct {
	Path     string
	Accounts []Account

	extra map[string]json.RawMessage
}

// Load reads the store at path. A missing file yields ErrNotFound with an
// empty, usable store; a present but unparsable file is an error so that a
// corrupt store is never mistaken for an empty one. Top-level keys other
// than "accounts" are preserved for the next Save.
func Load(path string) (*Store, error) {
	store := &Store{Path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return store, errors.Wrap(ErrNotFound, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading account store %s", path)
	}

	top := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, errors.Wrapf(err, "parsing account store %s", path)
	}

	if accounts, ok := top[accountsKey]; ok {
		if err := json.Unmarshal(accounts, &store.Accounts); err != nil {
			return nil, errors.Wrapf(err, "parsing accounts in %s", path)
		}
		delete(top, accountsKey)
	}
	store.extra = top

	return store, nil
}

// Save writes the full store back to its path via a temp file and rename, so
// a crash mid-write never truncates the previous contents.
func (s *Store) Save() error {
	top := map[string]interface{}{}
	for key, value := range s.extra {
		top[key] = value
	}
	accounts := s.Accounts
	if accounts == nil {
		accounts = []Account{}
	}
	top[accountsKey] = accounts

	data, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding account store")
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "creating temp account store")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "writing temp account store")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "closing temp account store")
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "replacing account store %s", s.Path)
	}
	return nil
}

// Add appends the account after validating the required fields. The password
// may be blank; the MAIL_PASS_* environment fallback makes password-less
// records a supported configuration.
func (s *Store) Add(account Account) error {
	if strings.TrimSpace(account.Email) == "" {
		return errors.New("account email is required")
	}
	if strings.TrimSpace(account.Server) == "" {
		return errors.New("account server is required")
	}
	if account.Port == 0 {
		account.Port = DefaultPort
	}
	s.Accounts = append(s.Accounts, account)
	return nil
}

// Remove deletes the account at the 0-based index and returns it.
func (s *Store) Remove(index int) (Account, error) {
	if index < 0 || index >= len(s.Accounts) {
		return Account{}, errors.Wrapf(ErrIndexOutOfRange, "%d", index+1)
	}
	removed := s.Accounts[index]
	s.Accounts = append(s.Accounts[:index], s.Accounts[index+1:]...)
	return removed, nil
}

// Toggle flips the enabled flag of the account at the 0-based index and
// returns the updated record.
func (s *Store) Toggle(index int) (Account, error) {
	if index < 0 || index >= len(s.Accounts) {
		return Account{}, errors.Wrapf(ErrIndexOutOfRange, "%d", index+1)
	}
	s.Accounts[index].Enabled = !s.Accounts[index].Enabled
	return s.Accounts[index], nil
}
