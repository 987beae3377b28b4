package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/scrypt"

	"github.com/evanramirez88/toast-automation/pkg/logging"
)

const (
	// recordSuffix denotes a persisted session record on disk.
	recordSuffix = ".session.json"

	// kdfSalt is fixed so the same secret always derives the same key.
	// Confidentiality rests on the secret, not the salt.
	kdfSalt = "toast-automation-session-store-v1"
)

// Envelope modes written to disk.
const (
	modeAESGCM = "aes-256-gcm"
	modeBase64 = "base64"
)

// PersistedRecord is the durable projection of a Session.
type PersistedRecord struct {
	ClientID      string          `json:"clientId"`
	StorageState  json.RawMessage `json:"storageState,omitempty"`
	Authenticated bool            `json:"authenticated"`
	ToastGUID     string          `json:"toastGuid,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	PersistedAt   time.Time       `json:"persistedAt"`
}

// envelope is the on-disk wrapper: ciphertext plus nonce, or base64 plaintext
// when no encryption key is configured.
type envelope struct {
	Version     int       `json:"version"`
	Mode        string    `json:"mode"`
	Nonce       string    `json:"nonce,omitempty"`
	Payload     string    `json:"payload"`
	PersistedAt time.Time `json:"persistedAt"`
}

// Store persists one encrypted record per session id under a directory.
//
// When no secret is configured the store falls back to plain base64 encoding.
// That mode offers no confidentiality; it exists for behavioral parity with
// unkeyed deployments and is announced with a warning at startup.
type Store struct {
	dir    string
	key    []byte // nil in degraded mode
	maxAge time.Duration
	logger *logging.Logger
}

// NewStore creates a Store rooted at dir. secret may be empty (degraded
// mode). Records older than maxAge are treated as absent.
func NewStore(dir, secret string, maxAge time.Duration, logger *logging.Logger) (*Store, error) {
	s := &Store{dir: dir, maxAge: maxAge, logger: logger}

	if secret != "" {
		key, err := scrypt.Key([]byte(secret), []byte(kdfSalt), 1<<15, 8, 1, 32)
		if err != nil {
			return nil, fmt.Errorf("derive session store key: %w", err)
		}
		s.key = key
	}
	return s, nil
}

// Encrypted reports whether records are encrypted at rest.
func (s *Store) Encrypted() bool { return s.key != nil }

// Initialize creates the storage directory and removes expired records.
func (s *Store) Initialize() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return &StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}
	if !s.Encrypted() && s.logger != nil {
		s.logger.Warnf("session store has no encryption key; records are stored base64-encoded without confidentiality")
	}
	if _, err := s.Sweep(); err != nil {
		return err
	}
	return nil
}

// SessionID derives the stable pseudonymous session id for a client.
func SessionID(clientID string) string {
	sum := sha256.Sum256([]byte(clientID))
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Store) path(clientID string) string {
	return filepath.Join(s.dir, SessionID(clientID)+recordSuffix)
}

// Save writes the record for its client, replacing any previous one.
func (s *Store) Save(rec *PersistedRecord) error {
	if rec.PersistedAt.IsZero() {
		rec.PersistedAt = time.Now()
	}

	plaintext, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}

	env := envelope{Version: 1, PersistedAt: rec.PersistedAt}
	if s.Encrypted() {
		nonce, ciphertext, err := s.seal(plaintext)
		if err != nil {
			return err
		}
		env.Mode = modeAESGCM
		env.Nonce = base64.StdEncoding.EncodeToString(nonce)
		env.Payload = base64.StdEncoding.EncodeToString(ciphertext)
	} else {
		env.Mode = modeBase64
		env.Payload = base64.StdEncoding.EncodeToString(plaintext)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session envelope: %w", err)
	}

	path := s.path(rec.ClientID)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Load reads and decrypts the record for a client. Expired records are
// deleted and reported as absent; undecodable records are deleted and
// reported as corrupt.
func (s *Store) Load(clientID string) (*PersistedRecord, error) {
	path := s.path(clientID)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRecord
		}
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.discard(path, "undecodable envelope")
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	if s.maxAge > 0 && time.Since(env.PersistedAt) > s.maxAge {
		s.discard(path, "expired")
		return nil, ErrNoRecord
	}

	plaintext, err := s.open(&env)
	if err != nil {
		s.discard(path, "undecryptable payload")
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	var rec PersistedRecord
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		s.discard(path, "undecodable record")
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &rec, nil
}

// Delete removes the record for a client. Deleting a missing record is not
// an error.
func (s *Store) Delete(clientID string) error {
	path := s.path(clientID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Sweep removes every expired record and returns how many were deleted.
func (s *Store) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, &StorageError{Op: "readdir", Path: s.dir, Err: err}
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Not one of ours; leave it alone.
			continue
		}
		if s.maxAge > 0 && time.Since(env.PersistedAt) > s.maxAge {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}

	if removed > 0 && s.logger != nil {
		s.logger.Infof("expiry sweep removed %d session record(s)", removed)
	}
	return removed, nil
}

func (s *Store) discard(path, reason string) {
	if s.logger != nil {
		s.logger.Warnf("discarding session record %s: %s", path, reason)
	}
	_ = os.Remove(path)
}

func (s *Store) seal(plaintext []byte) (nonce, ciphertext []byte, err error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("init gcm: %w", err)
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, gcm.Seal(nil, nonce, plaintext, nil), nil
}

func (s *Store) open(env *envelope) ([]byte, error) {
	switch env.Mode {
	case modeBase64:
		return base64.StdEncoding.DecodeString(env.Payload)

	case modeAESGCM:
		if !s.Encrypted() {
			return nil, errors.New("encrypted record but no key configured")
		}
		nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
		if err != nil {
			return nil, fmt.Errorf("decode nonce: %w", err)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(env.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}

		block, err := aes.NewCipher(s.key)
		if err != nil {
			return nil, fmt.Errorf("init cipher: %w", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("init gcm: %w", err)
		}
		return gcm.Open(nil, nonce, ciphertext, nil)

	default:
		return nil, fmt.Errorf("unknown envelope mode %q", env.Mode)
	}
}
