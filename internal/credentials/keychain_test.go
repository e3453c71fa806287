package credentials

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeSecurity struct {
	calls    [][]string
	password string
	err      error
}

func (f *fakeSecurity) run(args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return nil, f.err
	}
	switch args[0] {
	case "add-generic-password":
		for i, a := range args {
			if a == "-w" && i+1 < len(args) {
				f.password = args[i+1]
			}
		}
		return nil, nil
	default:
		return []byte(f.password + "\n"), nil
	}
}

func TestKeychainKeyStore(t *testing.T) {
	store := NewKeychainKeyStore("")
	defer store.Close()

	if store.cacheTTL != 5*time.Minute {
		t.Errorf("Expected cacheTTL to be 5 minutes, got %v", store.cacheTTL)
	}
	if store.service != DefaultKeychainService {
		t.Errorf("Expected default service %q, got %q", DefaultKeychainService, store.service)
	}

	// Close must be safe to call twice
	store.Close()
}

func TestKeychainKeyStoreCaches(t *testing.T) {
	fake := &fakeSecurity{password: "sk-or-first"}
	store := newKeychainKeyStore("svc", fake.run)

	key, err := store.GetAPIKey()
	if err != nil {
		t.Fatalf("GetAPIKey failed: %v", err)
	}
	if key != "sk-or-first" {
		t.Errorf("Expected trimmed key sk-or-first, got %q", key)
	}

	fake.password = "sk-or-second"
	key, _ = store.GetAPIKey()
	if key != "sk-or-first" {
		t.Errorf("Expected cached key, got %q", key)
	}
	if len(fake.calls) != 1 {
		t.Errorf("Expected a single keychain read, got %d", len(fake.calls))
	}

	if err := store.RefreshAPIKey(); err != nil {
		t.Fatalf("RefreshAPIKey failed: %v", err)
	}
	key, _ = store.GetAPIKey()
	if key != "sk-or-second" {
		t.Errorf("Expected refreshed key, got %q", key)
	}

	want := []string{"find-generic-password", "-s", "svc", "-w"}
	if strings.Join(fake.calls[0], " ") != strings.Join(want, " ") {
		t.Errorf("Unexpected security args: %v", fake.calls[0])
	}
}

func TestKeychainKeyStoreSet(t *testing.T) {
	fake := &fakeSecurity{}
	store := newKeychainKeyStore("svc", fake.run)

	if err := store.SetAPIKey("sk-or-new"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}
	if fake.password != "sk-or-new" {
		t.Errorf("Expected keychain to hold the new key, got %q", fake.password)
	}
	args := strings.Join(fake.calls[0], " ")
	if !strings.HasSuffix(args, "-U") {
		t.Errorf("Expected update flag, got %q", args)
	}

	key, err := store.GetAPIKey()
	if err != nil || key != "sk-or-new" {
		t.Errorf("Expected cached new key, got %q (%v)", key, err)
	}
	if len(fake.calls) != 1 {
		t.Errorf("Expected no keychain read after set, got %d calls", len(fake.calls))
	}
}

func TestKeychainKeyStoreErrors(t *testing.T) {
	fake := &fakeSecurity{err: errors.New("exit status 44")}
	store := newKeychainKeyStore("svc", fake.run)
	if _, err := store.GetAPIKey(); err == nil {
		t.Error("Expected error when the keychain entry is missing")
	}

	empty := newKeychainKeyStore("svc", (&fakeSecurity{}).run)
	_, err := empty.GetAPIKey()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey for an empty entry, got %v", err)
	}
}
