package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/domain/user"
	"github.com/bussola-offshore/bussola/internal/port/authprovider"
	"github.com/bussola-offshore/bussola/internal/port/rowstore"
)

// fakeRowStore serves fixed tables and counts calls per table.
type fakeRowStore struct {
	mu     sync.Mutex
	tables map[string][]rowstore.Record
	errs   map[string]error
	calls  map[string]int
	gate   chan struct{} // when non-nil, SelectAll blocks until it is closed
}

func newFakeRowStore() *fakeRowStore {
	return &fakeRowStore{
		tables: make(map[string][]rowstore.Record),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeRowStore) SelectAll(_ context.Context, table string) ([]rowstore.Record, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[table]++
	if err := f.errs[table]; err != nil {
		return nil, err
	}
	return f.tables[table], nil
}

func (f *fakeRowStore) callCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[table]
}

func (f *fakeRowStore) setErr(table string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[table] = err
}

// memCache is an in-memory cache.Cache. TTLs are ignored; the data cache
// checks freshness itself. failGet makes every Get return an error.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("cache backend down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// fakeUserStore is an in-memory database.UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users []user.User
}

func (f *fakeUserStore) CreateUser(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	f.users = append(f.users, *u)
	return nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].Email == email {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserStore) ListUsers(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]user.User(nil), f.users...), nil
}

// fakeProvider is a scripted authprovider.Provider.
type fakeProvider struct {
	signInErr   error
	signUpErr   error
	signOutErr  error
	confirm     bool
	signOutCall atomic.Int32
	lastToken   atomic.Value
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string) (*authprovider.SignUpResult, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &authprovider.SignUpResult{Email: email, ConfirmationSent: f.confirm}, nil
}

func (f *fakeProvider) SignIn(_ context.Context, email, _ string) (*authprovider.Identity, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &authprovider.Identity{UserID: "u-" + email, Email: email, AccessToken: "tok-" + email}, nil
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.signOutCall.Add(1)
	f.lastToken.Store(token)
	return f.signOutErr
}

// fakeTables is a TableReader with fixed results.
type fakeTables struct {
	tables map[string][]rowstore.Record
	errs   map[string]error
}

func (f *fakeTables) Get(_ context.Context, table string) ([]rowstore.Record, error) {
	if err := f.errs[table]; err != nil {
		return []rowstore.Record{}, err
	}
	if recs, ok := f.tables[table]; ok {
		return recs, nil
	}
	return []rowstore.Record{}, nil
}

// stubPanels is a PanelLoader that counts loads.
type stubPanels struct {
	loads atomic.Int32
}

func (s *stubPanels) Load(context.Context) *Panel {
	s.loads.Add(1)
	return &Panel{Warnings: []string{}}
}
