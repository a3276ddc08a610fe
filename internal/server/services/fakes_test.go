package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/dbx"
	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/server/archive"
	"github.com/dmitrijs2005/keygate/internal/server/config"
	"github.com/dmitrijs2005/keygate/internal/server/entitlement"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	keysrepo "github.com/dmitrijs2005/keygate/internal/server/repositories/keys"
	usersrepo "github.com/dmitrijs2005/keygate/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

var testNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// fakeHasher "hashes" by prefixing, so tests can seed users directly.
type fakeHasher struct {
	dummyCalls int
	hashErr    error
}

func (h *fakeHasher) Hash(p string) ([]byte, error) {
	if h.hashErr != nil {
		return nil, h.hashErr
	}
	return []byte("h:" + p), nil
}
func (h *fakeHasher) Verify(hash []byte, p string) bool { return string(hash) == "h:"+p }
func (h *fakeHasher) VerifyDummy(string)                { h.dummyCalls++ }

// fakeStore backs both fake repositories. It ignores transactions; tests that
// care about atomicity assert on sqlmock's begin/commit/rollback instead.
type fakeStore struct {
	mu         sync.Mutex
	users      map[int64]*models.User
	keys       map[int64]*models.ActivationKey
	nextUserID int64
	nextKeyID  int64

	// error injection
	getUserErr     error
	createUserErr  error
	listErr        error
	bindLosesRace  *string
	createKeyErrs  []error
	markUsedErr    error
	deleteAllErr   error
	updateEntErr   error
	lockedKeyCodes []string
	lockedUserIDs  []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int64]*models.User{},
		keys:       map[int64]*models.ActivationKey{},
		nextUserID: 1,
		nextKeyID:  1,
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.HWID != nil {
		h := *u.HWID
		c.HWID = &h
	}
	if u.Entitlement.ExpiresAt != nil {
		t := *u.Entitlement.ExpiresAt
		c.Entitlement.ExpiresAt = &t
	}
	return &c
}

func cloneKey(k *models.ActivationKey) *models.ActivationKey {
	c := *k
	return &c
}

func (s *fakeStore) addUser(name, password string, hwid *string, e models.Entitlement) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: s.nextUserID, UserName: name, PasswordHash: []byte("h:" + password), HWID: hwid, Entitlement: e, CreatedAt: testNow}
	s.users[u.ID] = u
	s.nextUserID++
	return cloneUser(u)
}

func (s *fakeStore) addKey(code string, t models.SubscriptionType, days int) *models.ActivationKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := &models.ActivationKey{ID: s.nextKeyID, Code: code, SubscriptionType: t, DurationDays: days, CreatedAt: testNow}
	s.keys[k.ID] = k
	s.nextKeyID++
	return cloneKey(k)
}

func (s *fakeStore) user(id int64) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (s *fakeStore) keyByCode(code string) *models.ActivationKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.Code == code {
			return cloneKey(k)
		}
	}
	return nil
}

type fakeUsers struct{ s *fakeStore }

func (f *fakeUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createUserErr != nil {
		return nil, s.createUserErr
	}
	for _, existing := range s.users {
		if existing.UserName == u.UserName {
			return nil, common.ErrConflict
		}
	}
	c := cloneUser(u)
	c.ID = s.nextUserID
	c.CreatedAt = testNow
	s.nextUserID++
	s.users[c.ID] = c
	return cloneUser(c), nil
}

func (f *fakeUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getUserErr != nil {
		return nil, s.getUserErr
	}
	for _, u := range s.users {
		if u.UserName == login {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getUserErr != nil {
		return nil, s.getUserErr
	}
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetUserByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	f.s.mu.Lock()
	f.s.lockedUserIDs = append(f.s.lockedUserIDs, id)
	f.s.mu.Unlock()
	return f.GetUserByID(ctx, id)
}

func (f *fakeUsers) List(ctx context.Context) ([]*models.User, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*models.User
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) BindHardware(ctx context.Context, id int64, hwid string) (bool, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	if s.bindLosesRace != nil {
		h := *s.bindLosesRace
		u.HWID = &h
		return false, nil
	}
	if u.HWID != nil {
		return false, nil
	}
	u.HWID = &hwid
	return true, nil
}

func (f *fakeUsers) UpdateHardware(ctx context.Context, id int64, hwid *string) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.HWID = hwid
	return nil
}

func (f *fakeUsers) UpdateEntitlement(ctx context.Context, id int64, e models.Entitlement) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateEntErr != nil {
		return s.updateEntErr
	}
	u, ok := s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Entitlement = e
	return nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id int64, hash []byte) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id int64) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(s.users, id)
	return nil
}

func (f *fakeUsers) DeleteAll(ctx context.Context) (int64, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteAllErr != nil {
		return 0, s.deleteAllErr
	}
	n := int64(len(s.users))
	s.users = map[int64]*models.User{}
	return n, nil
}

func (f *fakeUsers) ResetIdentityCounter(ctx context.Context) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.nextUserID = 1
	return nil
}

type fakeKeys struct{ s *fakeStore }

func (f *fakeKeys) Create(ctx context.Context, k *models.ActivationKey) (*models.ActivationKey, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.createKeyErrs) > 0 {
		err := s.createKeyErrs[0]
		s.createKeyErrs = s.createKeyErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	for _, existing := range s.keys {
		if existing.Code == k.Code {
			return nil, common.ErrConflict
		}
	}
	c := cloneKey(k)
	c.ID = s.nextKeyID
	c.CreatedAt = testNow
	s.nextKeyID++
	s.keys[c.ID] = c
	return cloneKey(c), nil
}

func (f *fakeKeys) GetKeyByCodeForUpdate(ctx context.Context, code string) (*models.ActivationKey, error) {
	f.s.mu.Lock()
	f.s.lockedKeyCodes = append(f.s.lockedKeyCodes, code)
	f.s.mu.Unlock()
	if k := f.s.keyByCode(code); k != nil {
		return k, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeKeys) List(ctx context.Context) ([]*models.ActivationKey, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*models.ActivationKey
	for _, k := range s.keys {
		out = append(out, cloneKey(k))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeKeys) MarkUsed(ctx context.Context, id, userID int64, at time.Time) error {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markUsedErr != nil {
		return s.markUsedErr
	}
	k, ok := s.keys[id]
	if !ok || k.Used {
		return common.ErrKeyAlreadyUsed
	}
	k.Used = true
	k.UsedBy = &userID
	k.UsedAt = &at
	return nil
}

func (f *fakeKeys) DeleteAll(ctx context.Context) (int64, error) {
	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.keys))
	s.keys = map[int64]*models.ActivationKey{}
	return n, nil
}

func (f *fakeKeys) ResetIdentityCounter(ctx context.Context) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.nextKeyID = 1
	return nil
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository         { return &fakeUsers{s: m.s} }
func (m *fakeRepoManager) Keys(dbx.DBTX) keysrepo.Repository           { return &fakeKeys{s: m.s} }

type fakeArchiver struct {
	calls int
	snap  *archive.Snapshot
	err   error
}

func (a *fakeArchiver) Archive(ctx context.Context, snap *archive.Snapshot) (string, error) {
	a.calls++
	a.snap = snap
	if a.err != nil {
		return "", a.err
	}
	return "wipes/test.json", nil
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                     "k",
		IdentityTokenValidityDuration: time.Hour,
		WipeSecret:                    "wipe-me",
		KeyPrefix:                     "VDK",
	}
}

type fixture struct {
	store  *fakeStore
	db     *sql.DB
	mock   sqlmock.Sqlmock
	hasher *fakeHasher
	auth   *AuthService
	ent    *EntitlementService
	admin  *AdminService
	arch   *fakeArchiver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := newFakeStore()
	rm := &fakeRepoManager{s: store}
	hasher := &fakeHasher{}
	clock := fixedClock{t: testNow}
	cfg := testConfig()
	log := logging.Nop()

	return &fixture{
		store:  store,
		db:     db,
		mock:   mock,
		hasher: hasher,
		auth:   NewAuthService(db, rm, hasher, clock, cfg, log, nil),
		ent:    NewEntitlementService(db, rm, entitlement.NewEngine(time.UTC), clock, log, nil),
		admin:  NewAdminService(db, rm, clock, cfg, nil, log, nil),
	}
}

func (f *fixture) withArchiver(a *fakeArchiver) {
	f.arch = a
	f.admin.archiver = a
}

func ptr[T any](v T) *T { return &v }

func isBoom(err error) bool {
	return err != nil && strings.Contains(err.Error(), "boom")
}
