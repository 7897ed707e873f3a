package service

import (
	"context"
	"sync"
	"testing"

	userserrors "wanderly/internal/users/errors"
	"wanderly/internal/users/validator"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.UID]; ok {
		return userserrors.ErrDuplicate
	}
	copied := *user
	f.users[user.UID] = &copied
	return nil
}

func (f *fakeUserRepo) FindByUID(_ context.Context, uid string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[uid]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) Update(_ context.Context, uid string, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[uid]; !ok {
		return userserrors.ErrNotFound
	}
	copied := *user
	f.users[uid] = &copied
	return nil
}

func newTestUserService(repo *fakeUserRepo) UserService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
	return NewUserService(repo, validator.NewUserValidator(), cfg)
}

func TestUserCreateNormalizesFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	user := &model.User{
		UID:   " fb-uid-1 ",
		Email: " Traveller@Example.COM ",
		Name:  "  ada   lovelace ",
	}

	created, err := svc.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.UID != "fb-uid-1" {
		t.Errorf("expected trimmed uid, got %q", created.UID)
	}
	if created.Email != "traveller@example.com" {
		t.Errorf("expected lowercased email, got %q", created.Email)
	}
	if created.Name != "ada lovelace" {
		t.Errorf("expected collapsed whitespace in name, got %q", created.Name)
	}
}

func TestUserCreateIsGetOrCreate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	if _, err := svc.Create(context.Background(), &model.User{UID: "fb-uid-1", Email: "a@example.com"}); err != nil {
		t.Fatalf("first Create returned error: %v", err)
	}

	existing, err := svc.Create(context.Background(), &model.User{UID: "fb-uid-1", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("replayed Create returned error: %v", err)
	}
	if existing.Email != "a@example.com" {
		t.Errorf("expected stored account returned unchanged, got email %q", existing.Email)
	}
	if len(repo.users) != 1 {
		t.Errorf("expected one stored user, got %d", len(repo.users))
	}
}

func TestUserCreateInvalidEmailRejected(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	_, err := svc.Create(context.Background(), &model.User{UID: "fb-uid-1", Email: "not-an-email"})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected VALIDATION error, got %v", err)
	}
	if len(repo.users) != 0 {
		t.Errorf("expected no users stored, got %d", len(repo.users))
	}
}

func TestUserUpdateMergesFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	if _, err := svc.Create(context.Background(), &model.User{
		UID:   "fb-uid-1",
		Email: "a@example.com",
		Name:  "Ada Lovelace",
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.Update(context.Background(), "fb-uid-1", &model.UserUpdate{
		Phone: "+14155550123",
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Email != "a@example.com" {
		t.Errorf("expected email preserved, got %q", updated.Email)
	}
	if updated.Name != "Ada Lovelace" {
		t.Errorf("expected name preserved, got %q", updated.Name)
	}
	if updated.Phone != "+14155550123" {
		t.Errorf("expected phone set, got %q", updated.Phone)
	}
}

func TestUserGetUnknownNotFound(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo)

	_, err := svc.GetByUID(context.Background(), "missing")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
