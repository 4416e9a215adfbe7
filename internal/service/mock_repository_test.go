package service

import (
	"context"
	"errors"

	"github.com/octobees/usersapi/internal/entity"
	"github.com/octobees/usersapi/internal/repository"
)

type mockUsersRepository struct {
	list        func(ctx context.Context) ([]entity.User, error)
	findByID    func(ctx context.Context, id int64) (*entity.User, error)
	credentials func(ctx context.Context, email string) (*entity.Credentials, error)
	update      func(ctx context.Context, id int64, changes repository.UserChanges) (*entity.User, error)
	delete      func(ctx context.Context, id int64) (*entity.DeletedUser, error)
}

func (m *mockUsersRepository) List(ctx context.Context) ([]entity.User, error) {
	if m.list != nil {
		return m.list(ctx)
	}
	return nil, errors.New("List not implemented")
}

func (m *mockUsersRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.findByID != nil {
		return m.findByID(ctx, id)
	}
	return nil, errors.New("FindByID not implemented")
}

func (m *mockUsersRepository) FindCredentialsByEmail(ctx context.Context, email string) (*entity.Credentials, error) {
	if m.credentials != nil {
		return m.credentials(ctx, email)
	}
	return nil, errors.New("FindCredentialsByEmail not implemented")
}

func (m *mockUsersRepository) Update(ctx context.Context, id int64, changes repository.UserChanges) (*entity.User, error) {
	if m.update != nil {
		return m.update(ctx, id, changes)
	}
	return nil, errors.New("Update not implemented")
}

func (m *mockUsersRepository) Delete(ctx context.Context, id int64) (*entity.DeletedUser, error) {
	if m.delete != nil {
		return m.delete(ctx, id)
	}
	return nil, errors.New("Delete not implemented")
}

// plainHasher tags the input so tests can see that hashing happened.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (plainHasher) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return errors.New("mismatch")
	}
	return nil
}

// countingHasher records the hashes Compare was asked to check.
type countingHasher struct {
	plainHasher
	compared []string
}

func (h *countingHasher) Compare(hash, plain string) error {
	h.compared = append(h.compared, hash)
	return h.plainHasher.Compare(hash, plain)
}
