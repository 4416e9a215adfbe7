package repository

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/octobees/usersapi/internal/entity"
)

// DBObserver records latency and failures of a logical store operation.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

// InstrumentedUsersRepository adds metrics and a tracing span to every call.
// ErrUserNotFound is an expected outcome and is not counted as a failure.
type InstrumentedUsersRepository struct {
	next     UsersRepository
	observer DBObserver
	tracer   trace.Tracer
}

// NewInstrumentedUsersRepository wraps next. The global tracer provider is used.
func NewInstrumentedUsersRepository(next UsersRepository, observer DBObserver) *InstrumentedUsersRepository {
	return &InstrumentedUsersRepository{
		next:     next,
		observer: observer,
		tracer:   otel.Tracer("github.com/octobees/usersapi/internal/repository"),
	}
}

func (r *InstrumentedUsersRepository) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "users."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "postgresql"), attribute.String("db.operation", op))

	var opErr error
	_ = r.observer.ObserveDB(op, func() error {
		opErr = fn(ctx)
		if errors.Is(opErr, ErrUserNotFound) {
			return nil
		}
		return opErr
	})

	if opErr != nil && !errors.Is(opErr, ErrUserNotFound) {
		span.RecordError(opErr)
		span.SetStatus(codes.Error, "store operation failed")
	}
	return opErr
}

func (r *InstrumentedUsersRepository) List(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.observe(ctx, "list", func(ctx context.Context) error {
		var err error
		users, err = r.next.List(ctx)
		return err
	})
	return users, err
}

func (r *InstrumentedUsersRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	var user *entity.User
	err := r.observe(ctx, "find_by_id", func(ctx context.Context) error {
		var err error
		user, err = r.next.FindByID(ctx, id)
		return err
	})
	return user, err
}

func (r *InstrumentedUsersRepository) FindCredentialsByEmail(ctx context.Context, email string) (*entity.Credentials, error) {
	var creds *entity.Credentials
	err := r.observe(ctx, "find_credentials", func(ctx context.Context) error {
		var err error
		creds, err = r.next.FindCredentialsByEmail(ctx, email)
		return err
	})
	return creds, err
}

func (r *InstrumentedUsersRepository) Update(ctx context.Context, id int64, changes UserChanges) (*entity.User, error) {
	var user *entity.User
	err := r.observe(ctx, "update", func(ctx context.Context) error {
		var err error
		user, err = r.next.Update(ctx, id, changes)
		return err
	})
	return user, err
}

func (r *InstrumentedUsersRepository) Delete(ctx context.Context, id int64) (*entity.DeletedUser, error) {
	var deleted *entity.DeletedUser
	err := r.observe(ctx, "delete", func(ctx context.Context) error {
		var err error
		deleted, err = r.next.Delete(ctx, id)
		return err
	})
	return deleted, err
}
