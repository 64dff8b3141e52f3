// Package members implements the membership resolution and diff engine.
// Raw identifiers submitted by clients are resolved into canonical member
// tuples, and requested changes are reduced to the minimal idempotent delta
// against a group's current membership.
package members

import (
	"context"
	"errors"
	"fmt"

	"github.com/asaskevich/govalidator"
	"golang.org/x/sync/errgroup"

	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/uid"
)

// Directory looks up directory users. Absence is reported as
// internal.ErrNotFound.
type Directory interface {
	FindUserByID(ctx context.Context, id uid.ID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// ErrInvalidTuple indicates a submitted identifier that is not a well-formed
// {objectType, id} pair, or carries an unsupported objectType. One bad tuple
// invalidates the whole batch.
var ErrInvalidTuple = fmt.Errorf("%w: body must be an array of valid member tuples {objectType, id}", internal.ErrBadRequest)

// MalformedEmailError reports an email identifier that fails syntax
// validation.
type MalformedEmailError struct {
	Email string
}

func (e MalformedEmailError) Error() string {
	return fmt.Sprintf("%q is not a valid email address", e.Email)
}

func (e MalformedEmailError) Is(other error) bool {
	// nolint:errorlint // comparing with == is correct here, the caller uses Unwrap.
	return other == internal.ErrBadRequest
}

// Resolution is the outcome for one submitted identifier. Member is nil when
// the identifier was well-formed but did not resolve (a user tuple whose id
// is unknown to the directory); such entries are skipped, not failed.
type Resolution struct {
	Requested models.Member
	Member    *models.Member
}

type Resolver struct {
	Directory Directory
}

// ValidateTuples rejects the whole batch if any entry is not a well-formed
// tuple with a supported objectType. This runs before any directory lookup.
func ValidateTuples(tuples []models.Member) error {
	for _, t := range tuples {
		if t.ID == "" {
			return ErrInvalidTuple
		}
		switch t.ObjectType {
		case models.ObjectTypeUser, models.ObjectTypeEmail:
		default:
			return ErrInvalidTuple
		}
	}
	return nil
}

// ResolveAll resolves a batch of submitted tuples. Directory lookups run
// concurrently; outcomes mirror the input order exactly.
func (r *Resolver) ResolveAll(ctx context.Context, tuples []models.Member) ([]Resolution, error) {
	if err := ValidateTuples(tuples); err != nil {
		return nil, err
	}

	results := make([]Resolution, len(tuples))
	group, ctx := errgroup.WithContext(ctx)

	for i := range tuples {
		i := i
		group.Go(func() error {
			res, err := r.resolve(ctx, tuples[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Resolver) resolve(ctx context.Context, tuple models.Member) (Resolution, error) {
	res := Resolution{Requested: tuple}

	switch tuple.ObjectType {
	case models.ObjectTypeEmail:
		if !govalidator.IsEmail(tuple.ID) {
			return res, MalformedEmailError{Email: tuple.ID}
		}
		member := models.EmailMember(tuple.ID)
		res.Member = &member

	case models.ObjectTypeUser:
		id, err := uid.Parse([]byte(tuple.ID))
		if err != nil {
			// not a directory id; skipped like an unknown user
			return res, nil
		}
		user, err := r.Directory.FindUserByID(ctx, id)
		switch {
		case errors.Is(err, internal.ErrNotFound):
			return res, nil
		case err != nil:
			return res, err
		}
		member := models.UserMember(user.ID)
		res.Member = &member
	}

	return res, nil
}

// ResolveEmails resolves creation-time member inputs, which are bare email
// addresses. An address matching a directory user resolves to a user member;
// an unknown address degrades to an email member. A malformed address fails
// the whole batch. Output order mirrors input order.
func (r *Resolver) ResolveEmails(ctx context.Context, emails []string) ([]models.Member, error) {
	for _, email := range emails {
		if !govalidator.IsEmail(email) {
			return nil, MalformedEmailError{Email: email}
		}
	}

	results := make([]models.Member, len(emails))
	group, ctx := errgroup.WithContext(ctx)

	for i := range emails {
		i := i
		group.Go(func() error {
			email := models.NormalizeEmail(emails[i])
			user, err := r.Directory.FindUserByEmail(ctx, email)
			switch {
			case errors.Is(err, internal.ErrNotFound):
				results[i] = models.EmailMember(email)
				return nil
			case err != nil:
				return err
			}
			results[i] = models.UserMember(user.ID)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
