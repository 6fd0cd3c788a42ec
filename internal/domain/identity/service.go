// Package identity manages staff accounts and the token scheme the clients
// authenticate with. The scheme is intentionally simple: the userId doubles
// as the bearer token. Replacing it would break every deployed client, so
// it stays.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/clinic/reserve/internal/platform/store"
	"github.com/clinic/reserve/pkg/model"
)

var (
	// ErrNotFound is returned when a userId does not resolve to an active
	// account.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned on a failed login. The message is
	// deliberately the same for a wrong password and an unknown user.
	ErrInvalidCredentials = errors.New("invalid user id or password")
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports a duplicate userId.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Mailer sends a message to specific recipients. The welcome mail is
// best-effort: a delivery failure must not fail the account creation.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, text, html string) error
}

// UserInput is a client payload for user create and update. Nil fields are
// left untouched on update.
type UserInput struct {
	UserID     *string     `json:"userId"`
	Name       *string     `json:"name"`
	Department *string     `json:"department"`
	Email      *string     `json:"email"`
	Role       *model.Role `json:"role"`
}

// LoginResult is what a successful login returns. The token equals the
// userId; MustChangePassword tells the client to force a password change
// before anything else.
type LoginResult struct {
	Token              string     `json:"token"`
	User               model.User `json:"user"`
	MustChangePassword bool       `json:"mustChangePassword"`
}

// Service implements account management on top of the snapshot store.
type Service struct {
	store  *store.Store
	mailer Mailer
	logger zerolog.Logger
}

func NewService(st *store.Store, mailer Mailer, logger zerolog.Logger) *Service {
	return &Service{store: st, mailer: mailer, logger: logger}
}

// Login checks the credentials against the active accounts.
func (s *Service) Login(ctx context.Context, userID, password string) (LoginResult, error) {
	var result LoginResult
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		i := snap.FindUser(userID)
		if i < 0 || snap.Users[i].IsDeleted || snap.Users[i].Password != password {
			return ErrInvalidCredentials
		}
		u := snap.Users[i]
		result = LoginResult{
			Token:              u.UserID,
			User:               u.Sanitized(),
			MustChangePassword: u.MustChangePassword,
		}
		return nil
	})
	return result, err
}

// Resolve maps a bearer token to its active account. Used by the auth
// middleware on every request.
func (s *Service) Resolve(ctx context.Context, token string) (*model.User, error) {
	var found *model.User
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		i := snap.FindUser(token)
		if i < 0 || snap.Users[i].IsDeleted {
			return ErrNotFound
		}
		u := snap.Users[i].Sanitized()
		found = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// SetPassword replaces the account's password and clears the
// must-change-password flag.
func (s *Service) SetPassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return &ValidationError{Message: "password must not be empty"}
	}
	return s.store.Update(ctx, func(snap *store.Snapshot) error {
		i := snap.FindUser(userID)
		if i < 0 || snap.Users[i].IsDeleted {
			return ErrNotFound
		}
		snap.Users[i].Password = newPassword
		snap.Users[i].MustChangePassword = false
		return nil
	})
}

// List returns all active accounts, passwords stripped.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	result := []model.User{}
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		for _, u := range snap.Users {
			if !u.IsDeleted {
				result = append(result, u.Sanitized())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Create registers a new account with a generated temporary password and
// mails it to the account's address when one is given. The temporary
// password is also returned so an admin can hand it over directly.
func (s *Service) Create(ctx context.Context, in UserInput, actor string) (model.User, string, error) {
	if in.UserID == nil || *in.UserID == "" || in.Name == nil || *in.Name == "" {
		return model.User{}, "", &ValidationError{Message: "userId and name are required"}
	}
	tempPassword, err := generatePassword(8)
	if err != nil {
		return model.User{}, "", fmt.Errorf("generate password: %w", err)
	}

	u := model.User{
		UserID:             *in.UserID,
		Name:               *in.Name,
		Password:           tempPassword,
		Role:               model.RoleGeneral,
		MustChangePassword: true,
		LastUpdatedBy:      actor,
	}
	if in.Department != nil {
		u.Department = *in.Department
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Role != nil {
		u.Role = *in.Role
	}

	err = s.store.Update(ctx, func(snap *store.Snapshot) error {
		if i := snap.FindUser(u.UserID); i >= 0 && !snap.Users[i].IsDeleted {
			return &ConflictError{Message: fmt.Sprintf("user %q already exists", u.UserID)}
		}
		snap.Users = append(snap.Users, u)
		return nil
	})
	if err != nil {
		return model.User{}, "", err
	}

	if u.Email != "" {
		subject := "Your reservation system account"
		text := fmt.Sprintf("An account has been created for you.\nUser ID: %s\nTemporary password: %s\nPlease change the password on first login.", u.UserID, tempPassword)
		html := fmt.Sprintf("<p>An account has been created for you.</p><ul><li>User ID: %s</li><li>Temporary password: %s</li></ul><p>Please change the password on first login.</p>", u.UserID, tempPassword)
		if err := s.mailer.Send(ctx, []string{u.Email}, subject, text, html); err != nil {
			s.logger.Warn().Err(err).Str("user_id", u.UserID).Msg("welcome mail failed")
		}
	}
	return u.Sanitized(), tempPassword, nil
}

// Update merges the input onto the stored account. The userId itself is
// immutable; the role stays as-is when the input omits it.
func (s *Service) Update(ctx context.Context, userID string, in UserInput, actor string) (model.User, error) {
	var after model.User
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		i := snap.FindUser(userID)
		if i < 0 || snap.Users[i].IsDeleted {
			return ErrNotFound
		}
		u := snap.Users[i]
		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.Department != nil {
			u.Department = *in.Department
		}
		if in.Email != nil {
			u.Email = *in.Email
		}
		if in.Role != nil {
			u.Role = *in.Role
		}
		if u.Name == "" {
			return &ValidationError{Message: "name must not be empty"}
		}
		u.LastUpdatedBy = actor
		snap.Users[i] = u
		after = u.Sanitized()
		return nil
	})
	return after, err
}

// Delete soft-deletes the account; its token stops resolving immediately.
func (s *Service) Delete(ctx context.Context, userID, actor string) error {
	return s.store.Update(ctx, func(snap *store.Snapshot) error {
		i := snap.FindUser(userID)
		if i < 0 || snap.Users[i].IsDeleted {
			return ErrNotFound
		}
		snap.Users[i].IsDeleted = true
		snap.Users[i].LastUpdatedBy = actor
		return nil
	})
}

// EmailRecipients returns the addresses of every active account that has
// one. The notifier fans broadcast mails out to this list.
func (s *Service) EmailRecipients(ctx context.Context) ([]string, error) {
	var addrs []string
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		for _, u := range snap.Users {
			if !u.IsDeleted && u.Email != "" {
				addrs = append(addrs, u.Email)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generatePassword(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[idx.Int64()]
	}
	return string(out), nil
}
