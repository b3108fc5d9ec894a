package auth

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_credential_source.go -package=mocks flowmind/internal/auth CredentialSource

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"flowmind/internal/contextutil"
	"flowmind/internal/storage"
)

// ErrRejected is returned for any failed login attempt. The same error is
// used for unknown usernames and wrong passwords so callers cannot
// distinguish the two causes.
var ErrRejected = errors.New("invalid credentials")

// dummyHash is a bcrypt hash of an unguessable constant. Login attempts for
// unknown usernames are verified against it so that the rejection path costs
// the same bcrypt comparison as a wrong password.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("flowmind-no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// CredentialSource supplies the credential mapping used for authentication.
type CredentialSource interface {
	FetchCredentials(ctx context.Context) (map[string]storage.Credential, error)
}

// Identity describes a successfully authenticated user.
type Identity struct {
	Username string
	FullName string
}

// Authenticator verifies login attempts against the credential store.
type Authenticator struct {
	credentials CredentialSource
	bcryptCost  int
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(credentials CredentialSource, bcryptCost int) *Authenticator {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Authenticator{
		credentials: credentials,
		bcryptCost:  bcryptCost,
	}
}

// HashPassword returns the bcrypt hash of a plaintext password.
func (a *Authenticator) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate verifies a username/password pair. On success it returns the
// user's identity; on any mismatch it returns ErrRejected.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	logger := contextutil.LoggerFromContext(ctx)

	credentials, err := a.credentials.FetchCredentials(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch credentials", "error", err)
		return Identity{}, fmt.Errorf("failed to fetch credentials: %w", err)
	}

	cred, ok := credentials[username]
	storedHash := cred.PasswordHash
	if !ok {
		storedHash = dummyHash
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)); err != nil || !ok {
		logger.InfoContext(ctx, "login rejected", "username", username)
		return Identity{}, ErrRejected
	}

	return Identity{
		Username: username,
		FullName: cred.FullName,
	}, nil
}
