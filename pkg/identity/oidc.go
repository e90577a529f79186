package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc"
)

const DefaultRolesClaim = "roles"

// OIDCResolver verifies bearer ID tokens and reads the subject and a roles
// claim from them.
type OIDCResolver struct {
	verifier   *oidc.IDTokenVerifier
	rolesClaim string
}

// NewOIDCResolver discovers the issuer and verifies tokens for any client id.
func NewOIDCResolver(ctx context.Context, issuer, rolesClaim string) (*OIDCResolver, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC issuer: %w", err)
	}

	return NewOIDCResolverWithVerifier(provider.Verifier(&oidc.Config{SkipClientIDCheck: true}), rolesClaim), nil
}

func NewOIDCResolverWithVerifier(verifier *oidc.IDTokenVerifier, rolesClaim string) *OIDCResolver {
	if rolesClaim == "" {
		rolesClaim = DefaultRolesClaim
	}

	return &OIDCResolver{
		verifier:   verifier,
		rolesClaim: rolesClaim,
	}
}

func (r *OIDCResolver) Resolve(ctx context.Context, token string) (string, []string, error) {
	if token == "" {
		return "", nil, errors.Join(ErrUnauthorized, ErrEmptyToken)
	}

	idToken, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	var claims map[string]any

	err = idToken.Claims(&claims)
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to parse token claims: %w", ErrUnauthorized, err)
	}

	roles := toStrings(claims[r.rolesClaim])

	err = checkIdentity(idToken.Subject, roles)
	if err != nil {
		return "", nil, err
	}

	return idToken.Subject, roles, nil
}
