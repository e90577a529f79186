package identity

import (
	"context"
	"errors"
	"slices"
)

// User is a fixed identity for development setups.
type User struct {
	ID    string   `mapstructure:"id"`
	Roles []string `mapstructure:"roles"`
}

// StaticResolver maps known tokens to users. A fallback user, when set,
// answers for any other non-empty token.
type StaticResolver struct {
	users    map[string]User
	fallback *User
}

func NewStaticResolver(users map[string]User, fallback *User) *StaticResolver {
	return &StaticResolver{users: users, fallback: fallback}
}

func (r *StaticResolver) Resolve(_ context.Context, token string) (string, []string, error) {
	if token == "" {
		return "", nil, errors.Join(ErrUnauthorized, ErrEmptyToken)
	}

	user, ok := r.users[token]
	if !ok {
		if r.fallback == nil {
			return "", nil, ErrUnauthorized
		}

		user = *r.fallback
	}

	err := checkIdentity(user.ID, user.Roles)
	if err != nil {
		return "", nil, err
	}

	return user.ID, slices.Clone(user.Roles), nil
}
