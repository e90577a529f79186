// Package identity resolves a caller token into a user id and roles. Every
// resolver fails closed: a missing user id or an empty role list is an
// unauthorized error.
package identity

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmptyToken   = errors.New("empty token")
	ErrNoRoles      = errors.New("user roles could not be retrieved")
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (userID string, roles []string, err error)
}

func checkIdentity(userID string, roles []string) error {
	if userID == "" {
		return errors.Join(ErrUnauthorized, errors.New("user id could not be retrieved"))
	}

	if len(roles) == 0 {
		return errors.Join(ErrUnauthorized, ErrNoRoles)
	}

	return nil
}

func toStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				result = append(result, s)
			}
		}

		return result
	case string:
		if v == "" {
			return nil
		}

		return []string{v}
	default:
		return nil
	}
}
