package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenMalformed means the token is not a well-formed compact JWS for a supported algorithm.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid means the signature did not verify or the algorithm is not the configured one.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means the signature verified but exp has passed.
	ErrTokenExpired = errors.New("token expired")
)

// TokenErrorLabel returns the internal label used in logs and metrics for a Verify error.
func TokenErrorLabel(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalid):
		return "invalid"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "error"
	}
}
