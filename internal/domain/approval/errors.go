package approval

import "errors"

var (
	// ErrEntityNotFound is returned when the profile or letter does not exist
	ErrEntityNotFound = errors.New("entity not found")

	// ErrNotARecipient is returned when the claimed role is not one of the entity's reviewers
	ErrNotARecipient = errors.New("role is not a reviewer of this entity")

	// ErrRoleMismatch is returned when the actor's verified role differs from the claimed role
	ErrRoleMismatch = errors.New("actor role does not match claimed role")

	// ErrCommentRequired is returned when a rejection carries no comment
	ErrCommentRequired = errors.New("comment is required when rejecting")

	// ErrInvalidRecipients is returned when a reviewer set is empty or contains unknown roles
	ErrInvalidRecipients = errors.New("invalid recipients")

	// ErrConcurrentWriteConflict is returned when the stored version moved between read and write
	ErrConcurrentWriteConflict = errors.New("concurrent write conflict")

	// ErrInvalidAction is returned for actions other than approve or reject
	ErrInvalidAction = errors.New("invalid decision action")

	// ErrInvalidMembers is returned when approved member ids are not listed on the letter
	ErrInvalidMembers = errors.New("approved members are not listed for this reviewer")

	// ErrAccessDenied is returned by the access gate
	ErrAccessDenied = errors.New("required approvals are missing")

	// ErrInvalidEntity is returned when submitted entity details are incomplete
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrDuplicateProfile is returned when an owner already has a profile
	ErrDuplicateProfile = errors.New("profile already exists")

	// ErrUnauthenticated is returned when the caller identity cannot be resolved
	ErrUnauthenticated = errors.New("unauthenticated")
)

// IsUnauthorizedReview reports errors that must surface as the same generic
// "not authorized" message, so callers cannot probe which roles are valid
func IsUnauthorizedReview(err error) bool {
	return errors.Is(err, ErrNotARecipient) || errors.Is(err, ErrRoleMismatch)
}
