package domain

import "errors"

var (
	// ErrUserNotFound is returned when a user id or username does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned on registration with a duplicate username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials covers both unknown username and wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrTokenNotFound means the bearer token is unknown or expired.
	ErrTokenNotFound = errors.New("auth token not found")
	// ErrForbidden is returned when a non-admin attempts an admin-only operation.
	ErrForbidden = errors.New("operation requires admin role")

	// ErrPackageNotFound is returned when a quiz package id does not resolve.
	ErrPackageNotFound = errors.New("quiz package not found")
	// ErrPackageInactive means the package exists but was soft-deleted.
	ErrPackageInactive = errors.New("quiz package is not active")
	// ErrPackageAlreadyDeleted is returned when soft-deleting an inactive package.
	ErrPackageAlreadyDeleted = errors.New("quiz package is already deleted")
	// ErrPackageEmpty means a session cannot start against a package with no questions.
	ErrPackageEmpty = errors.New("quiz package has no questions")
	// ErrQuestionNotFound is returned when a question id does not resolve.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidAnswerOption means the answer is outside the A-E enumeration.
	ErrInvalidAnswerOption = errors.New("answer option must be one of A-E")

	// ErrSessionNotFound is returned when a session id does not resolve, or when
	// a result view is requested for a session that has no result yet.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionCompleted guards the one-shot completion contract.
	ErrSessionCompleted = errors.New("quiz session is already completed")
	// ErrQuestionNotInPackage rejects answers for questions outside the session's package.
	ErrQuestionNotInPackage = errors.New("question does not belong to the session's quiz package")
)
