/*
Package errs provides the chat client's error type and application error codes.

The codes identify failures both inside the session (reported through the view)
and on the local control API, where they become the JSON envelope's code field.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates extra content after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the caller is sending too fast.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Group and Message Errors
const (
	// ErrGroupNameInvalid indicates an empty or oversized group name.
	ErrGroupNameInvalid = 2101

	// ErrNoGroupSelected indicates an operation that needs an active group.
	ErrNoGroupSelected = 2103

	// ErrMessageContentInvalid indicates an empty message body.
	ErrMessageContentInvalid = 2200

	// ErrMessageContentTooLong indicates that the message body exceeded the size limit.
	ErrMessageContentTooLong = 2201

	// ErrUserIDInvalid indicates an empty target user identifier.
	ErrUserIDInvalid = 2301
)

// 3xxx: Session, Identity and Connection Errors
const (
	// ErrNotConnected indicates there is no live connection to the chat server.
	ErrNotConnected = 3001

	// ErrRequestTimeout indicates a request never received its expected response.
	ErrRequestTimeout = 3002

	// ErrIdentityPending indicates an operation that needs the self identifier before it is known.
	ErrIdentityPending = 3003

	// ErrNicknameInvalid indicates an empty or oversized nickname.
	ErrNicknameInvalid = 3004

	// ErrTokenInvalid indicates a bearer token that is malformed or expired.
	ErrTokenInvalid = 3005

	// ErrTokenStoreFailed indicates the token could not be saved or erased.
	ErrTokenStoreFailed = 3006

	// ErrServerRejected indicates that the chat server reported an error event.
	ErrServerRejected = 3007
)

// 5xxx: Internal Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000
)
