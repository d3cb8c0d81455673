package errs

import "net/http"

// errorMap holds the template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx
	ErrGroupNameInvalid:      {Code: ErrGroupNameInvalid, Message: "Invalid group name."},
	ErrNoGroupSelected:       {Code: ErrNoGroupSelected, Message: "No group selected."},
	ErrMessageContentInvalid: {Code: ErrMessageContentInvalid, Message: "Message is empty."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)."},
	ErrUserIDInvalid:         {Code: ErrUserIDInvalid, Message: "Invalid user."},

	// 3xxx
	ErrNotConnected:     {Code: ErrNotConnected, Message: "Not Connected", Status: http.StatusServiceUnavailable},
	ErrRequestTimeout:   {Code: ErrRequestTimeout, Message: "No response to %s.", Status: http.StatusGatewayTimeout},
	ErrIdentityPending:  {Code: ErrIdentityPending, Message: "Still waiting for the server to identify you.", Status: http.StatusConflict},
	ErrNicknameInvalid:  {Code: ErrNicknameInvalid, Message: "Invalid nickname."},
	ErrTokenInvalid:     {Code: ErrTokenInvalid, Message: "Sign-in token is invalid or expired.", Status: http.StatusUnauthorized},
	ErrTokenStoreFailed: {Code: ErrTokenStoreFailed, Message: "Could not update the saved sign-in.", Status: http.StatusInternalServerError},
	ErrServerRejected:   {Code: ErrServerRejected, Message: "Server error: %s", Status: http.StatusBadGateway},

	// 5xxx
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
