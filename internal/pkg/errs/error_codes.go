/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally within the
server and in error events sent to connected clients.
*/
package errs

// 1xxx: General Request and Event Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrMalformedEvent indicates that an inbound socket event carried a payload that failed validation.
	ErrMalformedEvent = 1101

	// ErrUnsupportedEvent indicates that an inbound socket event type is unknown.
	ErrUnsupportedEvent = 1102
)

// 2xxx: Chat and Content Business Logic Errors
const (
	// ErrNotMember indicates that the caller is not a member of the chat.
	// The client-facing message is deliberately indistinguishable from a missing chat.
	ErrNotMember = 2101

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageEmpty indicates a message with neither content nor attachments.
	ErrMessageEmpty = 2202

	// ErrAttachmentCountInvalid indicates too many attachments on one message.
	ErrAttachmentCountInvalid = 2203

	// ErrAttachmentKeyInvalid indicates an attachment key outside the chat's storage prefix.
	ErrAttachmentKeyInvalid = 2204

	// ErrAttachmentTypeInvalid indicates a disallowed MIME type or a MIME/extension mismatch.
	ErrAttachmentTypeInvalid = 2205

	// ErrFileSizeTooLarge indicates that an attachment exceeds the size limit.
	ErrFileSizeTooLarge = 2206
)

// 3xxx: Session and Security Errors
const (
	// ErrAuthFailed covers every credential failure (bad signature, expiry, unknown user).
	ErrAuthFailed = 3001

	// ErrUnauthorized indicates an HTTP request without a valid identity.
	ErrUnauthorized = 3002

	// ErrSessionKicked indicates that the current connection was superseded by a newer one.
	ErrSessionKicked = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStorage indicates that the directory store was unavailable or a write failed.
	ErrStorage = 5001

	// ErrFileStorageFailed indicates that the attachment storage backend failed or is not configured.
	ErrFileStorageFailed = 5002
)
