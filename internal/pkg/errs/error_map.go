/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, socket error events and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrMalformedEvent:       {Code: ErrMalformedEvent, Message: "Malformed event: %s"},
	ErrUnsupportedEvent:     {Code: ErrUnsupportedEvent, Message: "Unsupported event type: %s"},

	// 2xxx
	ErrNotMember:              {Code: ErrNotMember, Message: "Chat not found.", Status: http.StatusNotFound},
	ErrMessageContentTooLong:  {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageEmpty:           {Code: ErrMessageEmpty, Message: "Message is empty."},
	ErrAttachmentCountInvalid: {Code: ErrAttachmentCountInvalid, Message: "A message can carry at most %d attachments."},
	ErrAttachmentKeyInvalid:   {Code: ErrAttachmentKeyInvalid, Message: "Invalid attachment."},
	ErrAttachmentTypeInvalid:  {Code: ErrAttachmentTypeInvalid, Message: "Unsupported attachment type."},
	ErrFileSizeTooLarge:       {Code: ErrFileSizeTooLarge, Message: "File is too large."},

	// 3xxx
	ErrAuthFailed:    {Code: ErrAuthFailed, Message: "Authentication failed.", Status: http.StatusUnauthorized},
	ErrUnauthorized:  {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrSessionKicked: {Code: ErrSessionKicked, Message: "You were signed in on another device."},

	// 5xxx
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorage:           {Code: ErrStorage, Message: "Message could not be delivered. Please retry.", Status: http.StatusServiceUnavailable},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload is unavailable. Please try again.", Status: http.StatusServiceUnavailable},
}
