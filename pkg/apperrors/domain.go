package apperrors

import (
	"net/http"
)

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error, domain, message string) *AppError {
	return Wrap(err, CodeNotFound, domain, message, http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error, domain, message string) *AppError {
	return Wrap(err, CodeAlreadyExists, domain, message, http.StatusConflict)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrStoreWrite - запись в хранилище не удалась.
func ErrStoreWrite(err error) *AppError {
	return Wrap(err, CodeStoreWriteFailed, "feedback", "Failed to save feedback", http.StatusBadGateway)
}

// --- Feedback ---

var ErrRatingRequired = New(
	CodeValidationFailed,
	"feedback",
	"Please select a rating",
	http.StatusBadRequest,
)

var ErrReviewPageNotFound = New(
	CodeNotFound,
	"tenant",
	"Review page not found",
	http.StatusNotFound,
)

var ErrFeedbackNotFound = New(
	CodeNotFound,
	"feedback",
	"Feedback not found",
	http.StatusNotFound,
)

// --- Tenants ---

var ErrClientNotFound = New(
	CodeNotFound,
	"client",
	"Client not found",
	http.StatusNotFound,
)

var ErrSellerNotFound = New(
	CodeNotFound,
	"seller",
	"Seller not found",
	http.StatusNotFound,
)

var ErrSlugTaken = New(
	CodeAlreadyExists,
	"tenant",
	"Slug already in use",
	http.StatusConflict,
)

var ErrInvalidThresholds = New(
	CodeValidationFailed,
	"routing",
	"Routing thresholds are out of range",
	http.StatusBadRequest,
)

// --- Auth ---

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

// ErrInvalidCredentials is the same for an unknown email and a wrong password.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrInvalidIdentityToken = New(
	CodeInvalidToken,
	"identity",
	"Sign-in token could not be verified",
	http.StatusUnauthorized,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 8 characters required.",
	http.StatusBadRequest,
)

// --- Uploads ---

var ErrFileTooLarge = New(
	CodeValidationFailed,
	"upload",
	"Attachment exceeds the allowed size",
	http.StatusRequestEntityTooLarge,
)

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"upload",
	"The provided attachment type is not allowed",
	http.StatusUnsupportedMediaType,
)
