package errors

// ========== service error codes ==========

// CodeSuccess success code
const (
	CodeSuccess = 200
)

// HTTP layer error codes (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)
