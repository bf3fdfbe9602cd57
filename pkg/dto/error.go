package dto

// ErrorResponse is the envelope for business-rule rejections. Code is a
// stable machine-readable string, message the human-readable sentinel text.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
