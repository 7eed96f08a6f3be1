package common

// Shared constants to enforce DRY and avoid magic strings/numbers.

// HTTP headers and content types
const (
	HeaderAPIKey    = "X-API-Key" // #nosec G101 - header name constant, not a credential
	HeaderRequestID = "X-Request-ID"
	ContentTypeJSON = "application/json"
)

// API paths
const (
	PathRoot    = "/"
	PathHealthz = "/healthz"
	PathOCR     = "/api/ocr"
)

// Multipart form field names
const (
	FormFieldFile   = "file"
	FormFieldPrompt = "prompt"
)

// Inference defaults (original deployment targets a local Ollama instance)
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultModelName     = "deepseek-ocr"
)

// MIME types
const (
	MimeImagePNG  = "image/png"
	MimeImageJPEG = "image/jpeg"
	MimeImageJPG  = "image/jpg"
	MimeImageGIF  = "image/gif"
)
