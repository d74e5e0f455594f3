package validation

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	fileIDRegex    = regexp.MustCompile(`^[a-z0-9]{4}$`)
	sessionIDRegex = regexp.MustCompile(`^[0-9a-f]{16,}$`)
)

func init() {
	validate = validator.New()

	// Register custom validation functions
	if err := validate.RegisterValidation("fileid", validateFileID); err != nil {
		panic(fmt.Sprintf("failed to register fileid validation: %v", err))
	}
	if err := validate.RegisterValidation("sessionid", validateSessionID); err != nil {
		panic(fmt.Sprintf("failed to register sessionid validation: %v", err))
	}
}

// Validate validates a struct using tags
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// ValidateFileID checks a public share code: 4 characters of [a-z0-9].
func ValidateFileID(id string) error {
	return validate.Var(id, "required,fileid")
}

// ValidateSessionID checks an opaque session token: hex, at least 16
// characters.
func ValidateSessionID(id string) error {
	return validate.Var(id, "required,sessionid")
}

// uploadInput mirrors the fields an upload request must carry.
type uploadInput struct {
	OriginalName string `validate:"required,max=255"`
	Size         int64  `validate:"gte=0"`
	SessionID    string `validate:"omitempty,sessionid"`
}

// ValidateUpload checks the user-controlled parts of an upload
// request.
func ValidateUpload(originalName string, size int64, sessionID string) error {
	return validate.Struct(uploadInput{
		OriginalName: originalName,
		Size:         size,
		SessionID:    sessionID,
	})
}

func validateFileID(fl validator.FieldLevel) bool {
	return fileIDRegex.MatchString(fl.Field().String())
}

func validateSessionID(fl validator.FieldLevel) bool {
	return sessionIDRegex.MatchString(fl.Field().String())
}
