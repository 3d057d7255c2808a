package pdf

import (
	"errors"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrPasswordRequired is returned when a document cannot be opened with
// the supplied credentials.
var ErrPasswordRequired = errors.New("pdf: password required")

// Credentials contains the passwords for a PDF file.
type Credentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// configuration builds a pdfcpu configuration; a nil receiver yields the
// default configuration.
func (c *Credentials) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if c != nil {
		conf.UserPW = c.UserPassword
		conf.OwnerPW = c.OwnerPassword
	}
	return conf
}

// IsPasswordError reports whether err looks like an encryption failure.
// pdfcpu does not export typed errors for this.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPasswordRequired) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
