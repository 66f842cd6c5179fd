package checklists

import (
	"strings"

	"github.com/skip2/go-qrcode"

	apperrors "checkops/internal/pkg/errors"
)

const defaultQRSize = 512

// ExecutionURL is the page a staff member lands on after scanning the code
// posted in the checklist's environment.
func ExecutionURL(publicURL, checklistID string) string {
	return strings.TrimRight(publicURL, "/") + "/checklists/" + checklistID + "/execute"
}

// QRCode renders url as a PNG of size pixels. Zero selects the default size.
func QRCode(url string, size int) ([]byte, error) {
	if size == 0 {
		size = defaultQRSize
	}
	if size < 128 || size > 2048 {
		return nil, apperrors.Validation("Invalid fields: size must be between 128 and 2048", "size")
	}

	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return qr.PNG(size)
}
