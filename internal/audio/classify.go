package audio

import (
	"cmp"
	"errors"
	"io/fs"
	"os/exec"

	"github.com/oszuidwest/zwfm-micmeter/internal/media"
	"github.com/oszuidwest/zwfm-micmeter/internal/util"
)

// Stderr fragments that mean the OS refused microphone access.
var permissionPatterns = []string{
	"permission denied",
	"operation not permitted",
	"not authorized",
	"access denied",
	"access is denied",
}

// Stderr fragments that mean the requested device does not exist.
var notFoundPatterns = []string{
	"no such device",
	"no such file or directory",
	"could not find",
	"cannot find",
	"not found",
}

// classifyFailure maps a capture tool failure to a named media error.
func classifyFailure(stderr string, err error) *media.Error {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	msg := cmp.Or(util.ExtractLastError(stderr), errText, "capture ended before delivering audio")

	name := media.NotReadableError
	switch {
	case util.ContainsAnyFold(stderr, permissionPatterns...) || errors.Is(err, fs.ErrPermission):
		name = media.NotAllowedError
	case util.ContainsAnyFold(stderr, notFoundPatterns...) || errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		name = media.NotFoundError
	}

	return &media.Error{Name: name, Message: msg, Err: err}
}
