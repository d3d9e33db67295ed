// Package server provides the WebSocket command layer for the meter page.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oszuidwest/zwfm-micmeter/internal/types"
)

// validate is the shared validator instance for request validation.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages instead of struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

// commandResult is the reply to a client command, sent as "<type>_result".
type commandResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"` // string, or *types.ValidationError
}

// DecodeAndValidate decodes the command payload into data and validates it.
// An absent payload decodes as an empty object. On failure an error result
// has already been sent and false is returned.
func DecodeAndValidate[T any](cmd WSCommand, send chan<- any, data *T) bool {
	raw := cmd.Data
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, data); err != nil {
		SendError(send, cmd.Type, fmt.Errorf("invalid JSON: %w", err))
		return false
	}

	if err := validate.Struct(data); err != nil {
		SendValidationErrors(send, cmd.Type, err)
		return false
	}

	return true
}

// HandleCommand decodes and validates a settings change, applies it with
// apply and replies with an empty success or the returned error.
func HandleCommand[T any](cmd WSCommand, send chan<- any, apply func(*T) error) {
	var data T
	if !DecodeAndValidate(cmd, send, &data) {
		return
	}

	if err := apply(&data); err != nil {
		SendError(send, cmd.Type, err)
		return
	}

	SendSuccess(send, cmd.Type, nil)
}

// HandleActionAsync runs a blocking action, such as a capture request or an
// event log read, off the connection reader and replies with its result.
func HandleActionAsync(cmd WSCommand, send chan<- any, action func() (any, error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in async handler", "command", cmd.Type, "panic", r)
				SendError(send, cmd.Type, errors.New("internal error"))
			}
		}()

		result, err := action()
		if err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, result)
	}()
}

// SendSuccess replies to cmdType with data, which may be nil.
func SendSuccess(send chan<- any, cmdType string, data any) {
	trySend(send, commandResult{Type: cmdType + "_result", Success: true, Data: data})
}

// SendError replies to cmdType with err.
func SendError(send chan<- any, cmdType string, err error) {
	trySend(send, commandResult{Type: cmdType + "_result", Error: err.Error()})
}

// SendValidationErrors replies to cmdType with per-field validation errors.
func SendValidationErrors(send chan<- any, cmdType string, err error) {
	verr := types.NewValidationError()

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, e := range fieldErrs {
			verr.Add(e.Field(), formatValidationMessage(e), e.Value())
		}
	} else {
		verr.Add("", err.Error(), nil)
	}

	trySend(send, commandResult{Type: cmdType + "_result", Error: verr})
}

// trySend queues res for the connection writer, dropping it if the queue is full.
func trySend(send chan<- any, res commandResult) {
	select {
	case send <- res:
	default:
		slog.Warn("dropped command result: send queue full", "type", res.Type)
	}
}

// formatValidationMessage describes a failed request field for the page.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "printascii":
		return "must contain printable ASCII characters only"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
