// Package validator provides CloudEvents validation for PGN messages.
package validator

import (
	"fmt"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// pgnContentTypes are the data content types accepted as PGN text. An empty
// content type is accepted too.
var pgnContentTypes = map[string]bool{
	game.ContentTypePGN:         true,
	"application/vnd.chess-pgn": true,
	"text/plain":                true,
}

// CloudEventsValidator checks that a CloudEvent carries PGN games.
type CloudEventsValidator struct {
	eventTypes map[string]bool
}

// NewCloudEventsValidator creates a validator accepting the given event types.
// Without types only game.EventTypeGames is accepted.
func NewCloudEventsValidator(eventTypes ...string) *CloudEventsValidator {
	if len(eventTypes) == 0 {
		eventTypes = []string{game.EventTypeGames}
	}
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return &CloudEventsValidator{eventTypes: types}
}

// Validate validates a CloudEvent.
func (v *CloudEventsValidator) Validate(e *cloudevents.Event) error {
	if e.ID() == "" {
		return &errors.ValidationError{
			EventID: e.ID(),
			Field:   "id",
			Reason:  "required field is missing",
		}
	}

	if e.Source() == "" {
		return &errors.ValidationError{
			EventID: e.ID(),
			Field:   "source",
			Reason:  "required field is missing",
		}
	}

	if e.SpecVersion() != cloudevents.VersionV1 && e.SpecVersion() != cloudevents.VersionV03 {
		return &errors.ValidationError{
			EventID: e.ID(),
			Field:   "specversion",
			Reason:  fmt.Sprintf("unsupported version: %q (supported: 1.0, 0.3)", e.SpecVersion()),
		}
	}

	if !v.eventTypes[e.Type()] {
		return &errors.ValidationError{
			EventID: e.ID(),
			Field:   "type",
			Reason:  fmt.Sprintf("unexpected event type %q", e.Type()),
		}
	}

	if ct := mediaType(e.DataContentType()); ct != "" && !pgnContentTypes[ct] {
		return &errors.ValidationError{
			EventID: e.ID(),
			Field:   "datacontenttype",
			Reason:  fmt.Sprintf("%q is not a pgn content type", e.DataContentType()),
		}
	}

	if len(e.Data()) == 0 {
		return &errors.ValidationError{
			EventID: e.ID(),
			Field:   "data",
			Reason:  "event has no pgn data",
		}
	}

	return nil
}

// mediaType drops parameters such as "; charset=utf-8".
func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
