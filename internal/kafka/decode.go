package kafka

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/validator"
)

// Binary content mode CloudEvents headers.
const (
	headerID          = "ce_id"
	headerSource      = "ce_source"
	headerType        = "ce_type"
	headerSpecVersion = "ce_specversion"
	headerContentType = "content-type"
)

var errEmptyValue = errors.New("empty record value")

// decoder extracts PGN text from record values.
type decoder struct {
	validator *validator.CloudEventsValidator
}

// decode returns the PGN carried by a record value and the CloudEvent id, if
// any. A value holding a JSON object is a structured mode CloudEvent. A value
// with ce_id header is a binary mode CloudEvent. Anything else is raw PGN.
func (d *decoder) decode(value []byte, headers map[string]string) ([]byte, string, error) {
	trimmed := bytes.TrimLeft(value, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, "", errEmptyValue
	}
	if trimmed[0] == '{' {
		var e cloudevents.Event
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, "", fmt.Errorf("failed to unmarshal cloud event: %w", err)
		}
		if err := d.validator.Validate(&e); err != nil {
			return nil, e.ID(), err
		}
		return e.Data(), e.ID(), nil
	}

	id, ok := headers[headerID]
	if !ok {
		return value, "", nil
	}

	e := cloudevents.NewEvent(specVersion(headers[headerSpecVersion]))
	e.SetID(id)
	e.SetSource(headers[headerSource])
	e.SetType(headers[headerType])
	e.SetDataContentType(headers[headerContentType])
	e.DataEncoded = value
	if err := d.validator.Validate(&e); err != nil {
		return nil, id, err
	}
	return value, id, nil
}

func specVersion(v string) string {
	if v == cloudevents.VersionV03 {
		return v
	}
	return cloudevents.VersionV1
}
