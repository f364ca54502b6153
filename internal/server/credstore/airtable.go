package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/greenloop/backend/internal/common"
)

// Airtable is a Store implementation over the Airtable REST API.
type Airtable struct {
	client *resty.Client
	baseID string
	table  string
}

var _ Store = (*Airtable)(nil)

// NewAirtable builds a client for one table of one base. The API key is
// attached to every request; baseURL is configurable to allow pointing the
// client at a test server.
func NewAirtable(baseURL, apiKey, baseID, table string) *Airtable {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey)

	return &Airtable{
		client: client,
		baseID: baseID,
		table:  table,
	}
}

type airtableRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type airtableListResponse struct {
	Records []airtableRecord `json:"records"`
}

func (a *Airtable) FindFirst(ctx context.Context, filter Filter) (*Record, error) {
	var result airtableListResponse

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("filterByFormula", eqFormula(filter.Field, filter.Value)).
		SetQueryParam("maxRecords", "1").
		SetResult(&result).
		Get(fmt.Sprintf("/v0/%s/%s", a.baseID, a.table))
	if err != nil {
		return nil, fmt.Errorf("%w: airtable request: %v", common.ErrUpstreamUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: airtable status %d", common.ErrUpstreamUnavailable, resp.StatusCode())
	}

	if len(result.Records) == 0 {
		return nil, common.ErrorNotFound
	}

	return mapRecord(result.Records[0]), nil
}

// eqFormula renders an equality filterByFormula expression with the value
// escaped for embedding in a double-quoted formula literal.
func eqFormula(field, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return fmt.Sprintf("{%s} = \"%s\"", field, escaped)
}

func mapRecord(rec airtableRecord) *Record {
	r := &Record{
		ID:           stringField(rec.Fields, FieldUserID),
		Email:        stringField(rec.Fields, FieldEmail),
		Name:         stringField(rec.Fields, "name"),
		Role:         stringField(rec.Fields, "role"),
		PasswordHash: stringField(rec.Fields, "password_hash"),
	}
	if r.ID == "" {
		// Fall back to the row identifier when the table has no explicit
		// user_id column.
		r.ID = rec.ID
	}

	if points, ok := rec.Fields["points"].(float64); ok {
		r.Points = int(points)
	}

	// Preferences are stored as a JSON object serialized into a text column.
	if raw := stringField(rec.Fields, "preferences"); raw != "" {
		prefs := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &prefs); err == nil {
			r.Preferences = prefs
		}
	}

	return r
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}
