// Package dataset holds dataset definitions, their templates and sources,
// and the resolver that turns a dataset into an execution plan.
package dataset

import (
	"encoding/json"
	"time"

	"github.com/quarrydata/quarry/errors"
)

// Type classifies how a dataset is executed.
type Type string

const (
	// TypePredefined runs a single shared query template.
	TypePredefined Type = "predefined"
	// TypeDependent runs a primary query, then one secondary query per
	// identifier the primary query produced.
	TypeDependent Type = "dependent"
	// TypeCustom runs a single user-authored query template.
	TypeCustom Type = "custom"
	// TypeDirectAPI invokes a remote function named in the dataset params.
	TypeDirectAPI Type = "direct_api"
)

// IsValidType returns true if the string is a valid dataset Type
func IsValidType(s string) bool {
	switch Type(s) {
	case TypePredefined, TypeDependent, TypeCustom, TypeDirectAPI:
		return true
	default:
		return false
	}
}

// Dataset is a stored, parameterized query definition against one source.
// Created by the dataset CRUD flow; the engine only ever mutates
// LastExecutionID.
type Dataset struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SourceID        string          `json:"source_id"`
	Type            Type            `json:"type"`
	TemplateID      string          `json:"template_id,omitempty"`
	Params          json.RawMessage `json:"params,omitempty"`
	LastExecutionID string          `json:"last_execution_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ParamString extracts a string-valued parameter from the dataset's
// free-form params blob. Returns "" when absent.
func (d *Dataset) ParamString(key string) string {
	if len(d.Params) == 0 {
		return ""
	}
	var params map[string]interface{}
	if err := json.Unmarshal(d.Params, &params); err != nil {
		return ""
	}
	if s, ok := params[key].(string); ok {
		return s
	}
	return ""
}

// Source is an external API endpoint plus its credentials.
type Source struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIURL    string    `json:"api_url"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials returns the source's connection credentials, or
// ErrConfigInvalid when the source cannot be called.
func (s *Source) Credentials() (Credentials, error) {
	if s.APIURL == "" || s.APIKey == "" {
		return Credentials{}, errors.Wrapf(errors.ErrConfigInvalid, "source %s", s.ID)
	}
	return Credentials{APIURL: s.APIURL, APIKey: s.APIKey}, nil
}

// Credentials carries what the GraphQL client needs to reach one source.
type Credentials struct {
	APIURL string
	APIKey string
}

// Template is an immutable query definition. Predefined/custom templates
// carry QueryTemplate; dependent templates carry the primary/secondary pair
// plus the id path into the primary response.
type Template struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	QueryTemplate  string    `json:"query_template,omitempty"`
	PrimaryQuery   string    `json:"primary_query,omitempty"`
	SecondaryQuery string    `json:"secondary_query,omitempty"`
	IDPath         string    `json:"id_path,omitempty"`
	MergeStrategy  string    `json:"merge_strategy,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Plan is a resolved execution plan: everything the runner needs to execute
// a dataset without touching the definition stores again.
type Plan struct {
	DatasetID   string
	DatasetType Type
	Credentials Credentials

	// Single-query path (predefined/custom)
	QueryTemplate string

	// ResourceHint names the response field holding the paginated result,
	// for sources whose responses carry more than one candidate field.
	// Empty means auto-detect.
	ResourceHint string

	// Two-phase path (dependent)
	PrimaryQuery   string
	SecondaryQuery string
	IDPath         string

	// Remote function path (direct_api)
	RemoteFunction string
}
