package crm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/leadboard/internal/domain/lead"
)

type pipelineResponse struct {
	Stages map[string][]wireLead `json:"stages"`
}

type tagsResponse struct {
	Tags []string `json:"tags"`
}

type createRequest struct {
	Stage      string   `json:"stage"`
	Name       string   `json:"name"`
	LoanType   string   `json:"loanType,omitempty"`
	LoanAmount float64  `json:"loanAmount"`
	Tags       []string `json:"tags,omitempty"`
}

type moveRequest struct {
	FromStage string `json:"fromStage"`
	ToStage   string `json:"toStage"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

// wireLead is a lead as the API sends it. Optional fields may be missing.
type wireLead struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LoanType   string    `json:"loanType"`
	LoanAmount amount    `json:"loanAmount"`
	Stage      string    `json:"stage"`
	Tags       []string  `json:"tags"`
	CreatedAt  timestamp `json:"createdAt"`
	UpdatedAt  timestamp `json:"updatedAt"`
}

func (w wireLead) toLead() lead.Lead {
	tags := w.Tags
	if tags == nil {
		tags = []string{}
	}
	return lead.Lead{
		ID:         w.ID,
		Name:       w.Name,
		LoanType:   w.LoanType,
		LoanAmount: float64(w.LoanAmount),
		Stage:      w.Stage,
		Tags:       tags,
		CreatedAt:  time.Time(w.CreatedAt),
		UpdatedAt:  time.Time(w.UpdatedAt),
	}
}

// amount accepts a JSON number, a numeric string, or null.
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", ""))
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("loan amount %q: %w", s, err)
		}
		*a = amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = amount(f)
	return nil
}

// timestamp accepts RFC 3339 strings, empty strings, or null.
type timestamp time.Time

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*t = timestamp{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*t = timestamp(parsed)
	return nil
}
