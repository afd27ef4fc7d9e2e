package lead

import (
	"slices"
	"time"
)

// DefaultStages is the loan pipeline in display order. The last stage is terminal.
var DefaultStages = []string{
	"New Lead",
	"Contacted",
	"Application Started",
	"Pre-Approved",
	"In Underwriting",
	"Closed",
}

// Lead is a prospective customer tracked through the pipeline.
type Lead struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LoanType   string    `json:"loanType"`
	LoanAmount float64   `json:"loanAmount"`
	Stage      string    `json:"stage"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with l.
func (l Lead) Clone() Lead {
	l.Tags = slices.Clone(l.Tags)
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return l
}

// LastTouched is the most recent of UpdatedAt and CreatedAt.
func (l Lead) LastTouched() time.Time {
	if l.UpdatedAt.IsZero() {
		return l.CreatedAt
	}
	return l.UpdatedAt
}

// Draft describes a lead to be created.
type Draft struct {
	Name       string   `json:"name"`
	LoanType   string   `json:"loanType,omitempty"`
	LoanAmount float64  `json:"loanAmount,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Patch carries the fields of a partial lead update. Nil fields are left untouched.
type Patch struct {
	Name       *string   `json:"name,omitempty"`
	LoanType   *string   `json:"loanType,omitempty"`
	LoanAmount *float64  `json:"loanAmount,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.LoanType == nil && p.LoanAmount == nil && p.Tags == nil
}

func (p Patch) applyTo(l Lead, now time.Time) Lead {
	out := l.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.LoanType != nil {
		out.LoanType = *p.LoanType
	}
	if p.LoanAmount != nil {
		out.LoanAmount = *p.LoanAmount
	}
	if p.Tags != nil {
		out.Tags = NormalizeTags(*p.Tags)
	}
	out.UpdatedAt = now
	return out
}

// Status is the load state of a store.
type Status struct {
	Loading       bool      `json:"loading"`
	Loaded        bool      `json:"loaded"`
	Err           error     `json:"-"`
	LastRefreshed time.Time `json:"lastRefreshed"`
}

// TagCount is the number of leads in a stage carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// StageView is the per-stage card data: leads newest first plus tag and value
// summaries. TopTags holds the first three tags in the order they are met
// walking the leads newest first; MoreTags counts the rest.
type StageView struct {
	Stage      string       `json:"stage"`
	Leads      []Lead       `json:"leads"`
	TopTags    []TagCount   `json:"topTags"`
	MoreTags   int          `json:"moreTags"`
	TotalValue float64      `json:"totalValue"`
	Metrics    StageMetrics `json:"metrics"`
}
