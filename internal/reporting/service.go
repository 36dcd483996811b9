package reporting

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"bell-crm/internal/contacts"
	"bell-crm/internal/deals"
	"bell-crm/internal/forms"
	"bell-crm/internal/funnel"
	"bell-crm/internal/tasks"
)

// Reporting reads through the owning services rather than holding its own
// tables; every number is derived on demand.

type ContactSource interface {
	List(ctx context.Context, workspaceID string, f contacts.ListFilter) ([]contacts.Contact, error)
}

type DealSource interface {
	List(ctx context.Context, workspaceID string, f deals.ListFilter) ([]deals.Deal, error)
}

type ActivitySource interface {
	ListActivities(ctx context.Context, workspaceID string, f tasks.ActivityFilter) ([]tasks.Activity, error)
	List(ctx context.Context, workspaceID string, f tasks.ListFilter) ([]tasks.Task, error)
}

type FormSource interface {
	List(ctx context.Context, workspaceID string) ([]forms.Form, error)
	Submissions(ctx context.Context, workspaceID, formID string) ([]forms.Submission, error)
}

type Service struct {
	contacts ContactSource
	deals    DealSource
	tasks    ActivitySource
	forms    FormSource
	clock    func() time.Time
}

func NewService(contacts ContactSource, deals DealSource, tasks ActivitySource, forms FormSource) *Service {
	return &Service{
		contacts: contacts,
		deals:    deals,
		tasks:    tasks,
		forms:    forms,
		clock:    time.Now,
	}
}

type StageCount struct {
	Stage funnel.Stage `json:"stage"`
	Label string       `json:"label"`
	Count int          `json:"count"`
}

type StageConversion struct {
	From funnel.Stage `json:"from"`
	To   funnel.Stage `json:"to"`
	// Rate is contacts at or past To over contacts at or past From,
	// 0 when the upstream cohort is empty.
	Rate float64 `json:"rate"`
}

type FunnelReport struct {
	Total       int               `json:"total"`
	Stages      []StageCount      `json:"stages"`
	Conversions []StageConversion `json:"conversions"`
}

// Funnel reports headcount per stage and stage-to-stage conversion.
func (s *Service) Funnel(ctx context.Context, workspaceID string) (FunnelReport, error) {
	list, err := s.contacts.List(ctx, workspaceID, contacts.ListFilter{})
	if err != nil {
		return FunnelReport{}, fmt.Errorf("reporting: load contacts: %w", err)
	}

	index := make(map[funnel.Stage]int, len(funnel.Stages))
	for i, st := range funnel.Stages {
		index[st] = i
	}
	counts := make([]int, len(funnel.Stages))
	for _, c := range list {
		if i, ok := index[c.FunnelStage]; ok {
			counts[i]++
		}
	}

	// cumulative[i] = contacts at stage i or further down the funnel.
	cumulative := make([]int, len(funnel.Stages))
	run := 0
	for i := len(funnel.Stages) - 1; i >= 0; i-- {
		run += counts[i]
		cumulative[i] = run
	}

	rep := FunnelReport{Total: len(list)}
	for i, st := range funnel.Stages {
		rep.Stages = append(rep.Stages, StageCount{
			Stage: st,
			Label: funnel.Labels[st],
			Count: counts[i],
		})
	}
	for _, pair := range funnel.ConversionPairs {
		var rate float64
		if from := cumulative[index[pair.From]]; from > 0 {
			rate = float64(cumulative[index[pair.To]]) / float64(from)
		}
		rep.Conversions = append(rep.Conversions, StageConversion{
			From: pair.From,
			To:   pair.To,
			Rate: rate,
		})
	}
	return rep, nil
}

type SourceWinRate struct {
	Source  contacts.LeadSource `json:"source"`
	Won     int                 `json:"won"`
	Lost    int                 `json:"lost"`
	Open    int                 `json:"open"`
	WinRate float64             `json:"win_rate"` // won / (won + lost)
}

// WinRateBySource groups closed deals by the owning contact's lead source.
func (s *Service) WinRateBySource(ctx context.Context, workspaceID string) ([]SourceWinRate, error) {
	allDeals, err := s.deals.List(ctx, workspaceID, deals.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("reporting: load deals: %w", err)
	}
	allContacts, err := s.contacts.List(ctx, workspaceID, contacts.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("reporting: load contacts: %w", err)
	}
	sourceOf := make(map[string]contacts.LeadSource, len(allContacts))
	for _, c := range allContacts {
		src := c.LeadSource
		if src == "" {
			src = contacts.SourceOther
		}
		sourceOf[c.ID] = src
	}

	agg := make(map[contacts.LeadSource]*SourceWinRate)
	for _, d := range allDeals {
		src, ok := sourceOf[d.ContactID]
		if !ok {
			src = contacts.SourceOther
		}
		row := agg[src]
		if row == nil {
			row = &SourceWinRate{Source: src}
			agg[src] = row
		}
		switch d.Stage {
		case deals.StageClosedWon:
			row.Won++
		case deals.StageClosedLost:
			row.Lost++
		default:
			row.Open++
		}
	}

	out := make([]SourceWinRate, 0, len(agg))
	for _, row := range agg {
		if closed := row.Won + row.Lost; closed > 0 {
			row.WinRate = float64(row.Won) / float64(closed)
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

type UserActivity struct {
	UserID string                     `json:"user_id"`
	Total  int                        `json:"total"`
	ByType map[tasks.ActivityType]int `json:"by_type"`
}

// ActivityByUser counts logged touchpoints per user since the given time.
func (s *Service) ActivityByUser(ctx context.Context, workspaceID string, since time.Time) ([]UserActivity, error) {
	list, err := s.tasks.ListActivities(ctx, workspaceID, tasks.ActivityFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reporting: load activities: %w", err)
	}
	agg := make(map[string]*UserActivity)
	for _, a := range list {
		row := agg[a.UserID]
		if row == nil {
			row = &UserActivity{UserID: a.UserID, ByType: make(map[tasks.ActivityType]int)}
			agg[a.UserID] = row
		}
		row.Total++
		row.ByType[a.Type]++
	}
	out := make([]UserActivity, 0, len(agg))
	for _, row := range agg {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

type FormStats struct {
	FormID      string `json:"form_id"`
	Name        string `json:"name"`
	Submissions int    `json:"submissions"`
	Leads       int    `json:"leads"` // distinct contacts captured
}

// Forms reports submission volume and captured leads per form.
func (s *Service) Forms(ctx context.Context, workspaceID string) ([]FormStats, error) {
	list, err := s.forms.List(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("reporting: load forms: %w", err)
	}
	out := make([]FormStats, 0, len(list))
	for _, f := range list {
		subs, err := s.forms.Submissions(ctx, workspaceID, f.ID)
		if err != nil {
			return nil, fmt.Errorf("reporting: load submissions: %w", err)
		}
		leads := make(map[string]struct{})
		for _, sub := range subs {
			if sub.ContactID != "" {
				leads[sub.ContactID] = struct{}{}
			}
		}
		out = append(out, FormStats{
			FormID:      f.ID,
			Name:        f.Name,
			Submissions: len(subs),
			Leads:       len(leads),
		})
	}
	return out, nil
}

// NeedsAttention lists leads with no logged activity in the last staleDays
// days, oldest first.
func (s *Service) NeedsAttention(ctx context.Context, workspaceID string, staleDays int) ([]contacts.Contact, error) {
	if staleDays <= 0 {
		staleDays = 7
	}
	cutoff := s.clock().UTC().AddDate(0, 0, -staleDays)

	lead := contacts.PersonLead
	leadsList, err := s.contacts.List(ctx, workspaceID, contacts.ListFilter{PersonType: &lead})
	if err != nil {
		return nil, fmt.Errorf("reporting: load contacts: %w", err)
	}
	acts, err := s.tasks.ListActivities(ctx, workspaceID, tasks.ActivityFilter{Since: &cutoff})
	if err != nil {
		return nil, fmt.Errorf("reporting: load activities: %w", err)
	}
	touched := make(map[string]struct{}, len(acts))
	for _, a := range acts {
		touched[a.ContactID] = struct{}{}
	}

	var out []contacts.Contact
	for _, c := range leadsList {
		if _, ok := touched[c.ID]; ok {
			continue
		}
		if c.CreatedAt.After(cutoff) {
			// Too fresh to be stale.
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var contactsCSVHeader = []string{
	"id", "first_name", "last_name", "email", "phone",
	"funnel_stage", "person_type", "lead_source", "created_at",
}

// ExportContactsCSV streams the workspace's contacts as CSV.
func (s *Service) ExportContactsCSV(ctx context.Context, workspaceID string, w io.Writer) error {
	list, err := s.contacts.List(ctx, workspaceID, contacts.ListFilter{})
	if err != nil {
		return fmt.Errorf("reporting: load contacts: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(contactsCSVHeader); err != nil {
		return fmt.Errorf("reporting: write csv: %w", err)
	}
	for _, c := range list {
		rec := []string{
			c.ID, c.FirstName, c.LastName, c.Email, c.Phone,
			string(c.FunnelStage), string(c.PersonType), string(c.LeadSource),
			c.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("reporting: write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
