package reporting

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"bell-crm/internal/contacts"
	"bell-crm/internal/deals"
	"bell-crm/internal/forms"
	"bell-crm/internal/funnel"
	"bell-crm/internal/tasks"
)

type fixture struct {
	reporting   *Service
	contacts    *contacts.Service
	contactRepo *contacts.MemoryRepo
	deals       *deals.Service
	tasks       *tasks.Service
	forms       *forms.Service
}

func newFixture() *fixture {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	contactRepo := contacts.NewMemoryRepo()
	contactSvc := contacts.NewService(contactRepo, nil, nil, log)
	dealSvc := deals.NewService(deals.NewMemoryRepo())
	taskSvc := tasks.NewService(tasks.NewMemoryRepo(), tasks.NewMemoryActivityRepo(), nil, log)
	formSvc := forms.NewService(forms.NewMemoryRepo(), contactSvc, nil, log)
	return &fixture{
		reporting:   NewService(contactSvc, dealSvc, taskSvc, formSvc),
		contacts:    contactSvc,
		contactRepo: contactRepo,
		deals:       dealSvc,
		tasks:       taskSvc,
		forms:       formSvc,
	}
}

func (f *fixture) lead(t *testing.T, email string, stage funnel.Stage, src contacts.LeadSource) contacts.Contact {
	t.Helper()
	c, err := f.contacts.CreateLead(context.Background(), "ws1", "u1", contacts.CreateInput{
		Email:       email,
		FunnelStage: stage,
		LeadSource:  src,
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	return c
}

func TestFunnelReport(t *testing.T) {
	f := newFixture()
	f.lead(t, "a@x.y", funnel.StageAwareness, "")
	f.lead(t, "b@x.y", funnel.StageAwareness, "")
	f.lead(t, "c@x.y", funnel.StageInterest, "")
	f.lead(t, "d@x.y", funnel.StageAction, "")

	rep, err := f.reporting.Funnel(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("Funnel: %v", err)
	}
	if rep.Total != 4 {
		t.Fatalf("total = %d", rep.Total)
	}
	if rep.Stages[0].Count != 2 || rep.Stages[1].Count != 1 || rep.Stages[2].Count != 0 || rep.Stages[3].Count != 1 {
		t.Fatalf("stages = %+v", rep.Stages)
	}

	// At-or-past counts: AWARENESS 4, INTEREST 2, DESIRE 1, ACTION 1.
	if len(rep.Conversions) != 3 {
		t.Fatalf("conversions = %+v", rep.Conversions)
	}
	if got := rep.Conversions[0].Rate; got != 0.5 {
		t.Fatalf("awareness->interest = %v", got)
	}
	if got := rep.Conversions[2].Rate; got != 1.0 {
		t.Fatalf("desire->action = %v", got)
	}
}

func TestWinRateBySource(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ref := f.lead(t, "r@x.y", funnel.StageDesire, contacts.SourceReferral)
	web := f.lead(t, "w@x.y", funnel.StageDesire, contacts.SourceWebsiteForm)

	d1, _ := f.deals.Create(ctx, "ws1", deals.CreateInput{ContactID: ref.ID, Title: "R1"})
	d2, _ := f.deals.Create(ctx, "ws1", deals.CreateInput{ContactID: ref.ID, Title: "R2"})
	d3, _ := f.deals.Create(ctx, "ws1", deals.CreateInput{ContactID: web.ID, Title: "W1"})
	if _, err := f.deals.Close(ctx, "ws1", d1.ID, true); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := f.deals.Close(ctx, "ws1", d2.ID, false); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_ = d3 // stays open

	rows, err := f.reporting.WinRateBySource(ctx, "ws1")
	if err != nil {
		t.Fatalf("WinRateBySource: %v", err)
	}
	bynames := make(map[contacts.LeadSource]SourceWinRate)
	for _, r := range rows {
		bynames[r.Source] = r
	}
	refRow := bynames[contacts.SourceReferral]
	if refRow.Won != 1 || refRow.Lost != 1 || refRow.WinRate != 0.5 {
		t.Fatalf("referral row = %+v", refRow)
	}
	webRow := bynames[contacts.SourceWebsiteForm]
	if webRow.Open != 1 || webRow.WinRate != 0 {
		t.Fatalf("website row = %+v", webRow)
	}
}

func TestNeedsAttention(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	old := time.Now().UTC().AddDate(0, 0, -30)

	seed := func(id, email string, created time.Time, personType contacts.PersonType) {
		t.Helper()
		if err := f.contactRepo.Create(ctx, contacts.Contact{
			ID: id, WorkspaceID: "ws1", Email: email,
			FunnelStage: funnel.StageInterest, PersonType: personType,
			CreatedAt: created, UpdatedAt: created,
		}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	seed("stale", "stale@x.y", old, contacts.PersonLead)
	seed("touched", "touched@x.y", old, contacts.PersonLead)
	seed("fresh", "fresh@x.y", time.Now().UTC(), contacts.PersonLead)
	seed("customer", "cust@x.y", old, contacts.PersonCustomer)

	if _, err := f.tasks.LogActivity(ctx, "ws1", "u1", "touched", tasks.ActivityCall, "caught up", time.Time{}); err != nil {
		t.Fatalf("LogActivity: %v", err)
	}

	list, err := f.reporting.NeedsAttention(ctx, "ws1", 7)
	if err != nil {
		t.Fatalf("NeedsAttention: %v", err)
	}
	if len(list) != 1 || list[0].ID != "stale" {
		t.Fatalf("needs attention = %+v", list)
	}
}

func TestExportContactsCSV(t *testing.T) {
	f := newFixture()
	f.lead(t, "a@x.y", funnel.StageAwareness, contacts.SourceOutbound)

	var buf bytes.Buffer
	if err := f.reporting.ExportContactsCSV(context.Background(), "ws1", &buf); err != nil {
		t.Fatalf("ExportContactsCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "id,first_name") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "a@x.y") || !strings.Contains(lines[1], "AWARENESS") {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestFormStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	form, err := f.forms.Create(ctx, "ws1", "u1", forms.CreateInput{Name: "Landing"})
	if err != nil {
		t.Fatalf("Create form: %v", err)
	}
	if _, err := f.forms.Submit(ctx, form.PublicKey, map[string]string{"name": "Ada", "email": "ada@x.y"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.forms.Submit(ctx, form.PublicKey, map[string]string{"name": "Ada", "email": "ada@x.y"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	stats, err := f.reporting.Forms(ctx, "ws1")
	if err != nil {
		t.Fatalf("Forms: %v", err)
	}
	if len(stats) != 1 || stats[0].Submissions != 2 || stats[0].Leads != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
