package forms

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"bell-crm/internal/automation"
	"bell-crm/internal/contacts"
)

type nopDispatcher struct{ events []automation.Event }

func (d *nopDispatcher) Run(_ context.Context, ev automation.Event) error {
	d.events = append(d.events, ev)
	return nil
}

type fixedLimiter struct {
	allow bool
	err   error
}

func (l *fixedLimiter) Allow(context.Context, string) (bool, error) {
	return l.allow, l.err
}

func newTestService(limiter RateLimiter) (*Service, *contacts.Service, *nopDispatcher) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	disp := &nopDispatcher{}
	leadSvc := contacts.NewService(contacts.NewMemoryRepo(), disp, nil, log)
	svc := NewService(NewMemoryRepo(), leadSvc, limiter, log)
	return svc, leadSvc, disp
}

func TestCreateFormDefaultsAndKey(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	f, err := svc.Create(ctx, "ws1", "u1", CreateInput{Name: "Landing page"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(f.PublicKey) < 20 {
		t.Fatalf("public key too short: %q", f.PublicKey)
	}
	if !f.Active {
		t.Fatal("new forms should start active")
	}
	if len(f.Fields) != 4 {
		t.Fatalf("default fields = %+v", f.Fields)
	}

	g, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Name: "Other"})
	if g.PublicKey == f.PublicKey {
		t.Fatal("public keys must be unique")
	}
}

func TestSubmitCreatesLeadAndDispatches(t *testing.T) {
	svc, leadSvc, disp := newTestService(nil)
	ctx := context.Background()

	f, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Name: "Landing page"})
	sub, err := svc.Submit(ctx, f.PublicKey, map[string]string{
		"name":    "Ada Lovelace",
		"email":   "ada@example.com",
		"message": "Tell me more",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.ContactID == "" {
		t.Fatal("submission not linked to a contact")
	}

	c, err := leadSvc.Get(ctx, "ws1", sub.ContactID)
	if err != nil {
		t.Fatalf("lead not created: %v", err)
	}
	if c.FirstName != "Ada" || c.LastName != "Lovelace" {
		t.Fatalf("name split wrong: %+v", c)
	}
	if c.LeadSource != contacts.SourceWebsiteForm || c.FormID != f.ID {
		t.Fatalf("lead provenance wrong: %+v", c)
	}

	if len(disp.events) != 1 || disp.events[0].Type != automation.EventContactCreated {
		t.Fatalf("events = %+v", disp.events)
	}
	if disp.events[0].UserID != "u1" {
		t.Fatalf("event attributed to %q, want form owner", disp.events[0].UserID)
	}
}

func TestSubmitReusesExistingContact(t *testing.T) {
	svc, _, disp := newTestService(nil)
	ctx := context.Background()

	f, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Name: "Landing page"})
	first, _ := svc.Submit(ctx, f.PublicKey, map[string]string{"name": "Ada", "email": "ada@example.com"})
	second, err := svc.Submit(ctx, f.PublicKey, map[string]string{"name": "Ada Again", "email": "ADA@example.com"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if second.ContactID != first.ContactID {
		t.Fatal("repeat submission created a duplicate contact")
	}
	if len(disp.events) != 1 {
		t.Fatalf("repeat submission re-dispatched contact_created: %d events", len(disp.events))
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()
	f, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Name: "Landing page"})

	if _, err := svc.Submit(ctx, f.PublicKey, map[string]string{"name": "Ada"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing required email: %v", err)
	}
	if _, err := svc.Submit(ctx, f.PublicKey, map[string]string{"name": "Ada", "email": "not-an-email"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad email: %v", err)
	}
	if _, err := svc.Submit(ctx, "no-such-key", map[string]string{"email": "a@b.c"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown key: %v", err)
	}
}

func TestSubmitInactiveForm(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()
	f, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Name: "Landing page"})
	if _, err := svc.SetActive(ctx, "ws1", f.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	if _, err := svc.Submit(ctx, f.PublicKey, map[string]string{"name": "A", "email": "a@b.c"}); !errors.Is(err, ErrInactive) {
		t.Fatalf("inactive submit: %v", err)
	}
	if _, err := svc.PublicForm(ctx, f.PublicKey); !errors.Is(err, ErrInactive) {
		t.Fatalf("inactive render: %v", err)
	}
}

func TestSubmitRateLimited(t *testing.T) {
	svc, _, _ := newTestService(&fixedLimiter{allow: false})
	ctx := context.Background()
	f, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Name: "Landing page"})

	if _, err := svc.Submit(ctx, f.PublicKey, map[string]string{"name": "A", "email": "a@b.c"}); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("rate limited submit: %v", err)
	}
}

func TestSubmitLimiterFailureDegradesOpen(t *testing.T) {
	svc, _, _ := newTestService(&fixedLimiter{allow: false, err: errors.New("redis down")})
	ctx := context.Background()
	f, _ := svc.Create(ctx, "ws1", "u1", CreateInput{Name: "Landing page"})

	if _, err := svc.Submit(ctx, f.PublicKey, map[string]string{"name": "A", "email": "a@b.c"}); err != nil {
		t.Fatalf("limiter outage must not block capture: %v", err)
	}
}
