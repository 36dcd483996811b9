package email

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"bell-crm/internal/automation"
)

type fakeMailer struct {
	sent      []string // "to|subject"
	inbox     []InboxMessage
	refreshed *oauth2.Token
}

func (f *fakeMailer) Send(_ context.Context, _ ConnectedAccount, to, _, subject, body string) (*oauth2.Token, error) {
	if body == "" {
		panic("empty body reached mailer")
	}
	f.sent = append(f.sent, to+"|"+subject)
	return f.refreshed, nil
}

func (f *fakeMailer) ListRecent(context.Context, ConnectedAccount, int64) ([]InboxMessage, *oauth2.Token, error) {
	return f.inbox, nil, nil
}

func (f *fakeMailer) Profile(context.Context, *oauth2.Token) (string, error) {
	return "me@example.com", nil
}

func newTestService(mailer Mailer) (*Service, *MemoryAccountRepo, *MemoryRecordRepo) {
	accounts := NewMemoryAccountRepo()
	records := NewMemoryRecordRepo()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := OAuthConfig("id", "secret", "http://localhost/cb")
	svc := NewService(accounts, records, mailer, nil, cfg, "https://cal.example.com/demo", log)
	return svc, accounts, records
}

type fakeLeads struct {
	known   map[string]string // address -> contact id
	created []string
}

func (f *fakeLeads) MatchOrCreate(_ context.Context, _, _ string, address, name string) (string, bool, error) {
	if id, ok := f.known[address]; ok {
		return id, false, nil
	}
	f.created = append(f.created, address+"|"+name)
	return "c-new", true, nil
}

func TestSendWithoutAccountStubs(t *testing.T) {
	mailer := &fakeMailer{}
	svc, _, records := newTestService(mailer)

	err := svc.Send(context.Background(), automation.EmailMessage{
		WorkspaceID: "ws1",
		UserID:      "u1",
		To:          "lead@example.com",
		ToName:      "Ada",
		Subject:     "Welcome – here's how we can help",
		TemplateID:  "nurture-1",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no mailbox connected, nothing should reach the mailer")
	}
	recs, _ := records.List(context.Background(), "ws1", "u1", 10)
	if len(recs) != 1 || recs[0].Status != StatusStubbed {
		t.Fatalf("records = %+v", recs)
	}
}

func TestSendWithAccount(t *testing.T) {
	mailer := &fakeMailer{}
	svc, accounts, records := newTestService(mailer)
	_ = accounts.Upsert(context.Background(), ConnectedAccount{
		ID: "a1", UserID: "u1", WorkspaceID: "ws1",
		Provider: ProviderGoogle, Email: "me@example.com",
		AccessToken: "tok", TokenExpiry: time.Now().Add(time.Hour),
	})

	err := svc.Send(context.Background(), automation.EmailMessage{
		WorkspaceID: "ws1",
		UserID:      "u1",
		To:          "lead@example.com",
		Subject:     "Book a time for your demo",
		TemplateID:  "demo-calendar-link",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "lead@example.com|Book a time for your demo" {
		t.Fatalf("sent = %v", mailer.sent)
	}
	recs, _ := records.List(context.Background(), "ws1", "", 10)
	if len(recs) != 1 || recs[0].Status != StatusSent {
		t.Fatalf("records = %+v", recs)
	}
}

func TestSendRefreshPersistsToken(t *testing.T) {
	mailer := &fakeMailer{refreshed: &oauth2.Token{
		AccessToken: "new-tok",
		Expiry:      time.Now().Add(time.Hour),
	}}
	svc, accounts, _ := newTestService(mailer)
	ctx := context.Background()
	_ = accounts.Upsert(ctx, ConnectedAccount{
		ID: "a1", UserID: "u1", WorkspaceID: "ws1",
		Provider: ProviderGoogle, AccessToken: "old-tok", RefreshToken: "refresh",
	})

	err := svc.Send(ctx, automation.EmailMessage{
		WorkspaceID: "ws1", UserID: "u1", To: "x@y.z",
		Subject: "s", TemplateID: "nurture-1",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	acc, ok, _ := accounts.GetByUser(ctx, "u1")
	if !ok || acc.AccessToken != "new-tok" {
		t.Fatalf("account = %+v", acc)
	}
	if acc.RefreshToken != "refresh" {
		t.Fatal("refresh token lost on access-token rotation")
	}
}

func TestSendRejectsUnknownTemplate(t *testing.T) {
	svc, _, _ := newTestService(&fakeMailer{})
	err := svc.Send(context.Background(), automation.EmailMessage{
		WorkspaceID: "ws1", UserID: "u1", To: "x@y.z", TemplateID: "bogus",
	})
	if err == nil {
		t.Fatal("unknown template must error")
	}
}

func TestSyncInboxMatchesAndCreatesLeads(t *testing.T) {
	mailer := &fakeMailer{inbox: []InboxMessage{
		{ID: "m1", From: "Ada Lovelace <lead@example.com>", Subject: "Re: demo"},
		{ID: "m2", From: "New Person <fresh@example.com>", Subject: "Hello"},
		{ID: "m3", From: "me@example.com", Subject: "Note to self"},
		{ID: "m4", From: "not-an-address", Subject: "Spam"},
	}}
	leads := &fakeLeads{known: map[string]string{"lead@example.com": "c1"}}

	accounts := NewMemoryAccountRepo()
	records := NewMemoryRecordRepo()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := NewService(accounts, records, mailer, leads, nil, "", log)
	ctx := context.Background()
	_ = accounts.Upsert(ctx, ConnectedAccount{
		ID: "a1", UserID: "u1", WorkspaceID: "ws1",
		Provider: ProviderGoogle, Email: "me@example.com", AccessToken: "tok",
	})

	out, err := svc.SyncInbox(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("SyncInbox: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("matches = %d, want 4", len(out))
	}
	if out[0].ContactID != "c1" || out[0].Created {
		t.Fatalf("known sender not matched: %+v", out[0])
	}
	if out[1].ContactID != "c-new" || !out[1].Created {
		t.Fatalf("unknown sender not created: %+v", out[1])
	}
	if out[2].ContactID != "" || out[3].ContactID != "" {
		t.Fatalf("own address and junk must stay unlinked: %+v %+v", out[2], out[3])
	}
	if len(leads.created) != 1 || leads.created[0] != "fresh@example.com|New Person" {
		t.Fatalf("created = %v", leads.created)
	}
}

func TestSyncInboxWithoutAccount(t *testing.T) {
	svc, _, _ := newTestService(&fakeMailer{})
	if _, err := svc.SyncInbox(context.Background(), "u1", 10); err != ErrNotConnected {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestRenderTemplate(t *testing.T) {
	body, ok := RenderTemplate("demo-calendar-link", "Ada", "https://cal.example.com/demo")
	if !ok {
		t.Fatal("known template rejected")
	}
	if !strings.Contains(body, "Hi Ada,") || !strings.Contains(body, "https://cal.example.com/demo") {
		t.Fatalf("body = %q", body)
	}

	body, _ = RenderTemplate("nurture-1", "  ", "")
	if !strings.Contains(body, "Hi there,") {
		t.Fatalf("empty name fallback missing: %q", body)
	}

	if _, ok := RenderTemplate("missing", "x", ""); ok {
		t.Fatal("unknown template accepted")
	}
}
