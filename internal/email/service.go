package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"bell-crm/internal/automation"
)

var (
	ErrNotConnected    = errors.New("email: no connected account")
	ErrInvalidArgument = errors.New("email: invalid argument")
)

type AccountRepository interface {
	Upsert(ctx context.Context, acc ConnectedAccount) error
	GetByUser(ctx context.Context, userID string) (ConnectedAccount, bool, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type RecordRepository interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, workspaceID, userID string, limit int) ([]Record, error)
}

// Mailer is the transport seam; *GmailClient is the production
// implementation.
type Mailer interface {
	Send(ctx context.Context, acc ConnectedAccount, to, toName, subject, body string) (*oauth2.Token, error)
	ListRecent(ctx context.Context, acc ConnectedAccount, max int64) ([]InboxMessage, *oauth2.Token, error)
	Profile(ctx context.Context, tok *oauth2.Token) (string, error)
}

// LeadMatcher resolves an inbound sender to a CRM contact, creating a new
// lead when the address is unknown. Wired in cmd/api over the contacts
// service so this package carries no contacts dependency.
type LeadMatcher interface {
	MatchOrCreate(ctx context.Context, workspaceID, userID, address, name string) (contactID string, created bool, err error)
}

// Service owns mailbox connections and all outbound automation email.
//
// Sends are stub-logged instead of failing when the user has not connected
// a mailbox, so automation recipes behave the same with or without one.
type Service struct {
	accounts    AccountRepository
	records     RecordRepository
	mailer      Mailer
	leads       LeadMatcher
	oauth       *oauth2.Config
	calendarURL string
	log         *slog.Logger
	clock       func() time.Time
}

func NewService(accounts AccountRepository, records RecordRepository, mailer Mailer, leads LeadMatcher, oauth *oauth2.Config, calendarURL string, log *slog.Logger) *Service {
	return &Service{
		accounts:    accounts,
		records:     records,
		mailer:      mailer,
		leads:       leads,
		oauth:       oauth,
		calendarURL: calendarURL,
		log:         log,
		clock:       time.Now,
	}
}

// OAuthConfigured reports whether Google OAuth app credentials were provided.
// Without them, connect endpoints are unavailable and sends stay stubbed.
func (s *Service) OAuthConfigured() bool {
	return s.oauth != nil
}

// AuthURL starts the Google consent flow. The state value must be verified
// by the callback handler.
func (s *Service) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// CompleteGoogleAuth exchanges the callback code and stores the grant.
func (s *Service) CompleteGoogleAuth(ctx context.Context, userID, workspaceID, code string) (ConnectedAccount, error) {
	if userID == "" || workspaceID == "" || code == "" {
		return ConnectedAccount{}, ErrInvalidArgument
	}
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return ConnectedAccount{}, fmt.Errorf("oauth exchange: %w", err)
	}
	addr, err := s.mailer.Profile(ctx, tok)
	if err != nil {
		return ConnectedAccount{}, err
	}

	now := s.clock().UTC()
	acc := ConnectedAccount{
		ID:           uuid.NewString(),
		UserID:       userID,
		WorkspaceID:  workspaceID,
		Provider:     ProviderGoogle,
		Email:        addr,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Upsert(ctx, acc); err != nil {
		return ConnectedAccount{}, fmt.Errorf("store account: %w", err)
	}
	return acc, nil
}

func (s *Service) Account(ctx context.Context, userID string) (ConnectedAccount, bool, error) {
	return s.accounts.GetByUser(ctx, userID)
}

func (s *Service) Disconnect(ctx context.Context, userID string) error {
	return s.accounts.DeleteByUser(ctx, userID)
}

// Send satisfies the automation runner's EmailSender collaborator.
func (s *Service) Send(ctx context.Context, msg automation.EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidArgument)
	}
	body, ok := RenderTemplate(msg.TemplateID, msg.ToName, s.calendarURL)
	if !ok {
		return fmt.Errorf("%w: unknown template %q", ErrInvalidArgument, msg.TemplateID)
	}

	acc, connected, err := s.accounts.GetByUser(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}

	status := StatusStubbed
	if connected {
		refreshed, err := s.mailer.Send(ctx, acc, msg.To, msg.ToName, msg.Subject, body)
		if err != nil {
			return err
		}
		status = StatusSent
		if refreshed != nil {
			s.persistToken(ctx, acc, refreshed)
		}
	} else {
		s.log.Info("email stubbed, no connected mailbox",
			"user_id", msg.UserID, "template_id", msg.TemplateID)
	}

	rec := Record{
		ID:          uuid.NewString(),
		WorkspaceID: msg.WorkspaceID,
		UserID:      msg.UserID,
		To:          msg.To,
		Subject:     msg.Subject,
		TemplateID:  msg.TemplateID,
		Status:      status,
		SentAt:      s.clock().UTC(),
	}
	if err := s.records.Append(ctx, rec); err != nil {
		s.log.Warn("email record append failed", "error", err)
	}
	return nil
}

// Inbox returns recent inbound messages for the user's connected mailbox.
func (s *Service) Inbox(ctx context.Context, userID string, max int64) ([]InboxMessage, error) {
	acc, connected, err := s.accounts.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !connected {
		return nil, ErrNotConnected
	}
	if max <= 0 || max > 50 {
		max = 20
	}
	msgs, refreshed, err := s.mailer.ListRecent(ctx, acc, max)
	if err != nil {
		return nil, err
	}
	if refreshed != nil {
		s.persistToken(ctx, acc, refreshed)
	}
	return msgs, nil
}

// InboxMatch pairs an inbound message with the contact it was linked to.
type InboxMatch struct {
	Message   InboxMessage `json:"message"`
	ContactID string       `json:"contact_id,omitempty"`
	Created   bool         `json:"created"`
}

// SyncInbox pulls recent inbound messages and links each sender to a CRM
// contact, creating a lead for unknown addresses. New leads enter at the
// top of the funnel, so enabled nurture recipes fire off the resulting
// contact_created event.
func (s *Service) SyncInbox(ctx context.Context, userID string, max int64) ([]InboxMatch, error) {
	acc, connected, err := s.accounts.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !connected {
		return nil, ErrNotConnected
	}
	if max <= 0 || max > 50 {
		max = 20
	}
	msgs, refreshed, err := s.mailer.ListRecent(ctx, acc, max)
	if err != nil {
		return nil, err
	}
	if refreshed != nil {
		s.persistToken(ctx, acc, refreshed)
	}

	out := make([]InboxMatch, 0, len(msgs))
	for _, m := range msgs {
		match := InboxMatch{Message: m}
		addr, err := mail.ParseAddress(m.From)
		if err != nil || strings.EqualFold(addr.Address, acc.Email) {
			// Unparseable sender or the user's own address: listed, not linked.
			out = append(out, match)
			continue
		}
		if s.leads != nil {
			id, created, err := s.leads.MatchOrCreate(ctx, acc.WorkspaceID, userID, addr.Address, addr.Name)
			if err != nil {
				s.log.Warn("inbox contact match failed", "from", addr.Address, "error", err)
			} else {
				match.ContactID = id
				match.Created = created
			}
		}
		out = append(out, match)
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, workspaceID, userID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.records.List(ctx, workspaceID, userID, limit)
}

func (s *Service) persistToken(ctx context.Context, acc ConnectedAccount, tok *oauth2.Token) {
	acc.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		acc.RefreshToken = tok.RefreshToken
	}
	acc.TokenExpiry = tok.Expiry
	acc.UpdatedAt = s.clock().UTC()
	if err := s.accounts.Upsert(ctx, acc); err != nil {
		s.log.Warn("refreshed token persist failed", "user_id", acc.UserID, "error", err)
	}
}
