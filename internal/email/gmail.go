package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// OAuthConfig builds the Google OAuth2 config used for the mailbox grant.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			gmail.GmailSendScope,
			gmail.GmailReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// GmailClient talks to the Gmail API on behalf of a connected account.
type GmailClient struct {
	cfg *oauth2.Config
}

func NewGmailClient(cfg *oauth2.Config) *GmailClient {
	return &GmailClient{cfg: cfg}
}

func (g *GmailClient) token(acc ConnectedAccount) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  acc.AccessToken,
		RefreshToken: acc.RefreshToken,
		Expiry:       acc.TokenExpiry,
	}
}

// service builds a Gmail API client with a self-refreshing token source and
// returns the source so the caller can persist a refreshed token.
func (g *GmailClient) service(ctx context.Context, acc ConnectedAccount) (*gmail.Service, oauth2.TokenSource, error) {
	ts := g.cfg.TokenSource(ctx, g.token(acc))
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, nil, fmt.Errorf("gmail service: %w", err)
	}
	return svc, ts, nil
}

// Profile returns the mailbox address for a freshly exchanged token.
func (g *GmailClient) Profile(ctx context.Context, tok *oauth2.Token) (string, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(tok)))
	if err != nil {
		return "", fmt.Errorf("gmail service: %w", err)
	}
	prof, err := svc.Users.GetProfile("me").Do()
	if err != nil {
		return "", fmt.Errorf("gmail profile: %w", err)
	}
	return prof.EmailAddress, nil
}

// Send delivers one plain-text message. The returned token is non-nil when
// the access token was refreshed during the call.
func (g *GmailClient) Send(ctx context.Context, acc ConnectedAccount, to, toName, subject, body string) (*oauth2.Token, error) {
	svc, ts, err := g.service(ctx, acc)
	if err != nil {
		return nil, err
	}

	raw := buildMessage(acc.Email, to, toName, subject, body)
	msg := &gmail.Message{Raw: base64.RawURLEncoding.EncodeToString(raw)}
	if _, err := svc.Users.Messages.Send("me", msg).Do(); err != nil {
		return nil, fmt.Errorf("gmail send: %w", err)
	}

	cur, err := ts.Token()
	if err == nil && cur.AccessToken != acc.AccessToken {
		return cur, nil
	}
	return nil, nil
}

// InboxMessage is a recent inbound message header for the activity view.
type InboxMessage struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
	Snippet string    `json:"snippet"`
}

// ListRecent fetches headers of the most recent inbox messages.
func (g *GmailClient) ListRecent(ctx context.Context, acc ConnectedAccount, max int64) ([]InboxMessage, *oauth2.Token, error) {
	svc, ts, err := g.service(ctx, acc)
	if err != nil {
		return nil, nil, err
	}

	list, err := svc.Users.Messages.List("me").LabelIds("INBOX").MaxResults(max).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("gmail list: %w", err)
	}

	out := make([]InboxMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		full, err := svc.Users.Messages.Get("me", m.Id).
			Format("metadata").MetadataHeaders("From", "Subject", "Date").Do()
		if err != nil {
			return nil, nil, fmt.Errorf("gmail get %s: %w", m.Id, err)
		}
		im := InboxMessage{ID: m.Id, Snippet: full.Snippet}
		for _, h := range full.Payload.Headers {
			switch h.Name {
			case "From":
				im.From = h.Value
			case "Subject":
				im.Subject = h.Value
			case "Date":
				if t, err := mail.ParseDate(h.Value); err == nil {
					im.Date = t
				}
			}
		}
		out = append(out, im)
	}

	var refreshed *oauth2.Token
	if cur, err := ts.Token(); err == nil && cur.AccessToken != acc.AccessToken {
		refreshed = cur
	}
	return out, refreshed, nil
}

// buildMessage assembles a minimal RFC 2822 plain-text message.
func buildMessage(from, to, toName, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	if toName != "" {
		b.WriteString("To: " + mime.QEncoding.Encode("utf-8", toName) + " <" + to + ">\r\n")
	} else {
		b.WriteString("To: " + to + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
