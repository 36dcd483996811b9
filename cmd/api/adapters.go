package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"bell-crm/internal/automation"
	"bell-crm/internal/contacts"
	"bell-crm/internal/funnel"
	"bell-crm/internal/workspace"
	"bell-crm/pkg/utils"
)

// Glue between the automation runner's narrow collaborator interfaces and the
// concrete services. Lives here so internal packages stay cycle-free.

// lazyDispatcher breaks the construction cycle: contacts and tasks need a
// dispatcher at build time, but the runner needs those services first. The
// runner is attached after everything is constructed; events raised before
// that (there are none in practice) are dropped.
type lazyDispatcher struct {
	runner *automation.Runner
}

func (d *lazyDispatcher) Run(ctx context.Context, ev automation.Event) error {
	if d.runner == nil {
		return nil
	}
	return d.runner.Run(ctx, ev)
}

type workspaceResolver struct {
	ws *workspace.Service
}

func (a workspaceResolver) WorkspaceForUser(ctx context.Context, userID string) (string, error) {
	return a.ws.EnsureForUser(ctx, userID, "")
}

type contactDirectory struct {
	svc *contacts.Service
}

func (a contactDirectory) Get(ctx context.Context, workspaceID, contactID string) (automation.Contact, bool, error) {
	c, err := a.svc.Get(ctx, workspaceID, contactID)
	if errors.Is(err, contacts.ErrNotFound) {
		return automation.Contact{}, false, nil
	}
	if err != nil {
		return automation.Contact{}, false, err
	}
	return automation.Contact{
		ID:        c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Name:      c.Name,
	}, true, nil
}

// stageMover goes straight to the repository so automation-driven stage
// changes do not re-enter the dispatcher.
type stageMover struct {
	repo contacts.Repository
}

func (a stageMover) MoveStage(ctx context.Context, workspaceID, contactID string, to funnel.Stage) error {
	_, err := a.repo.MoveStage(ctx, workspaceID, contactID, to, time.Now().UTC())
	return err
}

// leadMatcher links inbound mailbox senders to contacts, creating a lead
// when the address is new to the workspace.
type leadMatcher struct {
	svc *contacts.Service
}

func (a leadMatcher) MatchOrCreate(ctx context.Context, workspaceID, userID, address, name string) (string, bool, error) {
	existing, err := a.svc.GetByEmail(ctx, workspaceID, address)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, contacts.ErrNotFound) {
		return "", false, err
	}
	first, last := splitFullName(name)
	created, err := a.svc.CreateLead(ctx, workspaceID, userID, contacts.CreateInput{
		FirstName:  first,
		LastName:   last,
		Email:      address,
		LeadSource: contacts.SourceOther,
	})
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}

func splitFullName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	if i := strings.LastIndex(name, " "); i > 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

// redisFormLimiter rate-limits public form submissions with a Redis fixed
// window per key.
type redisFormLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func (l redisFormLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return utils.AllowFixedWindow(ctx, l.rdb, "forms:submit:"+key, l.limit, l.window)
}
