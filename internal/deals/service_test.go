package deals

import (
	"context"
	"errors"
	"testing"
)

func TestCreateDealDefaults(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	d, err := svc.Create(context.Background(), "ws1", CreateInput{
		ContactID:  "c1",
		Title:      "  Annual plan ",
		ValueMinor: 120_00,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Stage != StageOpen {
		t.Fatalf("stage = %s", d.Stage)
	}
	if d.Currency != "USD" {
		t.Fatalf("currency = %s, want USD default", d.Currency)
	}
	if d.Title != "Annual plan" {
		t.Fatalf("title = %q", d.Title)
	}
}

func TestCreateDealValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, "ws1", CreateInput{ContactID: "c1", Title: "x", ValueMinor: -1}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative value: %v", err)
	}
	if _, err := svc.Create(ctx, "ws1", CreateInput{ContactID: "c1", Title: "x", Currency: "EURO"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad currency: %v", err)
	}
	if _, err := svc.Create(ctx, "ws1", CreateInput{ContactID: "c1", Title: "   "}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("blank title: %v", err)
	}
}

func TestCloseDealOnce(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	d, _ := svc.Create(ctx, "ws1", CreateInput{ContactID: "c1", Title: "Pilot", ValueMinor: 500_00})

	won, err := svc.Close(ctx, "ws1", d.ID, true)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if won.Stage != StageClosedWon || won.ClosedAt == nil {
		t.Fatalf("deal = %+v", won)
	}

	if _, err := svc.Close(ctx, "ws1", d.ID, false); !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("second close: %v", err)
	}
}

func TestListDealsFilters(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	a, _ := svc.Create(ctx, "ws1", CreateInput{ContactID: "c1", Title: "A"})
	_, _ = svc.Create(ctx, "ws1", CreateInput{ContactID: "c2", Title: "B"})
	_, _ = svc.Create(ctx, "ws2", CreateInput{ContactID: "c3", Title: "Other"})
	if _, err := svc.Close(ctx, "ws1", a.ID, false); err != nil {
		t.Fatalf("Close: %v", err)
	}

	all, err := svc.List(ctx, "ws1", ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List returned %d deals", len(all))
	}

	lost := StageClosedLost
	closed, err := svc.List(ctx, "ws1", ListFilter{Stage: &lost})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(closed) != 1 || closed[0].ID != a.ID {
		t.Fatalf("closed = %+v", closed)
	}
}
