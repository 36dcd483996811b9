package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxWorkspaceID
	ctxRole
)

func WithIdentity(ctx context.Context, userID, workspaceID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxWorkspaceID, workspaceID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	return fromCtx(ctx, ctxUserID, "user_id not in context")
}

func WorkspaceID(ctx context.Context) (string, error) {
	return fromCtx(ctx, ctxWorkspaceID, "workspace_id not in context")
}

func Role(ctx context.Context) (string, error) {
	return fromCtx(ctx, ctxRole, "role not in context")
}

// Identity returns the authenticated user and their workspace in one call;
// nearly every CRM handler needs both.
func Identity(ctx context.Context) (userID, workspaceID string, err error) {
	userID, err = UserID(ctx)
	if err != nil {
		return "", "", err
	}
	workspaceID, err = WorkspaceID(ctx)
	if err != nil {
		return "", "", err
	}
	return userID, workspaceID, nil
}

func fromCtx(ctx context.Context, key ctxKey, missing string) (string, error) {
	if s, ok := ctx.Value(key).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New(missing)
}
