package permissions

import (
	"context"
	"fmt"

	"ddash-backend/pkg/apperrors"
)

const deniedMessage = "You don't have permission to perform this action"

// Gate 所有受保护操作的唯一授权入口
type Gate struct {
	debug bool
}

func NewGate(debug bool) *Gate {
	return &Gate{debug: debug}
}

// Enforce evaluates pred and returns a Forbidden error when it does not hold.
// Storage errors from pred are returned unchanged.
func (g *Gate) Enforce(ctx context.Context, action string, pred Predicate) error {
	ok, err := pred(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if g != nil && g.debug {
			fmt.Printf("🚫 Permission denied: %s\n", action)
		}
		return apperrors.Forbidden(deniedMessage)
	}
	return nil
}
