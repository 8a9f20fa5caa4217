package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/R3E-Network/agent_studio/internal/app/domain/account"
	svcerrors "github.com/R3E-Network/agent_studio/internal/errors"
)

type userLookup interface {
	Get(ctx context.Context, id string) (account.User, error)
}

// adminAccount is one entry of the admin allowlist, resolved against the
// user store.
type adminAccount struct {
	ID    string
	Email string
	Name  string
	Found bool
}

// resolveAdmins looks up every configured admin id. Unknown ids are kept so
// stale allowlist entries stay visible.
func resolveAdmins(ctx context.Context, users userLookup, ids []string) ([]adminAccount, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]adminAccount, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		user, err := users.Get(ctx, id)
		switch {
		case err == nil:
			out = append(out, adminAccount{ID: id, Email: user.Email, Name: user.Name, Found: true})
		case svcerrors.IsCode(err, svcerrors.CodeNotFound):
			out = append(out, adminAccount{ID: id})
		default:
			return nil, fmt.Errorf("lookup admin %s: %w", id, err)
		}
	}
	return out, nil
}

func printAdmins(w io.Writer, admins []adminAccount) {
	if len(admins) == 0 {
		fmt.Fprintln(w, "no admin users configured (ADMIN_USER_IDS)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tSTATUS")
	for _, a := range admins {
		status := "ok"
		if !a.Found {
			status = "missing"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Email, a.Name, status)
	}
	tw.Flush()
}
