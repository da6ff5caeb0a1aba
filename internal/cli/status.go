package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/session"
)

type statusResult struct {
	Account       string     `json:"account"`
	State         string     `json:"state"`
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// NewStatusCommand печатает состояние сессии. С --refresh истёкший access
// обновляется (не более одного обмена).
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, e, err := openEnv(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			res := statusResult{Account: e.cfg.Account}

			if refresh {
				res.Authenticated = e.session.EnsureFresh(ctx)
				if err := e.save(ctx); err != nil {
					return err
				}
			} else {
				res.Authenticated = e.session.IsAuthenticated()
			}

			res.State = e.session.State().String()

			expires := "-"
			if access, ok := e.store.Get(credentials.Access); ok {
				if exp, err := session.DecodeExpiry(access); err == nil {
					exp = exp.UTC()
					res.ExpiresAt = &exp
					expires = exp.Format(time.RFC3339)
				}
			}

			authed := "no"
			if res.Authenticated {
				authed = "yes"
			}

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(res,
				line("account", res.Account),
				line("state", res.State),
				line("authenticated", authed),
				line("expires_at", expires),
			)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "renew an expired access token")

	return cmd
}
