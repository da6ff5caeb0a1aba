package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
)

// NewLogoutCommand отзывает refresh-токен и удаляет пару из файла.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the refresh token and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, e, err := openEnv(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if refresh, ok := e.store.Get(credentials.Refresh); ok {
				if err := e.api.Revoke(ctx, refresh); err != nil {
					e.log.Warn("revoke_failed", slog.String("err", err.Error()))
				}
			}

			e.session.Logout()

			if err := e.files.Delete(ctx, e.cfg.Account); err != nil {
				return err
			}

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(
				loginResult{Account: e.cfg.Account, State: e.session.State().String()},
				line("account", e.cfg.Account),
				line("state", e.session.State().String()),
			)
		},
	}
}
