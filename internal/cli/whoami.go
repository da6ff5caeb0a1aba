package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/eventhub-web/internal/profile"
	"github.com/pribylovaa/eventhub-web/internal/session"
)

type whoamiResult struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	IsComplete bool   `json:"is_complete"`
}

// NewWhoamiCommand печатает профиль и признак его полноты.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	var policyName string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile and whether it is complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := profile.ParsePolicy(policyName)
			if err != nil {
				return err
			}

			ctx, e, err := openEnv(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if e.session.State() == session.Anonymous {
				return errNotLoggedIn
			}

			prov := profile.NewProvider(e.api, profile.Options{
				Policy:       policy,
				FetchTimeout: e.cfg.Timeout,
			})

			err = prov.Load(ctx)
			if serr := e.save(ctx); serr != nil {
				return serr
			}
			if err != nil {
				return err
			}

			if e.expired {
				return errNotLoggedIn
			}

			st := prov.State()
			if st.Profile == nil {
				return st.Err
			}

			res := whoamiResult{
				ID:         st.Profile.ID,
				Email:      st.Profile.Email,
				Name:       st.Profile.FullName(),
				IsComplete: st.IsComplete,
			}

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(res,
				line("id", strconv.FormatInt(res.ID, 10)),
				line("email", res.Email),
				line("name", res.Name),
				line("complete", strconv.FormatBool(res.IsComplete)),
			)
		},
	}

	cmd.Flags().StringVar(&policyName, "failure-policy", "fail_open", "completeness on fetch failure (fail_open|fail_closed)")

	return cmd
}
