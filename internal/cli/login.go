package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/models"
	"github.com/pribylovaa/eventhub-web/pkg/redact"
)

type loginOptions struct {
	email         string
	password      string
	passwordStdin bool
	federated     string
}

type loginResult struct {
	Account string `json:"account"`
	State   string `json:"state"`
}

// NewLoginCommand — вход по паролю или по credential внешнего провайдера.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	lo := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, rootOpts, lo)
		},
	}

	cmd.Flags().StringVar(&lo.email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&lo.password, "password", "", "password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&lo.passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().StringVar(&lo.federated, "google-credential", "", "credential issued by the Google sign-in flow")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *RootOptions, lo *loginOptions) error {
	ctx, e, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var pair models.TokenPair

	if lo.federated != "" {
		pair, err = e.api.FederatedLogin(ctx, models.FederatedLoginRequest{Credential: lo.federated})
	} else {
		if lo.passwordStdin {
			if lo.password, err = readLine(cmd.InOrStdin()); err != nil {
				return fmt.Errorf("read password: %w", err)
			}
		}

		pair, err = e.api.Login(ctx, models.LoginRequest{Email: lo.email, Password: lo.password})
	}

	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) || errors.Is(err, api.ErrInvalidArgument) {
			e.log.Debug("login_rejected", slog.String("email", redact.Email(lo.email)))
			return fmt.Errorf("login failed: invalid credentials")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	e.session.Login(pair)

	if err := e.save(ctx); err != nil {
		return err
	}

	e.log.Debug("login", slog.String("account", e.cfg.Account), slog.String("access", redact.Token(pair.Access)))

	res := loginResult{Account: e.cfg.Account, State: e.session.State().String()}

	return newPrinter(opts, cmd.OutOrStdout()).print(res,
		line("account", res.Account),
		line("state", res.State),
	)
}

func readLine(r io.Reader) (string, error) {
	s, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}

	return strings.TrimRight(s, "\r\n"), nil
}
