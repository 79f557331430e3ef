// Package cli implements the comicvault command line client on cobra.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/comicvault/internal/client/client"
	"github.com/dmitrijs2005/comicvault/internal/client/config"
	"github.com/spf13/cobra"
)

// API is the part of client.APIClient the commands use.
type API interface {
	SetToken(token string)
	Register(ctx context.Context, username, password, email, reference string) error
	Verify(ctx context.Context, token string) (string, error)
	Login(ctx context.Context, identifier, password string) (*client.Session, error)
	Logout(ctx context.Context) error
	Catalog(ctx context.Context) ([]client.CatalogItem, error)
	Buy(ctx context.Context, itemID int64) (*client.Purchase, error)
	Download(ctx context.Context, itemID int64, reference string, w io.Writer) (string, error)
	Submit(ctx context.Context, s client.Submission) (*client.CatalogItem, error)
}

type App struct {
	config *config.Config
	api    API
	tokens *TokenStore
	reader *bufio.Reader
	out    io.Writer

	newAPI func(serverURL string) API
}

func NewApp(c *config.Config) *App {
	newAPI := func(serverURL string) API {
		return client.NewAPIClient(serverURL, c.Timeout)
	}
	return &App{
		config: c,
		tokens: NewTokenStore(c.TokenFile),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		newAPI: newAPI,
	}
}

// RootCmd builds the command tree.
func (a *App) RootCmd() *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:           "comicvault",
		Short:         "Buy, download and sell comics on a comicvault shop",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				server = a.config.ServerURL
			}
			a.api = a.newAPI(server)

			token, err := a.tokens.Load()
			if err != nil {
				return err
			}
			a.api.SetToken(token)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&server, "server", "", "shop base URL (default from COMICVAULT_SERVER)")

	root.AddCommand(
		a.registerCmd(),
		a.verifyCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.catalogCmd(),
		a.buyCmd(),
		a.downloadCmd(),
		a.submitCmd(),
	)
	return root
}

// Run executes the CLI with args.
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.RootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	return root.ExecuteContext(ctx)
}
