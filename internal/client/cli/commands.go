package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/comicvault/internal/client/client"
	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/filex"
	"github.com/spf13/cobra"
)

// prompt returns *v, asking for it when empty.
func (a *App) prompt(v *string, label string) error {
	if *v != "" {
		return nil
	}
	s, err := GetSimpleText(a.reader, label, a.out)
	if err != nil {
		return err
	}
	*v = s
	return nil
}

func (a *App) registerCmd() *cobra.Command {
	var username, email, ref string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account paid for by a gateway reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.prompt(&username, "Username"); err != nil {
				return err
			}
			if err := a.prompt(&email, "Email"); err != nil {
				return err
			}
			if err := a.prompt(&ref, "Registration payment reference"); err != nil {
				return err
			}
			password, err := GetPassword(a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			if err := a.api.Register(cmd.Context(), username, string(password), email, ref); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s. Check %s for the verification link.\n", username, email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address for the verification link")
	cmd.Flags().StringVar(&ref, "ref", "", "payment reference of the registration fee")
	return cmd
}

func (a *App) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Confirm an email address with the mailed token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := a.api.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Verified %s. You can log in now.\n", username)
			return nil
		},
	}
}

func (a *App) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username-or-email]",
		Short: "Start a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var identifier string
			if len(args) == 1 {
				identifier = args[0]
			}
			if err := a.prompt(&identifier, "Username or email"); err != nil {
				return err
			}
			password, err := GetPassword(a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			s, err := a.api.Login(cmd.Context(), identifier, string(password))
			if err != nil {
				return err
			}
			if err := a.tokens.Save(s.Token); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Fprintf(a.out, "Logged in as %s until %s.\n", s.Username, s.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.api.Logout(cmd.Context())
			if cerr := a.tokens.Clear(); cerr != nil {
				return cerr
			}
			if err != nil && !errors.Is(err, client.ErrUnauthorized) {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func (a *App) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List items for sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.api.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(a.out, "The catalog is empty.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tSELLER")
			for _, it := range items {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", it.ID, it.Title, it.Price, it.SubmittedBy)
			}
			return tw.Flush()
		},
	}
}

func parseItemID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad item id %q", s)
	}
	return id, nil
}

func (a *App) buyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item-id>",
		Short: "Start paying for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			p, err := a.api.Buy(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Pay here: %s\n", p.AuthorizationURL)
			fmt.Fprintf(a.out, "Then run: comicvault download %d --ref %s\n", id, p.Reference)
			return nil
		},
	}
}

func (a *App) downloadCmd() *cobra.Command {
	var ref, output string

	cmd := &cobra.Command{
		Use:   "download <item-id>",
		Short: "Download a paid item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			if ref == "" {
				return errors.New("--ref is required")
			}

			dir := "."
			if output != "" {
				dir = filepath.Dir(output)
			}
			tmp, err := os.CreateTemp(dir, ".comicvault-*")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())

			name, err := a.api.Download(cmd.Context(), id, ref, tmp)
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			dest := output
			if dest == "" {
				dest = filex.SanitizeName(name)
				if dest == "" {
					dest = fmt.Sprintf("item-%d.pdf", id)
				}
			}
			if err := os.Rename(tmp.Name(), dest); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s\n", dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "payment reference of the purchase")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path (default: the server's file name)")
	return cmd
}

func (a *App) submitCmd() *cobra.Command {
	var s client.Submission

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "List a new item for sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.Title == "" || s.CoverPath == "" || s.FilePath == "" || s.Reference == "" {
				return errors.New("--title, --cover, --file and --ref are required")
			}
			item, err := a.api.Submit(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Listed %q as item %d.\n", item.Title, item.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&s.Title, "title", "", "item title")
	cmd.Flags().Int64Var(&s.Price, "price", 0, "price in major currency units")
	cmd.Flags().StringVar(&s.CoverPath, "cover", "", "cover image file")
	cmd.Flags().StringVar(&s.FilePath, "file", "", "PDF file")
	cmd.Flags().StringVar(&s.Reference, "ref", "", "payment reference of the listing fee")
	return cmd
}
