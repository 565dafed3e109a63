package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

func (c *cli) registerCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.client.Register(cmd.Context(), args[0], passwordOrEnv(password))
			if err != nil {
				return err
			}
			if err := c.saveToken(sess.Token); err != nil {
				return err
			}
			return printJSON(cmd, sess)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (env CELERIX_CONTACTS_PASSWORD)")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var (
		password string
		remember bool
	)
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and keep the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.client.Login(cmd.Context(), args[0], passwordOrEnv(password), remember)
			if err != nil {
				return err
			}
			if err := c.saveToken(sess.Token); err != nil {
				return err
			}
			return printJSON(cmd, sess)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password (env CELERIX_CONTACTS_PASSWORD)")
	cmd.Flags().BoolVar(&remember, "remember", false, "request a long-lived session")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.client.Logout(cmd.Context()); err != nil {
				return err
			}
			if err := c.saveToken(""); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the daemon thinks you are",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.client.WhoAmI(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, id)
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var (
		sortBy string
		page   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.client.ListContacts(cmd.Context(), schema.ParseSortField(sortBy), page)
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", string(schema.SortByFirstName), "FirstName or LastName")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search names, emails and phone numbers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.client.SearchContacts(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ct, err := c.client.GetContact(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, ct)
		},
	}
}

func (c *cli) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <first> <last> <phone> <email>",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := c.client.CreateContact(cmd.Context(), schema.Contact{
				FirstName:   args[0],
				LastName:    args[1],
				PhoneNumber: args[2],
				Email:       args[3],
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, ct)
		},
	}
}

func (c *cli) editCmd() *cobra.Command {
	var first, last, phone, email string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ct, err := c.client.GetContact(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, f := range []struct {
				name string
				dst  *string
				val  string
			}{
				{"first", &ct.FirstName, first},
				{"last", &ct.LastName, last},
				{"phone", &ct.PhoneNumber, phone},
				{"email", &ct.Email, email},
			} {
				if cmd.Flags().Changed(f.name) {
					*f.dst = f.val
				}
			}
			updated, err := c.client.UpdateContact(cmd.Context(), ct)
			if err != nil {
				return err
			}
			return printJSON(cmd, updated)
		},
	}
	cmd.Flags().StringVar(&first, "first", "", "first name")
	cmd.Flags().StringVar(&last, "last", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "10-digit phone number")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func (c *cli) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.client.DeleteContact(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Refill the shared sandbox with sample contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.client.ResetSandbox(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid contact id %q", s)
	}
	return id, nil
}

func passwordOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("CELERIX_CONTACTS_PASSWORD")
}
