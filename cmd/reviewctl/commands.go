package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/daleribragimov115-spec/my-website/internal/client"
	"github.com/daleribragimov115-spec/my-website/internal/helpers"
	"github.com/daleribragimov115-spec/my-website/internal/models"
	"github.com/spf13/cobra"
)

type options struct {
	apiURL       string
	offline      bool
	journalPath  string
	requirePhone bool
	adminToken   string
}

func defaultJournalPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "reviewctl.db"
	}
	return filepath.Join(dir, "reviewctl", "journal.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Read and write restaurant reviews",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("REVIEWS_API_URL", "http://localhost:3001/api"), "reviews API base URL")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "keep submissions locally when the server is unreachable")
	root.PersistentFlags().StringVar(&opts.journalPath, "journal", defaultJournalPath(), "path of the offline journal")
	root.PersistentFlags().BoolVar(&opts.requirePhone, "require-phone", true, "require a phone number when submitting")

	root.AddCommand(
		newHealthCmd(opts),
		newListCmd(opts),
		newSubmitCmd(opts),
		newDeleteCmd(opts),
		newSyncCmd(opts),
		newAdminCmd(opts),
	)
	return root
}

// view builds the listing state; the journal is opened only when needed.
func (o *options) view(needJournal bool) (*client.ReviewsView, func(), error) {
	v := &client.ReviewsView{API: client.New(o.apiURL), Offline: o.offline, RequirePhone: o.requirePhone}
	if !needJournal && !o.offline {
		return v, func() {}, nil
	}
	j, err := client.OpenJournal(o.journalPath)
	if err != nil {
		return nil, nil, err
	}
	v.Journal = j
	return v, func() { _ = j.Close() }, nil
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API and its database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := client.New(opts.apiURL).Health(cmd.Context())
			if err != nil {
				return err
			}
			ping := "n/a"
			if h.Database.Ping != nil {
				ping = strconv.FormatFloat(*h.Database.Ping, 'f', 1, 64) + "ms"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\ndatabase: %s (readyState %d, ping %s)\n",
				h.Message, h.Database.Status, h.Database.ReadyState, ping)
			return nil
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	var all, expand bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show reviews, newest first, five at a time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, closeFn, err := opts.view(false)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := v.Load(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if v.Degraded {
				fmt.Fprintln(out, "server unreachable, showing reviews saved on this machine")
			}
			if len(v.Pager.Items) == 0 {
				fmt.Fprintln(out, "No reviews yet. Be the first!")
				return nil
			}
			return page(out, cmd.InOrStdin(), v, all, expand)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print every review without paging")
	cmd.Flags().BoolVar(&expand, "expand", false, "print long reviews in full")
	return cmd
}

// page prints five reviews at a time, waiting for Enter in between.
func page(out io.Writer, in io.Reader, v *client.ReviewsView, all, expand bool) error {
	prompt := bufio.NewReader(in)
	for {
		client.Render(out, v.More(), expand)
		if !client.HasMore(v.Pager) {
			return nil
		}
		if all {
			continue
		}
		fmt.Fprintf(out, "-- %d of %d shown, press Enter for more --", v.Pager.VisibleCount, len(v.Pager.Items))
		if _, err := prompt.ReadString('\n'); err != nil {
			fmt.Fprintln(out)
			return nil
		}
	}
}

func newSubmitCmd(opts *options) *cobra.Command {
	var (
		in         models.ReviewInput
		rating     int
		subscribed bool
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Post a review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Rating = models.Rating(rating)
			in.Subscribed = &subscribed

			v, closeFn, err := opts.view(true)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := v.Submit(cmd.Context(), in)
			if res == nil && err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Local {
				fmt.Fprintf(out, "Server unreachable, review saved offline (id %s). Run `reviewctl sync` later.\n", res.ID)
			} else {
				fmt.Fprintf(out, "Thank you! Review %s added.\nOwner token (needed to delete it): %s\n", res.ID, res.OwnerToken)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "your name")
	f.StringVar(&in.Phone, "phone", "", "phone number, 10-13 digits")
	f.IntVar(&rating, "rating", 0, "rating from 1 to 5")
	f.StringVar(&in.Comment, "comment", "", "review text, at least 10 characters")
	f.BoolVar(&subscribed, "subscribed", true, "receive news and offers")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, closeFn, err := opts.view(true)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := v.Delete(cmd.Context(), args[0], token); err != nil {
				if errors.Is(err, models.ErrNotOwner) {
					return errors.New("this review was written on another device")
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Review deleted.")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "owner token (defaults to the one saved at submit time)")
	return cmd
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send reviews saved offline to the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, closeFn, err := opts.view(true)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := v.Sync(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d review(s) synced\n", n)
			return err
		},
	}
}

func newAdminCmd(opts *options) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Moderation tools",
	}
	admin.PersistentFlags().StringVar(&opts.adminToken, "token", os.Getenv("REVIEWS_ADMIN_TOKEN"), "admin bearer token")

	list := &cobra.Command{
		Use:   "list",
		Short: "List every review with its status and phone",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := client.New(opts.apiURL)
			c.AdminToken = opts.adminToken
			reviews, err := c.AdminList(cmd.Context())
			if err != nil {
				return err
			}
			entries := make([]client.Entry, 0, len(reviews))
			for _, r := range reviews {
				entries = append(entries, client.Entry{
					ID:        r.ID.Hex(),
					Name:      r.Name,
					Rating:    r.Rating,
					Comment:   r.Comment,
					Timestamp: r.Timestamp,
					Status:    r.Status,
					Phone:     r.Phone,
				})
			}
			client.Render(cmd.OutOrStdout(), entries, true)
			return nil
		},
	}

	var (
		secret  string
		subject string
		ttl     time.Duration
	)
	token := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 admin token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := helpers.MintAdminToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	token.Flags().StringVar(&secret, "secret", os.Getenv("ADMIN_JWT_SECRET"), "shared secret (ADMIN_JWT_SECRET)")
	token.Flags().StringVar(&subject, "subject", "operator", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")

	admin.AddCommand(list, token)
	return admin
}
