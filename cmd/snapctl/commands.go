package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/snapurl/snapurl/internal/handler/dto"
	"github.com/snapurl/snapurl/internal/service"
	"github.com/snapurl/snapurl/internal/session"
	"github.com/snapurl/snapurl/internal/stats"
)

// resolveConcurrency caps parallel lookups in "snapctl resolve".
const resolveConcurrency = 4

func (c *cli) shortenCmd() *cobra.Command {
	var validity, code string

	cmd := &cobra.Command{
		Use:   "shorten <url>...",
		Short: "Shorten up to 5 URLs",
		Long: `Shorten one or more URLs. URLs are created in the order given and a
failure does not stop the rest. --code only applies to a single URL.`,
		Args: cobra.RangeArgs(1, dto.MaxBatchSize),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code != "" && len(args) > 1 {
				return errors.New("--code can only be used with a single URL")
			}

			tw := newTable(cmd.OutOrStdout())
			failed := 0
			for _, raw := range args {
				rec, err := c.app.registry.Create(cmd.Context(), service.CreateInput{
					OriginalURL:     raw,
					Validity:        validity,
					CustomShortCode: code,
				})
				if err != nil {
					failed++
					fmt.Fprintf(tw, "%s\terror: %v\n", raw, err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\texpires %s\n",
					rec.ShortURL(c.app.baseURL), rec.OriginalURL, rec.ExpiresAt.Format(time.RFC3339))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d URLs could not be shortened", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&validity, "validity", "", "validity in minutes (default from DEFAULT_VALIDITY)")
	cmd.Flags().StringVarP(&code, "code", "c", "", "custom short code")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shortened URLs in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}

			rows := stats.Build(c.app.registry.List(), c.app.baseURL)
			if output != formatTable {
				return render(cmd.OutOrStdout(), output, rows)
			}

			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No shortened URLs yet.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "SHORT URL\tORIGINAL URL\tEXPIRES\tCLICKS")
			for _, row := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
					row.ShortURL, row.OriginalURL, row.ExpiresAt.Format(time.RFC3339), row.TotalClicks)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func (c *cli) resolveCmd() *cobra.Command {
	var referrer string

	cmd := &cobra.Command{
		Use:   "resolve <code>...",
		Short: "Resolve short codes and record a click for each hit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]service.Resolution, len(args))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(resolveConcurrency)
			for i, code := range args {
				g.Go(func() error {
					results[i] = c.app.resolver.Resolve(ctx, code, referrer)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			misses := 0
			for i, res := range results {
				if res.Outcome != service.OutcomeRedirect {
					misses++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", args[i], res.Outcome, res.Target)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if misses > 0 {
				return fmt.Errorf("%d of %d codes did not resolve", misses, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&referrer, "referrer", "", "referrer to record as the click source")
	return cmd
}

func (c *cli) clicksCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "clicks <code>",
		Short: "Show the click history of one short code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}

			clicks := stats.ClickDetails(c.app.registry.List(), args[0])
			if output != formatTable {
				return render(cmd.OutOrStdout(), output, clicks)
			}

			if len(clicks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No clicks recorded.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "TIMESTAMP\tSOURCE\tLOCATION")
			for _, click := range clicks {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", click.Timestamp.Format(time.RFC3339), click.Source, click.Geo)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show click statistics (requires login)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			if !c.app.sessions.LoggedIn() {
				return fmt.Errorf("%w: run \"snapctl login\" first", session.ErrUnauthorized)
			}

			summary := stats.Summarize(c.app.registry.List(), c.app.baseURL)
			if output != formatTable {
				return render(cmd.OutOrStdout(), output, summary)
			}

			out := cmd.OutOrStdout()
			if summary.Empty {
				fmt.Fprintln(out, "No shortened URLs yet.")
				return nil
			}
			fmt.Fprintf(out, "%d URLs, %d clicks\n\n", summary.TotalURLs, summary.TotalClicks)
			tw := newTable(out)
			fmt.Fprintln(tw, "SHORT URL\tORIGINAL URL\tCREATED\tEXPIRES\tCLICKS")
			for _, row := range summary.Rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
					row.ShortURL, row.OriginalURL,
					row.CreatedAt.Format(time.RFC3339), row.ExpiresAt.Format(time.RFC3339),
					row.TotalClicks)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Start a session, replacing any existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, token, err := c.app.sessions.Login(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in (session %s)\n", sess.ID)
			fmt.Fprintf(out, "Token: %s\n", token)
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ended, err := c.app.sessions.Logout(cmd.Context())
			if err != nil {
				return err
			}
			if ended {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			}
			return nil
		},
	}
}
