package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"astra/internal/app"
	"astra/internal/config"
	"astra/internal/logger"
	"astra/internal/model"
	"astra/internal/service"
	"astra/internal/util"

	"github.com/dgrijalva/jwt-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Backend is what the data commands need from the wired services.
type Backend struct {
	Quota       service.QuotaService
	Companion   service.CompanionService
	DeadLetters service.DLQService
	Close       func() error
}

// BackendFactory builds a Backend (allows mocking in tests)
type BackendFactory func(ctx context.Context) (*Backend, error)

// DefaultBackendFactory connects to the configured database.
func DefaultBackendFactory(ctx context.Context) (*Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	svc, err := app.Build(ctx, cfg, logger.New("astractl"))
	if err != nil {
		return nil, err
	}
	return &Backend{Quota: svc.Quota, Companion: svc.Companion, DeadLetters: svc.DLQ, Close: svc.Close}, nil
}

type cli struct {
	backend BackendFactory
	now     func() time.Time
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "astractl",
		Short:         "astractl - operate ASTRA quotas and companion context",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	tiersCmd := &cobra.Command{
		Use:   "tiers",
		Short: "List subscription tiers and their daily allowances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTiers(cmd.OutOrStdout())
		},
	}

	quotaCmd := &cobra.Command{Use: "quota", Short: "Inspect and consume quota windows"}
	quotaShowCmd := &cobra.Command{
		Use:   "show USER_ID",
		Short: "Show a user's current window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				rec, err := b.Quota.CurrentWindow(ctx, args[0])
				if err != nil {
					return err
				}
				return printWindow(cmd.OutOrStdout(), rec, c.now())
			})
		},
	}
	var action string
	quotaConsumeCmd := &cobra.Command{
		Use:   "consume USER_ID",
		Short: "Consume one unit of an action for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := model.ParseQuotaAction(action)
			if err != nil {
				return err
			}
			return c.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				rec, err := b.Quota.Authorize(ctx, args[0], a)
				if err != nil {
					return err
				}
				return printWindow(cmd.OutOrStdout(), rec, c.now())
			})
		},
	}
	quotaConsumeCmd.Flags().StringVarP(&action, "action", "a", string(model.ActionProfileClick), "Action to consume: companion_message|profile_click")
	quotaCmd.AddCommand(quotaShowCmd, quotaConsumeCmd)

	contextCmd := &cobra.Command{Use: "context", Short: "Companion context tools"}
	var asJSON bool
	contextPreviewCmd := &cobra.Command{
		Use:   "preview USER_ID",
		Short: "Print the context block the companion would receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				block, err := b.Companion.PreviewContext(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(block)
				}
				_, err = fmt.Fprintln(out, block.Text)
				return err
			})
		},
	}
	contextPreviewCmd.Flags().BoolVar(&asJSON, "json", false, "Print the block with its counts as JSON")
	contextCmd.AddCommand(contextPreviewCmd)

	profileCmd := &cobra.Command{Use: "profile", Short: "Profile cache tools"}
	profileRefreshCmd := &cobra.Command{
		Use:   "refresh USER_ID",
		Short: "Drop a user's cached profile snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				if err := b.Companion.RefreshProfile(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "profile cache cleared for %s\n", args[0])
				return err
			})
		},
	}
	profileCmd.AddCommand(profileRefreshCmd)

	dlqCmd := &cobra.Command{Use: "dlq", Short: "Inspect dead-lettered exchange events"}
	var dlqLimit int
	dlqListCmd := &cobra.Command{
		Use:   "list",
		Short: "List unprocessed dead letters, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				msgs, err := b.DeadLetters.Pending(ctx, dlqLimit)
				if err != nil {
					return err
				}
				return printDeadLetters(cmd.OutOrStdout(), msgs)
			})
		},
	}
	dlqListCmd.Flags().IntVar(&dlqLimit, "limit", service.DefaultPendingLimit, "Maximum messages to list")
	dlqCmd.AddCommand(dlqListCmd)

	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Sign a development access token with SUPABASE_JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("SUPABASE_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("SUPABASE_JWT_SECRET is not set")
			}
			token, err := util.SignJWT(&util.Claims{
				Role: "authenticated",
				StandardClaims: jwt.StandardClaims{
					Subject:   args[0],
					IssuedAt:  c.now().Unix(),
					ExpiresAt: c.now().Add(ttl).Unix(),
				},
			}, secret)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	tokenCmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")

	root.AddCommand(tiersCmd, quotaCmd, contextCmd, profileCmd, dlqCmd, tokenCmd)
	return root
}

func (c *cli) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *Backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	b, err := c.backend(ctx)
	if err != nil {
		return err
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(ctx, b)
}

func printTiers(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tCOMPANION MESSAGES\tPROFILE CLICKS")
	for _, tier := range model.Tiers {
		limits, err := model.ResolveLimits(tier)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\n", tier, limits.DailyCompanionMessages, limits.DailyProfileClicks)
	}
	return tw.Flush()
}

func printWindow(w io.Writer, rec *model.QuotaRecord, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "window\t%s\n", rec.ID)
	fmt.Fprintf(tw, "user\t%s\n", rec.UserID)
	fmt.Fprintf(tw, "tier\t%s\n", rec.TierAtCreation)
	for _, a := range []model.QuotaAction{model.ActionCompanionMessage, model.ActionProfileClick} {
		used, limit := rec.Usage(a)
		fmt.Fprintf(tw, "%s\t%d/%d\n", a, used, limit)
	}
	fmt.Fprintf(tw, "resets\t%s (in %s)\n", rec.WindowEnd.UTC().Format(time.RFC3339), rec.WindowEnd.Sub(now).Round(time.Minute))
	return tw.Flush()
}

func printDeadLetters(w io.Writer, msgs []model.DeadLetterMessage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MESSAGE ID\tUSER\tSUBSCRIPTION\tRECEIVED")
	for _, m := range msgs {
		user := m.UserID
		if user == "" {
			user = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.MessageID, user, m.SubscriptionName, m.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func main() {
	_ = godotenv.Load()
	c := &cli{backend: DefaultBackendFactory, now: time.Now}
	if err := newRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
