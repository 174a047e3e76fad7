package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/handover"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/auth"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mediflow-server",
		Short:        "MediFlow nursing handover API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(shiftsCmd())
	root.AddCommand(handoverCmd())
	root.AddCommand(tokenCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	revoker, closeRevoker, err := newRevoker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRevoker()

	svc := buildServices(pool, cfg, logger)
	e, api := newEcho(cfg, logger, revoker)
	registerRoutes(e, api, pool, svc, revoker, cfg)

	if cfg.ShiftJobEnabled {
		go ward.NewShiftJob(svc.shifts, cfg.Location(), logger).Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", cfg.Location().String()).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := newMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default: embedded migrations)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := newMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.In(cfg.Location()).Format(time.DateTime)
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default: embedded migrations)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func shiftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shifts",
		Short: "Manage daily shifts",
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Create the DAY, EVENING and NIGHT shifts for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("date")
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			date, err := parseDate(raw, time.Now(), cfg.Location())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := buildServices(pool, cfg, newLogger(cfg))
			created, err := svc.shifts.GenerateDaily(ctx, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: created %d shift(s)\n", date.Format(time.DateOnly), created)
			return nil
		},
	}
	generateCmd.Flags().String("date", "", "Date as YYYY-MM-DD (default: tomorrow)")
	cmd.AddCommand(generateCmd)
	return cmd
}

// parseDate reads YYYY-MM-DD in loc. An empty value means the day after now.
func parseDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if raw == "" {
		y, m, d := now.In(loc).AddDate(0, 0, 1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func handoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handover",
		Short: "Inspect handover generation",
	}

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the prompt a nurse's handover summary would be generated from",
		RunE: func(cmd *cobra.Command, args []string) error {
			nurseRaw, _ := cmd.Flags().GetString("nurse")
			shiftRaw, _ := cmd.Flags().GetString("shift")
			nurseID, err := uuid.Parse(nurseRaw)
			if err != nil {
				return fmt.Errorf("--nurse must be a valid id: %w", err)
			}
			shiftID, err := uuid.Parse(shiftRaw)
			if err != nil {
				return fmt.Errorf("--shift must be a valid id: %w", err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := buildServices(pool, cfg, newLogger(cfg))
			prompt, ok, err := svc.handover.PreparePrompt(ctx, nurseID, shiftID)
			if err != nil {
				return err
			}
			if !ok {
				prompt = handover.NoPatientsMessage
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		},
	}
	previewCmd.Flags().String("nurse", "", "Nurse user id")
	previewCmd.Flags().String("shift", "", "Shift id the handover is from")
	_ = previewCmd.MarkFlagRequired("nurse")
	_ = previewCmd.MarkFlagRequired("shift")
	cmd.AddCommand(previewCmd)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			name, _ := cmd.Flags().GetString("name")
			roles, _ := cmd.Flags().GetStringSlice("roles")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if _, err := uuid.Parse(user); err != nil {
				return fmt.Errorf("--user must be a valid id: %w", err)
			}
			roles, err := normalizeRoles(roles)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(auth.JWTConfig{
				Issuer:     cfg.AuthIssuer,
				Audience:   cfg.AuthAudience,
				SigningKey: []byte(cfg.AuthSigningKey),
			}, user, name, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issueCmd.Flags().String("user", "", "User id (token subject)")
	issueCmd.Flags().String("name", "", "Display name")
	issueCmd.Flags().StringSlice("roles", []string{auth.RoleNurse}, "Roles: NURSE, HEAD_NURSE, ADMIN")
	issueCmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	_ = issueCmd.MarkFlagRequired("user")
	cmd.AddCommand(issueCmd)
	return cmd
}

// normalizeRoles upper-cases roles and rejects unknown ones.
func normalizeRoles(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("--roles must name at least one role")
	}
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = strings.ToUpper(strings.TrimSpace(r))
		switch out[i] {
		case auth.RoleNurse, auth.RoleHeadNurse, auth.RoleAdmin:
		default:
			return nil, fmt.Errorf("unknown role %q", r)
		}
	}
	return out, nil
}
