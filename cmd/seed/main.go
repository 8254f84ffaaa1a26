// Command seed fills the database with demo content.
//
//	go run ./cmd/seed                      # 5 users, 4 posts each
//	go run ./cmd/seed --users 20 --posts 10 --seed 42
//	go run ./cmd/seed --db /tmp/demo.db
//
// The database path defaults to DB_PATH from the same config the server
// uses, so running it next to the server seeds the server's database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/config"
	sqliteRepo "github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/seed"
	"github.com/sakif/inkwell/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := seed.DefaultOptions()
	var (
		dbPath  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the blog database with demo users, posts and comments",
		Long: `Seed creates fake users (each with a profile), posts with tags, and
comments, through the same service layer the web app uses.

Every seeded user can log in with the password "` + seed.DemoPassword + `".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), dbPath, verbose, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.Users, "users", "u", opts.Users, "number of users to create")
	f.IntVarP(&opts.PostsPerUser, "posts", "p", opts.PostsPerUser, "posts per user")
	f.IntVarP(&opts.CommentsPerPost, "comments", "c", opts.CommentsPerPost, "comments per post")
	f.Int64Var(&opts.Seed, "seed", 0, "random seed for reproducible content (0 = random)")
	f.StringVar(&dbPath, "db", "", "database path (default: DB_PATH from config)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log every created user")

	return cmd
}

func run(ctx context.Context, dbPath string, verbose bool, opts seed.Options) error {
	_ = godotenv.Load()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(db, db, db, tokens, auth.NewPasswordService(), logger)
	posts := service.NewPostService(db, db, db, logger)

	res, err := seed.New(accounts, posts, opts.Seed, logger).Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %s: %d users, %d posts, %d comments.\n", dbPath, len(res.Users), res.Posts, res.Comments)
	for _, u := range res.Users {
		fmt.Printf("  %s / %s\n", u.Username, seed.DemoPassword)
	}
	return nil
}
