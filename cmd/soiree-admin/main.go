package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dukerupert/soiree/internal/config"
	"github.com/dukerupert/soiree/internal/database"
	"github.com/dukerupert/soiree/internal/model"
	"github.com/dukerupert/soiree/internal/store"
)

const usage = `usage: soiree-admin <command> [flags]

commands:
  create-party  create a party
  invite        invite a user to a party (pending RSVP)
  session       issue a local session token and sign-in link for a user
  revoke        delete every local session of a user
  delete-party  soft-delete a party
  cleanup       delete expired local sessions
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "soiree-admin:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "soiree-admin: warning: ignoring environment: %v\n", err)
		cfg, err = config.LoadFrom(map[string]string{})
		if err != nil {
			return err
		}
	}
	dbPath := cfg.DBPath

	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVar(&dbPath, "db", dbPath, "path to the SQLite database")

	switch cmd {
	case "create-party":
		return createParty(ctx, fs, rest, &dbPath, stdout)
	case "invite":
		return invite(ctx, fs, rest, &dbPath, stdout)
	case "session":
		return issueSession(ctx, fs, rest, &dbPath, cfg, stdout)
	case "revoke":
		return revoke(ctx, fs, rest, &dbPath, stdout)
	case "delete-party":
		return deleteParty(ctx, fs, rest, &dbPath, stdout)
	case "cleanup":
		return cleanup(ctx, fs, rest, &dbPath, stdout)
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func createParty(ctx context.Context, fs *flag.FlagSet, args []string, dbPath *string, stdout io.Writer) error {
	slug := fs.String("slug", "", "URL slug (required)")
	name := fs.String("name", "", "display name (required)")
	location := fs.String("location", "", "where the party is")
	description := fs.String("description", "", "free-form description")
	starts := fs.String("starts", "", "start time, RFC 3339")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" || *name == "" {
		return errors.New("create-party: -slug and -name are required")
	}

	var startsAt *time.Time
	if *starts != "" {
		t, err := time.Parse(time.RFC3339, *starts)
		if err != nil {
			return fmt.Errorf("create-party: parse -starts: %w", err)
		}
		startsAt = &t
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := store.NewPartyStore(db).Create(ctx, *slug, *name, *location, *description, startsAt)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created party %s (%s)\n", p.Slug, p.ID)
	return nil
}

func invite(ctx context.Context, fs *flag.FlagSet, args []string, dbPath *string, stdout io.Writer) error {
	slug := fs.String("party", "", "party slug (required)")
	userID := fs.String("user", "", "identity provider user id (required)")
	name := fs.String("name", "", "display name, stored if given")
	email := fs.String("email", "", "email, stored if given")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" || *userID == "" {
		return errors.New("invite: -party and -user are required")
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := store.NewPartyStore(db).GetBySlug(ctx, *slug)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("invite: no party %q", *slug)
	}

	users := store.NewUserStore(db)
	u, err := users.GetByID(ctx, *userID)
	if err != nil {
		return err
	}
	if u == nil || *name != "" || *email != "" {
		next := model.User{ID: *userID}
		if u != nil {
			next = *u
		}
		if *name != "" {
			next.Name = *name
		}
		if *email != "" {
			next.Email = *email
		}
		if _, err := users.Upsert(ctx, next); err != nil {
			return err
		}
	}

	r, err := store.NewRsvpStore(db).Invite(ctx, p.ID, *userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "invited %s to %s: rsvp %s (%s)\n", *userID, p.Slug, r.ID, r.Status)
	return nil
}

func issueSession(ctx context.Context, fs *flag.FlagSet, args []string, dbPath *string, cfg config.Config, stdout io.Writer) error {
	userID := fs.String("user", "", "user id (required)")
	ttl := fs.Duration("ttl", cfg.SessionTTL, "session lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("session: -user is required")
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := store.NewUserStore(db).GetByID(ctx, *userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("session: no user %q", *userID)
	}

	sess, err := store.NewSessionStore(db).Create(ctx, u.ID, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, sess.Token)
	if cfg.AuthMode == config.AuthModeLocal {
		fmt.Fprintf(stdout, "link: %s/login/link?token=%s\n", strings.TrimRight(cfg.BaseURL, "/"), sess.Token)
	}
	return nil
}

func revoke(ctx context.Context, fs *flag.FlagSet, args []string, dbPath *string, stdout io.Writer) error {
	userID := fs.String("user", "", "user id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("revoke: -user is required")
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.NewSessionStore(db).DeleteByUserID(ctx, *userID); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "revoked sessions of %s\n", *userID)
	return nil
}

func deleteParty(ctx context.Context, fs *flag.FlagSet, args []string, dbPath *string, stdout io.Writer) error {
	slug := fs.String("slug", "", "party slug (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" {
		return errors.New("delete-party: -slug is required")
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	parties := store.NewPartyStore(db)
	p, err := parties.GetBySlug(ctx, *slug)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("delete-party: no party %q", *slug)
	}
	if err := parties.SoftDelete(ctx, p.ID); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted party %s (%s)\n", p.Slug, p.ID)
	return nil
}

func cleanup(ctx context.Context, fs *flag.FlagSet, args []string, dbPath *string, stdout io.Writer) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := store.NewSessionStore(db).DeleteExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted %d expired sessions\n", n)
	return nil
}
