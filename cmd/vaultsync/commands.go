package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/vaultsync"
	"github.com/eringen/vaultsync/scaffold"
	"github.com/eringen/vaultsync/vault"
)

func serveCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Sync the vault and serve the blog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			defer app.Logger().Sync()

			if cmd.Flags().Changed("addr") {
				app.Config.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				app.Config.WatchVault = watch
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := app.Sync(ctx); err != nil {
				return err
			}
			return app.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	cmd.Flags().BoolVar(&watch, "watch", false, "sync when the vault changes (overrides WATCH_VAULT)")
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the vault and report what a sync would add, without writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := vaultsync.NewStore(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := vault.New(cmd.Context(), vault.Config{Root: cfg.VaultPath}, store, logger.Named("vault"))
			if err != nil {
				return err
			}
			printScan(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printScan(w io.Writer, s *vault.Scanner) {
	newImages := make(map[string]bool)
	for _, img := range s.NewImages() {
		newImages[img.Name] = true
	}
	newPosts := make(map[string]bool)
	for _, p := range s.NewPosts() {
		newPosts[p.Name] = true
	}

	fmt.Fprintf(w, "Images (%d, %d new):\n", len(s.Images()), len(newImages))
	for _, img := range s.Images() {
		fmt.Fprintf(w, "  %s %s\n", marker(newImages[img.Name], img.Released), img.Name)
	}
	fmt.Fprintf(w, "Posts (%d, %d new):\n", len(s.Posts()), len(newPosts))
	for _, p := range s.Posts() {
		fmt.Fprintf(w, "  %s %s\n", marker(newPosts[p.Name], p.Released), p.Name)
	}
}

func marker(isNew, released bool) string {
	switch {
	case isNew:
		return "+"
	case released:
		return "*"
	default:
		return " "
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Persist new and changed vault items to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			defer app.Logger().Sync()

			res, err := app.Sync(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d new posts, %d new images, %d updated posts, %d updated images\n",
				len(res.NewPosts), len(res.NewImages), len(res.UpdatedPosts), len(res.UpdatedImages))
			for _, name := range res.NewPosts {
				fmt.Fprintf(out, "  + post  %s\n", name)
			}
			for _, name := range res.NewImages {
				fmt.Fprintf(out, "  + image %s\n", name)
			}
			for _, name := range res.UpdatedPosts {
				fmt.Fprintf(out, "  ~ post  %s\n", name)
			}
			for _, name := range res.UpdatedImages {
				fmt.Fprintf(out, "  ~ image %s\n", name)
			}
			return nil
		},
	}
}

func releaseCmd() *cobra.Command {
	var (
		unrelease bool
		image     bool
	)
	cmd := &cobra.Command{
		Use:   "release <name>",
		Short: "Mark a post (or image, with --image) as released",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := vaultsync.NewStore(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			name := args[0]
			switch {
			case image && unrelease:
				err = store.UnreleaseImage(ctx, name)
			case image:
				err = store.ReleaseImage(ctx, name)
			case unrelease:
				err = store.UnreleasePost(ctx, name)
			default:
				err = store.ReleasePost(ctx, name, time.Now())
			}
			if errors.Is(err, vaultsync.ErrNotFound) {
				return fmt.Errorf("%q is not in the database; run sync first", name)
			}
			if err != nil {
				return err
			}

			status := "released"
			if unrelease {
				status = "unreleased"
			}
			logger.Info("release status changed", zap.String("name", name), zap.String("status", status))
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name, status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unrelease, "unrelease", false, "hide the item instead")
	cmd.Flags().BoolVar(&image, "image", false, "the name is an image, not a post")
	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a starter vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Creating vault in %s\n\n", dir)
			created, err := scaffold.Generate(osfs.New(dir), scaffold.Data{
				SiteName:  scaffold.TitleFromDir(filepath.Base(dir)),
				VaultPath: dir,
			})
			for _, p := range created {
				fmt.Fprintf(out, "  created %s\n", p)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Done! Next steps:")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  cd %s\n", dir)
			fmt.Fprintln(out, "  vaultsync sync")
			fmt.Fprintln(out, "  vaultsync release hello-world")
			fmt.Fprintln(out, "  vaultsync serve")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Set ADMIN_PASSWORD and ADMIN_SESSION_SECRET in .env to enable /admin/.")
			return nil
		},
	}
}
