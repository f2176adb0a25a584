// The stratus CLI wraps the operational chores that would otherwise need
// one-off scripts: applying migrations, preparing the bucket, and running
// the binaries during development.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stratus/internal/config"
	"stratus/internal/database"
	"stratus/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "stratus: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "stratus",
		Short:        "Stratus operations CLI",
		Long:         "Stratus CLI applies database migrations, prepares the object-store bucket, and runs the server and worker binaries for development.",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newBucketCmd(),
		newRunCmd(),
	)
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			db, err := database.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RunMigrations(ctx); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newBucketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bucket",
		Short: "Create the bucket and enable versioning",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			store, err := storage.NewMinioStore(storage.Options{
				Endpoint:  cfg.S3Endpoint,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
				Bucket:    cfg.S3Bucket,
				Region:    cfg.S3Region,
				UseSSL:    cfg.S3UseSSL,
			})
			if err != nil {
				return err
			}
			if err := store.EnsureBucket(ctx); err != nil {
				return err
			}
			fmt.Printf("bucket %s ready, versioning enabled\n", cfg.S3Bucket)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run individual Go binaries directly",
	}
	cmd.AddCommand(
		newServiceRunner("server", "./cmd/server"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			goArgs := append([]string{"run", path}, args...)
			return runCommand(ctx, "go", goArgs...)
		},
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
