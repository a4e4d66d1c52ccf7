package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/vrtnorris/internal/gitctx"
	"github.com/sdejongh/vrtnorris/pkg/logging"
	"github.com/sdejongh/vrtnorris/pkg/storage"
	"github.com/sdejongh/vrtnorris/pkg/transfer"
)

// transferFlags holds the flags only used by download and upload
type transferFlags struct {
	Dir         string
	Alias       string
	BasePath    string
	Description string
}

var xferFlags transferFlags

// NewDownloadCommand creates the download command
func NewDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a baseline for inspection",
		Long: `Download the baseline identified by an alias into a new directory and print
its manifest. The directory is kept; remove it when done.`,
		RunE: runDownload,
	}

	addCompareFlags(cmd)
	addRemoteFlags(cmd)
	addBaselineFlags(cmd)
	addTransferFlags(cmd)
	cmd.Flags().StringVar(&xferFlags.Dir, "dir", "", "parent directory of the baseline directory (default system temp dir)")

	return cmd
}

// NewUploadCommand creates the upload command
func NewUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <directory>",
		Short: "Publish a directory as a deployment",
		Long: `Upload every file of a directory to the artifact service and finalize the
deployment under an alias. Use it to publish a new baseline, for example from
the main branch after screenshots were approved.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	addRemoteFlags(cmd)
	addTransferFlags(cmd)
	cmd.Flags().StringVarP(&xferFlags.Alias, "alias", "a", "", "alias of the deployment (required)")
	cmd.Flags().StringVar(&xferFlags.BasePath, "base-path", "", "remote path prefix (default the directory as given)")
	cmd.Flags().StringVar(&xferFlags.Description, "description", "", "deployment description")
	cmd.MarkFlagRequired("alias")

	return cmd
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if xferFlags.Dir != "" {
		if err := os.MkdirAll(xferFlags.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		cfg.Transfer.TempDir = xferFlags.Dir
	}

	git, _ := gitctx.Detect(os.Getenv)
	if cfg.Remote.Repository == "" && git != nil {
		cfg.Remote.Repository = git.Repository
	}
	if err := cfg.ValidateRemote(true); err != nil {
		return err
	}

	logger, err := createLogger(cfg, cmd.ErrOrStderr(), uuid.NewString())
	if err != nil {
		return err
	}
	defer logger.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(cfg, client, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	manifest, err := orch.DownloadBaseline(ctx, transfer.DownloadRequest{
		Repository: cfg.Remote.Repository,
		Path:       cfg.Compare.Path,
		Alias:      cfg.Remote.BaselineAlias,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dir, err := storage.ValidateDirectory(args[0])
	if err != nil {
		return err
	}

	git, err := gitctx.Detect(os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to detect git context: %w", err)
	}
	if cfg.Remote.Repository == "" {
		cfg.Remote.Repository = git.Repository
	}
	if err := cfg.ValidateRemote(false); err != nil {
		return err
	}

	logger, err := createLogger(cfg, cmd.ErrOrStderr(), uuid.NewString())
	if err != nil {
		return err
	}
	defer logger.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(cfg, client, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	basePath := xferFlags.BasePath
	if basePath == "" {
		basePath = args[0]
	}

	deployment, err := orch.UploadDirectory(ctx, dir, transfer.UploadRequest{
		Repository:  cfg.Remote.Repository,
		CommitSHA:   git.CommitSHA,
		Branch:      git.Branch,
		Alias:       xferFlags.Alias,
		BasePath:    transfer.CleanRemotePath(basePath),
		Description: xferFlags.Description,
	})
	if isSkipped(err) {
		logger.Warn(ctx, "Nothing uploaded", logging.Fields{"reason": err.Error()})
		return &ExitError{Code: 2}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deployment %s: %s\n", deployment.DeploymentID, deployment.URL())
	return nil
}

// isSkipped reports whether err only means the service declined a transfer
func isSkipped(err error) bool {
	return errors.Is(err, transfer.ErrTransferSkipped)
}
