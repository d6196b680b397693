package update

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SelfReplacer installs a pending updater binary (for example
// "Updater_new.exe") over the updater it replaces, with rollback support.
// It is run from the pending binary, so the file being overwritten is not
// the one executing.
type SelfReplacer struct {
	targetPath string
	backupPath string
	sourcePath string
	preparer   Preparer
	verify     func(ctx context.Context, path string) error
}

// SelfReplacerOption configures a SelfReplacer
type SelfReplacerOption func(*SelfReplacer)

// WithVerifier replaces the post-install check (default: run "<target> --version").
func WithVerifier(fn func(ctx context.Context, path string) error) SelfReplacerOption {
	return func(r *SelfReplacer) {
		r.verify = fn
	}
}

// NewSelfReplacer creates a replacer copying sourcePath over targetPath.
// preparer clears the target, waiting for a running copy to exit.
func NewSelfReplacer(targetPath, sourcePath string, preparer Preparer, opts ...SelfReplacerOption) *SelfReplacer {
	r := &SelfReplacer{
		targetPath: targetPath,
		backupPath: targetPath + ".backup",
		sourcePath: sourcePath,
		preparer:   preparer,
		verify:     verifyBinary,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PromotionTarget maps a pending binary path to the binary it replaces:
// "dir/Updater_new.exe" becomes "dir/Updater.exe".
func PromotionTarget(pendingPath string) (string, error) {
	dir, base := filepath.Split(pendingPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if !strings.HasSuffix(stem, selfUpdateSuffix) || stem == selfUpdateSuffix {
		return "", fmt.Errorf("%s is not a pending update (expected a name ending in %s%s)", base, selfUpdateSuffix, ext)
	}
	return filepath.Join(dir, strings.TrimSuffix(stem, selfUpdateSuffix)+ext), nil
}

// Promote replaces the target binary with the source binary
func (r *SelfReplacer) Promote(ctx context.Context) error {
	// 1. Back up the current binary, if there is one
	hadTarget, err := r.createBackup()
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	// 2. Clear the target, waiting for a running copy to exit
	if err := r.preparer.Prepare(ctx, r.targetPath); err != nil {
		r.discardBackup()
		return fmt.Errorf("failed to clear %s: %w", r.targetPath, err)
	}

	// 3. Copy the new binary into place
	if err := copyFile(r.sourcePath, r.targetPath, 0o755); err != nil {
		r.restore(hadTarget)
		return fmt.Errorf("failed to install binary: %w", err)
	}

	// 4. Verify the new binary runs
	if err := r.verify(ctx, r.targetPath); err != nil {
		r.restore(hadTarget)
		return fmt.Errorf("new binary verification failed: %w", err)
	}

	r.discardBackup()
	return nil
}

// Rollback restores the backup if an install fails
func (r *SelfReplacer) Rollback() error {
	if _, err := os.Stat(r.backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup not found: %s", r.backupPath)
	}

	// Windows cannot rename over an existing file
	if err := os.Remove(r.targetPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove failed install: %w", err)
	}
	if err := os.Rename(r.backupPath, r.targetPath); err != nil {
		return fmt.Errorf("failed to restore from backup: %w", err)
	}
	if err := os.Chmod(r.targetPath, 0o755); err != nil {
		return fmt.Errorf("failed to set permissions on restored binary: %w", err)
	}
	return nil
}

func (r *SelfReplacer) restore(hadTarget bool) {
	if hadTarget {
		_ = r.Rollback()
		return
	}
	_ = os.Remove(r.targetPath)
}

func (r *SelfReplacer) discardBackup() {
	_ = os.Remove(r.backupPath)
}

// createBackup copies the current binary next to itself. It reports false
// when there is nothing to back up.
func (r *SelfReplacer) createBackup() (bool, error) {
	info, err := os.Stat(r.targetPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat current binary: %w", err)
	}
	if err := copyFile(r.targetPath, r.backupPath, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	// OpenFile's mode only applies on create
	return os.Chmod(dst, mode)
}

// verifyBinary verifies a binary works by running --version
func verifyBinary(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, path, "--version")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("binary verification failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}
