package update

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// removingPreparer clears the target the way FileReplacer does once nothing holds it.
type removingPreparer struct {
	calls []string
	err   error
}

func (p *removingPreparer) Prepare(_ context.Context, path string) error {
	p.calls = append(p.calls, path)
	if p.err != nil {
		return p.err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func acceptAll(context.Context, string) error { return nil }

func TestNewSelfReplacer(t *testing.T) {
	replacer := NewSelfReplacer("/opt/app/updater", "/opt/app/updater_new", &removingPreparer{})

	if replacer.targetPath != "/opt/app/updater" {
		t.Errorf("targetPath = %s, want /opt/app/updater", replacer.targetPath)
	}

	expectedBackup := "/opt/app/updater.backup"
	if replacer.backupPath != expectedBackup {
		t.Errorf("backupPath = %s, want %s", replacer.backupPath, expectedBackup)
	}
}

func TestPromotionTarget(t *testing.T) {
	tests := []struct {
		name    string
		pending string
		want    string
		wantErr bool
	}{
		{name: "windows binary", pending: filepath.Join("app", "Updater_new.exe"), want: filepath.Join("app", "Updater.exe")},
		{name: "extensionless", pending: filepath.Join("app", "updater_new"), want: filepath.Join("app", "updater")},
		{name: "bare name", pending: "Updater_new.exe", want: "Updater.exe"},
		{name: "not pending", pending: "Updater.exe", wantErr: true},
		{name: "suffix only", pending: "_new.exe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PromotionTarget(tt.pending)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PromotionTarget(%q) error = %v, wantErr %v", tt.pending, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PromotionTarget(%q) = %q, want %q", tt.pending, got, tt.want)
			}
		})
	}
}

func TestCreateBackup(t *testing.T) {
	tmpDir := t.TempDir()
	currentBinary := filepath.Join(tmpDir, "updater")
	testContent := []byte("original binary content")

	if err := os.WriteFile(currentBinary, testContent, 0755); err != nil {
		t.Fatalf("Failed to create test binary: %v", err)
	}

	replacer := NewSelfReplacer(currentBinary, filepath.Join(tmpDir, "updater_new"), &removingPreparer{})
	hadTarget, err := replacer.createBackup()
	if err != nil {
		t.Fatalf("createBackup() error = %v", err)
	}
	if !hadTarget {
		t.Error("createBackup() reported no target for an existing binary")
	}

	backupContent, err := os.ReadFile(replacer.backupPath)
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if string(backupContent) != string(testContent) {
		t.Errorf("Backup content mismatch: got %s, want %s", backupContent, testContent)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(replacer.backupPath)
		if err != nil {
			t.Fatalf("Failed to stat backup: %v", err)
		}
		if info.Mode().Perm() != 0755 {
			t.Errorf("Backup permissions = %o, want 0755", info.Mode().Perm())
		}
	}
}

func TestCreateBackup_NoTarget(t *testing.T) {
	tmpDir := t.TempDir()
	replacer := NewSelfReplacer(filepath.Join(tmpDir, "updater"), filepath.Join(tmpDir, "updater_new"), &removingPreparer{})

	hadTarget, err := replacer.createBackup()
	if err != nil {
		t.Fatalf("createBackup() error = %v", err)
	}
	if hadTarget {
		t.Error("createBackup() reported a target that does not exist")
	}
}

func TestPromote_Success(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "updater")
	pending := filepath.Join(tmpDir, "updater_new")

	if err := os.WriteFile(target, []byte("old"), 0755); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}
	if err := os.WriteFile(pending, []byte("new"), 0644); err != nil {
		t.Fatalf("Failed to create pending binary: %v", err)
	}

	preparer := &removingPreparer{}
	var verified string
	replacer := NewSelfReplacer(target, pending, preparer, WithVerifier(func(_ context.Context, path string) error {
		verified = path
		return nil
	}))

	if err := replacer.Promote(context.Background()); err != nil {
		t.Fatalf("Promote() error = %v", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read target: %v", err)
	}
	if string(content) != "new" {
		t.Errorf("target content = %q, want %q", content, "new")
	}
	if verified != target {
		t.Errorf("verified %q, want %q", verified, target)
	}
	if len(preparer.calls) != 1 || preparer.calls[0] != target {
		t.Errorf("preparer calls = %v, want [%s]", preparer.calls, target)
	}
	if _, err := os.Stat(replacer.backupPath); !os.IsNotExist(err) {
		t.Error("Backup should be removed after a successful promotion")
	}
	if _, err := os.Stat(pending); err != nil {
		t.Errorf("Pending binary should be left in place: %v", err)
	}
}

func TestPromote_NoExistingTarget(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "updater")
	pending := filepath.Join(tmpDir, "updater_new")

	if err := os.WriteFile(pending, []byte("new"), 0755); err != nil {
		t.Fatalf("Failed to create pending binary: %v", err)
	}

	replacer := NewSelfReplacer(target, pending, &removingPreparer{}, WithVerifier(acceptAll))
	if err := replacer.Promote(context.Background()); err != nil {
		t.Fatalf("Promote() error = %v", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read target: %v", err)
	}
	if string(content) != "new" {
		t.Errorf("target content = %q, want %q", content, "new")
	}
}

func TestPromote_VerificationFails(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "updater")
	pending := filepath.Join(tmpDir, "updater_new")

	if err := os.WriteFile(target, []byte("old"), 0755); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}
	if err := os.WriteFile(pending, []byte("broken"), 0755); err != nil {
		t.Fatalf("Failed to create pending binary: %v", err)
	}

	verifyErr := errors.New("exit status 1")
	replacer := NewSelfReplacer(target, pending, &removingPreparer{}, WithVerifier(func(context.Context, string) error {
		return verifyErr
	}))

	err := replacer.Promote(context.Background())
	if !errors.Is(err, verifyErr) {
		t.Fatalf("Promote() error = %v, want %v", err, verifyErr)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read restored target: %v", err)
	}
	if string(content) != "old" {
		t.Errorf("target content = %q, want original %q", content, "old")
	}
	if _, err := os.Stat(replacer.backupPath); !os.IsNotExist(err) {
		t.Error("Backup should be consumed by the rollback")
	}
}

func TestPromote_VerificationFailsWithoutTarget(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "updater")
	pending := filepath.Join(tmpDir, "updater_new")

	if err := os.WriteFile(pending, []byte("broken"), 0755); err != nil {
		t.Fatalf("Failed to create pending binary: %v", err)
	}

	replacer := NewSelfReplacer(target, pending, &removingPreparer{}, WithVerifier(func(context.Context, string) error {
		return errors.New("bad binary")
	}))

	if err := replacer.Promote(context.Background()); err == nil {
		t.Fatal("Promote() should fail when verification fails")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("A failed first install should not leave a target behind")
	}
}

func TestPromote_PrepareFails(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "updater")
	pending := filepath.Join(tmpDir, "updater_new")

	if err := os.WriteFile(target, []byte("old"), 0755); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}
	if err := os.WriteFile(pending, []byte("new"), 0755); err != nil {
		t.Fatalf("Failed to create pending binary: %v", err)
	}

	prepareErr := context.Canceled
	replacer := NewSelfReplacer(target, pending, &removingPreparer{err: prepareErr}, WithVerifier(acceptAll))

	err := replacer.Promote(context.Background())
	if !errors.Is(err, prepareErr) {
		t.Fatalf("Promote() error = %v, want %v", err, prepareErr)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read target: %v", err)
	}
	if string(content) != "old" {
		t.Errorf("target content = %q, want untouched %q", content, "old")
	}
	if _, err := os.Stat(replacer.backupPath); !os.IsNotExist(err) {
		t.Error("Backup should be discarded when the target was never touched")
	}
}

func TestPromote_MissingSource(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "updater")

	if err := os.WriteFile(target, []byte("old"), 0755); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}

	replacer := NewSelfReplacer(target, filepath.Join(tmpDir, "updater_new"), &removingPreparer{}, WithVerifier(acceptAll))
	if err := replacer.Promote(context.Background()); err == nil {
		t.Fatal("Promote() should fail without a pending binary")
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read restored target: %v", err)
	}
	if string(content) != "old" {
		t.Errorf("target content = %q, want original %q", content, "old")
	}
}

func TestRollback_NoBackup(t *testing.T) {
	tmpDir := t.TempDir()
	replacer := NewSelfReplacer(filepath.Join(tmpDir, "updater"), filepath.Join(tmpDir, "updater_new"), &removingPreparer{})

	if err := replacer.Rollback(); err == nil {
		t.Error("Expected error when backup doesn't exist")
	}
}

func TestVerifyBinary_Success(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tmpDir := t.TempDir()
	testBinary := filepath.Join(tmpDir, "test")

	script := `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "updater version 1.2.0"
	exit 0
fi
exit 1
`
	if err := os.WriteFile(testBinary, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to create test binary: %v", err)
	}

	if err := verifyBinary(context.Background(), testBinary); err != nil {
		t.Errorf("verifyBinary() error = %v", err)
	}
}

func TestVerifyBinary_Fails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tmpDir := t.TempDir()
	testBinary := filepath.Join(tmpDir, "test")

	if err := os.WriteFile(testBinary, []byte("#!/bin/sh\nexit 1\n"), 0755); err != nil {
		t.Fatalf("Failed to create test binary: %v", err)
	}

	if err := verifyBinary(context.Background(), testBinary); err == nil {
		t.Error("Expected error for failing binary")
	}
}

func TestVerifyBinary_NotFound(t *testing.T) {
	if err := verifyBinary(context.Background(), "/path/that/does/not/exist"); err == nil {
		t.Error("Expected error for non-existent binary")
	}
}
