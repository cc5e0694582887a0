package postinstall

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/sabitm/sail/pkg/shell"
	"github.com/sabitm/sail/pkg/shell/shelltest"
	"github.com/sabitm/sail/pkg/validate"
)

func TestNames(t *testing.T) {
	got := strings.Join(Names(), " ")
	want := "add_user additional_storage enable_services gnome_install nix_install zfs_mount_generator"
	if got != want {
		t.Fatalf("want %q got %q", want, got)
	}
}

func TestScript(t *testing.T) {
	b, err := Script("enable_services")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "systemctl enable zrepl") {
		t.Fatalf("unexpected content %s", b)
	}
	if _, err := Script("enable_services.sh"); err != nil {
		t.Fatalf("suffix form: %v", err)
	}
	if _, err := Script("nope"); !errors.Is(err, ErrUnknownScript) {
		t.Fatalf("expected ErrUnknownScript, got %v", err)
	}
	if _, err := Script("../x"); !errors.Is(err, validate.ErrBadScript) {
		t.Fatalf("expected ErrBadScript, got %v", err)
	}
}

func TestInstallAndExec(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/mnt/root/post_install_scripts"
	if err := Install(fs, dir); err != nil {
		t.Fatal(err)
	}
	for _, n := range Names() {
		st, err := fs.Stat(dir + "/" + n + ".sh")
		if err != nil {
			t.Fatalf("%s: %v", n, err)
		}
		if st.Mode().Perm()&0o100 == 0 {
			t.Fatalf("%s not executable: %v", n, st.Mode())
		}
	}

	fake := &shelltest.Fake{}
	if err := Exec(context.Background(), fs, fake, dir, "add_user", nil); err != nil {
		t.Fatal(err)
	}
	if got := fake.Lines(); len(got) != 1 || got[0] != "bash "+dir+"/add_user.sh" {
		t.Fatalf("unexpected calls %v", got)
	}
	if err := Exec(context.Background(), afero.NewMemMapFs(), fake, dir, "add_user", nil); err == nil {
		t.Fatalf("expected error for missing install dir")
	}
}

func TestExecPassesInputToScript(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	script := "read -r pw || exit 3\necho \"$pw\" > \"$(dirname \"$0\")/got\"\n"
	if err := afero.WriteFile(fs, filepath.Join(dir, "add_user.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	r := shell.NewExec(zerolog.Nop(), nil)
	if err := Exec(context.Background(), fs, r, dir, "add_user", strings.NewReader("secret\n")); err != nil {
		t.Fatalf("exec: %v", err)
	}
	b, err := afero.ReadFile(fs, filepath.Join(dir, "got"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(b)) != "secret" {
		t.Fatalf("script read %q", b)
	}

	fake := &shelltest.Fake{}
	in := strings.NewReader("x\n")
	if err := Exec(context.Background(), fs, fake, dir, "add_user", in); err != nil {
		t.Fatal(err)
	}
	if len(fake.Calls) != 1 || fake.Calls[0].Input != in {
		t.Fatalf("input not forwarded: %+v", fake.Calls)
	}
}
