package installer

import (
	"context"
	"fmt"

	"github.com/sabitm/sail/internal/templates"
)

const (
	nobodySudoers = "/etc/sudoers.d/00_nobody"
	aurBase       = "https://aur.archlinux.org"
	buildDir      = "/tmp/build"
)

// aur builds the configured AUR packages as nobody. The temporary sudo
// grant is revoked on every exit path.
func (i *Installer) aur(ctx context.Context) (err error) {
	i.step("grant nobody temporary sudo for package builds")
	if err := i.writeFile(nobodySudoers, []byte(templates.NobodySudoers), 0o440); err != nil {
		return fmt.Errorf("write %s: %w", nobodySudoers, err)
	}
	defer func() {
		i.step("revoke build grant")
		if rerr := i.removeFile(nobodySudoers); rerr != nil && err == nil {
			err = fmt.Errorf("revoke build grant: %w", rerr)
		}
	}()

	for _, pkg := range i.cfg.AURPackages {
		i.step("build %s", pkg)
		if err := i.buildAUR(ctx, pkg); err != nil {
			return fmt.Errorf("build %s: %w", pkg, err)
		}
	}

	i.step("write zrepl configuration")
	b, err := templates.DefaultZrepl().Render()
	if err != nil {
		return err
	}
	return i.writeFile("/etc/zrepl/zrepl.yml", b, 0o644)
}

func (i *Installer) buildAUR(ctx context.Context, pkg string) error {
	dir := buildDir + "/" + pkg
	for _, script := range []string{
		"mkdir -p " + buildDir,
		fmt.Sprintf("rm -rf %s && git clone %s/%s.git %s", dir, aurBase, pkg, dir),
		fmt.Sprintf("cd %s && makepkg -si --noconfirm", dir),
	} {
		if err := i.asNobody(ctx, script); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) asNobody(ctx context.Context, script string) error {
	return i.chroot(ctx, "su", "nobody", "-s", "/bin/bash", "-c", script)
}
