package installer

import (
	"testing"

	"github.com/spf13/afero"
)

func TestMirrorTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/boot/efi/EFI/arch/grubx64.efi":         "grub",
		"/boot/efi/EFI/arch/grub/grub.cfg":       "cfg",
		"/boot/efi/EFI/BOOT/BOOTX64.EFI":         "fallback",
		"/boot/efis/disk-b/EFI/arch/grubx64.efi": "stale",
	}
	for p, c := range files {
		if err := afero.WriteFile(fs, p, []byte(c), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := fs.MkdirAll("/boot/efis/disk-a", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/boot/efis/README", []byte("not an esp"), 0o644); err != nil {
		t.Fatal(err)
	}

	dsts, err := mirrorTree(fs, "/boot/efi/EFI", "/boot/efis")
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if len(dsts) != 2 {
		t.Fatalf("expected two targets, got %v", dsts)
	}
	for _, esp := range []string{"disk-a", "disk-b"} {
		for _, rel := range []string{"arch/grubx64.efi", "arch/grub/grub.cfg", "BOOT/BOOTX64.EFI"} {
			got, err := afero.ReadFile(fs, "/boot/efis/"+esp+"/EFI/"+rel)
			if err != nil {
				t.Fatalf("%s/%s: %v", esp, rel, err)
			}
			want, _ := afero.ReadFile(fs, "/boot/efi/EFI/"+rel)
			if string(got) != string(want) {
				t.Fatalf("%s/%s = %q, want %q", esp, rel, got, want)
			}
		}
	}
}

func TestMirrorTreeOntoItself(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/boot/esp/EFI/arch/grubx64.efi", []byte("grub"), 0o644); err != nil {
		t.Fatal(err)
	}
	// /boot/esp is both the source's parent and a mirror target.
	if _, err := mirrorTree(fs, "/boot/esp/EFI", "/boot"); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	b, err := afero.ReadFile(fs, "/boot/esp/EFI/arch/grubx64.efi")
	if err != nil || string(b) != "grub" {
		t.Fatalf("source damaged: %q %v", b, err)
	}
}
