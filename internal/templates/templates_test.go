package templates

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestMaintenanceUnits(t *testing.T) {
	units, err := MaintenanceUnits("trim")
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 2 || units[0].Name != "zfs-trim@.timer" || units[1].Name != "zfs-trim@.service" {
		t.Fatalf("unexpected units %+v", units)
	}
	timer := string(units[0].Content)
	for _, want := range []string{"[Timer]", "OnCalendar=monthly", "Persistent=true", "WantedBy=multi-user.target"} {
		if !strings.Contains(timer, want) {
			t.Fatalf("timer missing %q:\n%s", want, timer)
		}
	}
	if !strings.Contains(string(units[1].Content), "ExecStart=/usr/bin/zpool trim %i") {
		t.Fatalf("service:\n%s", units[1].Content)
	}
}

func TestTimerInstances(t *testing.T) {
	got := TimerInstances("scrub", "rpool", "bpool")
	if strings.Join(got, " ") != "zfs-scrub@rpool.timer zfs-scrub@bpool.timer" {
		t.Fatalf("unexpected %v", got)
	}
}

func TestZreplRoundTrip(t *testing.T) {
	b, err := DefaultZrepl().Render()
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		t.Fatalf("rendered yaml invalid: %v\n%s", err, b)
	}
	s := string(b)
	for _, want := range []string{"rpool/arch/DATA<", "interval: 15m", "prefix: zrepl_", "1x1h(keep=all) | 12x1h | 7x1d", "negate: true"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in:\n%s", want, s)
		}
	}
}

func TestMkinitcpio(t *testing.T) {
	got := Mkinitcpio("MODULES=()\nHOOKS=(base udev)")
	if !strings.HasSuffix(got, "HOOKS=(base udev)\n"+HooksLine+"\n") {
		t.Fatalf("unexpected:\n%s", got)
	}
	if Mkinitcpio("") != HooksLine+"\n" {
		t.Fatalf("empty stock")
	}
}

func TestSmallRenderers(t *testing.T) {
	if GrubDefaults("/dev/disk/by-id") != "GRUB_DISABLE_OS_PROBER=false\nGRUB_CMDLINE_LINUX=\"zfs_import_dir=/dev/disk/by-id\"\n" {
		t.Fatalf("grub defaults: %q", GrubDefaults("/dev/disk/by-id"))
	}
	if Mirrorlist([]string{"a", "b"}) != "Server = a\nServer = b\n" {
		t.Fatalf("mirrorlist")
	}
	if LocaleGen("en_US.UTF-8") != "en_US.UTF-8 UTF-8\n" {
		t.Fatalf("locale: %q", LocaleGen("en_US.UTF-8"))
	}
	if !strings.Contains(KernelUpdater, "pacman -Sy") || !strings.Contains(ArchzfsRepo, "[archzfs]") {
		t.Fatalf("embedded files missing")
	}
}
