package templates

import (
	"fmt"
	"io"

	"github.com/coreos/go-systemd/v22/unit"
)

// Unit is a rendered systemd unit file.
type Unit struct {
	Name    string
	Content []byte
}

// MaintenanceUnits returns the zfs-<action>@.timer/.service pair that runs
// `zpool <action> %i` monthly at idle priority.
func MaintenanceUnits(action string) ([]Unit, error) {
	timer := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", fmt.Sprintf("Monthly zpool %s on %%i", action)),
		unit.NewUnitOption("Timer", "OnCalendar", "monthly"),
		unit.NewUnitOption("Timer", "AccuracySec", "1h"),
		unit.NewUnitOption("Timer", "Persistent", "true"),
		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}
	service := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", fmt.Sprintf("zpool %s on %%i", action)),
		unit.NewUnitOption("Service", "Nice", "19"),
		unit.NewUnitOption("Service", "IOSchedulingClass", "idle"),
		unit.NewUnitOption("Service", "KillSignal", "SIGINT"),
		unit.NewUnitOption("Service", "ExecStart", "/usr/bin/zpool "+action+" %i"),
		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}

	var out []Unit
	for _, u := range []struct {
		name string
		opts []*unit.UnitOption
	}{
		{fmt.Sprintf("zfs-%s@.timer", action), timer},
		{fmt.Sprintf("zfs-%s@.service", action), service},
	} {
		b, err := io.ReadAll(unit.Serialize(u.opts))
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", u.name, err)
		}
		out = append(out, Unit{Name: u.name, Content: b})
	}
	return out, nil
}

// TimerInstances returns the per-pool timer names for action.
func TimerInstances(action string, pools ...string) []string {
	out := make([]string, 0, len(pools))
	for _, p := range pools {
		out = append(out, fmt.Sprintf("zfs-%s@%s.timer", action, p))
	}
	return out
}
