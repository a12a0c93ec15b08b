package probe

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/Micah-S/gw2pao/internal/domain"
)

// SystemProbe reads host facts for the status surface.
type SystemProbe struct{}

var _ domain.SystemSource = SystemProbe{}

func (SystemProbe) Facts() (domain.SystemFacts, error) {
	info, err := host.Info()
	if err != nil {
		return domain.SystemFacts{}, fmt.Errorf("read host info: %w", err)
	}
	return domain.SystemFacts{
		Hostname: info.Hostname,
		Platform: fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion),
		Uptime:   time.Duration(info.Uptime) * time.Second, //nolint:gosec
	}, nil
}
