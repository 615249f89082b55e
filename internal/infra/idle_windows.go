//go:build windows

package infra

import (
	"syscall"
	"unsafe"

	"github.com/shoreagents/staffmon/internal/domain"
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// windowsIdleProber reads seconds since last global input via
// GetLastInputInfo.
type windowsIdleProber struct{}

// NewIdleProber returns the platform idle probe for Windows.
func NewIdleProber() domain.IdleProber {
	return &windowsIdleProber{}
}

func (p *windowsIdleProber) IdleSeconds() (float64, error) {
	var info lastInputInfo
	info.cbSize = uint32(unsafe.Sizeof(info))

	ret, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0, err
	}

	tick, _, _ := procGetTickCount.Call()

	// Tick counts wrap at 32 bits; uint32 subtraction handles it.
	idleMillis := uint32(tick) - info.dwTime
	return float64(idleMillis) / 1000, nil
}

func (p *windowsIdleProber) Available() bool {
	return procGetLastInputInfo.Find() == nil
}
