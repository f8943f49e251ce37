package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a protocol module has been halted by governance.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects operations against paused modules. A nil view means no pause
// switches are installed and every module runs.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a fixed pause set used by configuration loading and tests.
type StaticPauses map[string]bool

// IsPaused implements the PauseView interface.
func (s StaticPauses) IsPaused(module string) bool {
	return s[module]
}
