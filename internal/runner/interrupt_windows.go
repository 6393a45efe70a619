//go:build windows

package runner

import "golang.org/x/sys/windows"

// sendInterrupt delivers CTRL_C_EVENT to the console process group, which
// the runtime turns into os.Interrupt.
func sendInterrupt() {
	_ = windows.GenerateConsoleCtrlEvent(windows.CTRL_C_EVENT, 0)
}
