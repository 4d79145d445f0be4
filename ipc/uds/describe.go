package uds

import (
	"fmt"

	"github.com/shirou/gopsutil/process"
)

// Describe returns "name(user)" for the process in c, for use in log lines. The process may
// already be gone, in which case the parts that could not be found are "?".
func Describe(c Cred) string {
	name, username := "?", "?"

	proc, err := process.NewProcess(c.PID.Int32())
	if err == nil {
		if n, err := proc.Name(); err == nil {
			name = n
		}
		if u, err := proc.Username(); err == nil {
			username = u
		}
	}
	return fmt.Sprintf("%s(%s)", name, username)
}
