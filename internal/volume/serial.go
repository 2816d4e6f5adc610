package volume

import "fmt"

// formatSerial renders a volume serial number the way `vol` prints it.
func formatSerial(serial uint32) string {
	return fmt.Sprintf("%04X-%04X", serial>>16, serial&0xffff)
}
