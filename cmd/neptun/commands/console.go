package commands

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"neptun/services/booking"

	"github.com/jedib0t/go-pretty/v6/table"
)

// consoleDecider obtains the booking decision from the operator on the
// terminal. Pressing Enter at the slot prompt is a deliberate skip.
type consoleDecider struct {
	in *bufio.Reader
}

func newConsoleDecider() consoleDecider {
	return consoleDecider{in: bufio.NewReader(os.Stdin)}
}

func (d consoleDecider) PickSlot(options []booking.SlotOption) (int, bool, error) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Date", "Time", "Spots"})
	for i, opt := range options {
		t.AppendRow(table.Row{i + 1, opt.Date.Format("2006-01-02"), opt.Slot.TimeRange, opt.Slot.Spots})
	}
	t.Render()

	fmt.Printf("pick a slot number (Enter to skip): ")
	line, err := d.in.ReadString('\n')
	if err != nil {
		return 0, false, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false, nil
	}

	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(options) {
		fmt.Printf("invalid selection %q, not booking\n", line)
		return 0, false, nil
	}
	return choice, true, nil
}

func (d consoleDecider) Confirm(prompt string) (bool, error) {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := d.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
