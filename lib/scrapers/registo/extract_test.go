package registo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "embed"
)

//go:embed testdata/step2_valid.html
var step2ValidHtml string

//go:embed testdata/step2_invalid.html
var step2InvalidHtml string

//go:embed testdata/step2_template.html
var step2TemplateHtml string

//go:embed testdata/step3_constraints.html
var step3ConstraintsHtml string

//go:embed testdata/step4_slots.html
var step4SlotsHtml string

//go:embed testdata/step4_slots_fallback.html
var step4SlotsFallbackHtml string

//go:embed testdata/step4_empty.html
var step4EmptyHtml string

//go:embed testdata/appointments.html
var appointmentsHtml string

func TestExtractResourceSelection(t *testing.T) {
	sel, ok := ExtractResourceSelection(step2ValidHtml)
	require.True(t, ok)
	require.Equal(t, "1023", sel.SubscriptionID)
	require.Equal(t, "7", sel.ResourceID)

	_, ok = ExtractResourceSelection(step2InvalidHtml)
	require.False(t, ok)

	_, ok = ExtractResourceSelection("")
	require.False(t, ok)
}

func TestExtractResourceSelectionFallback(t *testing.T) {
	// the hidden fields live inside a script template here, invisible
	// to the DOM tier, so the regex tier has to recover them
	sel, ok := ExtractResourceSelection(step2TemplateHtml)
	require.True(t, ok)
	require.Equal(t, "1023", sel.SubscriptionID)
	require.Equal(t, "7", sel.ResourceID)
}

func TestExtractConstraints(t *testing.T) {
	c := ExtractConstraints(step3ConstraintsHtml)

	require.Equal(t, map[int]bool{0: true, 6: true}, c.DisabledWeekdays)
	require.Equal(t, map[string]bool{
		"2026-09-10": true,
		"2026-09-17": true,
	}, c.BlackoutDates)
	require.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), c.MaxDate)
}

func TestExtractConstraintsPartial(t *testing.T) {
	// the three facts are independent, one missing must not drop the others
	c := ExtractConstraints(`<script>if (iso == '2026-09-10') return false;</script>`)
	require.Empty(t, c.DisabledWeekdays)
	require.Equal(t, map[string]bool{"2026-09-10": true}, c.BlackoutDates)
	require.True(t, c.MaxDate.IsZero())

	c = ExtractConstraints("<html><body>nothing here</body></html>")
	require.Empty(t, c.DisabledWeekdays)
	require.Empty(t, c.BlackoutDates)
	require.True(t, c.MaxDate.IsZero())
}

func TestExtractSlotsPrimary(t *testing.T) {
	slots := ExtractSlots(step4SlotsHtml)

	require.Equal(t, []Slot{
		{TimeRange: "10:00-11:30", Spots: 4, IntervalID: "int-101"},
		{TimeRange: "12:00-13:30", Spots: 0, IntervalID: "int-102"},
		{TimeRange: "14:00-15:30", Spots: 2, IntervalID: "int-103"},
	}, slots)
}

func TestExtractSlotsFallback(t *testing.T) {
	slots := ExtractSlots(step4SlotsFallbackHtml)

	require.Equal(t, []Slot{
		{TimeRange: "08:00-09:30", Spots: 2, IntervalID: "int-201"},
		{TimeRange: "10:00-11:30", Spots: 0, IntervalID: "int-202"},
		{TimeRange: "12:00-13:30", Spots: 5, IntervalID: "int-203"},
	}, slots)
}

func TestExtractSlotsFallbackUnevenLists(t *testing.T) {
	// the zip stops at the shortest token list
	html := `
		<span>08:00 - 09:30</span>
		<span>10:00 - 11:30</span>
		<span>Locuri disponibile: 1</span>
		<input type="hidden" name="interval" value="int-301">
		<input type="hidden" name="interval" value="int-302">`
	slots := ExtractSlots(html)

	require.Equal(t, []Slot{
		{TimeRange: "08:00-09:30", Spots: 1, IntervalID: "int-301"},
	}, slots)
}

func TestExtractSlotsEmpty(t *testing.T) {
	require.Empty(t, ExtractSlots(step4EmptyHtml))
}

func TestExtractAppointmentRows(t *testing.T) {
	rows := ExtractAppointmentRows(appointmentsHtml)

	require.Len(t, rows, 2)
	require.Equal(t, []string{
		"2026-09-12", "10:00-11:30", "Sauna Finlandeză", "Confirmat", "Anulează",
	}, rows[0].Cells)
	require.Equal(t, "tok-9912", rows[0].DeleteID)
	require.Equal(t, "tok-9944", rows[1].DeleteID)
	require.Equal(t, "2026-09-19", rows[1].Cells[0])
}
