package stattable

import (
	"fmt"
	"strings"

	"kcal_tracker_bot/internal/format"
)

// Summary builds the aggregate lines shown above an itemized table.
func Summary(timezoneOffset int, total float64) string {
	return fmt.Sprintf("Timezone: UTC%s\nTotal: %s kcal", format.Offset(timezoneOffset), format.Kcal(total))
}

// ShortStat describes today's total against the optional daily limit.
func ShortStat(total float64, limit *float64) string {
	if limit == nil {
		return fmt.Sprintf("Today: %s kcal (no limit set)", format.Kcal(total))
	}

	var b strings.Builder
	if *limit > 0 {
		fmt.Fprintf(&b, "Today: %s / %s kcal (%.0f %%)", format.Kcal(total), format.Kcal(*limit), total / *limit * 100)
	} else {
		fmt.Fprintf(&b, "Today: %s / %s kcal", format.Kcal(total), format.Kcal(*limit))
	}

	remaining := *limit - total
	if remaining < 0 {
		fmt.Fprintf(&b, "\n%s kcal overeat!", format.Kcal(-remaining))
	} else {
		fmt.Fprintf(&b, "\n%s kcal left", format.Kcal(remaining))
	}

	return b.String()
}
