package trainlog

import "sort"

// palette cycled over sorted activity names. Order matters: the first
// ten are the usual qualitative chart colors, the rest extend the cycle
// for logs with many activity types.
var palette = []string{
	"#4C78A8", "#F58518", "#E45756", "#72B7B2", "#54A24B",
	"#EECA3B", "#B279A2", "#FF9DA6", "#9D755D", "#BAB0AC",
	"#2E91E5", "#E15F99", "#1CA71C", "#FB0D0D", "#DA16FF",
	"#222A2A", "#B68100", "#750D86", "#EB663B", "#511CFB",
	"#00A08B", "#FB00D1", "#FC0080", "#B2828D", "#6C7C32",
	"#778AAE", "#862A16", "#A777F1", "#620042", "#1616A7",
	"#DA60CA", "#6C4516", "#0D2A63", "#AF0038",
}

// AssignColors maps each activity name to a hex color. Names are sorted
// first, so the mapping depends only on the activity set, never on row
// order - the same log always renders with the same colors.
func AssignColors(activities []string) map[string]string {
	sorted := make([]string, len(activities))
	copy(sorted, activities)
	sort.Strings(sorted)

	colors := make(map[string]string, len(sorted))
	for i, activity := range sorted {
		colors[activity] = palette[i%len(palette)]
	}
	return colors
}
