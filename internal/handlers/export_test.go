package handlers

// WidgetCount returns the number of widgets m keeps in memory.
func WidgetCount(m Main) int {
	return m.widgets.len()
}
