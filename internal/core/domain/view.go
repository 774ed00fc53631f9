package domain

type ViewMode string

const (
	ViewModeList ViewMode = "list"
	ViewModeGrid ViewMode = "grid"
)

// DefaultViewMode is used when no valid preference has been stored.
const DefaultViewMode = ViewModeList

func (v ViewMode) IsValid() bool {
	return v == ViewModeList || v == ViewModeGrid
}

// Effective returns the mode to render. Stored preferences are not validated
// on load, so anything unknown falls back to the default.
func (v ViewMode) Effective() ViewMode {
	if v.IsValid() {
		return v
	}
	return DefaultViewMode
}

type SidebarState string

const (
	SidebarClosed SidebarState = "closed"
	SidebarOpen   SidebarState = "open"
)

func (s SidebarState) Toggle() SidebarState {
	if s == SidebarOpen {
		return SidebarClosed
	}
	return SidebarOpen
}
