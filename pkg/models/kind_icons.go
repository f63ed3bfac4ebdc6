package models

// KindIcon maps an EntityKind to its icon identifier.
// Identifiers use Lucide icon names (https://lucide.dev) so the dashboard
// shell can render navigation without a lookup table of its own.
var KindIcon = map[EntityKind]string{
	KindUsers:      "users",
	KindCoaches:    "whistle",
	KindClubs:      "shield",
	KindGroups:     "users-round",
	KindFacilities: "building",
	KindCompanies:  "briefcase",
}

// Icon returns the icon identifier for an EntityKind.
// Returns "help-circle" for unrecognised kinds.
func (k EntityKind) Icon() string {
	if icon, ok := KindIcon[k]; ok {
		return icon
	}
	return "help-circle"
}
