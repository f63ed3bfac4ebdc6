package models

import (
	"strings"
	"time"
)

// EntityKind identifies a searchable collection on the sports-events API.
type EntityKind string

const (
	KindUsers      EntityKind = "users"
	KindCoaches    EntityKind = "coaches"
	KindClubs      EntityKind = "clubs"
	KindGroups     EntityKind = "groups"
	KindFacilities EntityKind = "facilities"
	KindCompanies  EntityKind = "companies"
)

// AllKinds lists every searchable kind in navigation order.
var AllKinds = []EntityKind{
	KindUsers, KindCoaches, KindClubs, KindGroups, KindFacilities, KindCompanies,
}

// Valid reports whether k is one of the known kinds.
func (k EntityKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Entity is a search hit. The API returns a superset of fields across
// kinds; unused fields are simply empty.
type Entity struct {
	ID        string    `json:"_id" yaml:"id"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	FirstName string    `json:"firstName,omitempty" yaml:"first_name,omitempty"`
	LastName  string    `json:"lastName,omitempty" yaml:"last_name,omitempty"`
	Email     string    `json:"email,omitempty" yaml:"email,omitempty"`
	Role      string    `json:"role,omitempty" yaml:"role,omitempty"`
	City      string    `json:"city,omitempty" yaml:"city,omitempty"`
	Avatar    string    `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	MainSport string    `json:"mainSport,omitempty" yaml:"main_sport,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty" yaml:"created_by,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
}

// DisplayName returns Name, falling back to "First Last", then the email.
func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	full := strings.TrimSpace(e.FirstName + " " + e.LastName)
	if full != "" {
		return full
	}
	return e.Email
}

// Sport is a reference-data sport entry. Group is the sport-group ID the
// sport belongs to.
type Sport struct {
	ID        string `json:"_id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Group     string `json:"group" yaml:"group"`
	GroupName string `json:"groupName" yaml:"group_name"`
}

// CoachDetail is the full coach profile returned by GET /coach/{id}.
type CoachDetail struct {
	ID          string   `json:"_id" yaml:"id"`
	FirstName   string   `json:"firstName" yaml:"first_name"`
	LastName    string   `json:"lastName" yaml:"last_name"`
	Email       string   `json:"email,omitempty" yaml:"email,omitempty"`
	Phone       string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Bio         string   `json:"bio,omitempty" yaml:"bio,omitempty"`
	City        string   `json:"city,omitempty" yaml:"city,omitempty"`
	Avatar      string   `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	MainSport   string   `json:"mainSport,omitempty" yaml:"main_sport,omitempty"`
	Sports      []string `json:"sports,omitempty" yaml:"sports,omitempty"`
	Experience  int      `json:"experience,omitempty" yaml:"experience,omitempty"`
	Certificate []string `json:"certificates,omitempty" yaml:"certificates,omitempty"`
}
