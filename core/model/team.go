package model

import (
	"fmt"
	"strings"
)

// TeamType is the specialisation of a response team.
type TeamType string

const (
	TeamMedical     TeamType = "MEDICAL"
	TeamFirefighter TeamType = "FIREFIGHTER"
	TeamPolice      TeamType = "POLICE"
	TeamVolunteer   TeamType = "VOLUNTEER"
	TeamRescue      TeamType = "RESCUE"
)

// ParseTeamType resolves a case-insensitive team type.
func ParseTeamType(s string) (TeamType, error) {
	t := TeamType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TeamMedical, TeamFirefighter, TeamPolice, TeamVolunteer, TeamRescue:
		return t, nil
	}
	return "", fmt.Errorf("unknown team type %q", s)
}

// Team is a response team that can be assigned to a zone.
type Team struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        TeamType `json:"type"`
	Members     int      `json:"members"`
	Specialties []string `json:"specialties"`
	Available   bool     `json:"available"`
	ZoneID      string   `json:"zone_id,omitempty"`
}

// Validate checks the caller supplied attributes of a team.
func (t Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTeam)
	}
	if _, err := ParseTeamType(string(t.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTeam, err)
	}
	if t.Members <= 0 {
		return fmt.Errorf("%w: members must be positive, got %d", ErrInvalidTeam, t.Members)
	}
	return nil
}
