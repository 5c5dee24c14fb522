package directory

import "strings"

// Role classifies what a PIN identity represents inside a conference.
//
// The bridge role marks the SIP leg that gateways the video room into the
// voice conference. Its presence is what gates mirroring phone participants
// into the room service, so classification must be explicit rather than
// inferred from naming conventions.
type Role string

const (
	RolePhone  Role = "phone"
	RoleBridge Role = "bridge"
)

func (r Role) Valid() bool {
	return r == RolePhone || r == RoleBridge
}

// Conference maps a voice conference to its optional video room.
// An empty RoomID means video mirroring is disabled for this conference.
type Conference struct {
	ConferenceID string `json:"conference_id"`
	RoomID       string `json:"room_id,omitempty"`
}

// User is a PIN identity: entering the PIN selects this conference and,
// optionally, a display name and external id forwarded to the room service.
type User struct {
	PIN          int    `json:"pin"`
	ConferenceID string `json:"conference_id"`
	DisplayName  string `json:"display_name,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
	Role         Role   `json:"role"`
}

// legacyBridgePrefix is the old display-name convention for marking the
// bridge leg. Only consulted when a user row is created without an explicit
// role, so imported legacy data keeps working.
const legacyBridgePrefix = "SIP-"

// ClassifyRole resolves the effective role for a new user row.
func ClassifyRole(role Role, displayName string) Role {
	if role.Valid() {
		return role
	}
	if strings.HasPrefix(displayName, legacyBridgePrefix) {
		return RoleBridge
	}
	return RolePhone
}
