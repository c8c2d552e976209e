package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NotificationType is the closed set of notification kinds the
// platform emits.
type NotificationType int

const (
	NotificationAll NotificationType = iota
	NotificationMessage
	NotificationFriendRequest
	NotificationInvite
	NotificationVoteToKick
	NotificationHelp
	NotificationHidden
	NotificationRequestInvite
)

// WireRevision selects which spelling table is used when talking to the
// server. The two revisions differ only for FriendRequest and Invite.
type WireRevision string

const (
	WireV1 WireRevision = "v1"
	WireV2 WireRevision = "v2"
)

// wireNames pins the exact case-sensitive wire string of every variant
// per revision. Do not derive these from the Go names.
var wireNames = map[WireRevision]map[NotificationType]string{
	WireV1: {
		NotificationAll:           "all",
		NotificationMessage:       "message",
		NotificationFriendRequest: "friendRequest",
		NotificationInvite:        "invite",
		NotificationVoteToKick:    "votetokick",
		NotificationHelp:          "help",
		NotificationHidden:        "hidden",
		NotificationRequestInvite: "requestinvite",
	},
	WireV2: {
		NotificationAll:           "all",
		NotificationMessage:       "message",
		NotificationFriendRequest: "friendrequest",
		NotificationInvite:        "invitemessage",
		NotificationVoteToKick:    "votetokick",
		NotificationHelp:          "help",
		NotificationHidden:        "hidden",
		NotificationRequestInvite: "requestinvite",
	},
}

// ParseWireRevision validates a configured revision name.
func ParseWireRevision(s string) (WireRevision, error) {
	rev := WireRevision(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := wireNames[rev]; !ok {
		return "", fmt.Errorf("unknown wire revision %q (want v1 or v2)", s)
	}
	return rev, nil
}

// Wire returns the wire string of t under rev. Unknown revisions fall
// back to WireV1.
func (t NotificationType) Wire(rev WireRevision) string {
	names, ok := wireNames[rev]
	if !ok {
		names = wireNames[WireV1]
	}
	return names[t]
}

// FilterValue returns the value for the list endpoint's type query
// parameter. ok is false for NotificationAll, which sends no filter.
func (t NotificationType) FilterValue(rev WireRevision) (value string, ok bool) {
	if t == NotificationAll {
		return "", false
	}
	return t.Wire(rev), true
}

// String returns the v1 wire name.
func (t NotificationType) String() string {
	if s := t.Wire(WireV1); s != "" {
		return s
	}
	return fmt.Sprintf("NotificationType(%d)", int(t))
}

// ParseNotificationType maps a wire string under rev back to its variant.
func ParseNotificationType(rev WireRevision, s string) (NotificationType, error) {
	for t, name := range wireNames[rev] {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown notification type %q for revision %s", s, rev)
}

// MarshalJSON encodes the type with its v1 spelling. Outbound payloads
// that must honour a configured revision carry the wire string directly.
func (t NotificationType) MarshalJSON() ([]byte, error) {
	name := t.Wire(WireV1)
	if name == "" {
		return nil, fmt.Errorf("marshaling unknown notification type %d", int(t))
	}
	return json.Marshal(name)
}

// UnmarshalJSON accepts the spelling of any known revision. The tables
// never map one string to two different variants.
func (t *NotificationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding notification type: %w", err)
	}
	for _, rev := range []WireRevision{WireV1, WireV2} {
		if parsed, err := ParseNotificationType(rev, s); err == nil {
			*t = parsed
			return nil
		}
	}
	return fmt.Errorf("unknown notification type %q", s)
}

// Notification is a server-emitted event as returned by the list
// endpoint. It is read-only on this side.
type Notification struct {
	// ID is the server-assigned notification identifier.
	ID string `json:"id"`

	SenderUserID   string `json:"senderUserId"`
	SenderUsername string `json:"senderUsername"`

	// Type tags which schema Details follows.
	Type NotificationType `json:"type"`

	Message string `json:"message"`

	// Details is a JSON document kept opaque until a consumer that knows
	// the schema for Type decodes it.
	Details string `json:"details"`

	Seen      bool   `json:"seen"`
	CreatedAt string `json:"created_at"`
}

// InstanceID decodes Details as an InstanceID. The caller is expected to
// have checked that Type is NotificationRequestInvite.
func (n Notification) InstanceID() (InstanceID, error) {
	var id InstanceID
	if err := json.Unmarshal([]byte(n.Details), &id); err != nil {
		return InstanceID{}, fmt.Errorf("decoding details of notification %s: %w", n.ID, err)
	}
	return id, nil
}

// NotificationList keeps the order the server returned.
type NotificationList []Notification

// InstanceID identifies a joinable session as "<world>:<instance>".
type InstanceID struct {
	World    string
	Instance string
}

// ParseInstanceID splits the composite "<world>:<instance>" form on the
// first colon; the instance part may itself contain colons.
func ParseInstanceID(s string) (InstanceID, error) {
	world, instance, ok := strings.Cut(s, ":")
	if !ok || world == "" || instance == "" {
		return InstanceID{}, fmt.Errorf("invalid instance id %q: want <world>:<instance>", s)
	}
	return InstanceID{World: world, Instance: instance}, nil
}

func (id InstanceID) String() string {
	return id.World + ":" + id.Instance
}

// MarshalJSON encodes the composite string form.
func (id InstanceID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts the composite string form as well as the object
// form {"world": ..., "instance": ...} that request-invite details use.
func (id *InstanceID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseInstanceID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	var obj struct {
		World    string `json:"world"`
		Instance string `json:"instance"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decoding instance id: %w", err)
	}
	if obj.World == "" || obj.Instance == "" {
		return fmt.Errorf("instance id missing world or instance")
	}
	*id = InstanceID{World: obj.World, Instance: obj.Instance}
	return nil
}
