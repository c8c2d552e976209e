package vrchat

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/nhle/notification-agent/internal/model"
)

// API exposes the notification operations the agent needs on top of a
// Client.
type API struct {
	client   *Client
	revision model.WireRevision
}

// NewAPI wraps client. rev selects the notification-type spelling used
// for list filters and outbound payloads.
func NewAPI(client *Client, rev model.WireRevision) *API {
	return &API{client: client, revision: rev}
}

// Revision returns the wire revision in use.
func (a *API) Revision() model.WireRevision {
	return a.revision
}

// ListNotifications fetches notifications of type t. NotificationAll sends
// no filter and returns every type.
func (a *API) ListNotifications(
	ctx context.Context,
	t model.NotificationType,
) (model.NotificationList, error) {
	var query url.Values
	if value, ok := t.FilterValue(a.revision); ok {
		query = url.Values{"type": []string{value}}
	}

	var list model.NotificationList
	if err := a.client.Do(ctx, ListNotificationsEndpoint(), query, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AcceptFriendRequest accepts the friend request notificationID.
func (a *API) AcceptFriendRequest(ctx context.Context, notificationID string) error {
	return a.client.Do(ctx, AcceptFriendRequestEndpoint(notificationID), nil, emptyBody{}, nil)
}

// HideNotification hides notificationID so it no longer appears in
// listings.
func (a *API) HideNotification(ctx context.Context, notificationID string) error {
	return a.client.Do(ctx, HideNotificationEndpoint(notificationID), nil, emptyBody{}, nil)
}

// SendNotification posts n to targetUserID.
func (a *API) SendNotification(
	ctx context.Context,
	targetUserID string,
	n OutboundNotification,
) error {
	return a.client.Do(ctx, SendNotificationEndpoint(targetUserID), nil, n, nil)
}

// InviteUser sends an Invite notification for instance to userID. The
// details field carries the JSON encoding of the instance id.
func (a *API) InviteUser(
	ctx context.Context,
	userID string,
	instance model.InstanceID,
	message string,
) error {
	details, err := json.Marshal(instance)
	if err != nil {
		return &ParseError{What: "invite details", Err: err}
	}
	return a.SendNotification(ctx, userID, OutboundNotification{
		Type:    model.NotificationInvite.Wire(a.revision),
		Details: string(details),
		Message: message,
	})
}
