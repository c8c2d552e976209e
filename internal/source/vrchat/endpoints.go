package vrchat

import (
	"net/http"
	"net/url"
)

// Endpoint pairs an HTTP verb with a concrete request path.
type Endpoint struct {
	Method string
	Path   string
}

const notificationsPath = "/api/1/auth/user/notifications"

// ListNotificationsEndpoint lists the authenticated user's notifications.
// A type filter, if any, is passed as a query parameter.
func ListNotificationsEndpoint() Endpoint {
	return Endpoint{Method: http.MethodGet, Path: notificationsPath}
}

// SendNotificationEndpoint sends a notification to targetUserID.
func SendNotificationEndpoint(targetUserID string) Endpoint {
	return Endpoint{
		Method: http.MethodPost,
		Path:   "/api/1/auth/user/" + url.PathEscape(targetUserID) + "/notification",
	}
}

// AcceptFriendRequestEndpoint accepts the friend request notificationID.
func AcceptFriendRequestEndpoint(notificationID string) Endpoint {
	return Endpoint{
		Method: http.MethodPut,
		Path:   notificationsPath + "/" + url.PathEscape(notificationID) + "/accept",
	}
}

// HideNotificationEndpoint hides notificationID from future listings.
func HideNotificationEndpoint(notificationID string) Endpoint {
	return Endpoint{
		Method: http.MethodPut,
		Path:   notificationsPath + "/" + url.PathEscape(notificationID) + "/hide",
	}
}
