package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/notification-agent/internal/model"
	"github.com/nhle/notification-agent/internal/source/vrchat"
)

// Mode selects what the poller does with the notifications it fetches.
type Mode int

const (
	// ModeAccept accepts every pending friend request.
	ModeAccept Mode = iota
	// ModeInvite answers request-invite notifications with an invite.
	ModeInvite
)

// ParseMode maps the CLI mode argument to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "accept":
		return ModeAccept, nil
	case "invite":
		return ModeInvite, nil
	}
	return 0, fmt.Errorf("unrecognized mode %s, supported modes: accept, invite", s)
}

func (m Mode) String() string {
	switch m {
	case ModeAccept:
		return "accept"
	case ModeInvite:
		return "invite"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// filter is the server-side notification type fetched in this mode.
func (m Mode) filter() model.NotificationType {
	if m == ModeInvite {
		return model.NotificationRequestInvite
	}
	return model.NotificationFriendRequest
}

// State is the poller's position in its cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateActing
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateActing:
		return "acting"
	case StateSleeping:
		return "sleeping"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// NotificationAPI is the subset of the REST API the poller drives.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, t model.NotificationType) (model.NotificationList, error)
	AcceptFriendRequest(ctx context.Context, notificationID string) error
	HideNotification(ctx context.Context, notificationID string) error
	InviteUser(ctx context.Context, userID string, instance model.InstanceID, message string) error
}

// ItemError records the failure of a single notification.
type ItemError struct {
	NotificationID string
	Err            error
}

// CycleResult summarizes one fetch-and-process pass.
type CycleResult struct {
	ID        string
	Fetched   int
	Succeeded int
	Failed    int

	// FetchErr is set when listing failed; no items were processed.
	FetchErr error
	ItemErrs []ItemError
}

// Poller runs the fetch, act, sleep loop for a single mode. It is not
// safe for concurrent use; one goroutine owns it and its API.
type Poller struct {
	api      NotificationAPI
	mode     Mode
	interval time.Duration
	logger   *slog.Logger
	state    State

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a Poller. A nil logger uses slog.Default.
func New(api NotificationAPI, mode Mode, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		api:      api,
		mode:     mode,
		interval: interval,
		logger:   logger.With("mode", mode.String()),
		state:    StateIdle,
		wait:     sleepContext,
	}
}

// State returns the poller's current state.
func (p *Poller) State() State {
	return p.state
}

// Run polls until ctx is cancelled. Errors from a cycle are logged and
// never stop the loop. It returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.interval)
	for {
		p.RunCycle(ctx)

		p.state = StateSleeping
		if err := p.wait(ctx, p.interval); err != nil {
			p.state = StateIdle
			p.logger.Info("poller stopped")
			return err
		}
	}
}

// RunCycle fetches the mode's notifications once and processes each in
// server order. A failing item is logged and skipped.
func (p *Poller) RunCycle(ctx context.Context) CycleResult {
	result := CycleResult{ID: uuid.New().String()}
	log := p.logger.With("cycle_id", result.ID)

	p.state = StateFetching
	list, err := p.api.ListNotifications(ctx, p.mode.filter())
	if err != nil {
		result.FetchErr = err
		p.state = StateIdle
		log.Error("error while fetching notifications", "error", err)
		return result
	}
	result.Fetched = len(list)

	p.state = StateActing
	for _, n := range list {
		if err := p.process(ctx, log, n); err != nil {
			result.Failed++
			result.ItemErrs = append(result.ItemErrs, ItemError{
				NotificationID: n.ID,
				Err:            err,
			})
			log.Error("failed to process notification",
				"notification_id", n.ID,
				"sender", n.SenderUsername,
				"error", err,
			)
			continue
		}
		result.Succeeded++
	}

	p.state = StateIdle
	if result.Fetched > 0 {
		log.Info("cycle complete",
			"fetched", result.Fetched,
			"succeeded", result.Succeeded,
			"failed", result.Failed,
		)
	}
	return result
}

func (p *Poller) process(ctx context.Context, log *slog.Logger, n model.Notification) error {
	switch p.mode {
	case ModeAccept:
		return p.acceptFriendRequest(ctx, log, n)
	case ModeInvite:
		return p.handleInviteRequest(ctx, log, n)
	}
	return fmt.Errorf("unsupported mode %s", p.mode)
}

func (p *Poller) acceptFriendRequest(ctx context.Context, log *slog.Logger, n model.Notification) error {
	log.Info("accepting friend request from "+n.SenderUsername, "notification_id", n.ID)
	if err := p.api.AcceptFriendRequest(ctx, n.ID); err != nil {
		return fmt.Errorf("accepting friend request %s: %w", n.ID, err)
	}
	return nil
}

// handleInviteRequest hides the request before inviting, so a failure
// later in the item never leads to a duplicate invite next cycle. The
// invite is lost if sending fails after the hide succeeded.
func (p *Poller) handleInviteRequest(ctx context.Context, log *slog.Logger, n model.Notification) error {
	log.Info("handling invite request from "+n.SenderUsername, "notification_id", n.ID)

	if err := p.api.HideNotification(ctx, n.ID); err != nil {
		return fmt.Errorf("hiding notification %s: %w", n.ID, err)
	}

	instance, err := n.InstanceID()
	if err != nil {
		return &vrchat.ParseError{What: "request-invite details", Err: err}
	}

	if err := p.api.InviteUser(ctx, n.SenderUserID, instance, n.Message); err != nil {
		return fmt.Errorf("inviting %s to %s: %w", n.SenderUserID, instance, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
