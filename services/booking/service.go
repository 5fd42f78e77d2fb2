// Package booking drives the end-to-end availability check: resolve a
// subscription, walk the wizard, enumerate candidate dates, collect and
// log slot observations, then apply the operator's decision.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"neptun/lib/scrapers/registo"
	"neptun/services/availability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/booking")

type Subscription struct {
	Code string
	Name string
}

type Credentials struct {
	Email    string
	Password string
}

// WizardClient is the slice of the registo client this service drives.
// It exists so tests can script the upstream side.
type WizardClient interface {
	Initialize(ctx context.Context, subscriptionCode string) (registo.Constraints, bool, error)
	SlotsForDate(ctx context.Context, date time.Time) ([]registo.Slot, error)
	Book(ctx context.Context, intervalID string) (bool, error)
	Login(ctx context.Context, email, password string) (bool, error)
	Appointments(ctx context.Context) ([]registo.Appointment, bool, error)
}

type SlotOption struct {
	Date time.Time
	Slot registo.Slot
}

// Decider is the source of the human decision in the middle of the
// flow: a console adapter in the CLI, a double in tests.
type Decider interface {
	// PickSlot presents the 1-indexed options and returns the chosen
	// index. ok=false is a deliberate skip (or an invalid selection
	// already reported to the operator), not an error.
	PickSlot(options []SlotOption) (choice int, ok bool, err error)
	Confirm(prompt string) (bool, error)
}

type Notifier interface {
	Send(subject, body string) error
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInvalidSubscription
	OutcomeNoAvailability
	OutcomeBookingFailed
	OutcomeNetworkError
	OutcomeUnknown
)

type Options struct {
	// optional, enables post-booking verification via the
	// appointments listing
	Credentials *Credentials
	// optional, told about bookable slots before the interactive step
	Notifier Notifier
}

type Service struct {
	client  WizardClient
	log     availability.Store
	decider Decider
	opts    Options
}

func NewService(client WizardClient, log availability.Store, decider Decider, opts Options) Service {
	return Service{
		client:  client,
		log:     log,
		decider: decider,
		opts:    opts,
	}
}

type CheckRequest struct {
	Subscription Subscription
	WindowDays   int
	// optional substring filter on the slot time range
	TimeFilter string
}

// CheckAvailability runs one full session: initialize, enumerate
// candidate dates, query each date sequentially, log every observation
// (zero-availability included), offer the bookable remainder to the
// decider and book at most once. Transport failures map to
// OutcomeNetworkError; an invalid subscription code is
// OutcomeInvalidSubscription, not an error.
func (s Service) CheckAvailability(ctx context.Context, req CheckRequest) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "CheckAvailability")
	defer span.End()

	sessionID, err := availability.NewSessionID()
	if err != nil {
		// the log must never block the booking flow
		slog.WarnContext(ctx, "failed to generate session id", "err", err)
		sessionID = "unknown"
	}
	slog.InfoContext(ctx, "checking availability",
		"subscription", req.Subscription.Name,
		"window_days", req.WindowDays,
		"session_id", sessionID,
	)

	constraints, ok, err := s.client.Initialize(ctx, req.Subscription.Code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wizard initialization failed")
		return OutcomeNetworkError, err
	}
	if !ok {
		slog.WarnContext(ctx, "subscription code rejected", "subscription", req.Subscription.Name)
		return OutcomeInvalidSubscription, nil
	}

	dates := registo.CandidateDates(constraints, time.Now(), req.WindowDays)
	slog.InfoContext(ctx, "resolved candidate dates", "count", len(dates))

	var options []SlotOption
	for i, date := range dates {
		slog.InfoContext(ctx, "querying slots",
			"date", date.Format("2006-01-02"),
			"progress", fmt.Sprintf("%d/%d", i+1, len(dates)),
		)
		slots, err := s.client.SlotsForDate(ctx, date)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "slot query failed")
			return OutcomeNetworkError, err
		}

		for _, slot := range slots {
			err := s.log.Record(ctx, availability.Observation{
				Time:             time.Now(),
				SubscriptionCode: req.Subscription.Code,
				Date:             date.Format("2006-01-02"),
				TimeSlot:         slot.TimeRange,
				SpotsAvailable:   slot.Spots,
				SessionID:        sessionID,
			})
			if err != nil {
				slog.WarnContext(ctx, "failed to record observation", "err", err)
			}

			if slot.Spots <= 0 {
				continue
			}
			if req.TimeFilter != "" && !strings.Contains(slot.TimeRange, req.TimeFilter) {
				continue
			}
			options = append(options, SlotOption{Date: date, Slot: slot})
		}
	}

	if len(options) == 0 {
		slog.InfoContext(ctx, "no bookable slots found")
		return OutcomeNoAvailability, nil
	}

	if s.opts.Notifier != nil {
		err := s.opts.Notifier.Send(
			fmt.Sprintf("Neptun: %d bookable slot(s) for %s", len(options), req.Subscription.Name),
			formatOptions(options),
		)
		if err != nil {
			slog.WarnContext(ctx, "failed to send notification", "err", err)
		}
	}

	choice, picked, err := s.decider.PickSlot(options)
	if err != nil {
		return OutcomeUnknown, err
	}
	if !picked {
		slog.InfoContext(ctx, "no slot selected, skipping booking")
		return OutcomeSuccess, nil
	}
	if choice < 1 || choice > len(options) {
		slog.WarnContext(ctx, "selection out of range, skipping booking", "choice", choice)
		return OutcomeSuccess, nil
	}
	chosen := options[choice-1]

	confirmed, err := s.decider.Confirm(fmt.Sprintf(
		"book %s %s?",
		chosen.Date.Format("2006-01-02"),
		chosen.Slot.TimeRange,
	))
	if err != nil {
		return OutcomeUnknown, err
	}
	if !confirmed {
		slog.InfoContext(ctx, "booking not confirmed, skipping")
		return OutcomeSuccess, nil
	}

	booked, err := s.client.Book(ctx, chosen.Slot.IntervalID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "booking request failed")
		return OutcomeNetworkError, err
	}
	if !booked {
		slog.ErrorContext(ctx, "booking rejected",
			"date", chosen.Date.Format("2006-01-02"),
			"time", chosen.Slot.TimeRange,
		)
		return OutcomeBookingFailed, nil
	}

	slog.InfoContext(ctx, "booked",
		"date", chosen.Date.Format("2006-01-02"),
		"time", chosen.Slot.TimeRange,
	)
	// the register step's success signal is only the transport status,
	// so double check against the appointments listing when we can
	if s.opts.Credentials != nil {
		s.verifyBooking(ctx, chosen)
	}
	return OutcomeSuccess, nil
}

func (s Service) verifyBooking(ctx context.Context, chosen SlotOption) {
	ctx, span := tracer.Start(ctx, "verifyBooking")
	defer span.End()

	ok, err := s.client.Login(ctx, s.opts.Credentials.Email, s.opts.Credentials.Password)
	if err != nil || !ok {
		slog.WarnContext(ctx, "could not log in to verify booking", "err", err)
		return
	}
	rows, ok, err := s.client.Appointments(ctx)
	if err != nil || !ok {
		slog.WarnContext(ctx, "could not list appointments to verify booking", "err", err)
		return
	}

	date := chosen.Date.Format("2006-01-02")
	for _, row := range rows {
		joined := strings.Join(row.Cells, " ")
		if strings.Contains(joined, date) && strings.Contains(joined, chosen.Slot.TimeRange) {
			slog.InfoContext(ctx, "booking verified in appointments listing")
			return
		}
	}
	slog.WarnContext(ctx, "booking reported success but is not visible in the appointments listing",
		"date", date,
		"time", chosen.Slot.TimeRange,
	)
}

func formatOptions(options []SlotOption) string {
	var b strings.Builder
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s %s (%d spots)\n",
			i+1,
			opt.Date.Format("2006-01-02"),
			opt.Slot.TimeRange,
			opt.Slot.Spots,
		)
	}
	return b.String()
}
