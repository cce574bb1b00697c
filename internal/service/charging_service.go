package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"voltbook/internal/models"
	"voltbook/internal/redisstore"
	"voltbook/internal/repository"
)

// Service-level sentinel errors, mapped to HTTP statuses by the handlers.
var (
	ErrInvalidReading   = errors.New("invalid telemetry reading")
	ErrInvalidStatus    = errors.New("booking not accepting telemetry")
	ErrAlreadyCompleted = errors.New("charging already completed")
	ErrNotCharging      = errors.New("booking is not charging")
	ErrNotOwner         = errors.New("booking does not belong to user")
	ErrNoActiveSession  = errors.New("no active charging session")
)

// BookingStore is the subset of booking persistence the charging core needs.
type BookingStore interface {
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	MarkCharging(ctx context.Context, id int64, startedAt time.Time) error
	ListCharging(ctx context.Context, limit int) ([]models.Booking, error)
}

// SessionStore persists charging sessions. Finalize must close the session
// and complete the booking atomically.
type SessionStore interface {
	GetByBookingID(ctx context.Context, bookingID int64) (*models.ChargingSession, error)
	Create(ctx context.Context, session *models.ChargingSession) (*models.ChargingSession, error)
	UpdateProgress(ctx context.Context, bookingID int64, energyKWh float64) error
	Finalize(ctx context.Context, input repository.FinalizeInput) error
}

// StationStore reads station pricing.
type StationStore interface {
	GetByID(ctx context.Context, id int64) (*models.Station, error)
}

// Broadcaster fans out session-state changes to a booking's channel.
type Broadcaster interface {
	Publish(bookingID int64, event string, payload interface{})
}

// LiveStore caches the latest derived view per active booking.
type LiveStore interface {
	Save(ctx context.Context, update models.ChargingUpdate, seenAt time.Time) error
	Get(ctx context.Context, bookingID int64) (*redisstore.LiveSession, error)
	Delete(ctx context.Context, bookingID int64) error
	ListAll(ctx context.Context) ([]redisstore.LiveSession, error)
}

// ChargingService owns real-time charging session tracking: telemetry ingest,
// completion decisions, finalization and broadcast.
type ChargingService struct {
	bookings BookingStore
	sessions SessionStore
	stations StationStore
	live     LiveStore
	hub      Broadcaster
	monitor  *StallMonitor
	logger   *zap.Logger
	locks    keyedMutex
	now      func() time.Time
}

// NewChargingService builds service. live may be nil when redis is not
// configured.
func NewChargingService(
	bookings BookingStore,
	sessions SessionStore,
	stations StationStore,
	live LiveStore,
	hub Broadcaster,
	monitor *StallMonitor,
	logger *zap.Logger,
) *ChargingService {
	return &ChargingService{
		bookings: bookings,
		sessions: sessions,
		stations: stations,
		live:     live,
		hub:      hub,
		monitor:  monitor,
		logger:   logger,
		now:      time.Now,
	}
}

// TelemetryInput is one reading pushed by the charging hardware.
type TelemetryInput struct {
	BookingID             int64
	EnergyConsumed        float64
	CurrentBatteryPercent int
}

// StopInput is an explicit shutdown signal from the hardware side.
type StopInput struct {
	BookingID           int64
	Reason              string
	FinalBatteryPercent *int
	FinalEnergyConsumed *float64
}

// ApplyTelemetry validates and applies one reading, decides completion and
// broadcasts the derived view. Updates for the same booking are serialized.
func (s *ChargingService) ApplyTelemetry(ctx context.Context, input TelemetryInput) (*models.ChargingUpdate, error) {
	if input.EnergyConsumed < 0 {
		return nil, fmt.Errorf("%w: energy_consumed must be >= 0", ErrInvalidReading)
	}
	if input.CurrentBatteryPercent < 0 || input.CurrentBatteryPercent > 100 {
		return nil, fmt.Errorf("%w: current_battery_percent must be 0-100", ErrInvalidReading)
	}

	s.locks.lock(input.BookingID)
	defer s.locks.unlock(input.BookingID)

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}

	if !AcceptsTelemetry(booking.Status) {
		s.logger.Warn("telemetry for booking in invalid status",
			zap.Int64("booking_id", booking.ID),
			zap.String("status", booking.Status),
		)
		return nil, fmt.Errorf("%w: status %s", ErrInvalidStatus, booking.Status)
	}

	session, err := s.sessions.GetByBookingID(ctx, booking.ID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return nil, err
	}

	// Re-confirmation of a finished session. Never re-derive cost or re-emit
	// completion events.
	if session.Ended() {
		return nil, ErrAlreadyCompleted
	}

	now := s.now().UTC()

	// First telemetry for a confirmed booking starts the charge.
	if CanStartCharging(booking.Status) {
		next, err := advanceStatus(booking.Status, EventStartCharging)
		if err != nil {
			return nil, err
		}
		if err := s.bookings.MarkCharging(ctx, booking.ID, now); err != nil {
			return nil, err
		}
		booking.Status = next
		if booking.ActualStart == nil {
			booking.ActualStart = &now
		}
	}

	if session == nil {
		session = &models.ChargingSession{
			BookingID:           booking.ID,
			StartBatteryPercent: input.CurrentBatteryPercent,
			EnergyConsumed:      input.EnergyConsumed,
			StartedAt:           sessionStart(booking, now),
		}
		if session, err = s.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
	}

	// Monotonic guard: a stale retransmission reporting less energy than
	// already stored is ignored in favor of the stored reading.
	energy := input.EnergyConsumed
	if energy < session.EnergyConsumed {
		s.logger.Warn("out-of-order energy reading ignored",
			zap.Int64("booking_id", booking.ID),
			zap.Float64("reported", energy),
			zap.Float64("stored", session.EnergyConsumed),
		)
		energy = session.EnergyConsumed
	}

	station, err := s.stations.GetByID(ctx, booking.StationID)
	if err != nil {
		return nil, err
	}

	if ShouldComplete(input.CurrentBatteryPercent, booking.Status, booking.EndTime, now) {
		reason := ""
		if input.CurrentBatteryPercent >= 100 {
			reason = models.StopReasonBatteryFull
		}
		return s.finalize(ctx, booking, session, station, finalizeArgs{
			endBattery: input.CurrentBatteryPercent,
			energy:     energy,
			endedAt:    now,
			reason:     reason,
		})
	}

	if err := s.sessions.UpdateProgress(ctx, booking.ID, energy); err != nil {
		return nil, err
	}
	session.EnergyConsumed = energy
	s.monitor.RecordUpdate(booking.ID)

	update := s.buildUpdate(booking, session, station, input.CurrentBatteryPercent, now)
	s.saveLive(ctx, update, now)
	s.hub.Publish(booking.ID, models.EventChargingUpdate, update)
	return &update, nil
}

// StopCharging finalizes a session after an explicit shutdown signal, using
// supplied or last-known readings. Returns ErrNotCharging when the booking has
// no open session; callers treat that as an informational no-op.
func (s *ChargingService) StopCharging(ctx context.Context, input StopInput) (*models.ChargingUpdate, error) {
	s.locks.lock(input.BookingID)
	defer s.locks.unlock(input.BookingID)

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusCharging {
		return nil, ErrNotCharging
	}

	session, err := s.sessions.GetByBookingID(ctx, booking.ID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrNotCharging
	}
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, ErrNotCharging
	}

	station, err := s.stations.GetByID(ctx, booking.StationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	battery := s.lastKnownBattery(ctx, session)
	if input.FinalBatteryPercent != nil {
		battery = clampPercent(*input.FinalBatteryPercent)
	}
	energy := session.EnergyConsumed
	if input.FinalEnergyConsumed != nil && *input.FinalEnergyConsumed > energy {
		energy = *input.FinalEnergyConsumed
	}

	reason := input.Reason
	if reason == "" {
		reason = models.StopReasonStalled
	}

	return s.finalize(ctx, booking, session, station, finalizeArgs{
		endBattery: battery,
		energy:     energy,
		endedAt:    now,
		reason:     reason,
		stopped:    true,
	})
}

// CompleteByUser finalizes the owner's session with its last recorded
// readings. No new telemetry is accepted on this path.
func (s *ChargingService) CompleteByUser(ctx context.Context, bookingID, userID int64) (*models.ChargingUpdate, error) {
	s.locks.lock(bookingID)
	defer s.locks.unlock(bookingID)

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotOwner
	}

	session, err := s.sessions.GetByBookingID(ctx, bookingID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, ErrAlreadyCompleted
	}

	station, err := s.stations.GetByID(ctx, booking.StationID)
	if err != nil {
		return nil, err
	}

	return s.finalize(ctx, booking, session, station, finalizeArgs{
		endBattery: s.lastKnownBattery(ctx, session),
		energy:     session.EnergyConsumed,
		endedAt:    s.now().UTC(),
		reason:     models.StopReasonUser,
	})
}

// Status returns the owner's read-only snapshot for initial page load.
// Real-time events supersede it once the viewer subscribes.
func (s *ChargingService) Status(ctx context.Context, bookingID, userID int64) (*models.ChargingSnapshot, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotOwner
	}

	station, err := s.stations.GetByID(ctx, booking.StationID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByBookingID(ctx, bookingID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		session = nil
	} else if err != nil {
		return nil, err
	}

	// A charging booking without a session means the status page loaded
	// before the first reading arrived; create the record so it exists for
	// billing either way.
	if session == nil && booking.Status == models.BookingStatusCharging {
		session = &models.ChargingSession{
			BookingID: booking.ID,
			StartedAt: sessionStart(booking, s.now().UTC()),
		}
		if session, err = s.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	update := s.buildUpdate(booking, session, station, s.lastKnownBattery(ctx, session), now)
	snapshot := models.ChargingSnapshot{
		BookingID:             update.BookingID,
		StationID:             update.StationID,
		Status:                update.Status,
		CurrentBatteryPercent: update.CurrentBatteryPercent,
		StartBatteryPercent:   update.StartBatteryPercent,
		EndBatteryPercent:     update.EndBatteryPercent,
		EnergyConsumed:        update.EnergyConsumed,
		EstimatedCost:         update.EstimatedCost,
		ActualCost:            update.ActualCost,
		TimeRemaining:         update.TimeRemaining,
		Completed:             update.Completed,
		Channel:               models.ChannelName(bookingID),
	}
	return &snapshot, nil
}

// ListActive returns live views of all currently charging bookings.
func (s *ChargingService) ListActive(ctx context.Context, limit int) ([]models.ChargingUpdate, error) {
	bookings, err := s.bookings.ListCharging(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := make([]models.ChargingUpdate, 0, len(bookings))
	for i := range bookings {
		booking := &bookings[i]
		session, err := s.sessions.GetByBookingID(ctx, booking.ID)
		if errors.Is(err, repository.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		station, err := s.stations.GetByID(ctx, booking.StationID)
		if err != nil {
			return nil, err
		}
		updates = append(updates, s.buildUpdate(booking, session, station, s.lastKnownBattery(ctx, session), now))
	}
	return updates, nil
}

// RunStallSweeper periodically forces completion of sessions whose telemetry
// went silent. Blocks until ctx is cancelled.
func (s *ChargingService) RunStallSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepStalled(ctx)
		}
	}
}

func (s *ChargingService) sweepStalled(ctx context.Context) {
	for _, stalled := range s.monitor.ListStalled() {
		s.logger.Info("charging session stalled, forcing completion",
			zap.Int64("booking_id", stalled.BookingID),
			zap.Time("last_seen", stalled.LastSeen),
			zap.Duration("elapsed", stalled.Elapsed),
		)
		_, err := s.StopCharging(ctx, StopInput{
			BookingID: stalled.BookingID,
			Reason:    models.StopReasonStalled,
		})
		if errors.Is(err, ErrNotCharging) {
			// Finalized through another path between sweep and stop.
			s.monitor.Remove(stalled.BookingID)
			continue
		}
		if err != nil {
			s.logger.Error("failed to force-complete stalled session",
				zap.Int64("booking_id", stalled.BookingID),
				zap.Error(err),
			)
		}
	}
}

// ReloadStallTracking re-seeds the monitor from the redis live store after a
// process restart so in-flight sessions are not orphaned.
func (s *ChargingService) ReloadStallTracking(ctx context.Context) error {
	if s.live == nil {
		return nil
	}
	sessions, err := s.live.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, live := range sessions {
		if live.Update.Completed {
			continue
		}
		s.monitor.RecordUpdateAt(live.Update.BookingID, live.LastSeenAt)
	}
	if len(sessions) > 0 {
		s.logger.Info("reloaded stall tracking", zap.Int("sessions", s.monitor.Tracked()))
	}
	return nil
}

type finalizeArgs struct {
	endBattery int
	energy     float64
	endedAt    time.Time
	reason     string
	stopped    bool
}

// finalize is the single completion routine shared by the telemetry,
// stop-signal and user paths: close the session and booking atomically, drop
// stall tracking and broadcast.
func (s *ChargingService) finalize(ctx context.Context, booking *models.Booking, session *models.ChargingSession, station *models.Station, args finalizeArgs) (*models.ChargingUpdate, error) {
	cost := args.energy * station.PricePerKWh

	if err := s.sessions.Finalize(ctx, repository.FinalizeInput{
		BookingID:         booking.ID,
		EndBatteryPercent: args.endBattery,
		EnergyConsumed:    args.energy,
		EndedAt:           args.endedAt,
		ActualCost:        cost,
	}); err != nil {
		return nil, err
	}

	booking.Status = models.BookingStatusCompleted
	session.EndBatteryPercent = &args.endBattery
	session.EnergyConsumed = args.energy
	endedAt := args.endedAt
	session.EndedAt = &endedAt
	session.ActualCost = &cost

	s.monitor.Remove(booking.ID)
	if s.live != nil {
		if err := s.live.Delete(ctx, booking.ID); err != nil {
			s.logger.Warn("failed to drop live session cache",
				zap.Int64("booking_id", booking.ID),
				zap.Error(err),
			)
		}
	}

	update := s.buildUpdate(booking, session, station, args.endBattery, args.endedAt)
	update.StopReason = args.reason

	s.hub.Publish(booking.ID, models.EventChargingUpdate, update)
	s.hub.Publish(booking.ID, models.EventChargingCompleted, update)
	if args.stopped {
		s.hub.Publish(booking.ID, models.EventChargingStopped, update)
	}

	s.logger.Info("charging session completed",
		zap.Int64("booking_id", booking.ID),
		zap.Float64("energy_kwh", args.energy),
		zap.Float64("actual_cost", cost),
		zap.String("reason", args.reason),
	)
	return &update, nil
}

// buildUpdate derives the broadcast/response view from current state.
func (s *ChargingService) buildUpdate(booking *models.Booking, session *models.ChargingSession, station *models.Station, currentBattery int, now time.Time) models.ChargingUpdate {
	update := models.ChargingUpdate{
		BookingID:             booking.ID,
		StationID:             booking.StationID,
		Status:                booking.Status,
		CurrentBatteryPercent: currentBattery,
	}
	if session != nil {
		update.StartBatteryPercent = session.StartBatteryPercent
		update.EndBatteryPercent = session.EndBatteryPercent
		update.EnergyConsumed = session.EnergyConsumed
		update.EstimatedCost = session.EnergyConsumed * station.PricePerKWh
		update.ActualCost = session.ActualCost
		update.Completed = session.Ended()
		update.TimeRemaining = EstimateTimeRemaining(
			session.Ended(),
			session.StartBatteryPercent,
			currentBattery,
			session.StartedAt,
			booking.EndTime,
			now,
		)
	} else {
		update.TimeRemaining = EstimateTimeRemaining(false, 0, 0, now, booking.EndTime, now)
	}
	return update
}

func (s *ChargingService) saveLive(ctx context.Context, update models.ChargingUpdate, seenAt time.Time) {
	if s.live == nil {
		return
	}
	if err := s.live.Save(ctx, update, seenAt); err != nil {
		s.logger.Warn("failed to cache live session",
			zap.Int64("booking_id", update.BookingID),
			zap.Error(err),
		)
	}
}

// lastKnownBattery prefers the live cache, falling back to session bounds.
func (s *ChargingService) lastKnownBattery(ctx context.Context, session *models.ChargingSession) int {
	if session == nil {
		return 0
	}
	if session.EndBatteryPercent != nil {
		return *session.EndBatteryPercent
	}
	if s.live != nil {
		if live, err := s.live.Get(ctx, session.BookingID); err == nil {
			return live.Update.CurrentBatteryPercent
		}
	}
	return session.StartBatteryPercent
}

func sessionStart(booking *models.Booking, now time.Time) time.Time {
	if booking.ActualStart != nil {
		return *booking.ActualStart
	}
	return now
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// keyedMutex serializes work per booking id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id int64) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*lockEntry)
	}
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

func (k *keyedMutex) unlock(id int64) {
	k.mu.Lock()
	entry := k.locks[id]
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}
