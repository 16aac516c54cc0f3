package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"ict-ledger/database"
	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// SignalLedger records detector signals and their eventual outcome.
// A signal does not need a position; positions may link to one.
type SignalLedger struct {
	storage  *database.LocalStorage
	metrics  *Metrics
	clock    interfaces.Clock
	location *time.Location
	logger   *logrus.Logger
}

func NewSignalLedger(storage *database.LocalStorage, metrics *Metrics, clock interfaces.Clock, location *time.Location, logger *logrus.Logger) *SignalLedger {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	if clock == nil {
		clock = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &SignalLedger{
		storage:  storage,
		metrics:  metrics,
		clock:    clock,
		location: location,
		logger:   logger,
	}
}

// Record stores a new pending signal. Missing confidence is scored from the
// ICT elements and a missing session is classified from the detection time.
func (s *SignalLedger) Record(ctx context.Context, req interfaces.SignalRequest) (*interfaces.Signal, error) {
	const op = "record_signal"

	if err := validateStruct(op, req); err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, interfaces.ValidationError(op, "symbol is required")
	}
	if !req.EntryPrice.IsPositive() || !req.StopLoss.IsPositive() {
		return nil, interfaces.ValidationError(op, "entry_price and stop_loss must be positive")
	}

	long := req.SignalType == interfaces.SideLong
	if long && !req.StopLoss.LessThan(req.EntryPrice) {
		return nil, interfaces.ValidationError(op, "long signal needs stop_loss below entry_price")
	}
	if !long && !req.StopLoss.GreaterThan(req.EntryPrice) {
		return nil, interfaces.ValidationError(op, "short signal needs stop_loss above entry_price")
	}
	for i, target := range req.Targets {
		if long && !target.GreaterThan(req.EntryPrice) {
			return nil, interfaces.ValidationError(op, "target %d must be above entry_price for a long signal", i+1)
		}
		if !long && (!target.LessThan(req.EntryPrice) || !target.IsPositive()) {
			return nil, interfaces.ValidationError(op, "target %d must be below entry_price and positive for a short signal", i+1)
		}
	}

	confidence := ScoreConfluence(req.ICTElements, req.SignalType)
	if req.Confidence != nil {
		if req.Confidence.IsNegative() || req.Confidence.GreaterThan(maxConfidence) {
			return nil, interfaces.ValidationError(op, "confidence must be between 0 and 100, got %s", req.Confidence)
		}
		confidence = *req.Confidence
	}

	detectedAt := s.clock()
	if req.DetectedAt != nil && !req.DetectedAt.IsZero() {
		detectedAt = *req.DetectedAt
	}
	detectedAt = detectedAt.UTC()

	session := req.Session
	if session == "" {
		session = ClassifySession(detectedAt, s.location)
	} else if !validSession(session) {
		return nil, interfaces.ValidationError(op, "unknown session %q", session)
	}

	risk := req.EntryPrice.Sub(req.StopLoss).Abs()
	reward := req.Targets[0].Sub(req.EntryPrice).Abs()

	row := &models.DBSignal{
		SignalID:        database.NewID(database.PrefixSignal),
		Symbol:          symbol,
		SignalType:      string(req.SignalType),
		Trigger:         string(req.Trigger),
		Confidence:      confidence,
		EntryPrice:      req.EntryPrice,
		StopLoss:        req.StopLoss,
		Targets:         datatypes.NewJSONSlice(req.Targets),
		RiskReward:      reward.DivRound(risk, 4),
		ICTElements:     datatypes.NewJSONType(req.ICTElements),
		MarketStructure: req.MarketStructure,
		Session:         string(session),
		Timeframe:       req.Timeframe,
		Outcome:         string(interfaces.OutcomePending),
		DetectedAt:      detectedAt,
		Notes:           req.Notes,
	}
	if err := s.storage.SaveSignal(ctx, row); err != nil {
		return nil, interfaces.Internal(op, err)
	}

	s.metrics.signalRecorded(req.Trigger)
	s.logger.WithFields(logrus.Fields{
		"signal_id":  row.SignalID,
		"symbol":     symbol,
		"trigger":    req.Trigger,
		"confidence": confidence.String(),
		"session":    session,
	}).Info("Signal recorded")

	return dbToSignal(row), nil
}

// Resolve settles a pending signal: win for pnl > 0, loss for pnl < 0 and
// breakeven otherwise. A signal resolves exactly once.
func (s *SignalLedger) Resolve(ctx context.Context, signalID string, exitPrice, pnl decimal.Decimal) (*interfaces.Signal, error) {
	const op = "resolve_signal"

	if strings.TrimSpace(signalID) == "" {
		return nil, interfaces.ValidationError(op, "signal id is required")
	}
	if !exitPrice.IsPositive() {
		return nil, interfaces.ValidationError(op, "exit price must be positive, got %s", exitPrice)
	}

	outcome := interfaces.OutcomeFromPnL(pnl)
	if err := s.storage.ResolveSignal(ctx, signalID, outcome, exitPrice, pnl, s.clock()); err != nil {
		return nil, interfaces.Internal(op, err)
	}

	s.metrics.signalResolved(outcome)
	s.logger.WithFields(logrus.Fields{
		"signal_id": signalID,
		"outcome":   outcome,
		"pnl":       pnl.String(),
	}).Info("Signal resolved")

	return s.Get(ctx, signalID)
}

func (s *SignalLedger) Get(ctx context.Context, signalID string) (*interfaces.Signal, error) {
	row, err := s.storage.GetSignal(ctx, signalID)
	if err != nil {
		return nil, interfaces.Internal("get_signal", err)
	}
	return dbToSignal(row), nil
}

func (s *SignalLedger) List(ctx context.Context, filter interfaces.SignalFilter) ([]*interfaces.Signal, error) {
	filter.Symbol = strings.ToUpper(strings.TrimSpace(filter.Symbol))
	switch filter.Outcome {
	case "", interfaces.OutcomePending, interfaces.OutcomeWin, interfaces.OutcomeLoss, interfaces.OutcomeBreakeven:
	default:
		return nil, interfaces.ValidationError("list_signals", "unknown outcome %q", filter.Outcome)
	}
	rows, err := s.storage.ListSignals(ctx, filter)
	if err != nil {
		return nil, interfaces.Internal("list_signals", err)
	}
	signals := make([]*interfaces.Signal, len(rows))
	for i, row := range rows {
		signals[i] = dbToSignal(row)
	}
	return signals, nil
}
