package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueredo/clima-alerta/internal/domain"
	"github.com/mfigueredo/clima-alerta/internal/engine"
	"github.com/mfigueredo/clima-alerta/internal/observability"
)

// --- mocks ---

type storedAlert struct {
	kind      domain.AlertKind
	message   string
	readingID int64
}

type mockStorage struct {
	readings []domain.Reading
	alerts   []storedAlert

	readingErr error
	alertErr   error
}

func (m *mockStorage) InsertReading(_ context.Context, r domain.Reading) (int64, error) {
	if m.readingErr != nil {
		return 0, m.readingErr
	}
	m.readings = append(m.readings, r)
	return int64(len(m.readings)), nil
}

func (m *mockStorage) InsertAlert(_ context.Context, kind domain.AlertKind, message string, readingID int64) (int64, error) {
	if m.alertErr != nil {
		return 0, m.alertErr
	}
	m.alerts = append(m.alerts, storedAlert{kind: kind, message: message, readingID: readingID})
	return int64(len(m.alerts)) + 100, nil
}

type deliveredAdvisory struct {
	date   time.Time
	rainMM float64
}

type mockNotifier struct {
	alerts     []string
	advisories []deliveredAdvisory
	errorsSent []string

	alertErr    error
	advisoryErr error
}

func (m *mockNotifier) DeliverAlert(_ context.Context, message string, _ int64) error {
	if m.alertErr != nil {
		return m.alertErr
	}
	m.alerts = append(m.alerts, message)
	return nil
}

func (m *mockNotifier) DeliverForecastAdvisory(_ context.Context, date time.Time, rainMM float64, _ string) error {
	if m.advisoryErr != nil {
		return m.advisoryErr
	}
	m.advisories = append(m.advisories, deliveredAdvisory{date: date, rainMM: rainMM})
	return nil
}

func (m *mockNotifier) DeliverError(_ context.Context, component, errText string) error {
	m.errorsSent = append(m.errorsSent, component+": "+errText)
	return nil
}

// mockPredictor returns a fixed probability.
type mockPredictor struct {
	prob  float64
	ready bool
	ok    bool
}

func (m *mockPredictor) Ready() bool { return m.ready }

func (m *mockPredictor) Predict(_, _, _ float64) (domain.Prediction, bool) {
	if !m.ok {
		return domain.Prediction{}, false
	}
	class := 0
	if m.prob >= 0.5 {
		class = 1
	}
	return domain.Prediction{Class: class, RiskProbability: m.prob}, true
}

func testThresholds() domain.Thresholds {
	return domain.Thresholds{
		TempMax:            35,
		TempMin:            0,
		HumidityMax:        90,
		RainLimitMM:        20,
		ModelProbThreshold: 0.75,
	}
}

func quietReading() domain.Reading {
	return domain.Reading{
		Timestamp:   time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC),
		Temperature: 22,
		Humidity:    60,
		RainMM:      2,
		Condition:   "Clear sky",
	}
}

func newEngine(s *mockStorage, n *mockNotifier, p domain.RiskPredictor) *engine.Engine {
	return engine.New(s, n, p, testThresholds(), slog.Default(), observability.NewMetricsForTesting())
}

// --- evaluation tests ---

func TestEvaluate_ThresholdBreach_RaisesThresholdAlert(t *testing.T) {
	storage := &mockStorage{}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, nil)

	reading := quietReading()
	reading.Temperature = 38

	decision, err := eng.Evaluate(context.Background(), reading)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeThreshold, decision.Outcome)
	assert.False(t, decision.ModelConsulted)

	require.Len(t, storage.readings, 1)
	require.Len(t, storage.alerts, 1)
	assert.Equal(t, domain.KindThreshold, storage.alerts[0].kind)
	assert.Equal(t, int64(1), storage.alerts[0].readingID)

	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "RISK ALERT")
	assert.Contains(t, notifier.alerts[0], "thresholds exceeded")
	assert.NotContains(t, notifier.alerts[0], "Model risk probability")
}

func TestEvaluate_ModelOnly_RaisesModelAlert(t *testing.T) {
	storage := &mockStorage{}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, &mockPredictor{prob: 0.9, ready: true, ok: true})

	decision, err := eng.Evaluate(context.Background(), quietReading())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeModel, decision.Outcome)
	assert.True(t, decision.ModelConsulted)
	assert.Equal(t, 0.9, decision.Probability)

	require.Len(t, storage.alerts, 1)
	assert.Equal(t, domain.KindModel, storage.alerts[0].kind)

	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "model prediction")
	assert.Contains(t, notifier.alerts[0], "Model risk probability: 90.0%")
}

func TestEvaluate_BothFire_ThresholdKindWins(t *testing.T) {
	storage := &mockStorage{}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, &mockPredictor{prob: 0.95, ready: true, ok: true})

	reading := quietReading()
	reading.RainMM = 25

	decision, err := eng.Evaluate(context.Background(), reading)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeBoth, decision.Outcome)
	require.Len(t, storage.alerts, 1)
	assert.Equal(t, domain.KindThreshold, storage.alerts[0].kind)
	assert.Contains(t, notifier.alerts[0], "thresholds exceeded and model prediction")
}

func TestEvaluate_QuietConditions_NoSideEffects(t *testing.T) {
	storage := &mockStorage{}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, &mockPredictor{prob: 0.2, ready: true, ok: true})

	decision, err := eng.Evaluate(context.Background(), quietReading())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeNoAlert, decision.Outcome)
	assert.Empty(t, storage.readings)
	assert.Empty(t, storage.alerts)
	assert.Empty(t, notifier.alerts)
}

func TestEvaluate_ProbabilityAtThreshold_Fires(t *testing.T) {
	storage := &mockStorage{}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, &mockPredictor{prob: 0.75, ready: true, ok: true})

	decision, err := eng.Evaluate(context.Background(), quietReading())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeModel, decision.Outcome)
	require.Len(t, storage.alerts, 1)
}

func TestEvaluate_PredictorNotReady_RuleOnly(t *testing.T) {
	storage := &mockStorage{}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, &mockPredictor{prob: 0.99, ready: false})

	decision, err := eng.Evaluate(context.Background(), quietReading())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeNoAlert, decision.Outcome)
	assert.False(t, decision.ModelConsulted)
}

func TestEvaluate_InvalidReading_ReportsAndAborts(t *testing.T) {
	storage := &mockStorage{}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, nil)

	reading := quietReading()
	reading.Humidity = math.NaN()

	_, err := eng.Evaluate(context.Background(), reading)
	require.ErrorIs(t, err, domain.ErrIncompleteReading)

	assert.Empty(t, storage.readings)
	assert.Empty(t, notifier.alerts)
	require.Len(t, notifier.errorsSent, 1)
	assert.Contains(t, notifier.errorsSent[0], "decision_engine")
}

func TestEvaluate_ReadingPersistFails_StopsBeforeAlert(t *testing.T) {
	storage := &mockStorage{readingErr: errors.New("connection reset")}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, nil)

	reading := quietReading()
	reading.Temperature = 40

	_, err := eng.Evaluate(context.Background(), reading)
	require.Error(t, err)

	assert.Empty(t, storage.alerts)
	assert.Empty(t, notifier.alerts)
	require.Len(t, notifier.errorsSent, 1)
}

func TestEvaluate_AlertPersistFails_StopsBeforeDelivery(t *testing.T) {
	storage := &mockStorage{alertErr: errors.New("constraint violation")}
	notifier := &mockNotifier{}
	eng := newEngine(storage, notifier, nil)

	reading := quietReading()
	reading.Temperature = 40

	_, err := eng.Evaluate(context.Background(), reading)
	require.Error(t, err)

	assert.Len(t, storage.readings, 1)
	assert.Empty(t, notifier.alerts)
}

func TestEvaluate_DeliveryFails_AlertStillPersisted(t *testing.T) {
	storage := &mockStorage{}
	notifier := &mockNotifier{alertErr: errors.New("broker unavailable")}
	metrics := observability.NewMetricsForTesting()
	eng := engine.New(storage, notifier, nil, testThresholds(), slog.Default(), metrics)

	reading := quietReading()
	reading.Temperature = 40

	decision, err := eng.Evaluate(context.Background(), reading)
	require.Error(t, err)

	assert.Len(t, storage.alerts, 1)
	assert.NotZero(t, decision.AlertID)

	// The persisted alert counts even though delivery failed.
	counted := testutil.ToFloat64(metrics.AlertsTotal.WithLabelValues(string(domain.KindThreshold)))
	assert.Equal(t, 1.0, counted)
}

// --- forecast tests ---

func forecastDay(offset int, rainMM float64) domain.ForecastDay {
	return domain.ForecastDay{
		Date:      time.Date(2026, time.February, 10+offset, 0, 0, 0, 0, time.UTC),
		RainMM:    rainMM,
		Condition: "Heavy rain",
	}
}

func TestEvaluateForecast_AdvisoryForHeavyRain(t *testing.T) {
	notifier := &mockNotifier{}
	eng := newEngine(&mockStorage{}, notifier, nil)

	days := []domain.ForecastDay{forecastDay(0, 5), forecastDay(1, 32)}
	err := eng.EvaluateForecast(context.Background(), days)
	require.NoError(t, err)

	require.Len(t, notifier.advisories, 1)
	assert.Equal(t, 32.0, notifier.advisories[0].rainMM)
}

func TestEvaluateForecast_RainAtLimit_Fires(t *testing.T) {
	notifier := &mockNotifier{}
	eng := newEngine(&mockStorage{}, notifier, nil)

	err := eng.EvaluateForecast(context.Background(), []domain.ForecastDay{forecastDay(0, 20)})
	require.NoError(t, err)
	assert.Len(t, notifier.advisories, 1)
}

func TestEvaluateForecast_OnlyFirstTwoDaysConsidered(t *testing.T) {
	notifier := &mockNotifier{}
	eng := newEngine(&mockStorage{}, notifier, nil)

	days := []domain.ForecastDay{forecastDay(0, 1), forecastDay(1, 2), forecastDay(2, 99)}
	err := eng.EvaluateForecast(context.Background(), days)
	require.NoError(t, err)

	assert.Empty(t, notifier.advisories)
}

func TestEvaluateForecast_DeliveryFailureAbortsScan(t *testing.T) {
	notifier := &mockNotifier{advisoryErr: errors.New("broker unavailable")}
	eng := newEngine(&mockStorage{}, notifier, nil)

	days := []domain.ForecastDay{forecastDay(0, 30), forecastDay(1, 40)}
	err := eng.EvaluateForecast(context.Background(), days)
	require.Error(t, err)

	assert.Empty(t, notifier.advisories)
}

func TestEvaluateForecast_NoDays_NoAdvisories(t *testing.T) {
	notifier := &mockNotifier{}
	eng := newEngine(&mockStorage{}, notifier, nil)

	require.NoError(t, eng.EvaluateForecast(context.Background(), nil))
	assert.Empty(t, notifier.advisories)
}
