package usecases

import (
	"fmt"
	"log"
	"time"

	"brewos-server/cache"
	"brewos-server/entities"
	"brewos-server/repositories"
)

// Reconciler folds a confirmed value into the two stores: append-only
// telemetry history and the current-value cache row (plus the in-memory
// read cache), and raises alarms for blocked commands.
type Reconciler struct {
	telemetry repositories.TelemetryRepository
	alarms    repositories.AlarmRepository
	current   *cache.CurrentCache
}

func NewReconciler(telemetry repositories.TelemetryRepository, alarms repositories.AlarmRepository, current *cache.CurrentCache) *Reconciler {
	return &Reconciler{telemetry: telemetry, alarms: alarms, current: current}
}

// Reconcile records an observed value. The durable writes happen in one
// transaction (history first); the in-memory cache is updated only after
// they commit.
func (r *Reconciler) Reconcile(endpointID, tileID string, v entities.Value, ts time.Time, source string) error {
	currentRow := &entities.CurrentValue{
		EndpointID: endpointID,
		Timestamp:  ts,
		Quality:    entities.QualityGood,
		Source:     source,
	}
	currentRow.SetValue(v)

	reading := &entities.TelemetryReading{
		EndpointID: endpointID,
		TileID:     tileID,
		Timestamp:  ts,
		Quality:    entities.QualityGood,
		Source:     source,
	}
	reading.SetValue(v)

	if err := r.telemetry.RecordObservation(currentRow, reading); err != nil {
		// one compensating retry before giving up
		if err = r.telemetry.RecordObservation(currentRow, reading); err != nil {
			return fmt.Errorf("recording observation for endpoint %s: %w", endpointID, err)
		}
	}

	if r.current != nil {
		r.current.Put(*currentRow)
	}
	return nil
}

// RaiseAlarm creates the alarm record for a blocked command. Severity
// defaults to warning when the decision carries none.
func (r *Reconciler) RaiseAlarm(cmd *entities.Command, decision Decision) {
	severity := decision.Severity
	if severity == "" {
		severity = entities.SeverityWarning
	}
	alarm := &entities.Alarm{
		EndpointID:  cmd.EndpointID,
		TileID:      cmd.TileID,
		InterlockID: decision.InterlockID,
		CommandID:   cmd.ID,
		Severity:    severity,
		Message:     fmt.Sprintf("command blocked: %s", decision.Reason),
		TriggeredAt: cmd.RequestedAt,
	}
	if err := r.alarms.Create(alarm); err != nil {
		// the command row still records the block; losing the alarm is
		// logged, not fatal
		log.Printf("failed to create alarm for command %s: %v", cmd.ID, err)
	}
}
