package diagnosis

import (
	"context"
	"fmt"
	"sync"

	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/meddiag/platform/pkg/common/models"
)

// Watcher follows diagnosis.recorded events and raises a warning for every
// positive prediction at or above the alert threshold.
type Watcher struct {
	threshold float64

	mu     sync.Mutex
	seen   map[string]int
	alerts int
}

func NewWatcher(threshold float64) *Watcher {
	return &Watcher{threshold: threshold, seen: map[string]int{}}
}

func (w *Watcher) Handle(ctx context.Context, event models.Event) error {
	if event.Type != EventDiagnosisRecorded {
		return nil
	}
	code, _ := event.Data["disease_code"].(string)
	probability, ok := event.Data["probability"].(float64)
	if code == "" || !ok {
		return fmt.Errorf("event %s: missing disease_code or probability", event.ID)
	}
	prediction, _ := event.Data["prediction"].(float64)

	w.mu.Lock()
	w.seen[code]++
	alert := prediction == 1 && probability >= w.threshold
	if alert {
		w.alerts++
	}
	w.mu.Unlock()

	entry := logger.Log.WithFields(map[string]interface{}{
		"event_id":     event.ID,
		"diagnosis_id": event.Data["diagnosis_id"],
		"disease_code": code,
		"probability":  probability,
	})
	if alert {
		entry.Warn("High-risk diagnosis recorded")
	} else {
		entry.Debug("Diagnosis recorded")
	}
	return nil
}

// Stats returns events seen per disease code and the number of alerts.
func (w *Watcher) Stats() (map[string]int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[string]int, len(w.seen))
	for k, v := range w.seen {
		seen[k] = v
	}
	return seen, w.alerts
}
