// Package callbacks provides ready-made step observers for the runner.
package callbacks

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/aoisakanana/railway/pkg/dag"
)

// AuditLogger emits one structured log line per executed step. Payload
// fields named at construction are pulled out of the payload's JSON form
// and attached to the line, so sensitive or bulky payloads stay out of
// the logs unless asked for.
type AuditLogger struct {
	logger     *log.Logger
	workflowID string
	extract    []string
}

// NewAuditLogger builds an audit callback writing to logger. A nil logger
// falls back to the logrus standard logger. extract lists gjson paths to
// lift from the payload into each log line.
func NewAuditLogger(logger *log.Logger, extract ...string) *AuditLogger {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &AuditLogger{logger: logger, workflowID: "unknown", extract: extract}
}

// WithWorkflowID tags every line with a workflow identifier.
func (a *AuditLogger) WithWorkflowID(id string) *AuditLogger {
	a.workflowID = id
	return a
}

// OnStep satisfies dag.StepCallback.
func (a *AuditLogger) OnStep(node string, state dag.StateKey, payload any) error {
	fields := log.Fields{
		"workflow": a.workflowID,
		"node":     node,
		"state":    string(state),
	}
	if len(a.extract) > 0 {
		if b, err := json.Marshal(payload); err == nil {
			for _, path := range a.extract {
				if v := gjson.GetBytes(b, path); v.Exists() {
					fields[path] = v.Value()
				}
			}
		}
	}
	a.logger.WithFields(fields).Info("step executed")
	return nil
}
