package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/t77yq/bdmon/internal/model"
)

// SparkTimeLayout is the timestamp format of the history server REST API
const SparkTimeLayout = "2006-01-02T15:04:05.000GMT"

// SparkAttempt is one attempt of a listed application
type SparkAttempt struct {
	StartTime string      `json:"startTime"`
	SparkUser string      `json:"sparkUser"`
	Duration  json.Number `json:"duration"`
}

// SparkApplication is one entry of /applications
type SparkApplication struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Attempts []SparkAttempt `json:"attempts"`
}

// ParseSparkTime parses a history server timestamp, falling back when empty or malformed
func ParseSparkTime(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(SparkTimeLayout, s); err == nil {
		return t
	}
	return fallback
}

// SparkApp builds the application record from its first attempt.
// It reports false when the application has no attempts.
func SparkApp(host string, app SparkApplication, fallback time.Time) (model.SparkApp, bool) {
	if app.ID == "" || len(app.Attempts) == 0 {
		return model.SparkApp{}, false
	}
	attempt := app.Attempts[0]
	duration, _ := model.Numeric(attempt.Duration)
	return model.SparkApp{
		Host:      host,
		ID:        app.ID,
		Name:      app.Name,
		StartedAt: ParseSparkTime(attempt.StartTime, fallback),
		StartText: attempt.StartTime,
		User:      attempt.SparkUser,
		Duration:  duration,
	}, true
}

// SparkExecutors emits (app, host, metric, value, addTime) rows for each
// executor's numeric fields and memoryMetrics
func SparkExecutors(appID string, executors []map[string]interface{}, fallback time.Time) model.Batch {
	batch := model.Batch{Statement: model.StatementSparkExecutor}
	for _, exec := range executors {
		doc := model.NewDocument(exec)
		host := strings.SplitN(doc.String("hostPort"), ":", 2)[0]
		at := ParseSparkTime(doc.String("addTime"), fallback)
		prefix := []interface{}{appID, host}

		batch.Rows = append(batch.Rows, numericRows(doc, prefix, at)...)
		if memory, ok := exec["memoryMetrics"].(map[string]interface{}); ok {
			batch.Rows = append(batch.Rows, numericRows(model.NewDocument(memory), prefix, at)...)
		}
	}
	return batch
}

var stageIdentity = map[string]bool{"stageId": true, "attemptId": true}

// SparkStages emits (app, stage, metric, value, submissionTime) rows. Stages
// that never ran have no submission time and are returned as skipped ids.
func SparkStages(appID string, stages []map[string]interface{}) (model.Batch, []string) {
	batch := model.Batch{Statement: model.StatementSparkStage}
	var skipped []string
	for _, stage := range stages {
		doc := model.NewDocument(stage)
		stageID, _ := model.Numeric(stage["stageId"])

		submitted := doc.String("submissionTime")
		at, err := time.Parse(SparkTimeLayout, submitted)
		if err != nil {
			skipped = append(skipped, stageKey(stage["stageId"]))
			continue
		}

		for _, key := range doc.Keys() {
			if stageIdentity[key] {
				continue
			}
			value, ok := model.Numeric(stage[key])
			if !ok {
				continue
			}
			batch.Rows = append(batch.Rows, model.Row{
				Context: []interface{}{appID, int64(stageID)},
				Metric:  key,
				Value:   value,
				At:      at,
			})
		}
	}
	return batch, skipped
}

func stageKey(v interface{}) string {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return "?"
}
