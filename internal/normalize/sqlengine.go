package normalize

import (
	"regexp"
	"strings"

	"github.com/t77yq/bdmon/internal/model"
)

var sqlEngineNoise = regexp.MustCompile(`Count|Valid|Value`)

// SQLEngine shapes HiveServer2 documents. Timer, counter and gauge families
// share one type tag, so a document is kept only when one of its matching
// rules accepts the document name. All metric rows of the node form one batch.
func SQLEngine(docs []model.Document, rules []model.Rule, c Context) []model.Batch {
	var rows, osRows []model.Row
	for _, doc := range docs {
		matched := model.Match(rules, doc.Type)
		if len(matched) == 0 {
			continue
		}
		if IsHostOS(doc.Type) {
			osRows = append(osRows, HostRows(doc, c)...)
			continue
		}
		if !acceptsName(matched, doc.Name) {
			continue
		}

		docType := strings.ReplaceAll(doc.Type, "$", "")
		for _, key := range doc.Keys() {
			value, ok := model.Numeric(doc.Fields[key])
			if !ok {
				continue
			}
			rows = append(rows, model.Row{
				Context: []interface{}{c.Node, docType},
				Metric:  SQLEngineMetricName(doc.Name, key),
				Value:   value,
				At:      c.At,
			})
		}
	}
	return batches(
		model.Batch{Statement: model.StatementHiveServer, Rows: rows},
		model.Batch{Statement: model.StatementHostOS, Rows: osRows},
	)
}

func acceptsName(rules []model.Rule, name string) bool {
	for _, r := range rules {
		if r.Accepts(name) {
			return true
		}
	}
	return false
}

// SQLEngineMetricName combines the last '='-segment of the document name
// (spaces removed) with the field key stripped of Count/Valid/Value, e.g.
// "java.lang:type=GarbageCollector,name=G1 Young Generation" and
// "CollectionTime" give "G1YoungGeneration-CollectionTime".
func SQLEngineMetricName(docName, key string) string {
	segment := docName
	if i := strings.LastIndex(docName, "="); i >= 0 {
		segment = docName[i+1:]
	}
	segment = strings.ReplaceAll(segment, " ", "")
	return strings.TrimRight(segment+"-"+sqlEngineNoise.ReplaceAllString(key, ""), "-")
}
