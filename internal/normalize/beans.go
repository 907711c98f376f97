package normalize

import (
	"strings"
	"time"

	"github.com/t77yq/bdmon/internal/model"
)

// Context carries the identity columns shared by every row of one node
type Context struct {
	Service   string
	Component string
	// Node is the host column value, without port
	Node      string
	Statement model.Statement
	// Active is nil for statements without an active-flag column
	Active *bool
	At     time.Time
}

// Flag renders an active flag as Y/N
func Flag(active bool) string {
	if active {
		return "Y"
	}
	return "N"
}

// IsHostOS reports whether a document is the JVM operating-system bean
func IsHostOS(docType string) bool {
	return strings.HasSuffix(docType, "OperatingSystemImpl")
}

var tableTypes = map[string]bool{
	"RegionServer,sub=TableLatencies": true,
	"RegionServer,sub=Regions":        true,
	"RegionServer,sub=Tables":         true,
}

// IsTableType reports whether a document encodes table keys in its field names
func IsTableType(docType string) bool {
	return tableTypes[docType]
}

// Beans shapes the JMX documents of one node into batches. Documents that no
// rule matches are ignored. Output order is stable for the same input.
func Beans(docs []model.Document, rules []model.Rule, c Context) []model.Batch {
	var nodeRows, osRows, tableRows []model.Row
	for _, doc := range docs {
		if len(model.Match(rules, doc.Type)) == 0 {
			continue
		}
		switch {
		case IsHostOS(doc.Type):
			osRows = append(osRows, HostRows(doc, c)...)
		case IsTableType(doc.Type):
			tableRows = append(tableRows, TableRows(doc, c.At)...)
		default:
			nodeRows = append(nodeRows, NodeRows(doc, c)...)
		}
	}
	return batches(
		model.Batch{Statement: c.Statement, Rows: nodeRows},
		model.Batch{Statement: model.StatementHostOS, Rows: osRows},
		model.Batch{Statement: model.StatementHBaseTable, Rows: tableRows},
	)
}

// NodeRows emits (node, [active], type, field, value, ts) per numeric field
func NodeRows(doc model.Document, c Context) []model.Row {
	prefix := []interface{}{c.Node}
	if c.Active != nil {
		prefix = append(prefix, Flag(*c.Active))
	}
	prefix = append(prefix, doc.Type)
	return numericRows(doc, prefix, c.At)
}

// HostRows emits (host, service, component, field, value, ts) per numeric field
func HostRows(doc model.Document, c Context) []model.Row {
	return numericRows(doc, []interface{}{c.Node, c.Service, c.Component}, c.At)
}

func numericRows(doc model.Document, prefix []interface{}, at time.Time) []model.Row {
	var rows []model.Row
	for _, key := range doc.Keys() {
		value, ok := model.Numeric(doc.Fields[key])
		if !ok {
			continue
		}
		rows = append(rows, model.Row{Context: prefix, Metric: key, Value: value, At: at})
	}
	return rows
}

// TableRows decomposes Namespace_<ns>_table_<tbl>[_region_<r>]_<metric> fields
// into (namespace, table, region, metric, value, ts) rows
func TableRows(doc model.Document, at time.Time) []model.Row {
	var rows []model.Row
	for _, key := range doc.Keys() {
		value, ok := model.Numeric(doc.Fields[key])
		if !ok {
			continue
		}
		tk, parsed := ParseTableKey(key)
		if !parsed {
			continue
		}
		rows = append(rows, model.Row{
			Context: []interface{}{tk.Namespace, tk.Table, tk.Region},
			Metric:  tk.Metric,
			Value:   value,
			At:      at,
		})
	}
	return rows
}

// TableKey is a decomposed table metric field name
type TableKey struct {
	Namespace string
	Table     string
	Region    string
	Metric    string
}

// ParseTableKey splits a table metric field name on '_'. A "metric" marker
// segment before the metric name is dropped; the remaining segments form the
// metric name.
func ParseTableKey(field string) (TableKey, bool) {
	vals := strings.Split(field, "_")
	if len(vals) < 5 || vals[0] != "Namespace" || vals[2] != "table" {
		return TableKey{}, false
	}

	key := TableKey{Namespace: vals[1], Table: vals[3]}
	rest := vals[4:]
	if rest[0] == "region" {
		if len(rest) < 3 {
			return TableKey{}, false
		}
		key.Region = rest[1]
		rest = rest[2:]
	}
	if rest[0] == "metric" && len(rest) > 1 {
		rest = rest[1:]
	}
	key.Metric = strings.Join(rest, "_")
	return key, key.Metric != ""
}

func batches(in ...model.Batch) []model.Batch {
	var out []model.Batch
	for _, b := range in {
		if b.Len() > 0 {
			out = append(out, b)
		}
	}
	return out
}
