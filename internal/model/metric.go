package model

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// Document is one node-scoped metrics payload, e.g. a JMX bean
type Document struct {
	Type   string                 `json:"modelerType"`
	Name   string                 `json:"name,omitempty"`
	Fields map[string]interface{} `json:"-"`
}

// NewDocument builds a Document from a decoded JSON object
func NewDocument(fields map[string]interface{}) Document {
	doc := Document{Fields: fields}
	if t, ok := fields["modelerType"].(string); ok {
		doc.Type = t
	}
	if n, ok := fields["name"].(string); ok {
		doc.Name = n
	}
	return doc
}

// Keys returns the field names in sorted order
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns a string field, or "" when absent or not a string
func (d Document) String(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// Numeric reports the float value of v when v is a finite number.
// Booleans, strings, nested objects and NaN/Inf are rejected.
func Numeric(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Statement identifies a persisted row shape and its target table
type Statement string

const (
	StatementHostOS            Statement = "host_os"
	StatementHDFSNameNode      Statement = "hdfs_namenode"
	StatementHDFSDataNode      Statement = "hdfs_datanode"
	StatementYARNResourceMgr   Statement = "yarn_rm"
	StatementYARNNodeManager   Statement = "yarn_nm"
	StatementHBaseMaster       Statement = "hbase_hmaster"
	StatementHBaseRegionServer Statement = "hbase_regionserver"
	StatementHBaseTable        Statement = "hbase_table"
	StatementZKNode            Statement = "zk_node"
	StatementZKClient          Statement = "zk_client"
	StatementHiveServer        Statement = "hive_hs2"
	StatementSparkApp          Statement = "spark_app"
	StatementSparkExecutor     Statement = "spark_exec"
	StatementSparkStage        Statement = "spark_stage"
	StatementRunSelf           Statement = "run_self"
)

// Row is one metric value with its identity columns.
// Context holds the leading columns (node, flags, type...) in table order.
type Row struct {
	Context []interface{}
	Metric  string
	Value   float64
	At      time.Time
}

// Args returns the row values in column order
func (r Row) Args() []interface{} {
	args := make([]interface{}, 0, len(r.Context)+3)
	args = append(args, r.Context...)
	return append(args, r.Metric, r.Value, r.At)
}

// Batch is a set of rows bound for one statement
type Batch struct {
	Statement Statement
	Rows      []Row
}

// Len returns the number of rows in the batch
func (b Batch) Len() int {
	return len(b.Rows)
}

// SparkApp is one analytics application record
type SparkApp struct {
	Host      string
	ID        string
	Name      string
	StartedAt time.Time
	StartText string
	User      string
	Duration  float64
}
