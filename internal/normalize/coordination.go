package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/t77yq/bdmon/internal/model"
)

// UnknownRole tags rows of a reply without a Mode line
const UnknownRole = "unknown"

// Coordination is the shaped reply of one coordination-service node
type Coordination struct {
	Role    string
	Node    model.Batch
	Clients model.Batch
	// Skipped lists entries whose value could not be read as a number
	Skipped []string
}

// Batches returns the non-empty batches of the reply
func (c Coordination) Batches() []model.Batch {
	return batches(c.Node, c.Clients)
}

// CoordinationStatus parses a "stat" reply. The Mode line tags every node row
// with the node's role. Latency triplets, client connection lines and plain
// key:value lines become rows.
func CoordinationStatus(reply, node string, at time.Time) Coordination {
	lines := strings.Split(reply, "\n")
	res := Coordination{
		Role:    UnknownRole,
		Node:    model.Batch{Statement: model.StatementZKNode},
		Clients: model.Batch{Statement: model.StatementZKClient},
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Mode:") {
			res.Role = strings.TrimSpace(strings.TrimPrefix(line, "Mode:"))
			break
		}
	}

	nodeRow := func(metric string, value float64) model.Row {
		return model.Row{Context: []interface{}{node, res.Role}, Metric: metric, Value: value, At: at}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "", strings.HasPrefix(line, "Mode:"):
			continue

		case strings.HasPrefix(line, "Latency"):
			// Latency min/avg/max: 0/1/16
			labels, values, ok := strings.Cut(line, ":")
			if !ok {
				res.Skipped = append(res.Skipped, line)
				continue
			}
			names := strings.Split(strings.TrimSpace(strings.TrimPrefix(labels, "Latency")), "/")
			nums := strings.Split(strings.TrimSpace(values), "/")
			for i := 0; i < len(names) && i < len(nums); i++ {
				v, ok := parseStatValue(nums[i])
				if !ok {
					res.Skipped = append(res.Skipped, names[i]+"_latency")
					continue
				}
				res.Node.Rows = append(res.Node.Rows, nodeRow(strings.TrimSpace(names[i])+"_latency", v))
			}

		case strings.Contains(line, "](queued="):
			// /10.0.0.7:52314[1](queued=0,recved=12,sent=12)
			addr, stats, _ := strings.Cut(line, "](")
			clientHost := clientHostOf(addr)
			stats = strings.ReplaceAll(stats, ")", "")
			for _, kv := range strings.Split(stats, ",") {
				name, raw, ok := strings.Cut(kv, "=")
				v, parsed := parseStatValue(raw)
				if !ok || !parsed {
					res.Skipped = append(res.Skipped, kv)
					continue
				}
				res.Clients.Rows = append(res.Clients.Rows, model.Row{
					Context: []interface{}{node, clientHost},
					Metric:  name,
					Value:   v,
					At:      at,
				})
			}

		default:
			parts := strings.Split(line, ":")
			if len(parts) != 2 {
				continue
			}
			key, raw := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if key == "" || raw == "" {
				continue
			}
			v, ok := parseStatValue(raw)
			if !ok {
				res.Skipped = append(res.Skipped, key)
				continue
			}
			res.Node.Rows = append(res.Node.Rows, nodeRow(key, v))
		}
	}
	return res
}

// clientHostOf returns the host of "/host:port[n". IPv6 hosts such as
// 0:0:0:0:0:0:0:1 keep their colons.
func clientHostOf(addr string) string {
	if i := strings.LastIndex(addr, "["); i >= 0 {
		addr = addr[:i]
	}
	addr = strings.TrimPrefix(addr, "/")
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		addr = addr[:i]
	}
	return strings.Trim(addr, "[]")
}

// parseStatValue reads decimal or 0x-prefixed hexadecimal values
func parseStatValue(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		if v, err := strconv.ParseUint(raw, 0, 64); err == nil {
			return float64(v), true
		}
	}
	return 0, false
}
