package topology

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/t77yq/bdmon/internal/model"
)

// HDFSActive reports whether a NameNode exports tag.HAState=active
func HDFSActive(docs []model.Document) bool {
	for _, doc := range docs {
		if doc.String("tag.HAState") == "active" {
			return true
		}
	}
	return false
}

// HDFSWorkers lists DataNode info addresses from the LiveNodes JSON string
func HDFSWorkers(docs []model.Document) []string {
	var workers []string
	for _, doc := range docs {
		live := doc.String("LiveNodes")
		if live == "" || live == "{}" {
			continue
		}
		gjson.Parse(live).ForEach(func(_, node gjson.Result) bool {
			if addr := node.Get("infoAddr").String(); addr != "" {
				workers = append(workers, addr)
			}
			return true
		})
	}
	return workers
}

// HBaseActive reports whether the Master,sub=Server bean marks this master active
func HBaseActive(docs []model.Document) bool {
	for _, doc := range docs {
		if doc.Type == "Master,sub=Server" && doc.String("tag.isActiveMaster") == "true" {
			return true
		}
	}
	return false
}

// HBaseWorkers lists region server hosts from tag.liveRegionServers,
// formatted as "host,port,startcode;host,port,startcode"
func HBaseWorkers(docs []model.Document) []string {
	var workers []string
	for _, doc := range docs {
		if doc.Type != "Master,sub=Server" {
			continue
		}
		for _, server := range strings.Split(doc.String("tag.liveRegionServers"), ";") {
			host := strings.TrimSpace(strings.SplitN(server, ",", 2)[0])
			if host != "" {
				workers = append(workers, host)
			}
		}
	}
	return workers
}

// YARNActive reports whether a ResourceManager is active. A ResourceManager
// that exports no HAState at all runs without HA and is treated as active.
func YARNActive(docs []model.Document) bool {
	sawState := false
	for _, doc := range docs {
		for _, key := range []string{"HAState", "tag.HAState"} {
			state, ok := doc.Fields[key].(string)
			if !ok {
				continue
			}
			sawState = true
			if state == "active" {
				return true
			}
		}
	}
	return !sawState && len(docs) > 0
}

// YARNWorkers lists NodeManager HTTP addresses from the LiveNodeManagers JSON string
func YARNWorkers(docs []model.Document) []string {
	var workers []string
	for _, doc := range docs {
		live := doc.String("LiveNodeManagers")
		if live == "" || live == "[]" {
			continue
		}
		for _, addr := range gjson.Get(live, "#.NodeHTTPAddress").Array() {
			if s := addr.String(); s != "" {
				workers = append(workers, s)
			}
		}
		break
	}
	return workers
}
