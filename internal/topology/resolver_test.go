package topology

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/bdmon/internal/fetcher"
	"github.com/t77yq/bdmon/internal/model"
)

type fakeFetcher struct {
	docs  map[string][]model.Document
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchBeans(ctx context.Context, req fetcher.Request) ([]model.Document, error) {
	f.calls = append(f.calls, req.Endpoint)
	if err, ok := f.errs[req.Endpoint]; ok {
		return nil, err
	}
	return f.docs[req.Endpoint], nil
}

func nameNode(state string, liveNodes string) []model.Document {
	return []model.Document{
		model.NewDocument(map[string]interface{}{"modelerType": "FSNamesystem", "tag.HAState": state}),
		model.NewDocument(map[string]interface{}{"modelerType": "org.apache.hadoop.hdfs.server.namenode.FSNamesystem", "LiveNodes": liveNodes}),
	}
}

func hdfsSpec(candidates ...string) Spec {
	return Spec{
		Service:        "hdfs",
		Candidates:     candidates,
		WorkerPort:     50075,
		Path:           "/jmx",
		IsActive:       HDFSActive,
		ExtractWorkers: HDFSWorkers,
	}
}

const liveNodes = `{"dn1:50010":{"infoAddr":"dn1:50075"},"dn2:50010":{"infoAddr":"dn2:50075"}}`

func TestResolveLeaderAtAnyPosition(t *testing.T) {
	candidates := []string{"nn1:50070", "nn2:50070", "nn3:50070"}

	for i, active := range candidates {
		t.Run(fmt.Sprintf("ActiveAt%d", i), func(t *testing.T) {
			f := &fakeFetcher{docs: map[string][]model.Document{}}
			for _, c := range candidates {
				state := "standby"
				if c == active {
					state = "active"
				}
				f.docs[c] = nameNode(state, liveNodes)
			}

			resolver := NewResolver(f, zaptest.NewLogger(t))
			topo, err := resolver.Resolve(context.Background(), hdfsSpec(candidates...))
			require.NoError(t, err)

			assert.Equal(t, active, topo.Active)
			require.NotNil(t, topo.Leader())
			assert.Equal(t, active, topo.Leader().Endpoint)
			assert.Equal(t, []string{"dn1:50075", "dn2:50075"}, topo.Workers)
			assert.Len(t, topo.Probed, 3)
		})
	}
}

func TestResolveNoActiveLeader(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string][]model.Document{"nn2:50070": nameNode("standby", liveNodes)},
		errs: map[string]error{"nn1:50070": model.NewError(model.ErrConnection, "nn1:50070", errors.New("refused"))},
	}

	resolver := NewResolver(f, zaptest.NewLogger(t))
	topo, err := resolver.Resolve(context.Background(), hdfsSpec("nn1:50070", "nn2:50070"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTopology))

	require.NotNil(t, topo)
	assert.Empty(t, topo.Active)
	assert.Empty(t, topo.Workers)
	require.Len(t, topo.Probed, 2)
	assert.Error(t, topo.Probed[0].Err)
	assert.NotEmpty(t, topo.Probed[1].Docs)
}

func TestResolveWorkerOverride(t *testing.T) {
	f := &fakeFetcher{docs: map[string][]model.Document{"nn1:50070": nameNode("active", liveNodes)}}

	spec := hdfsSpec("nn1:50070")
	spec.Workers = []string{"dn9", "dn8:9864", "dn9"}

	topo, err := NewResolver(f, zaptest.NewLogger(t)).Resolve(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"dn9:50075", "dn8:9864"}, topo.Workers)
}

func TestResolveStopAtLeader(t *testing.T) {
	rm := func(state string) []model.Document {
		return []model.Document{
			model.NewDocument(map[string]interface{}{
				"modelerType":      "org.apache.hadoop.yarn.server.resourcemanager.ResourceManager",
				"HAState":          state,
				"LiveNodeManagers": `[{"HostName":"nm1","NodeHTTPAddress":"nm1:8042"},{"HostName":"nm2","NodeHTTPAddress":"nm2:8042"}]`,
			}),
		}
	}
	f := &fakeFetcher{docs: map[string][]model.Document{
		"rm1:8088": rm("standby"),
		"rm2:8088": rm("active"),
		"rm3:8088": rm("standby"),
	}}

	spec := Spec{
		Service:        "yarn",
		Candidates:     []string{"rm1:8088", "rm2:8088", "rm3:8088"},
		WorkerPort:     8042,
		IsActive:       YARNActive,
		ExtractWorkers: YARNWorkers,
		StopAtLeader:   true,
	}
	topo, err := NewResolver(f, zaptest.NewLogger(t)).Resolve(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, "rm2:8088", topo.Active)
	assert.Equal(t, []string{"rm1:8088", "rm2:8088"}, f.calls)
	assert.Equal(t, []string{"nm1:8042", "nm2:8042"}, topo.Workers)
}

func TestSignals(t *testing.T) {
	t.Run("HBase", func(t *testing.T) {
		docs := []model.Document{
			model.NewDocument(map[string]interface{}{
				"modelerType":           "Master,sub=Server",
				"tag.isActiveMaster":    "true",
				"tag.liveRegionServers": "rs1.example.com,16020,1700000000000;rs2.example.com,16020,1700000000001",
			}),
		}
		assert.True(t, HBaseActive(docs))
		assert.Equal(t, []string{"rs1.example.com", "rs2.example.com"}, HBaseWorkers(docs))
		assert.Equal(t, []string{"rs1.example.com:16030", "rs2.example.com:16030"}, WithDefaultPort(HBaseWorkers(docs), 16030))

		docs[0].Fields["tag.isActiveMaster"] = "false"
		assert.False(t, HBaseActive(docs))
	})

	t.Run("YARNWithoutHA", func(t *testing.T) {
		docs := []model.Document{model.NewDocument(map[string]interface{}{"modelerType": "ClusterMetrics", "NumActiveNMs": 3})}
		assert.True(t, YARNActive(docs))
		assert.False(t, YARNActive(nil))
	})

	t.Run("HDFSEmptyLiveNodes", func(t *testing.T) {
		assert.Empty(t, HDFSWorkers(nameNode("active", "{}")))
	})
}

func TestHost(t *testing.T) {
	assert.Equal(t, "nn1", Host("nn1:50070"))
	assert.Equal(t, "nn1", Host("nn1"))
	assert.Equal(t, "::1", Host("[::1]:50070"))
}
