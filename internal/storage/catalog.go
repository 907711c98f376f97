package storage

type catalogEntry struct {
	service       string
	component     string
	typePrefix    string
	namePredicate string
	active        bool
}

// defaultCatalog is written by SeedCatalog into an empty t_coll_metrics
var defaultCatalog = []catalogEntry{
	{"hdfs", "namenode", "JvmMetrics", "", true},
	{"hdfs", "namenode", "StartupProgress", "", true},
	{"hdfs", "namenode", "sun.management.OperatingSystemImpl", "", true},
	{"hdfs", "namenode", "FSNamesystem", "", true},
	{"hdfs", "namenode", "RpcDetailedActivityForPort", "", false},
	{"hdfs", "namenode", "MetricsSystem,sub=Stats", "", false},
	{"hdfs", "namenode", "NameNodeActivity", "", true},
	{"hdfs", "namenode", "org.apache.hadoop.hdfs.server.namenode.FSNamesystem", "", true},
	{"hdfs", "namenode", "RpcActivityForPort", "", true},
	{"hdfs", "namenode", "UgiMetrics", "", false},
	{"hdfs", "datanode", "sun.management.OperatingSystemImpl", "", true},
	{"hdfs", "datanode", "JvmMetrics", "", true},
	{"hdfs", "datanode", "MetricsSystem,sub=Stats", "", false},
	{"hdfs", "datanode", "FSDatasetState", "", true},
	{"hdfs", "datanode", "RpcDetailedActivityForPort", "", false},
	{"hdfs", "datanode", "RpcActivityForPort", "", false},
	{"hdfs", "datanode", "DataNodeActivity-", "", true},
	{"hdfs", "datanode", "UgiMetrics", "", false},
	{"hbase", "hmaster", "Master,sub=Balancer", "", false},
	{"hbase", "hmaster", "Master,sub=AssignmentManager", "", false},
	{"hbase", "hmaster", "sun.management.OperatingSystemImpl", "", true},
	{"hbase", "hmaster", "MetricsSystem,sub=Stats", "", false},
	{"hbase", "hmaster", "Master,sub=FileSystem", "", false},
	{"hbase", "hmaster", "RegionServer,sub=IO", "", false},
	{"hbase", "hmaster", "Master,sub=Quotas", "", false},
	{"hbase", "hmaster", "Master,sub=Server", "", true},
	{"hbase", "hmaster", "JvmMetrics", "", true},
	{"hbase", "hmaster", "Master,sub=IPC", "", false},
	{"hbase", "hmaster", "UgiMetrics", "", false},
	{"hbase", "regionserver", "sun.management.OperatingSystemImpl", "", true},
	{"hbase", "regionserver", "MetricsSystem,sub=Stats", "", false},
	{"hbase", "regionserver", "RegionServer,sub=IO", "", false},
	{"hbase", "regionserver", "RegionServer,sub=Regions", "", true},
	{"hbase", "regionserver", "RegionServer,sub=Replication", "", false},
	{"hbase", "regionserver", "RegionServer,sub=TableLatencies", "", false},
	{"hbase", "regionserver", "JvmMetrics", "", true},
	{"hbase", "regionserver", "RegionServer,sub=WAL", "", false},
	{"hbase", "regionserver", "RegionServer,sub=Tables", "", true},
	{"hbase", "regionserver", "RegionServer,sub=Server", "", false},
	{"hbase", "regionserver", "RegionServer,sub=Memory", "", false},
	{"hbase", "regionserver", "RegionServer,sub=IPC", "", false},
	{"hbase", "regionserver", "UgiMetrics", "", false},
	{"yarn", "rm", "JvmMetrics", "", true},
	{"yarn", "rm", "sun.management.OperatingSystemImpl", "", true},
	{"yarn", "rm", "QueueMetrics,", "", true},
	{"yarn", "rm", "CapacitySchedulerMetrics", "", true},
	{"yarn", "rm", "ClusterMetrics", "", true},
	{"yarn", "rm", "RpcDetailedActivityFor", "", false},
	{"yarn", "rm", "UgiMetrics", "", false},
	{"yarn", "rm", "sun.management.ThreadImpl", "", false},
	{"yarn", "rm", "MetricsSystem,sub=Stats", "", false},
	{"yarn", "rm", "RpcActivityFor", "", false},
	{"yarn", "nm", "JvmMetrics", "", true},
	{"yarn", "nm", "sun.management.OperatingSystemImpl", "", true},
	{"yarn", "nm", "NodeManagerMetrics", "", true},
	{"yarn", "nm", "ShuffleMetrics", "", true},
	{"yarn", "nm", "sun.management.ThreadImpl", "", false},
	{"yarn", "nm", "RpcDetailedActivityFor", "", false},
	{"yarn", "nm", "RpcActivityFor", "", false},
	{"yarn", "nm", "UgiMetrics", "", false},
	{"yarn", "nm", "MetricsSystem,sub=Stats", "", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxCounter", "", true},
	{"hive", "hs2", "sun.management.GarbageCollectorImpl", "java.lang:type=GarbageCollector", true},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxGauge", "", true},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxMeter", "", true},
	{"hive", "hs2", "MetricsSystem,sub=Stats", "", true},
	{"hive", "hs2", "UgiMetrics", "", false},
	{"hive", "hs2", "sun.management.OperatingSystemImpl", "", true},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_runTasks", true},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=hs2_submitted_queries", true},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_TezRunDag", true},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_hs2_sql_operation_PENDING", true},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_RenameOrMoveFiles", true},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_compile", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_optimizer", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=hs2_compiling_queries", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_waitCompile", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_hs2_operation_INITIALIZED", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_doAuthorization", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_acquireReadWriteLocks", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=hs2_executing_queries", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_Driver.execute", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_hs2_sql_operation_RUNNING", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_Driver.run", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_releaseLocks", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_hs2_operation_RUNNING", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_hs2_operation_PENDING", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_parse", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_semanticAnalyze", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_TezBuildDag", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_TezCompiler", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_TezSubmitDag", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_TezSubmitToRunningDag", false},
	{"hive", "hs2", "com.codahale.metrics.JmxReporter$JmxTimer", "metrics:name=api_RemoveTempOrDuplicateFiles", false},
}
