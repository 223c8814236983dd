package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{Host: "ch", Port: 9000, Database: "crosswatch", User: "u", Password: "p"}
	assert.Equal(t, "clickhouse://u:p@ch:9000/crosswatch", buildDSN(cfg))

	cfg.UseHTTP = true
	cfg.Port = 8123
	cfg.DialTimeout = 2 * time.Second
	cfg.MaxExecTime = 30 * time.Second
	cfg.AsyncInsert = true
	cfg.WaitForAsync = true
	assert.Equal(t,
		"clickhouse+http://u:p@ch:8123/crosswatch?async_insert=1&dial_timeout=2s&max_execution_time=30&wait_for_async_insert=1",
		buildDSN(cfg))
}

func TestBuildDSNDefaultsAndEscaping(t *testing.T) {
	assert.Equal(t, "clickhouse://ch:9000/default", buildDSN(ClientConfig{Host: "ch", Database: "default"}))
	assert.Equal(t, "clickhouse+http://ch:8123/default", buildDSN(ClientConfig{Host: "ch", Database: "default", UseHTTP: true}))
	assert.Equal(t, "clickhouse://ingest:p%40ss%2Fw@ch:9000/signals",
		buildDSN(ClientConfig{Host: "ch", Database: "signals", User: "ingest", Password: "p@ss/w"}))
}

func TestTableQualifiesDatabase(t *testing.T) {
	c := &Client{database: "crosswatch"}
	assert.Equal(t, "crosswatch.signal_events", c.Table("signal_events"))
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
