package resultsapi

import (
	"io"

	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/gin-gonic/gin"
	"github.com/iver-wharf/wharf-core/v2/pkg/ginutil"
)

// subBufferSize is the channel buffer used for the log line and status
// update subscriptions backing the streaming endpoints.
const subBufferSize = 100

type streamModule struct {
	store resultstore.Store
}

func (m *streamModule) register(g *gin.RouterGroup) {
	g.GET("/log/stream", m.streamLogsHandler)
	g.GET("/status/stream", m.streamStatusUpdatesHandler)
}

// streamLogsHandler streams all job log lines as server-sent events, catching
// up on already stored lines first. The stream ends when the result store is
// frozen at the end of a run, or when the client goes away.
func (m *streamModule) streamLogsHandler(c *gin.Context) {
	ch, err := m.store.SubAllLogLines(subBufferSize)
	if err != nil {
		ginutil.WriteDBReadError(c, err, "Unable to subscribe to log lines.")
		return
	}
	defer m.store.UnsubAllLogLines(ch)
	c.Stream(func(w io.Writer) bool {
		select {
		case line, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("logLine", line)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// streamStatusUpdatesHandler streams all job status updates as server-sent
// events, catching up on already stored updates first.
func (m *streamModule) streamStatusUpdatesHandler(c *gin.Context) {
	ch, err := m.store.SubAllStatusUpdates(subBufferSize)
	if err != nil {
		ginutil.WriteDBReadError(c, err, "Unable to subscribe to status updates.")
		return
	}
	defer m.store.UnsubAllStatusUpdates(ch)
	c.Stream(func(w io.Writer) bool {
		select {
		case update, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("statusUpdate", update)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
