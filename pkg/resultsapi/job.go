package resultsapi

import (
	"fmt"
	"net/http"

	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/gin-gonic/gin"
	"github.com/iver-wharf/wharf-core/v2/pkg/ginutil"
)

type jobModule struct {
	store resultstore.Store
}

// Job is a job that has results stored, together with its latest status.
type Job struct {
	JobID  uint64             `json:"jobId"`
	Status resultstore.Status `json:"status"`
}

func (m *jobModule) register(g *gin.RouterGroup) {
	g.GET("/job", m.listJobsHandler)
	g.GET("/job/:jobId/log", m.listJobLogsHandler)
	g.GET("/job/:jobId/status", m.listJobStatusUpdatesHandler)
}

func (m *jobModule) listJobsHandler(c *gin.Context) {
	jobIDs, err := m.store.ListJobIDs()
	if err != nil {
		ginutil.WriteDBReadError(c, err, "Unable to list jobs.")
		return
	}
	jobs := make([]Job, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		jobs = append(jobs, Job{
			JobID:  jobID,
			Status: m.latestStatus(jobID),
		})
	}
	c.JSON(http.StatusOK, jobs)
}

func (m *jobModule) latestStatus(jobID uint64) resultstore.Status {
	list, err := m.store.ReadStatusUpdates(jobID)
	if err != nil || len(list.StatusUpdates) == 0 {
		return resultstore.StatusUnknown
	}
	return list.StatusUpdates[len(list.StatusUpdates)-1].Status
}

func (m *jobModule) listJobLogsHandler(c *gin.Context) {
	jobID, ok := ginutil.ParseParamUint(c, "jobId")
	if !ok {
		return
	}

	lines, err := m.store.ReadAllLogLines(uint64(jobID))
	if err != nil {
		ginutil.WriteDBReadError(c, err,
			fmt.Sprintf("Unable to read logs for job with ID %d.", jobID))
		return
	}
	c.JSON(http.StatusOK, lines)
}

func (m *jobModule) listJobStatusUpdatesHandler(c *gin.Context) {
	jobID, ok := ginutil.ParseParamUint(c, "jobId")
	if !ok {
		return
	}

	list, err := m.store.ReadStatusUpdates(uint64(jobID))
	if err != nil {
		ginutil.WriteDBReadError(c, err,
			fmt.Sprintf("Unable to read status updates for job with ID %d.", jobID))
		return
	}
	c.JSON(http.StatusOK, list)
}
