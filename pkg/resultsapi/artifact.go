package resultsapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/berth-ci/berth-cmd/pkg/artifactstore"
	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/gin-gonic/gin"
	"github.com/iver-wharf/wharf-core/v2/pkg/ginutil"
)

type artifactModule struct {
	store     resultstore.Store
	artifacts artifactstore.Store
}

func (m *artifactModule) register(g *gin.RouterGroup) {
	g.GET("/artifact", m.listArtifactsHandler)
	g.GET("/job/:jobId/artifact", m.listJobArtifactsHandler)
	g.GET("/job/:jobId/artifact/:artifactId/download", m.downloadArtifactHandler)
}

func (m *artifactModule) listArtifactsHandler(c *gin.Context) {
	artifacts, err := m.artifacts.List()
	if err != nil {
		ginutil.WriteDBReadError(c, err, "Unable to list artifacts.")
		return
	}
	c.JSON(http.StatusOK, artifacts)
}

func (m *artifactModule) listJobArtifactsHandler(c *gin.Context) {
	jobID, ok := ginutil.ParseParamUint(c, "jobId")
	if !ok {
		return
	}

	list, err := m.store.ListArtifacts(uint64(jobID))
	if err != nil {
		ginutil.WriteDBReadError(c, err,
			fmt.Sprintf("Unable to list artifacts for job with ID %d.", jobID))
		return
	}
	c.JSON(http.StatusOK, list)
}

func (m *artifactModule) downloadArtifactHandler(c *gin.Context) {
	jobID, ok := ginutil.ParseParamUint(c, "jobId")
	if !ok {
		return
	}
	artifactID, ok := ginutil.ParseParamUint(c, "artifactId")
	if !ok {
		return
	}

	meta, ok := m.lookupArtifactMeta(c, uint64(jobID), uint64(artifactID))
	if !ok {
		return
	}

	tarball := artifactstore.Tarball(meta.Path)
	ioBody, err := tarball.Open()
	if err != nil {
		ginutil.WriteDBNotFound(c, fmt.Sprintf(
			"Unable to find artifact with ID %d for job with ID %d.",
			artifactID, jobID))
		return
	}
	defer ioBody.Close()

	c.Header("Content-Type", "application/gzip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.Name+".tar.gz"))
	_, err = io.Copy(c.Writer, ioBody)
	if err != nil {
		ginutil.WriteAPIClientReadError(c, err, fmt.Sprintf(
			"Unable to write artifact with ID %d to response.", artifactID))
		return
	}
	c.Status(http.StatusOK)
}

func (m *artifactModule) lookupArtifactMeta(c *gin.Context, jobID, artifactID uint64) (resultstore.ArtifactMeta, bool) {
	list, err := m.store.ListArtifacts(jobID)
	if err != nil {
		ginutil.WriteDBReadError(c, err,
			fmt.Sprintf("Unable to list artifacts for job with ID %d.", jobID))
		return resultstore.ArtifactMeta{}, false
	}
	for _, meta := range list.Artifacts {
		if meta.ArtifactID == artifactID {
			return meta, true
		}
	}
	ginutil.WriteDBNotFound(c, fmt.Sprintf(
		"Unable to find artifact with ID %d for job with ID %d.",
		artifactID, jobID))
	return resultstore.ArtifactMeta{}, false
}
