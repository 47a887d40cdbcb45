// Package server exposes the upload/job HTTP surface: clients POST a video
// with normalization parameters, poll job status or stream its log over
// SSE, and download the composited result when the job is done.
package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"heatcam/config"
)

// Processor runs one video job end to end using the same pipeline as the
// CLI. Log lines go through logf; a returned error marks the job failed.
type Processor func(inputPath, outputPath string, cfg *config.RunConfig, logf func(string)) error

// Server wires the gin router, the job store and the processor together.
type Server struct {
	store   *Store
	dataDir string
	process Processor
	base    *config.RunConfig
}

// New creates a server. dataDir receives uploaded inputs and rendered
// outputs; base supplies defaults for parameters the client omits.
func New(store *Store, dataDir string, base *config.RunConfig, process Processor) *Server {
	return &Server{store: store, dataDir: dataDir, process: process, base: base}
}

// Router builds the gin engine with all API routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/upload", s.handleUpload)
	r.GET("/api/status/:id", s.handleStatus)
	r.GET("/api/logs/:id", s.handleLogs)
	r.GET("/api/download/:id", s.handleDownload)
	return r
}

// requestLogger logs method, path, status and latency per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		log.Printf("[API] %s %s %d %v", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field 'video'"})
		return
	}

	jobID := uuid.New().String()
	inputPath := filepath.Join(s.dataDir, jobID+"_input.mp4")
	outputPath := filepath.Join(s.dataDir, jobID+"_output.mp4")

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot create data directory"})
		return
	}
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot save upload"})
		return
	}

	cfg := *s.base
	cfg.PLow = formFloat(c, "pLow", cfg.PLow)
	cfg.PHigh = formFloat(c, "pHigh", cfg.PHigh)
	cfg.Gamma = formFloat(c, "gamma", cfg.Gamma)
	cfg.AlphaMax = formFloat(c, "alpha", cfg.AlphaMax)
	if stat := c.PostForm("stat"); stat != "" {
		cfg.Stat = stat
	}
	cfg.Normalize()

	job := &Job{ID: jobID, InputPath: inputPath, OutputPath: outputPath, CreatedAt: time.Now()}
	if err := s.store.CreateJob(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot create job"})
		return
	}
	s.store.AppendLog(jobID, fmt.Sprintf("[api] params pLow=%.2f pHigh=%.2f gamma=%.2f alpha=%.2f stat=%s",
		cfg.PLow, cfg.PHigh, cfg.Gamma, cfg.AlphaMax, cfg.Stat))

	go s.runJob(jobID, inputPath, outputPath, &cfg)

	c.JSON(http.StatusOK, gin.H{"jobId": jobID})
}

// runJob executes one job in its own goroutine, mirroring status and log
// lines into the store.
func (s *Server) runJob(jobID, inputPath, outputPath string, cfg *config.RunConfig) {
	if err := s.store.MarkRunning(jobID); err != nil {
		log.Printf("[API] cannot mark job %s running: %v", jobID, err)
		return
	}
	logf := func(line string) {
		if err := s.store.AppendLog(jobID, line); err != nil {
			log.Printf("[API] cannot append log for job %s: %v", jobID, err)
		}
	}

	if err := s.process(inputPath, outputPath, cfg, logf); err != nil {
		logf(fmt.Sprintf("[api] job failed: %v", err))
		s.store.MarkFinished(jobID, StatusError, err.Error())
		return
	}
	s.store.MarkFinished(jobID, StatusDone, "")
}

func (s *Server) handleStatus(c *gin.Context) {
	job, err := s.store.GetJob(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "job lookup failed"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_job"})
		return
	}
	resp := gin.H{
		"jobId":     job.ID,
		"status":    job.Status,
		"error":     job.Error,
		"createdAt": job.CreatedAt.Unix(),
	}
	if job.StartedAt != nil {
		resp["startedAt"] = job.StartedAt.Unix()
	}
	if job.FinishedAt != nil {
		resp["finishedAt"] = job.FinishedAt.Unix()
	}
	c.JSON(http.StatusOK, resp)
}

// handleLogs streams a job's log lines as server-sent events until the
// job reaches a terminal status.
func (s *Server) handleLogs(c *gin.Context) {
	jobID := c.Param("id")
	c.Header("Cache-Control", "no-cache")
	c.Header("Content-Type", "text/event-stream")
	c.Header("X-Accel-Buffering", "no")

	last := 0
	c.Stream(func(w io.Writer) bool {
		job, err := s.store.GetJob(jobID)
		if err != nil || job == nil {
			c.SSEvent("error", "unknown_job")
			return false
		}

		lines, newLast, err := s.store.LogsSince(jobID, last)
		if err == nil {
			last = newLast
			for _, line := range lines {
				c.SSEvent("message", line)
			}
		}

		if job.Status == StatusDone || job.Status == StatusError {
			c.SSEvent("done", job.Status)
			return false
		}
		time.Sleep(500 * time.Millisecond)
		return true
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	job, err := s.store.GetJob(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "job lookup failed"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_job"})
		return
	}
	if job.Status != StatusDone {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not_ready", "status": job.Status})
		return
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "file_missing"})
		return
	}
	c.FileAttachment(job.OutputPath, "thermal_output.mp4")
}

func formFloat(c *gin.Context, key string, fallback float64) float64 {
	raw := c.PostForm(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
