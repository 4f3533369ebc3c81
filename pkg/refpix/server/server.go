// Package server exposes the processor over HTTP.
package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ukaji3/refpix-go/pkg/refpix"
	"github.com/ukaji3/refpix-go/pkg/refpix/logger"
	"go.uber.org/zap"
)

// MaxUploadSize bounds the multipart body of a process request.
const MaxUploadSize = 64 << 20

// Server handles spreadsheet uploads.
type Server struct {
	processor *refpix.Processor
	storeKind string
	logger    *zap.Logger
	router    *gin.Engine
}

// New builds a server around p. storeKind is reported by the health check.
func New(p *refpix.Processor, storeKind string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{processor: p, storeKind: storeKind, logger: log}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.RequestLogger(log))
	router.MaxMultipartMemory = 8 << 20

	router.GET("/health", s.health)
	api := router.Group("/api")
	api.POST("/process", s.process)

	s.router = router
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"store":     s.storeKind,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// process accepts a multipart form with the workbook in "file" (or
// "excel_file") and optional "start_row", "photo_column", "ref_column" and
// "sheet" fields.
func (s *Server) process(c *gin.Context) {
	log := logger.FromContext(c, s.logger)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	fh, err := c.FormFile("file")
	if err != nil {
		fh, err = c.FormFile("excel_file")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing spreadsheet in form field \"file\""})
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx files are accepted"})
		return
	}

	opts := s.processor.Defaults()
	if v := c.PostForm("start_row"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_row must be an integer"})
			return
		}
		opts.StartRow = n
	}
	if v := c.PostForm("photo_column"); v != "" {
		opts.PhotoColumn = v
	}
	if v := c.PostForm("ref_column"); v != "" {
		opts.RefColumn = v
	}
	if v := c.PostForm("sheet"); v != "" {
		opts.Sheet = v
	}
	if err := opts.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dir, err := os.MkdirTemp("", "refpix-upload-*")
	if err != nil {
		log.Error("Failed to create temp dir", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		log.Error("Failed to save upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	stats, err := s.processor.ProcessWithOptions(c.Request.Context(), path, opts)
	if err != nil {
		var cerr *refpix.ContainerError
		if errors.As(err, &cerr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats.File = filepath.Base(fh.Filename)
	c.JSON(http.StatusOK, stats)
}
