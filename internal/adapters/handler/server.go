package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"filtro/internal/adapters/telemetry"
	"filtro/internal/core/domain"
	"filtro/internal/core/port"
	"filtro/internal/core/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const identityKey = "username"

// Server binds the authenticated HTTP surface to the processor and the store.
type Server struct {
	auth      service.Authenticator
	processor *service.Processor
	store     port.ImageStore
	maxUpload int64
}

func NewServer(auth service.Authenticator, processor *service.Processor, store port.ImageStore,
	maxUpload int64) *Server {
	return &Server{auth: auth, processor: processor, store: store, maxUpload: maxUpload}
}

// Register sets up all routes on the engine.
func (s *Server) Register(engine *gin.Engine) {
	engine.Use(requestLogger())

	engine.GET("/metrics", gin.WrapH(telemetry.Handler()))

	api := engine.Group("/api")
	api.Use(s.bodyLimit())

	api.GET("/", s.handleRoot)
	api.GET("/health", s.handleHealth)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/download-image/:image_id", s.handleDownloadImage)

	authed := api.Group("")
	authed.Use(s.authRequired())
	{
		authed.GET("/protected", s.handleProtected)
		authed.POST("/filter-image", s.handleFilterImage)
		authed.POST("/batch-filter-images", s.handleBatchFilterImages)
		authed.GET("/my-images", s.handleMyImages)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	}
}

func (s *Server) bodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.maxUpload > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
		}
		c.Next()
	}
}

// authRequired verifies the bearer token and stores the caller identity on the
// request context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		token = strings.TrimPrefix(token, "Bearer ")

		username, err := s.auth.Verify(token)
		if err != nil {
			log.Debug().Err(err).Msg("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(identityKey, username)
		c.Next()
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the filtro API server"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Missing JSON in request"})
		return
	}

	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Missing username or password"})
		return
	}

	token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		log.Info().Str("username", req.Username).Msg("login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Bad username or password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

func (s *Server) handleProtected(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"logged_in_as": c.GetString(identityKey),
		"message":      "This is a protected endpoint",
	})
}

func (s *Server) handleFilterImage(c *gin.Context) {
	user := c.GetString(identityKey)

	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}

	req, ok := parseFilterRequest(c)
	if !ok {
		return
	}

	report := s.processor.Process(c.Request.Context(), user,
		[]domain.Upload{readUpload(header)}, req)

	entry := report.Results[0]
	if entry.Failed() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": entry.Err})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Image processed successfully",
		"user":            user,
		"filter":          entry.Filter,
		"strength":        entry.Strength,
		"size_multiplier": entry.SizeMultiplier,
		"image_id":        entry.ImageID,
		"image":           entry.Image,
	})
}

func (s *Server) handleBatchFilterImages(c *gin.Context) {
	user := c.GetString(identityKey)

	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image files provided"})
		return
	}

	headers := form.File["images"]
	if headers[0].Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected files"})
		return
	}

	req, ok := parseFilterRequest(c)
	if !ok {
		return
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, header := range headers {
		if header.Filename == "" {
			continue
		}
		uploads = append(uploads, readUpload(header))
	}

	report := s.processor.Process(c.Request.Context(), user, uploads, req)

	results := make([]gin.H, 0, len(report.Results))
	for _, entry := range report.Results {
		results = append(results, entryJSON(entry))
	}

	c.JSON(http.StatusOK, gin.H{
		"user":            user,
		"processed_count": report.Processed,
		"error_count":     report.Errored,
		"results":         results,
	})
}

func (s *Server) handleMyImages(c *gin.Context) {
	records := s.store.ListForOwner(c.GetString(identityKey))

	images := make([]gin.H, 0, len(records))
	for _, record := range records {
		images = append(images, gin.H{
			"image_id":        record.ID,
			"filter":          record.Filter,
			"strength":        record.Strength,
			"size_multiplier": record.SizeMultiplier,
			"image":           dataURI(record),
		})
	}

	c.JSON(http.StatusOK, images)
}

// handleDownloadImage authenticates via a token query parameter instead of the
// bearer middleware. Any valid token may download any image id; ownership is
// not checked.
func (s *Server) handleDownloadImage(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	if _, err := s.auth.Verify(token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	record, err := s.store.Get(c.Param("image_id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("filtered_image_%s.%s", strings.ToLower(record.Filter), record.Format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "image/"+record.Format, record.Data)
}

// parseFilterRequest reads the shared form fields, applying the documented
// defaults. On invalid input it writes the 400 response and returns ok=false.
func parseFilterRequest(c *gin.Context) (domain.FilterRequest, bool) {
	req := domain.FilterRequest{Filter: c.DefaultPostForm("filter", domain.DefaultFilter)}

	strength, err := strconv.Atoi(c.DefaultPostForm("strength", strconv.Itoa(domain.DefaultStrength)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid strength"})
		return req, false
	}
	req.Strength = strength

	multiplier, err := strconv.ParseFloat(
		c.DefaultPostForm("size_multiplier", strconv.FormatFloat(domain.DefaultSizeMultiplier, 'f', 1, 64)), 64)
	if err != nil || multiplier <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid size_multiplier"})
		return req, false
	}
	req.SizeMultiplier = multiplier

	return req, true
}

// readUpload pulls the bytes out of a multipart file header. Unreadable parts
// become empty uploads so the failure surfaces in that item's report entry
// instead of aborting the batch.
func readUpload(header *multipart.FileHeader) domain.Upload {
	upload := domain.Upload{Filename: header.Filename}

	f, err := header.Open()
	if err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("could not open upload")
		return upload
	}
	defer f.Close()

	upload.Data, err = io.ReadAll(f)
	if err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("could not read upload")
		upload.Data = nil
	}

	return upload
}

func entryJSON(entry domain.ResultEntry) gin.H {
	if entry.Failed() {
		return gin.H{"filename": entry.Filename, "error": entry.Err}
	}

	return gin.H{
		"filename":        entry.Filename,
		"message":         "Image processed successfully",
		"filter":          entry.Filter,
		"strength":        entry.Strength,
		"size_multiplier": entry.SizeMultiplier,
		"image_id":        entry.ImageID,
		"image":           entry.Image,
	}
}

func dataURI(record *domain.ImageRecord) string {
	return fmt.Sprintf("data:image/%s;base64,%s",
		record.Format, base64.StdEncoding.EncodeToString(record.Data))
}
