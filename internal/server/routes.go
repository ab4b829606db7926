package server

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danmuck/dmapctl/internal/auth"
	"github.com/danmuck/dmapctl/internal/codec"
	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/value"
)

var errBodyTooLarge = errors.New("request body too large")

type encodeRequest struct {
	Items []value.Item `json:"items"`
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	if s.auth != nil {
		v1.Use(auth.Middleware(s.auth))
	}
	v1.GET("/codes", s.listCodes)
	v1.POST("/decode", s.decode)
	v1.POST("/encode", s.encode)
	v1.POST("/roundtrip", s.roundTrip)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.Appeared).String(),
		"service": s.Name,
		"version": Version,
		"codes":   s.codec.Dictionary().Len(),
		"source":  s.codec.Source(),
	})
}

// listCodes returns the dictionary sorted by name; ?prefix= filters it.
func (s *Server) listCodes(c *gin.Context) {
	prefix := strings.TrimSpace(c.Query("prefix"))
	all := s.codec.Dictionary().Codes()
	list := make([]codes.ContentCode, 0, len(all))
	for _, code := range all {
		if strings.HasPrefix(code.Name, prefix) {
			list = append(list, code)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	c.JSON(http.StatusOK, gin.H{"count": len(list), "codes": list})
}

func (s *Server) decode(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	items, err := s.codec.Decode(body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) encode(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	var req encodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, errBodyTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid_json"})
		return
	}
	out, err := s.codec.Encode(req.Items)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, ContentTypeDMAP, out)
}

func (s *Server) roundTrip(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	report, err := s.codec.RoundTrip(body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = errBodyTooLarge
		}
		s.fail(c, err)
		return nil, false
	}
	return body, true
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := codec.ResultLabel(err)
	if errors.Is(err, errBodyTooLarge) {
		kind = "body_too_large"
	}
	c.JSON(statusFor(err), gin.H{"error": err.Error(), "kind": kind})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, protocol.ErrUnknownField),
		errors.Is(err, protocol.ErrUnsupportedType),
		errors.Is(err, protocol.ErrRecordTooLarge):
		return http.StatusUnprocessableEntity
	case protocol.KindOf(err) != nil:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
